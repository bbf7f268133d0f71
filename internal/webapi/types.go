package webapi

import "pipeconsole/internal/domain"

// BoolValue distinguishes an unset boolean filter from false.
type BoolValue struct {
	Value bool `json:"value"`
}

// Bool wraps v for use in filter options.
func Bool(v bool) *BoolValue { return &BoolValue{Value: v} }

type AddEnvironmentRequest struct {
	Name string `json:"name"`
	Desc string `json:"desc"`
}

type AddEnvironmentResponse struct {
	EnvironmentID string `json:"environmentId"`
}

type ListEnvironmentsRequest struct{}

type ListEnvironmentsResponse struct {
	Environments []*domain.Environment `json:"environmentsList"`
}

type RegisterPipedRequest struct {
	Name   string   `json:"name"`
	Desc   string   `json:"desc"`
	EnvIDs []string `json:"envIdsList"`
}

// RegisterPipedResponse returns the piped credentials. They are only ever
// shown once.
type RegisterPipedResponse struct {
	ID                     string `json:"id"`
	Key                    string `json:"key"`
	SealedSecretPrivateKey string `json:"sealedSecretPrivateKey"`
}

type EnablePipedRequest struct {
	PipedID string `json:"pipedId"`
}

type EnablePipedResponse struct{}

type DisablePipedRequest struct {
	PipedID string `json:"pipedId"`
}

type DisablePipedResponse struct{}

type ListPipedsOptions struct {
	Enabled *BoolValue `json:"enabled,omitempty"`
}

type ListPipedsRequest struct {
	Options *ListPipedsOptions `json:"options,omitempty"`
}

type ListPipedsResponse struct {
	Pipeds []*domain.Piped `json:"pipedsList"`
}

type GetPipedRequest struct {
	PipedID string `json:"pipedId"`
}

type GetPipedResponse struct {
	Piped *domain.Piped `json:"piped,omitempty"`
}

type AddApplicationRequest struct {
	Name          string                     `json:"name"`
	EnvID         string                     `json:"envId"`
	PipedID       string                     `json:"pipedId"`
	GitPath       *domain.ApplicationGitPath `json:"gitPath,omitempty"`
	Kind          domain.ApplicationKind     `json:"kind"`
	CloudProvider string                     `json:"cloudProvider"`
	Description   string                     `json:"description"`
	Labels        map[string]string          `json:"labelsMap"`
}

type AddApplicationResponse struct {
	ApplicationID string `json:"applicationId"`
}

type EnableApplicationRequest struct {
	ApplicationID string `json:"applicationId"`
}

type EnableApplicationResponse struct{}

type DisableApplicationRequest struct {
	ApplicationID string `json:"applicationId"`
}

type DisableApplicationResponse struct{}

type ListApplicationsOptions struct {
	Enabled      *BoolValue                     `json:"enabled,omitempty"`
	Kinds        []domain.ApplicationKind       `json:"kindsList"`
	SyncStatuses []domain.ApplicationSyncStatus `json:"syncStatusesList"`
	EnvIDs       []string                       `json:"envIdsList"`
	Labels       map[string]string              `json:"labelsMap"`
}

type ListApplicationsRequest struct {
	Options *ListApplicationsOptions `json:"options,omitempty"`
}

type ListApplicationsResponse struct {
	Applications []*domain.Application `json:"applicationsList"`
}

type GetApplicationRequest struct {
	ApplicationID string `json:"applicationId"`
}

type GetApplicationResponse struct {
	Application *domain.Application `json:"application,omitempty"`
}

type SyncApplicationRequest struct {
	ApplicationID string `json:"applicationId"`
}

type SyncApplicationResponse struct {
	CommandID string `json:"commandId"`
}

type GenerateApplicationSealedSecretRequest struct {
	PipedID        string `json:"pipedId"`
	Data           string `json:"data"`
	Base64Encoding bool   `json:"base64Encoding"`
}

type GenerateApplicationSealedSecretResponse struct {
	Data string `json:"data"`
}

type ListDeploymentsOptions struct {
	Statuses       []domain.DeploymentStatus `json:"statusesList"`
	Kinds          []domain.ApplicationKind  `json:"kindsList"`
	ApplicationIDs []string                  `json:"applicationIdsList"`
	EnvIDs         []string                  `json:"envIdsList"`
}

type ListDeploymentsRequest struct {
	Options          *ListDeploymentsOptions `json:"options,omitempty"`
	PageSize         int32                   `json:"pageSize"`
	Cursor           string                  `json:"cursor"`
	PageMinUpdatedAt int64                   `json:"pageMinUpdatedAt"`
}

type ListDeploymentsResponse struct {
	Deployments []*domain.Deployment `json:"deploymentsList"`
	Cursor      string               `json:"cursor"`
}

type GetDeploymentRequest struct {
	DeploymentID string `json:"deploymentId"`
}

type GetDeploymentResponse struct {
	Deployment *domain.Deployment `json:"deployment,omitempty"`
}

type GetStageLogRequest struct {
	DeploymentID string `json:"deploymentId"`
	StageID      string `json:"stageId"`
	RetriedCount int32  `json:"retriedCount"`
	OffsetIndex  int64  `json:"offsetIndex"`
}

type GetStageLogResponse struct {
	Blocks    []*domain.LogBlock `json:"blocksList"`
	Completed bool               `json:"completed"`
}

type CancelDeploymentRequest struct {
	DeploymentID    string `json:"deploymentId"`
	WithoutRollback bool   `json:"withoutRollback"`
}

type CancelDeploymentResponse struct {
	CommandID string `json:"commandId"`
}

type ApproveStageRequest struct {
	DeploymentID string `json:"deploymentId"`
	StageID      string `json:"stageId"`
}

type ApproveStageResponse struct {
	CommandID string `json:"commandId"`
}

type ListEventsOptions struct {
	Statuses []domain.EventStatus `json:"statusesList"`
	Name     string               `json:"name"`
	Labels   map[string]string    `json:"labelsMap"`
}

type ListEventsRequest struct {
	Options          *ListEventsOptions `json:"options,omitempty"`
	PageSize         int32              `json:"pageSize"`
	Cursor           string             `json:"cursor"`
	PageMinUpdatedAt int64              `json:"pageMinUpdatedAt"`
}

type ListEventsResponse struct {
	Events []*domain.Event `json:"eventsList"`
	Cursor string          `json:"cursor"`
}

type GetCommandRequest struct {
	CommandID string `json:"commandId"`
}

type GetCommandResponse struct {
	Command *domain.Command `json:"command,omitempty"`
}

type GetMeRequest struct{}

type GetMeResponse struct {
	Subject     string `json:"subject"`
	ProjectID   string `json:"projectId"`
	ProjectRole string `json:"projectRole"`
}
