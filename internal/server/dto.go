package server

import "pipeconsole/internal/domain"

// Request payloads

type NewEnvironmentBody struct {
	Name string `json:"name"`
	Desc string `json:"desc,omitempty"`
}

type NewPipedBody struct {
	Name   string   `json:"name"`
	Desc   string   `json:"desc,omitempty"`
	EnvIDs []string `json:"envIds,omitempty"`
}

type GitPathBody struct {
	RepoID         string `json:"repoId"`
	Remote         string `json:"remote,omitempty"`
	Branch         string `json:"branch,omitempty"`
	Path           string `json:"path,omitempty"`
	ConfigFilename string `json:"configFilename,omitempty"`
}

type NewApplicationBody struct {
	Name          string            `json:"name"`
	EnvID         string            `json:"envId"`
	PipedID       string            `json:"pipedId"`
	Kind          string            `json:"kind" enum:"KUBERNETES,TERRAFORM,LAMBDA,CLOUDRUN,ECS"`
	GitPath       GitPathBody       `json:"gitPath"`
	CloudProvider string            `json:"cloudProvider,omitempty"`
	Description   string            `json:"description,omitempty"`
	Labels        map[string]string `json:"labels,omitempty"`
}

type SealedSecretBody struct {
	Data           string `json:"data"`
	Base64Encoding bool   `json:"base64Encoding,omitempty"`
}

type CancelDeploymentBody struct {
	WithoutRollback bool `json:"withoutRollback,omitempty"`
}

// Response payloads

type IDResult struct {
	ID string `json:"id"`
}

type CommandResult struct {
	CommandID string `json:"commandId"`
}

type SealedSecretResult struct {
	Data string `json:"data"`
}

// Overview summarizes a project for the console landing page.
type Overview struct {
	ProjectID          string                `json:"projectId"`
	Me                 OverviewMe            `json:"me"`
	Applications       int                   `json:"applications"`
	ApplicationsByKind map[string]int        `json:"applicationsByKind"`
	SyncStatuses       map[string]int        `json:"syncStatuses"`
	RunningDeployments []*domain.Deployment  `json:"runningDeployments"`
	Pipeds             int                   `json:"pipeds"`
	PipedStatuses      map[string]int        `json:"pipedStatuses"`
	PendingEvents      int                   `json:"pendingEvents"`
	Environments       []*domain.Environment `json:"environments"`
}

type OverviewMe struct {
	Subject string `json:"subject"`
	Role    string `json:"role"`
}
