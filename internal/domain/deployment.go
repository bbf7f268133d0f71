package domain

import "pipeconsole/internal/wire"

type Commit struct {
	Hash        string `json:"hash"`
	Message     string `json:"message"`
	Author      string `json:"author"`
	Branch      string `json:"branch"`
	PullRequest int64  `json:"pullRequest"`
	URL         string `json:"url"`
	CreatedAt   int64  `json:"createdAt"`
}

type DeploymentTrigger struct {
	Commit    *Commit `json:"commit,omitempty"`
	Commander string  `json:"commander"`
	Timestamp int64   `json:"timestamp"`
}

type PipelineStage struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Desc         string            `json:"desc"`
	Index        int32             `json:"index"`
	Predefined   bool              `json:"predefined"`
	Requires     []string          `json:"requiresList"`
	Visible      bool              `json:"visible"`
	Status       StageStatus       `json:"status"`
	StatusReason string            `json:"statusReason"`
	Metadata     map[string]string `json:"metadataMap"`
	RetriedCount int32             `json:"retriedCount"`
	CompletedAt  int64             `json:"completedAt"`
	CreatedAt    int64             `json:"createdAt"`
	UpdatedAt    int64             `json:"updatedAt"`
}

type Deployment struct {
	ID                string              `json:"id"`
	ApplicationID     string              `json:"applicationId"`
	ApplicationName   string              `json:"applicationName"`
	EnvID             string              `json:"envId"`
	PipedID           string              `json:"pipedId"`
	ProjectID         string              `json:"projectId"`
	Kind              ApplicationKind     `json:"kind"`
	GitPath           *ApplicationGitPath `json:"gitPath,omitempty"`
	CloudProvider     string              `json:"cloudProvider"`
	Labels            map[string]string   `json:"labelsMap"`
	Trigger           *DeploymentTrigger  `json:"trigger,omitempty"`
	Summary           string              `json:"summary"`
	Version           string              `json:"version"`
	RunningCommitHash string              `json:"runningCommitHash"`
	Status            DeploymentStatus    `json:"status"`
	StatusReason      string              `json:"statusReason"`
	Stages            []*PipelineStage    `json:"stagesList"`
	Metadata          map[string]string   `json:"metadataMap"`
	CompletedAt       int64               `json:"completedAt"`
	CreatedAt         int64               `json:"createdAt"`
	UpdatedAt         int64               `json:"updatedAt"`
}

// StageStatusMap indexes stage statuses by stage id.
func (d *Deployment) StageStatusMap() map[string]StageStatus {
	m := make(map[string]StageStatus, len(d.Stages))
	for _, s := range d.Stages {
		m[s.ID] = s.Status
	}
	return m
}

// Stage returns the stage with the given id.
func (d *Deployment) Stage(id string) (*PipelineStage, bool) {
	for _, s := range d.Stages {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

var CommitSchema = wire.NewSchema("model.Commit",
	wire.String(1, "hash"),
	wire.String(2, "message"),
	wire.String(3, "author"),
	wire.String(4, "branch"),
	wire.Int64(5, "pullRequest"),
	wire.String(6, "url"),
	wire.Int64(7, "createdAt"),
)

var DeploymentTriggerSchema = wire.NewSchema("model.DeploymentTrigger",
	wire.Nested(1, "commit", CommitSchema),
	wire.String(2, "commander"),
	wire.Int64(3, "timestamp"),
)

var PipelineStageSchema = wire.NewSchema("model.PipelineStage",
	wire.Required(wire.String(1, "id")),
	wire.String(2, "name"),
	wire.String(3, "desc"),
	wire.Int32(4, "index"),
	wire.Bool(5, "predefined"),
	wire.List(wire.String(6, "requiresList")),
	wire.Bool(7, "visible"),
	wire.Enum(8, "status"),
	wire.String(9, "statusReason"),
	wire.StringMap(10, "metadataMap"),
	wire.Int32(11, "retriedCount"),
	wire.Int64(12, "completedAt"),
	wire.Int64(13, "createdAt"),
	wire.Int64(14, "updatedAt"),
)

var DeploymentSchema = wire.NewSchema("model.Deployment",
	wire.Required(wire.String(1, "id")),
	wire.String(2, "applicationId"),
	wire.String(3, "applicationName"),
	wire.String(4, "envId"),
	wire.String(5, "pipedId"),
	wire.String(6, "projectId"),
	wire.Enum(7, "kind"),
	wire.Nested(8, "gitPath", ApplicationGitPathSchema),
	wire.String(9, "cloudProvider"),
	wire.StringMap(10, "labelsMap"),
	wire.Nested(11, "trigger", DeploymentTriggerSchema),
	wire.String(12, "summary"),
	wire.String(13, "version"),
	wire.String(14, "runningCommitHash"),
	wire.Enum(15, "status"),
	wire.String(16, "statusReason"),
	wire.List(wire.Nested(17, "stagesList", PipelineStageSchema)),
	wire.StringMap(18, "metadataMap"),
	wire.Int64(19, "completedAt"),
	wire.Int64(20, "createdAt"),
	wire.Int64(21, "updatedAt"),
)
