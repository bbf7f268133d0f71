package domain

import "pipeconsole/internal/wire"

type ApplicationGitRepository struct {
	ID     string `json:"id"`
	Remote string `json:"remote"`
	Branch string `json:"branch"`
}

type ApplicationGitPath struct {
	Repo           *ApplicationGitRepository `json:"repo,omitempty"`
	Path           string                    `json:"path"`
	ConfigPath     string                    `json:"configPath"`
	ConfigFilename string                    `json:"configFilename"`
	URL            string                    `json:"url"`
}

type ApplicationSyncState struct {
	Status           ApplicationSyncStatus `json:"status"`
	ShortReason      string                `json:"shortReason"`
	Reason           string                `json:"reason"`
	HeadDeploymentID string                `json:"headDeploymentId"`
	Timestamp        int64                 `json:"timestamp"`
}

// ApplicationDeploymentReference points at a deployment of an application.
// A nil reference means no such deployment happened yet.
type ApplicationDeploymentReference struct {
	DeploymentID string             `json:"deploymentId"`
	Trigger      *DeploymentTrigger `json:"trigger,omitempty"`
	Summary      string             `json:"summary"`
	Version      string             `json:"version"`
	StartedAt    int64              `json:"startedAt"`
	CompletedAt  int64              `json:"completedAt"`
}

type Application struct {
	ID                               string                          `json:"id"`
	Name                             string                          `json:"name"`
	EnvID                            string                          `json:"envId"`
	PipedID                          string                          `json:"pipedId"`
	ProjectID                        string                          `json:"projectId"`
	Kind                             ApplicationKind                 `json:"kind"`
	GitPath                          *ApplicationGitPath             `json:"gitPath,omitempty"`
	CloudProvider                    string                          `json:"cloudProvider"`
	Description                      string                          `json:"description"`
	Labels                           map[string]string               `json:"labelsMap"`
	Disabled                         bool                            `json:"disabled"`
	SyncState                        *ApplicationSyncState           `json:"syncState,omitempty"`
	Deploying                        bool                            `json:"deploying"`
	MostRecentlySuccessfulDeployment *ApplicationDeploymentReference `json:"mostRecentlySuccessfulDeployment,omitempty"`
	MostRecentlyTriggeredDeployment  *ApplicationDeploymentReference `json:"mostRecentlyTriggeredDeployment,omitempty"`
	CreatedAt                        int64                           `json:"createdAt"`
	UpdatedAt                        int64                           `json:"updatedAt"`
	Deleted                          bool                            `json:"deleted"`
	DeletedAt                        int64                           `json:"deletedAt"`
}

var ApplicationGitRepositorySchema = wire.NewSchema("model.ApplicationGitRepository",
	wire.String(1, "id"),
	wire.String(2, "remote"),
	wire.String(3, "branch"),
)

var ApplicationGitPathSchema = wire.NewSchema("model.ApplicationGitPath",
	wire.Nested(1, "repo", ApplicationGitRepositorySchema),
	wire.String(2, "path"),
	wire.String(3, "configPath"),
	wire.String(4, "configFilename"),
	wire.String(5, "url"),
)

var ApplicationSyncStateSchema = wire.NewSchema("model.ApplicationSyncState",
	wire.Enum(1, "status"),
	wire.String(2, "shortReason"),
	wire.String(3, "reason"),
	wire.String(4, "headDeploymentId"),
	wire.Int64(5, "timestamp"),
)

var ApplicationDeploymentReferenceSchema = wire.NewSchema("model.ApplicationDeploymentReference",
	wire.String(1, "deploymentId"),
	wire.Nested(2, "trigger", DeploymentTriggerSchema),
	wire.String(3, "summary"),
	wire.String(4, "version"),
	wire.Int64(5, "startedAt"),
	wire.Int64(6, "completedAt"),
)

var ApplicationSchema = wire.NewSchema("model.Application",
	wire.Required(wire.String(1, "id")),
	wire.String(2, "name"),
	wire.String(3, "envId"),
	wire.String(4, "pipedId"),
	wire.String(5, "projectId"),
	wire.Enum(6, "kind"),
	wire.Nested(7, "gitPath", ApplicationGitPathSchema),
	wire.String(8, "cloudProvider"),
	wire.String(9, "description"),
	wire.StringMap(10, "labelsMap"),
	wire.Bool(11, "disabled"),
	wire.Nested(12, "syncState", ApplicationSyncStateSchema),
	wire.Bool(13, "deploying"),
	wire.Nested(14, "mostRecentlySuccessfulDeployment", ApplicationDeploymentReferenceSchema),
	wire.Nested(15, "mostRecentlyTriggeredDeployment", ApplicationDeploymentReferenceSchema),
	wire.Int64(16, "createdAt"),
	wire.Int64(17, "updatedAt"),
	wire.Bool(18, "deleted"),
	wire.Int64(19, "deletedAt"),
)
