package domain

import "pipeconsole/internal/wire"

type Event struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Data              string            `json:"data"`
	ProjectID         string            `json:"projectId"`
	Labels            map[string]string `json:"labelsMap"`
	EventKey          string            `json:"eventKey"`
	Status            EventStatus       `json:"status"`
	StatusDescription string            `json:"statusDescription"`
	HandledAt         int64             `json:"handledAt"`
	CreatedAt         int64             `json:"createdAt"`
	UpdatedAt         int64             `json:"updatedAt"`
}

type Environment struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Desc      string   `json:"desc"`
	ProjectID string   `json:"projectId"`
	PipedIDs  []string `json:"pipedIdsList"`
	CreatedAt int64    `json:"createdAt"`
	UpdatedAt int64    `json:"updatedAt"`
	Deleted   bool     `json:"deleted"`
}

type Command struct {
	ID            string            `json:"id"`
	PipedID       string            `json:"pipedId"`
	ApplicationID string            `json:"applicationId"`
	DeploymentID  string            `json:"deploymentId"`
	StageID       string            `json:"stageId"`
	Commander     string            `json:"commander"`
	Status        CommandStatus     `json:"status"`
	Metadata      map[string]string `json:"metadataMap"`
	HandledAt     int64             `json:"handledAt"`
	Type          CommandType       `json:"type"`
	CreatedAt     int64             `json:"createdAt"`
	UpdatedAt     int64             `json:"updatedAt"`
}

type LogBlock struct {
	Index     int64       `json:"index"`
	Log       string      `json:"log"`
	Severity  LogSeverity `json:"severity"`
	CreatedAt int64       `json:"createdAt"`
}

var EventSchema = wire.NewSchema("model.Event",
	wire.Required(wire.String(1, "id")),
	wire.String(2, "name"),
	wire.String(3, "data"),
	wire.String(4, "projectId"),
	wire.StringMap(5, "labelsMap"),
	wire.String(6, "eventKey"),
	wire.Enum(7, "status"),
	wire.String(8, "statusDescription"),
	wire.Int64(9, "handledAt"),
	wire.Int64(10, "createdAt"),
	wire.Int64(11, "updatedAt"),
)

var EnvironmentSchema = wire.NewSchema("model.Environment",
	wire.Required(wire.String(1, "id")),
	wire.String(2, "name"),
	wire.String(3, "desc"),
	wire.String(4, "projectId"),
	wire.List(wire.String(5, "pipedIdsList")),
	wire.Int64(6, "createdAt"),
	wire.Int64(7, "updatedAt"),
	wire.Bool(8, "deleted"),
)

var CommandSchema = wire.NewSchema("model.Command",
	wire.Required(wire.String(1, "id")),
	wire.String(2, "pipedId"),
	wire.String(3, "applicationId"),
	wire.String(4, "deploymentId"),
	wire.String(5, "stageId"),
	wire.String(6, "commander"),
	wire.Enum(7, "status"),
	wire.StringMap(8, "metadataMap"),
	wire.Int64(9, "handledAt"),
	wire.Enum(10, "type"),
	wire.Int64(11, "createdAt"),
	wire.Int64(12, "updatedAt"),
)

var LogBlockSchema = wire.NewSchema("model.LogBlock",
	wire.Int64(1, "index"),
	wire.String(2, "log"),
	wire.Enum(3, "severity"),
	wire.Int64(4, "createdAt"),
)
