package webapi

import (
	"pipeconsole/internal/domain"
	"pipeconsole/internal/wire"
)

var boolValueSchema = wire.NewSchema("webapi.BoolValue",
	wire.Bool(1, "value"),
)

var addEnvironmentRequestSchema = wire.NewSchema("webapi.AddEnvironmentRequest",
	wire.String(1, "name"),
	wire.String(2, "desc"),
)

var addEnvironmentResponseSchema = wire.NewSchema("webapi.AddEnvironmentResponse",
	wire.String(1, "environmentId"),
)

var listEnvironmentsRequestSchema = wire.NewSchema("webapi.ListEnvironmentsRequest")

var listEnvironmentsResponseSchema = wire.NewSchema("webapi.ListEnvironmentsResponse",
	wire.List(wire.Nested(1, "environmentsList", domain.EnvironmentSchema)),
)

var registerPipedRequestSchema = wire.NewSchema("webapi.RegisterPipedRequest",
	wire.String(1, "name"),
	wire.String(2, "desc"),
	wire.List(wire.String(3, "envIdsList")),
)

var registerPipedResponseSchema = wire.NewSchema("webapi.RegisterPipedResponse",
	wire.String(1, "id"),
	wire.String(2, "key"),
	wire.String(3, "sealedSecretPrivateKey"),
)

var enablePipedRequestSchema = wire.NewSchema("webapi.EnablePipedRequest",
	wire.String(1, "pipedId"),
)

var enablePipedResponseSchema = wire.NewSchema("webapi.EnablePipedResponse")

var disablePipedRequestSchema = wire.NewSchema("webapi.DisablePipedRequest",
	wire.String(1, "pipedId"),
)

var disablePipedResponseSchema = wire.NewSchema("webapi.DisablePipedResponse")

var listPipedsOptionsSchema = wire.NewSchema("webapi.ListPipedsRequest.Options",
	wire.Nested(1, "enabled", boolValueSchema),
)

var listPipedsRequestSchema = wire.NewSchema("webapi.ListPipedsRequest",
	wire.Nested(1, "options", listPipedsOptionsSchema),
)

var listPipedsResponseSchema = wire.NewSchema("webapi.ListPipedsResponse",
	wire.List(wire.Nested(1, "pipedsList", domain.PipedSchema)),
)

var getPipedRequestSchema = wire.NewSchema("webapi.GetPipedRequest",
	wire.String(1, "pipedId"),
)

var getPipedResponseSchema = wire.NewSchema("webapi.GetPipedResponse",
	wire.Nested(1, "piped", domain.PipedSchema),
)

var addApplicationRequestSchema = wire.NewSchema("webapi.AddApplicationRequest",
	wire.String(1, "name"),
	wire.String(2, "envId"),
	wire.String(3, "pipedId"),
	wire.Nested(4, "gitPath", domain.ApplicationGitPathSchema),
	wire.Enum(5, "kind"),
	wire.String(6, "cloudProvider"),
	wire.String(7, "description"),
	wire.StringMap(8, "labelsMap"),
)

var addApplicationResponseSchema = wire.NewSchema("webapi.AddApplicationResponse",
	wire.String(1, "applicationId"),
)

var enableApplicationRequestSchema = wire.NewSchema("webapi.EnableApplicationRequest",
	wire.String(1, "applicationId"),
)

var enableApplicationResponseSchema = wire.NewSchema("webapi.EnableApplicationResponse")

var disableApplicationRequestSchema = wire.NewSchema("webapi.DisableApplicationRequest",
	wire.String(1, "applicationId"),
)

var disableApplicationResponseSchema = wire.NewSchema("webapi.DisableApplicationResponse")

var listApplicationsOptionsSchema = wire.NewSchema("webapi.ListApplicationsRequest.Options",
	wire.Nested(1, "enabled", boolValueSchema),
	wire.List(wire.Enum(2, "kindsList")),
	wire.List(wire.Enum(3, "syncStatusesList")),
	wire.List(wire.String(4, "envIdsList")),
	wire.StringMap(5, "labelsMap"),
)

var listApplicationsRequestSchema = wire.NewSchema("webapi.ListApplicationsRequest",
	wire.Nested(1, "options", listApplicationsOptionsSchema),
)

var listApplicationsResponseSchema = wire.NewSchema("webapi.ListApplicationsResponse",
	wire.List(wire.Nested(1, "applicationsList", domain.ApplicationSchema)),
)

var getApplicationRequestSchema = wire.NewSchema("webapi.GetApplicationRequest",
	wire.String(1, "applicationId"),
)

var getApplicationResponseSchema = wire.NewSchema("webapi.GetApplicationResponse",
	wire.Nested(1, "application", domain.ApplicationSchema),
)

var syncApplicationRequestSchema = wire.NewSchema("webapi.SyncApplicationRequest",
	wire.String(1, "applicationId"),
)

var syncApplicationResponseSchema = wire.NewSchema("webapi.SyncApplicationResponse",
	wire.String(1, "commandId"),
)

var generateApplicationSealedSecretRequestSchema = wire.NewSchema("webapi.GenerateApplicationSealedSecretRequest",
	wire.String(1, "pipedId"),
	wire.String(2, "data"),
	wire.Bool(3, "base64Encoding"),
)

var generateApplicationSealedSecretResponseSchema = wire.NewSchema("webapi.GenerateApplicationSealedSecretResponse",
	wire.String(1, "data"),
)

var listDeploymentsOptionsSchema = wire.NewSchema("webapi.ListDeploymentsRequest.Options",
	wire.List(wire.Enum(1, "statusesList")),
	wire.List(wire.Enum(2, "kindsList")),
	wire.List(wire.String(3, "applicationIdsList")),
	wire.List(wire.String(4, "envIdsList")),
)

var listDeploymentsRequestSchema = wire.NewSchema("webapi.ListDeploymentsRequest",
	wire.Nested(1, "options", listDeploymentsOptionsSchema),
	wire.Int32(2, "pageSize"),
	wire.String(3, "cursor"),
	wire.Int64(4, "pageMinUpdatedAt"),
)

var listDeploymentsResponseSchema = wire.NewSchema("webapi.ListDeploymentsResponse",
	wire.List(wire.Nested(1, "deploymentsList", domain.DeploymentSchema)),
	wire.String(2, "cursor"),
)

var getDeploymentRequestSchema = wire.NewSchema("webapi.GetDeploymentRequest",
	wire.String(1, "deploymentId"),
)

var getDeploymentResponseSchema = wire.NewSchema("webapi.GetDeploymentResponse",
	wire.Nested(1, "deployment", domain.DeploymentSchema),
)

var getStageLogRequestSchema = wire.NewSchema("webapi.GetStageLogRequest",
	wire.String(1, "deploymentId"),
	wire.String(2, "stageId"),
	wire.Int32(3, "retriedCount"),
	wire.Int64(4, "offsetIndex"),
)

var getStageLogResponseSchema = wire.NewSchema("webapi.GetStageLogResponse",
	wire.List(wire.Nested(1, "blocksList", domain.LogBlockSchema)),
	wire.Bool(2, "completed"),
)

var cancelDeploymentRequestSchema = wire.NewSchema("webapi.CancelDeploymentRequest",
	wire.String(1, "deploymentId"),
	wire.Bool(2, "withoutRollback"),
)

var cancelDeploymentResponseSchema = wire.NewSchema("webapi.CancelDeploymentResponse",
	wire.String(1, "commandId"),
)

var approveStageRequestSchema = wire.NewSchema("webapi.ApproveStageRequest",
	wire.String(1, "deploymentId"),
	wire.String(2, "stageId"),
)

var approveStageResponseSchema = wire.NewSchema("webapi.ApproveStageResponse",
	wire.String(1, "commandId"),
)

var listEventsOptionsSchema = wire.NewSchema("webapi.ListEventsRequest.Options",
	wire.List(wire.Enum(1, "statusesList")),
	wire.String(2, "name"),
	wire.StringMap(3, "labelsMap"),
)

var listEventsRequestSchema = wire.NewSchema("webapi.ListEventsRequest",
	wire.Nested(1, "options", listEventsOptionsSchema),
	wire.Int32(2, "pageSize"),
	wire.String(3, "cursor"),
	wire.Int64(4, "pageMinUpdatedAt"),
)

var listEventsResponseSchema = wire.NewSchema("webapi.ListEventsResponse",
	wire.List(wire.Nested(1, "eventsList", domain.EventSchema)),
	wire.String(2, "cursor"),
)

var getCommandRequestSchema = wire.NewSchema("webapi.GetCommandRequest",
	wire.String(1, "commandId"),
)

var getCommandResponseSchema = wire.NewSchema("webapi.GetCommandResponse",
	wire.Nested(1, "command", domain.CommandSchema),
)

var getMeRequestSchema = wire.NewSchema("webapi.GetMeRequest")

var getMeResponseSchema = wire.NewSchema("webapi.GetMeResponse",
	wire.String(1, "subject"),
	wire.String(2, "projectId"),
	wire.String(3, "projectRole"),
)
