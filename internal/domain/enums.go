package domain

import (
	"fmt"
	"strings"
)

type ApplicationKind int32

const (
	ApplicationKindKubernetes ApplicationKind = 0
	ApplicationKindTerraform  ApplicationKind = 1
	ApplicationKindLambda     ApplicationKind = 3
	ApplicationKindCloudRun   ApplicationKind = 4
	ApplicationKindECS        ApplicationKind = 5
)

var applicationKindNames = map[ApplicationKind]string{
	ApplicationKindKubernetes: "KUBERNETES",
	ApplicationKindTerraform:  "TERRAFORM",
	ApplicationKindLambda:     "LAMBDA",
	ApplicationKindCloudRun:   "CLOUDRUN",
	ApplicationKindECS:        "ECS",
}

// ApplicationKinds lists every kind in declaration order.
var ApplicationKinds = []ApplicationKind{
	ApplicationKindKubernetes,
	ApplicationKindTerraform,
	ApplicationKindLambda,
	ApplicationKindCloudRun,
	ApplicationKindECS,
}

func (k ApplicationKind) String() string { return enumName(applicationKindNames, k) }

func ParseApplicationKind(s string) (ApplicationKind, error) {
	return parseEnum(applicationKindNames, "application kind", s)
}

type ApplicationSyncStatus int32

const (
	ApplicationSyncStatusUnknown   ApplicationSyncStatus = 0
	ApplicationSyncStatusSynced    ApplicationSyncStatus = 1
	ApplicationSyncStatusDeploying ApplicationSyncStatus = 2
	ApplicationSyncStatusOutOfSync ApplicationSyncStatus = 3
)

var syncStatusNames = map[ApplicationSyncStatus]string{
	ApplicationSyncStatusUnknown:   "UNKNOWN",
	ApplicationSyncStatusSynced:    "SYNCED",
	ApplicationSyncStatusDeploying: "DEPLOYING",
	ApplicationSyncStatusOutOfSync: "OUT_OF_SYNC",
}

func (s ApplicationSyncStatus) String() string { return enumName(syncStatusNames, s) }

func ParseApplicationSyncStatus(s string) (ApplicationSyncStatus, error) {
	return parseEnum(syncStatusNames, "sync status", s)
}

type DeploymentStatus int32

const (
	DeploymentStatusPending     DeploymentStatus = 0
	DeploymentStatusPlanned     DeploymentStatus = 1
	DeploymentStatusRunning     DeploymentStatus = 2
	DeploymentStatusRollingBack DeploymentStatus = 3
	DeploymentStatusSuccess     DeploymentStatus = 4
	DeploymentStatusFailure     DeploymentStatus = 5
	DeploymentStatusCancelled   DeploymentStatus = 6
)

var deploymentStatusNames = map[DeploymentStatus]string{
	DeploymentStatusPending:     "DEPLOYMENT_PENDING",
	DeploymentStatusPlanned:     "DEPLOYMENT_PLANNED",
	DeploymentStatusRunning:     "DEPLOYMENT_RUNNING",
	DeploymentStatusRollingBack: "DEPLOYMENT_ROLLING_BACK",
	DeploymentStatusSuccess:     "DEPLOYMENT_SUCCESS",
	DeploymentStatusFailure:     "DEPLOYMENT_FAILURE",
	DeploymentStatusCancelled:   "DEPLOYMENT_CANCELLED",
}

func (s DeploymentStatus) String() string { return enumName(deploymentStatusNames, s) }

func ParseDeploymentStatus(s string) (DeploymentStatus, error) {
	if !strings.HasPrefix(strings.ToUpper(s), "DEPLOYMENT_") {
		s = "DEPLOYMENT_" + s
	}
	return parseEnum(deploymentStatusNames, "deployment status", s)
}

// IsCompletedDeployment reports whether status is terminal.
func IsCompletedDeployment(s DeploymentStatus) bool {
	switch s {
	case DeploymentStatusSuccess, DeploymentStatusFailure, DeploymentStatusCancelled:
		return true
	}
	return false
}

type StageStatus int32

const (
	StageStatusNotStartedYet StageStatus = 0
	StageStatusRunning       StageStatus = 1
	StageStatusSuccess       StageStatus = 2
	StageStatusFailure       StageStatus = 3
	StageStatusCancelled     StageStatus = 4
)

var stageStatusNames = map[StageStatus]string{
	StageStatusNotStartedYet: "STAGE_NOT_STARTED_YET",
	StageStatusRunning:       "STAGE_RUNNING",
	StageStatusSuccess:       "STAGE_SUCCESS",
	StageStatusFailure:       "STAGE_FAILURE",
	StageStatusCancelled:     "STAGE_CANCELLED",
}

func (s StageStatus) String() string { return enumName(stageStatusNames, s) }

// IsCompletedStage reports whether status is terminal.
func IsCompletedStage(s StageStatus) bool {
	switch s {
	case StageStatusSuccess, StageStatusFailure, StageStatusCancelled:
		return true
	}
	return false
}

type EventStatus int32

const (
	EventStatusNotHandled EventStatus = 0
	EventStatusSuccess    EventStatus = 1
	EventStatusFailure    EventStatus = 2
	EventStatusOutdated   EventStatus = 3
)

var eventStatusNames = map[EventStatus]string{
	EventStatusNotHandled: "EVENT_NOT_HANDLED",
	EventStatusSuccess:    "EVENT_SUCCESS",
	EventStatusFailure:    "EVENT_FAILURE",
	EventStatusOutdated:   "EVENT_OUTDATED",
}

func (s EventStatus) String() string { return enumName(eventStatusNames, s) }

func ParseEventStatus(s string) (EventStatus, error) {
	if !strings.HasPrefix(strings.ToUpper(s), "EVENT_") {
		s = "EVENT_" + s
	}
	return parseEnum(eventStatusNames, "event status", s)
}

type CommandStatus int32

const (
	CommandStatusNotHandledYet CommandStatus = 0
	CommandStatusSucceeded     CommandStatus = 1
	CommandStatusFailed        CommandStatus = 2
	CommandStatusTimeout       CommandStatus = 3
)

var commandStatusNames = map[CommandStatus]string{
	CommandStatusNotHandledYet: "COMMAND_NOT_HANDLED_YET",
	CommandStatusSucceeded:     "COMMAND_SUCCEEDED",
	CommandStatusFailed:        "COMMAND_FAILED",
	CommandStatusTimeout:       "COMMAND_TIMEOUT",
}

func (s CommandStatus) String() string { return enumName(commandStatusNames, s) }

type CommandType int32

const (
	CommandTypeSyncApplication  CommandType = 0
	CommandTypeCancelDeployment CommandType = 1
	CommandTypeApproveStage     CommandType = 2
)

var commandTypeNames = map[CommandType]string{
	CommandTypeSyncApplication:  "SYNC_APPLICATION",
	CommandTypeCancelDeployment: "CANCEL_DEPLOYMENT",
	CommandTypeApproveStage:     "APPROVE_STAGE",
}

func (t CommandType) String() string { return enumName(commandTypeNames, t) }

type PipedConnectionStatus int32

const (
	PipedConnectionStatusUnknown PipedConnectionStatus = 0
	PipedConnectionStatusOnline  PipedConnectionStatus = 1
	PipedConnectionStatusOffline PipedConnectionStatus = 2
)

var pipedStatusNames = map[PipedConnectionStatus]string{
	PipedConnectionStatusUnknown: "UNKNOWN",
	PipedConnectionStatusOnline:  "ONLINE",
	PipedConnectionStatusOffline: "OFFLINE",
}

func (s PipedConnectionStatus) String() string { return enumName(pipedStatusNames, s) }

type LogSeverity int32

const (
	LogSeverityInfo    LogSeverity = 0
	LogSeveritySuccess LogSeverity = 1
	LogSeverityError   LogSeverity = 2
)

var logSeverityNames = map[LogSeverity]string{
	LogSeverityInfo:    "INFO",
	LogSeveritySuccess: "SUCCESS",
	LogSeverityError:   "ERROR",
}

func (s LogSeverity) String() string { return enumName(logSeverityNames, s) }

func enumName[E ~int32](names map[E]string, v E) string {
	if n, ok := names[v]; ok {
		return n
	}
	return fmt.Sprintf("%d", int32(v))
}

func parseEnum[E ~int32](names map[E]string, what, s string) (E, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for v, n := range names {
		if n == want {
			return v, nil
		}
	}
	return 0, fmt.Errorf("invalid %s %q", what, s)
}
