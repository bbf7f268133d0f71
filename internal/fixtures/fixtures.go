// Package fixtures builds internally consistent plain objects for tests and
// demos. Every builder returns a fresh object graph; nothing is shared
// between calls.
package fixtures

import (
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"

	"pipeconsole/internal/domain"
	"pipeconsole/internal/dto"
	"pipeconsole/internal/wire"
)

const ProjectID = "project-1"

// maxTimeOffset bounds how far in the past RandTimes reaches.
const maxTimeOffset = 72 * time.Hour

// NewID returns a fresh unique identifier.
func NewID() string { return uuid.NewString() }

// RandTimes returns n unix timestamps in seconds taken from now minus random
// offsets, in ascending order.
func RandTimes(n int) []int64 {
	return randTimesAt(time.Now(), n)
}

func randTimesAt(now time.Time, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		offset := time.Duration(rand.Int64N(int64(maxTimeOffset)))
		out[i] = now.Add(-offset).Unix()
	}
	slices.Sort(out)
	return out
}

// MustMessage marshals plain with s and panics on a shape mismatch.
func MustMessage(s *wire.Schema, plain any) *wire.Message {
	m, err := dto.Marshal(s, plain)
	if err != nil {
		panic(err)
	}
	return m
}

func Environment() *domain.Environment {
	times := RandTimes(2)
	return &domain.Environment{
		ID:        NewID(),
		Name:      "staging",
		Desc:      "staging environment",
		ProjectID: ProjectID,
		PipedIDs:  []string{},
		CreatedAt: times[0],
		UpdatedAt: times[1],
	}
}

func Repository() *domain.ApplicationGitRepository {
	return &domain.ApplicationGitRepository{
		ID:     "debug-repo",
		Remote: "git@github.com:pipe-cd/debug.git",
		Branch: "master",
	}
}

func Piped(envIDs ...string) *domain.Piped {
	times := RandTimes(3)
	return &domain.Piped{
		ID:        NewID(),
		Name:      "dev",
		Desc:      "piped for the dev cluster",
		ProjectID: ProjectID,
		Version:   "v0.1.0",
		StartedAt: times[1],
		CloudProviders: []*domain.PipedCloudProvider{
			{Name: "kubernetes-default", Type: "KUBERNETES"},
			{Name: "terraform-default", Type: "TERRAFORM"},
		},
		Repositories: []*domain.ApplicationGitRepository{Repository()},
		EnvIDs:       append([]string{}, envIDs...),
		Status:       domain.PipedConnectionStatusOnline,
		KeyHash:      "redacted",
		CreatedAt:    times[0],
		UpdatedAt:    times[2],
	}
}

func Commit() *domain.Commit {
	times := RandTimes(1)
	return &domain.Commit{
		Hash:      "3808585b46f1e90196d7ffe8dd04c807a251febc",
		Message:   "Add web page routing (#133)",
		Author:    "cakecatz",
		Branch:    "master",
		URL:       "https://github.com/pipe-cd/debug/commit/3808585b46f1e90196d7ffe8dd04c807a251febc",
		CreatedAt: times[0],
	}
}

func Trigger() *domain.DeploymentTrigger {
	times := RandTimes(1)
	return &domain.DeploymentTrigger{
		Commit:    Commit(),
		Commander: "user",
		Timestamp: times[0],
	}
}

func SyncState() *domain.ApplicationSyncState {
	return &domain.ApplicationSyncState{
		Status:           domain.ApplicationSyncStatusSynced,
		HeadDeploymentID: "deployment-1",
	}
}

// Application returns the baseline application, a Kubernetes one.
func Application() *domain.Application {
	times := RandTimes(3)
	createdAt, startedAt, updatedAt := times[0], times[1], times[2]
	return &domain.Application{
		ID:            NewID(),
		Name:          "DemoApp",
		EnvID:         NewID(),
		PipedID:       NewID(),
		ProjectID:     ProjectID,
		Kind:          domain.ApplicationKindKubernetes,
		CloudProvider: "kubernetes-default",
		GitPath: &domain.ApplicationGitPath{
			Repo: Repository(),
			Path: "dir/dir1",
		},
		Labels:    map[string]string{},
		SyncState: SyncState(),
		MostRecentlySuccessfulDeployment: &domain.ApplicationDeploymentReference{
			DeploymentID: "deployment-1",
			Trigger:      Trigger(),
			Version:      "v1",
			StartedAt:    startedAt,
		},
		MostRecentlyTriggeredDeployment: &domain.ApplicationDeploymentReference{
			DeploymentID: "deployment-1",
			Trigger:      Trigger(),
			Summary:      "summary",
			Version:      "v1",
			StartedAt:    startedAt,
		},
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

type kindOverride struct {
	name          string
	cloudProvider string
}

var kindOverrides = map[domain.ApplicationKind]kindOverride{
	domain.ApplicationKindKubernetes: {"DemoApp", "kubernetes-default"},
	domain.ApplicationKindTerraform:  {"Terraform App", "terraform-default"},
	domain.ApplicationKindLambda:     {"Lambda App", "lambda-default"},
	domain.ApplicationKindCloudRun:   {"CloudRun App", "cloud-run-default"},
	domain.ApplicationKindECS:        {"ECS App", "ecs-default"},
}

// ApplicationOf derives an application of kind from a fresh baseline.
func ApplicationOf(kind domain.ApplicationKind) *domain.Application {
	app := Application()
	if o, ok := kindOverrides[kind]; ok {
		app.Name = o.name
		app.CloudProvider = o.cloudProvider
	}
	app.Kind = kind
	return app
}

// Applications returns one application per kind.
func Applications() map[domain.ApplicationKind]*domain.Application {
	out := make(map[domain.ApplicationKind]*domain.Application, len(domain.ApplicationKinds))
	for _, k := range domain.ApplicationKinds {
		out[k] = ApplicationOf(k)
	}
	return out
}

// Stages returns a canary pipeline waiting for approval.
func Stages() []*domain.PipelineStage {
	times := RandTimes(3)
	return []*domain.PipelineStage{
		{
			ID:          "stage-canary",
			Name:        "K8S_CANARY_ROLLOUT",
			Desc:        "Rollout canary variant",
			Index:       0,
			Requires:    []string{},
			Visible:     true,
			Status:      domain.StageStatusSuccess,
			Metadata:    map[string]string{},
			CompletedAt: times[1],
			CreatedAt:   times[0],
			UpdatedAt:   times[1],
		},
		{
			ID:        "stage-approval",
			Name:      "WAIT_APPROVAL",
			Desc:      "Wait for an approval",
			Index:     1,
			Requires:  []string{"stage-canary"},
			Visible:   true,
			Status:    domain.StageStatusRunning,
			Metadata:  map[string]string{},
			CreatedAt: times[0],
			UpdatedAt: times[2],
		},
		{
			ID:        "stage-primary",
			Name:      "K8S_PRIMARY_ROLLOUT",
			Desc:      "Rollout primary variant",
			Index:     2,
			Requires:  []string{"stage-approval"},
			Visible:   true,
			Status:    domain.StageStatusNotStartedYet,
			Metadata:  map[string]string{},
			CreatedAt: times[0],
			UpdatedAt: times[0],
		},
	}
}

// Deployment returns a running deployment of app.
func Deployment(app *domain.Application) *domain.Deployment {
	times := RandTimes(2)
	trigger := Trigger()
	return &domain.Deployment{
		ID:                NewID(),
		ApplicationID:     app.ID,
		ApplicationName:   app.Name,
		EnvID:             app.EnvID,
		PipedID:           app.PipedID,
		ProjectID:         app.ProjectID,
		Kind:              app.Kind,
		GitPath:           &domain.ApplicationGitPath{Repo: Repository(), Path: app.GitPath.Path},
		CloudProvider:     app.CloudProvider,
		Labels:            map[string]string{"env": "dev"},
		Trigger:           trigger,
		Summary:           "Quick sync by applying all manifests because it was pushed by a user",
		Version:           "v0.1.0",
		RunningCommitHash: trigger.Commit.Hash,
		Status:            domain.DeploymentStatusRunning,
		StatusReason:      "The deployment is waiting for approval",
		Stages:            Stages(),
		Metadata:          map[string]string{},
		CreatedAt:         times[0],
		UpdatedAt:         times[1],
	}
}

func Event() *domain.Event {
	times := RandTimes(2)
	return &domain.Event{
		ID:        NewID(),
		Name:      "image-update",
		Data:      "gcr.io/pipecd/helloworld:v0.2.0",
		ProjectID: ProjectID,
		Labels:    map[string]string{"app": "helloworld", "env": "dev"},
		EventKey:  "image-update/app=helloworld,env=dev",
		Status:    domain.EventStatusNotHandled,
		CreatedAt: times[0],
		UpdatedAt: times[1],
	}
}

func Command(t domain.CommandType) *domain.Command {
	times := RandTimes(2)
	return &domain.Command{
		ID:        NewID(),
		PipedID:   NewID(),
		Commander: "user",
		Status:    domain.CommandStatusNotHandledYet,
		Metadata:  map[string]string{},
		Type:      t,
		CreatedAt: times[0],
		UpdatedAt: times[1],
	}
}

// LogBlocks returns n ordered log blocks, the last one reporting success.
func LogBlocks(n int) []*domain.LogBlock {
	times := RandTimes(n)
	out := make([]*domain.LogBlock, n)
	for i := range out {
		sev := domain.LogSeverityInfo
		if i == n-1 {
			sev = domain.LogSeveritySuccess
		}
		out[i] = &domain.LogBlock{
			Index:     int64(i),
			Log:       "applying manifests",
			Severity:  sev,
			CreatedAt: times[i],
		}
	}
	return out
}
