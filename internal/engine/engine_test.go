package engine_test

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"pipeconsole/internal/config"
	"pipeconsole/internal/db"
	"pipeconsole/internal/domain"
	"pipeconsole/internal/engine"
	"pipeconsole/internal/engine/auth"
	"pipeconsole/internal/fixtures"
	"pipeconsole/internal/migrate"
	"pipeconsole/internal/rpc"
	"pipeconsole/internal/webapi"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	Set    *fixtures.Set
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	ctx := context.Background()
	if err := migrate.Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default(fixtures.ProjectID), nil)
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	set := fixtures.NewSet()
	if err := eng.Seed(ctx, fixtures.ProjectID, set); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return testEnv{Engine: eng, Ctx: rpc.WithProject(ctx, fixtures.ProjectID), Set: set}
}

func expectCode(t *testing.T, err error, want rpc.Code) {
	t.Helper()
	if got := rpc.CodeOf(err); got != want {
		t.Fatalf("expected %s, got %s (%v)", want, got, err)
	}
}

func TestRegisterPiped(t *testing.T) {
	env := newTestEnv(t)
	e := env.Engine
	added, err := e.AddEnvironment(env.Ctx, &webapi.AddEnvironmentRequest{Name: "prod", Desc: "production"})
	if err != nil {
		t.Fatalf("add environment: %v", err)
	}
	reg, err := e.RegisterPiped(env.Ctx, &webapi.RegisterPipedRequest{Name: "prod-piped", EnvIDs: []string{added.EnvironmentID}})
	if err != nil {
		t.Fatalf("register piped: %v", err)
	}
	if reg.Key == "" || reg.SealedSecretPrivateKey == "" {
		t.Fatalf("credentials missing: %+v", reg)
	}

	envs, err := e.ListEnvironments(env.Ctx, &webapi.ListEnvironmentsRequest{})
	if err != nil {
		t.Fatalf("list environments: %v", err)
	}
	var found bool
	for _, en := range envs.Environments {
		if en.ID == added.EnvironmentID {
			found = len(en.PipedIDs) == 1 && en.PipedIDs[0] == reg.ID
		}
	}
	if !found {
		t.Fatalf("environment does not list the new piped")
	}

	stored, err := e.Repo.GetPiped(env.Ctx, nil, fixtures.ProjectID, reg.ID)
	if err != nil {
		t.Fatalf("get stored piped: %v", err)
	}
	if err := auth.CheckPipedKey(stored.KeyHash, reg.Key); err != nil {
		t.Fatalf("stored hash does not match the key: %v", err)
	}
	got, err := e.GetPiped(env.Ctx, &webapi.GetPipedRequest{PipedID: reg.ID})
	if err != nil {
		t.Fatalf("get piped: %v", err)
	}
	if got.Piped.KeyHash != "redacted" {
		t.Fatalf("key hash leaked: %q", got.Piped.KeyHash)
	}

	_, err = e.RegisterPiped(env.Ctx, &webapi.RegisterPipedRequest{Name: "x", EnvIDs: []string{"missing"}})
	expectCode(t, err, rpc.NotFound)
	_, err = e.RegisterPiped(env.Ctx, &webapi.RegisterPipedRequest{})
	expectCode(t, err, rpc.InvalidArgument)
}

func TestSealedSecret(t *testing.T) {
	env := newTestEnv(t)
	e := env.Engine
	reg, err := e.RegisterPiped(env.Ctx, &webapi.RegisterPipedRequest{Name: "p"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	for _, b64 := range []bool{false, true} {
		resp, err := e.GenerateApplicationSealedSecret(env.Ctx, &webapi.GenerateApplicationSealedSecretRequest{
			PipedID:        reg.ID,
			Data:           "hunter2",
			Base64Encoding: b64,
		})
		if err != nil {
			t.Fatalf("seal: %v", err)
		}
		plain, err := auth.Unseal(reg.SealedSecretPrivateKey, resp.Data)
		if err != nil {
			t.Fatalf("unseal: %v", err)
		}
		want := "hunter2"
		if b64 {
			want = base64.StdEncoding.EncodeToString([]byte(want))
		}
		if string(plain) != want {
			t.Fatalf("base64=%v: got %q want %q", b64, plain, want)
		}
	}
	// The seeded piped has no sealing key.
	_, err = e.GenerateApplicationSealedSecret(env.Ctx, &webapi.GenerateApplicationSealedSecretRequest{PipedID: env.Set.Piped.ID, Data: "x"})
	expectCode(t, err, rpc.FailedPrecondition)
	_, err = e.GenerateApplicationSealedSecret(env.Ctx, &webapi.GenerateApplicationSealedSecretRequest{PipedID: reg.ID})
	expectCode(t, err, rpc.InvalidArgument)
}

func TestAddApplication(t *testing.T) {
	env := newTestEnv(t)
	e := env.Engine
	req := &webapi.AddApplicationRequest{
		Name:    "checkout",
		EnvID:   env.Set.Environment.ID,
		PipedID: env.Set.Piped.ID,
		GitPath: &domain.ApplicationGitPath{Repo: fixtures.Repository(), Path: "apps/checkout"},
		Kind:    domain.ApplicationKindLambda,
		Labels:  map[string]string{"team": "payments"},
	}
	added, err := e.AddApplication(env.Ctx, req)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	got, err := e.GetApplication(env.Ctx, &webapi.GetApplicationRequest{ApplicationID: added.ApplicationID})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Application.Kind != domain.ApplicationKindLambda || got.Application.Labels["team"] != "payments" {
		t.Fatalf("unexpected application %+v", got.Application)
	}

	other, err := e.AddEnvironment(env.Ctx, &webapi.AddEnvironmentRequest{Name: "other"})
	if err != nil {
		t.Fatalf("add environment: %v", err)
	}
	bad := *req
	bad.EnvID = other.EnvironmentID
	_, err = e.AddApplication(env.Ctx, &bad)
	expectCode(t, err, rpc.InvalidArgument)

	bad = *req
	bad.GitPath = nil
	_, err = e.AddApplication(env.Ctx, &bad)
	expectCode(t, err, rpc.InvalidArgument)
}

func TestListApplicationsFilters(t *testing.T) {
	env := newTestEnv(t)
	e := env.Engine
	all, err := e.ListApplications(env.Ctx, &webapi.ListApplicationsRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all.Applications) != len(domain.ApplicationKinds) {
		t.Fatalf("expected %d applications, got %d", len(domain.ApplicationKinds), len(all.Applications))
	}

	ecs := env.Set.Applications[len(env.Set.Applications)-1]
	if _, err := e.DisableApplication(env.Ctx, &webapi.DisableApplicationRequest{ApplicationID: ecs.ID}); err != nil {
		t.Fatalf("disable: %v", err)
	}
	enabled, err := e.ListApplications(env.Ctx, &webapi.ListApplicationsRequest{
		Options: &webapi.ListApplicationsOptions{Enabled: webapi.Bool(true)},
	})
	if err != nil {
		t.Fatalf("list enabled: %v", err)
	}
	if len(enabled.Applications) != len(domain.ApplicationKinds)-1 {
		t.Fatalf("disabled application still listed as enabled")
	}

	kinds, err := e.ListApplications(env.Ctx, &webapi.ListApplicationsRequest{
		Options: &webapi.ListApplicationsOptions{
			Kinds:        []domain.ApplicationKind{domain.ApplicationKindTerraform, domain.ApplicationKindCloudRun},
			SyncStatuses: []domain.ApplicationSyncStatus{domain.ApplicationSyncStatusDeploying},
			EnvIDs:       []string{env.Set.Environment.ID},
		},
	})
	if err != nil {
		t.Fatalf("list kinds: %v", err)
	}
	if len(kinds.Applications) != 2 {
		t.Fatalf("expected 2 applications, got %d", len(kinds.Applications))
	}

	labelled, err := e.ListApplications(env.Ctx, &webapi.ListApplicationsRequest{
		Options: &webapi.ListApplicationsOptions{Labels: map[string]string{"team": "nobody"}},
	})
	if err != nil {
		t.Fatalf("list labels: %v", err)
	}
	if len(labelled.Applications) != 0 {
		t.Fatalf("label filter ignored")
	}
}

func TestDeletedApplicationCannotToggle(t *testing.T) {
	env := newTestEnv(t)
	e := env.Engine
	app := env.Set.Applications[0]
	app.Deleted = true
	if err := e.Repo.UpdateApplication(env.Ctx, nil, app); err != nil {
		t.Fatalf("update: %v", err)
	}
	_, err := e.EnableApplication(env.Ctx, &webapi.EnableApplicationRequest{ApplicationID: app.ID})
	expectCode(t, err, rpc.InvalidArgument)
	_, err = e.DisableApplication(env.Ctx, &webapi.DisableApplicationRequest{ApplicationID: app.ID})
	expectCode(t, err, rpc.InvalidArgument)
	_, err = e.SyncApplication(env.Ctx, &webapi.SyncApplicationRequest{ApplicationID: app.ID})
	expectCode(t, err, rpc.FailedPrecondition)
	_, err = e.EnableApplication(env.Ctx, &webapi.EnableApplicationRequest{ApplicationID: "missing"})
	expectCode(t, err, rpc.NotFound)
}

func TestDeploymentCommands(t *testing.T) {
	env := newTestEnv(t)
	e := env.Engine
	d := env.Set.Deployments[0]

	approved, err := e.ApproveStage(env.Ctx, &webapi.ApproveStageRequest{DeploymentID: d.ID, StageID: "stage-approval"})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	cmd, err := e.GetCommand(env.Ctx, &webapi.GetCommandRequest{CommandID: approved.CommandID})
	if err != nil {
		t.Fatalf("get command: %v", err)
	}
	c := cmd.Command
	if c.Type != domain.CommandTypeApproveStage || c.Status != domain.CommandStatusNotHandledYet || c.StageID != "stage-approval" || c.PipedID != d.PipedID {
		t.Fatalf("unexpected command %+v", c)
	}

	_, err = e.ApproveStage(env.Ctx, &webapi.ApproveStageRequest{DeploymentID: d.ID, StageID: "stage-canary"})
	expectCode(t, err, rpc.FailedPrecondition)
	_, err = e.ApproveStage(env.Ctx, &webapi.ApproveStageRequest{DeploymentID: d.ID, StageID: "stage-unknown"})
	expectCode(t, err, rpc.FailedPrecondition)
	_, err = e.ApproveStage(env.Ctx, &webapi.ApproveStageRequest{DeploymentID: "missing", StageID: "stage-approval"})
	expectCode(t, err, rpc.NotFound)

	cancelled, err := e.CancelDeployment(env.Ctx, &webapi.CancelDeploymentRequest{DeploymentID: d.ID, WithoutRollback: true})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	cmd, err = e.GetCommand(env.Ctx, &webapi.GetCommandRequest{CommandID: cancelled.CommandID})
	if err != nil {
		t.Fatalf("get command: %v", err)
	}
	if cmd.Command.Type != domain.CommandTypeCancelDeployment || cmd.Command.Metadata["withoutRollback"] != "true" {
		t.Fatalf("unexpected cancel command %+v", cmd.Command)
	}

	d.Status = domain.DeploymentStatusSuccess
	if err := e.Repo.UpdateDeployment(env.Ctx, nil, d); err != nil {
		t.Fatalf("update: %v", err)
	}
	_, err = e.CancelDeployment(env.Ctx, &webapi.CancelDeploymentRequest{DeploymentID: d.ID})
	expectCode(t, err, rpc.FailedPrecondition)

	synced, err := e.SyncApplication(env.Ctx, &webapi.SyncApplicationRequest{ApplicationID: env.Set.Applications[1].ID})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if synced.CommandID == "" || synced.CommandID == cancelled.CommandID {
		t.Fatalf("unexpected command id %q", synced.CommandID)
	}
	_, err = e.GetCommand(env.Ctx, &webapi.GetCommandRequest{CommandID: "missing"})
	expectCode(t, err, rpc.NotFound)
}

func TestGetStageLog(t *testing.T) {
	env := newTestEnv(t)
	e := env.Engine
	d := env.Set.Deployments[0]

	canary, err := e.GetStageLog(env.Ctx, &webapi.GetStageLogRequest{DeploymentID: d.ID, StageID: "stage-canary"})
	if err != nil {
		t.Fatalf("stage log: %v", err)
	}
	if len(canary.Blocks) != 3 || !canary.Completed {
		t.Fatalf("expected 3 completed blocks, got %d completed=%v", len(canary.Blocks), canary.Completed)
	}
	tail, err := e.GetStageLog(env.Ctx, &webapi.GetStageLogRequest{DeploymentID: d.ID, StageID: "stage-canary", OffsetIndex: 1})
	if err != nil {
		t.Fatalf("stage log: %v", err)
	}
	if len(tail.Blocks) != 2 || tail.Blocks[0].Index != 1 {
		t.Fatalf("unexpected tail %+v", tail.Blocks)
	}
	running, err := e.GetStageLog(env.Ctx, &webapi.GetStageLogRequest{DeploymentID: d.ID, StageID: "stage-approval"})
	if err != nil {
		t.Fatalf("stage log: %v", err)
	}
	if running.Completed {
		t.Fatalf("running stage log reported complete")
	}
	pending, err := e.GetStageLog(env.Ctx, &webapi.GetStageLogRequest{DeploymentID: d.ID, StageID: "stage-primary"})
	if err != nil {
		t.Fatalf("stage log: %v", err)
	}
	if pending.Blocks == nil || len(pending.Blocks) != 0 {
		t.Fatalf("expected an empty, non-nil block list")
	}
	_, err = e.GetStageLog(env.Ctx, &webapi.GetStageLogRequest{DeploymentID: d.ID, StageID: "nope"})
	expectCode(t, err, rpc.NotFound)
}

func TestListDeploymentsPages(t *testing.T) {
	env := newTestEnv(t)
	e := env.Engine
	total := len(env.Set.Deployments)

	var (
		seen   = map[string]bool{}
		cursor string
	)
	for i := 0; i <= total; i++ {
		resp, err := e.ListDeployments(env.Ctx, &webapi.ListDeploymentsRequest{PageSize: 2, Cursor: cursor})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for _, d := range resp.Deployments {
			if seen[d.ID] {
				t.Fatalf("deployment %s listed twice", d.ID)
			}
			seen[d.ID] = true
		}
		if resp.Cursor == "" {
			break
		}
		cursor = resp.Cursor
	}
	if len(seen) != total {
		t.Fatalf("paged through %d of %d deployments", len(seen), total)
	}

	filtered, err := e.ListDeployments(env.Ctx, &webapi.ListDeploymentsRequest{
		Options: &webapi.ListDeploymentsOptions{
			Statuses:       []domain.DeploymentStatus{domain.DeploymentStatusRunning},
			ApplicationIDs: []string{env.Set.Applications[0].ID},
		},
	})
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if len(filtered.Deployments) != 1 || filtered.Deployments[0].ID != env.Set.Deployments[0].ID {
		t.Fatalf("unexpected filtered deployments %+v", filtered.Deployments)
	}

	_, err = e.ListDeployments(env.Ctx, &webapi.ListDeploymentsRequest{Cursor: "not base64!"})
	expectCode(t, err, rpc.InvalidArgument)
	_, err = e.ListDeployments(env.Ctx, &webapi.ListDeploymentsRequest{PageSize: -1})
	expectCode(t, err, rpc.InvalidArgument)
}

func TestListEventsFilters(t *testing.T) {
	env := newTestEnv(t)
	e := env.Engine
	resp, err := e.ListEvents(env.Ctx, &webapi.ListEventsRequest{
		Options: &webapi.ListEventsOptions{
			Statuses: []domain.EventStatus{domain.EventStatusNotHandled},
			Name:     "image-update",
			Labels:   map[string]string{"app": "helloworld"},
		},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(resp.Events) != len(env.Set.Events) {
		t.Fatalf("expected %d events, got %d", len(env.Set.Events), len(resp.Events))
	}
	for i := 1; i < len(resp.Events); i++ {
		if resp.Events[i-1].UpdatedAt < resp.Events[i].UpdatedAt {
			t.Fatalf("events not sorted by update time")
		}
	}
	none, err := e.ListEvents(env.Ctx, &webapi.ListEventsRequest{
		Options: &webapi.ListEventsOptions{Statuses: []domain.EventStatus{domain.EventStatusFailure}},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(none.Events) != 0 {
		t.Fatalf("status filter ignored")
	}
}

func TestProjectIsolationAndMe(t *testing.T) {
	env := newTestEnv(t)
	e := env.Engine
	other := rpc.WithProject(context.Background(), "project-2")
	_, err := e.GetApplication(other, &webapi.GetApplicationRequest{ApplicationID: env.Set.Applications[0].ID})
	expectCode(t, err, rpc.NotFound)

	me, err := e.GetMe(other, &webapi.GetMeRequest{})
	if err != nil {
		t.Fatalf("get me: %v", err)
	}
	if me.ProjectID != "project-2" || me.Subject != "local-user" || me.ProjectRole != "ADMIN" {
		t.Fatalf("unexpected me %+v", me)
	}
	// Without a project on the call the configured one is used.
	me, err = e.GetMe(context.Background(), &webapi.GetMeRequest{})
	if err != nil || me.ProjectID != fixtures.ProjectID {
		t.Fatalf("expected configured project, got %+v, %v", me, err)
	}
}

func TestActivityRecorded(t *testing.T) {
	env := newTestEnv(t)
	e := env.Engine
	if _, err := e.SyncApplication(env.Ctx, &webapi.SyncApplicationRequest{ApplicationID: env.Set.Applications[0].ID}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	acts, err := e.Repo.ActivitiesAfter(env.Ctx, fixtures.ProjectID, 0, 10)
	if err != nil {
		t.Fatalf("activities: %v", err)
	}
	if len(acts) != 2 || acts[0].Type != "project.seeded" || acts[1].Type != "command.enqueued" {
		t.Fatalf("unexpected activities %+v", acts)
	}
	if acts[1].Actor != "local-user" || acts[1].TS != "2024-01-01T00:00:00Z" {
		t.Fatalf("unexpected activity stamp %+v", acts[1])
	}
}
