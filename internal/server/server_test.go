package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pipeconsole/internal/config"
	"pipeconsole/internal/db"
	"pipeconsole/internal/domain"
	"pipeconsole/internal/engine"
	"pipeconsole/internal/fixtures"
	"pipeconsole/internal/migrate"
	"pipeconsole/internal/rpc"
	"pipeconsole/internal/webapi"
)

type testServer struct {
	URL    string
	Engine engine.Engine
	Set    *fixtures.Set
	client *http.Client
}

func (s *testServer) Client() *http.Client { return s.client }

func newTestEngine(t *testing.T) (engine.Engine, *fixtures.Set) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default(fixtures.ProjectID), nil)
	set := fixtures.NewSet()
	if err := e.Seed(context.Background(), fixtures.ProjectID, set); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return e, set
}

func serve(t *testing.T, h http.Handler) string {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: h}
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return "http://" + ln.Addr().String()
}

// newTestServer runs the gateway in front of an in-process backend.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	e, set := newTestEngine(t)
	backend := NewBackend(e, nil)
	handler, err := New(Config{
		Client:  webapi.NewClient(backend.Local(fixtures.ProjectID)),
		Project: fixtures.ProjectID,
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	return &testServer{
		URL:    serve(t, handler),
		Engine: e,
		Set:    set,
		client: &http.Client{},
	}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("unmarshal %s: %v", string(data), err)
	}
	return v
}

func expectStatus(t *testing.T, res *http.Response, data []byte, want int) {
	t.Helper()
	if res.StatusCode != want {
		t.Fatalf("expected status %d, got %d: %s", want, res.StatusCode, string(data))
	}
}

func TestBackendRegistersEveryOperation(t *testing.T) {
	e, _ := newTestEngine(t)
	var got, want []string
	for _, d := range NewBackend(e, nil).Methods() {
		got = append(got, d.Method())
	}
	for _, d := range webapi.Descriptors() {
		want = append(want, d.Method())
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("registered methods mismatch (-want +got):\n%s", diff)
	}
}

func TestBackendOverHTTP(t *testing.T) {
	e, set := newTestEngine(t)
	url := serve(t, NewBackend(e, nil))
	c := webapi.NewClient(rpc.NewHTTPTransport(url, fixtures.ProjectID))
	ctx := context.Background()

	apps, err := c.ListApplications(ctx, nil).Await(ctx)
	if err != nil {
		t.Fatalf("list applications: %v", err)
	}
	if len(apps.Applications) != len(set.Applications) {
		t.Fatalf("expected %d applications, got %d", len(set.Applications), len(apps.Applications))
	}
	got, err := c.GetApplication(ctx, set.Applications[0].ID).Await(ctx)
	if err != nil {
		t.Fatalf("get application: %v", err)
	}
	if diff := cmp.Diff(set.Applications[0], got.Application); diff != "" {
		t.Fatalf("application mismatch (-want +got):\n%s", diff)
	}
	_, err = c.GetApplication(ctx, "missing").Await(ctx)
	if code := rpc.CodeOf(err); code != rpc.NotFound {
		t.Fatalf("expected NOT_FOUND, got %s (%v)", code, err)
	}
	me, err := c.GetMe(rpc.WithProject(ctx, "other")).Await(ctx)
	if err != nil {
		t.Fatalf("get me: %v", err)
	}
	if me.ProjectID != "other" {
		t.Fatalf("expected context project to win, got %q", me.ProjectID)
	}
}

func TestGatewayApplications(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()
	base := srv.URL + "/api/v1"

	res, data := doJSON(t, client, http.MethodGet, base+"/applications?kind=TERRAFORM,CLOUDRUN", nil, nil)
	expectStatus(t, res, data, http.StatusOK)
	list := decode[webapi.ListApplicationsResponse](t, data)
	if len(list.Applications) != 2 {
		t.Fatalf("expected 2 applications, got %d", len(list.Applications))
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/applications?kind=BOGUS", nil, nil)
	expectStatus(t, res, data, http.StatusBadRequest)

	appID := srv.Set.Applications[0].ID
	res, data = doJSON(t, client, http.MethodPost, base+"/applications/"+appID+"/disable", nil, nil)
	expectStatus(t, res, data, http.StatusNoContent)
	res, data = doJSON(t, client, http.MethodGet, base+"/applications?enabled=false", nil, nil)
	expectStatus(t, res, data, http.StatusOK)
	list = decode[webapi.ListApplicationsResponse](t, data)
	if len(list.Applications) != 1 || list.Applications[0].ID != appID {
		t.Fatalf("expected only %s disabled, got %+v", appID, list.Applications)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/applications/"+appID+"/sync", nil, nil)
	expectStatus(t, res, data, http.StatusPreconditionFailed)
	env := decode[struct {
		Error apiErrorBody `json:"error"`
	}](t, data)
	if env.Error.Code != "failed_precondition" {
		t.Fatalf("expected failed_precondition, got %+v", env.Error)
	}
}

func TestGatewayAddApplication(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()
	base := srv.URL + "/api/v1"

	body := NewApplicationBody{
		Name:    "payments",
		EnvID:   srv.Set.Environment.ID,
		PipedID: srv.Set.Piped.ID,
		Kind:    "LAMBDA",
		GitPath: GitPathBody{RepoID: "debug", Path: "lambda/payments"},
		Labels:  map[string]string{"team": "billing"},
	}
	res, data := doJSON(t, client, http.MethodPost, base+"/applications", body, nil)
	expectStatus(t, res, data, http.StatusCreated)
	created := decode[IDResult](t, data)

	res, data = doJSON(t, client, http.MethodGet, base+"/applications/"+created.ID, nil, nil)
	expectStatus(t, res, data, http.StatusOK)
	got := decode[webapi.GetApplicationResponse](t, data)
	if got.Application.Kind != domain.ApplicationKindLambda || got.Application.Labels["team"] != "billing" {
		t.Fatalf("unexpected application %+v", got.Application)
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/applications?labels=team=billing", nil, nil)
	expectStatus(t, res, data, http.StatusOK)
	if list := decode[webapi.ListApplicationsResponse](t, data); len(list.Applications) != 1 {
		t.Fatalf("expected the labelled application only, got %d", len(list.Applications))
	}
}

func TestGatewayErrorEnvelope(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/v1/applications/missing", nil, nil)
	expectStatus(t, res, data, http.StatusNotFound)
	env := decode[struct {
		Error apiErrorBody `json:"error"`
	}](t, data)
	if env.Error.Code != "not_found" || env.Error.Message == "" {
		t.Fatalf("unexpected envelope %+v", env.Error)
	}
}

func TestGatewayDeploymentCommands(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()
	base := srv.URL + "/api/v1"
	d := srv.Set.Deployments[0]

	res, data := doJSON(t, client, http.MethodPost, base+"/deployments/"+d.ID+"/stages/stage-approval/approve", nil, nil)
	expectStatus(t, res, data, http.StatusOK)
	approved := decode[CommandResult](t, data)

	res, data = doJSON(t, client, http.MethodGet, base+"/commands/"+approved.CommandID, nil, nil)
	expectStatus(t, res, data, http.StatusOK)
	cmd := decode[webapi.GetCommandResponse](t, data)
	if cmd.Command.Type != domain.CommandTypeApproveStage || cmd.Command.StageID != "stage-approval" {
		t.Fatalf("unexpected command %+v", cmd.Command)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/deployments/"+d.ID+"/cancel", CancelDeploymentBody{WithoutRollback: true}, nil)
	expectStatus(t, res, data, http.StatusOK)
	cancelled := decode[CommandResult](t, data)
	c, err := srv.Engine.Repo.GetCommand(context.Background(), nil, fixtures.ProjectID, cancelled.CommandID)
	if err != nil {
		t.Fatalf("get command: %v", err)
	}
	if c.Metadata["withoutRollback"] != "true" {
		t.Fatalf("expected withoutRollback metadata, got %v", c.Metadata)
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/deployments/"+d.ID+"/stages/stage-canary/log?offset=1", nil, nil)
	expectStatus(t, res, data, http.StatusOK)
	logs := decode[webapi.GetStageLogResponse](t, data)
	if len(logs.Blocks) != 2 || !logs.Completed {
		t.Fatalf("expected 2 completed blocks, got %d completed=%v", len(logs.Blocks), logs.Completed)
	}
}

func TestGatewayDeploymentPages(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()
	base := srv.URL + "/api/v1"

	seen := map[string]bool{}
	cursor := ""
	for i := 0; ; i++ {
		if i > len(srv.Set.Deployments) {
			t.Fatal("paging did not terminate")
		}
		res, data := doJSON(t, client, http.MethodGet, base+"/deployments?page_size=2&cursor="+cursor, nil, nil)
		expectStatus(t, res, data, http.StatusOK)
		page := decode[webapi.ListDeploymentsResponse](t, data)
		for _, d := range page.Deployments {
			if seen[d.ID] {
				t.Fatalf("deployment %s listed twice", d.ID)
			}
			seen[d.ID] = true
		}
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}
	if len(seen) != len(srv.Set.Deployments) {
		t.Fatalf("expected %d deployments, got %d", len(srv.Set.Deployments), len(seen))
	}
}

func TestGatewayProjectHeader(t *testing.T) {
	srv := newTestServer(t)
	headers := map[string]string{rpc.ProjectHeader: "other"}
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/v1/me", nil, headers)
	expectStatus(t, res, data, http.StatusOK)
	if me := decode[webapi.GetMeResponse](t, data); me.ProjectID != "other" {
		t.Fatalf("expected project other, got %q", me.ProjectID)
	}
	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/v1/applications", nil, headers)
	expectStatus(t, res, data, http.StatusOK)
	if list := decode[webapi.ListApplicationsResponse](t, data); len(list.Applications) != 0 {
		t.Fatalf("expected no applications in another project, got %d", len(list.Applications))
	}
}

func TestGatewayOverview(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/v1/overview", nil, nil)
	expectStatus(t, res, data, http.StatusOK)
	ov := decode[Overview](t, data)
	n := len(srv.Set.Applications)
	if ov.ProjectID != fixtures.ProjectID || ov.Applications != n {
		t.Fatalf("unexpected overview %+v", ov)
	}
	if ov.SyncStatuses["DEPLOYING"] != n || len(ov.RunningDeployments) != n {
		t.Fatalf("expected %d deploying applications, got %v and %d running", n, ov.SyncStatuses, len(ov.RunningDeployments))
	}
	if ov.Pipeds != 1 || ov.PipedStatuses["ONLINE"] != 1 {
		t.Fatalf("unexpected piped summary %d %v", ov.Pipeds, ov.PipedStatuses)
	}
	if ov.PendingEvents != len(srv.Set.Events) || len(ov.Environments) != 1 {
		t.Fatalf("unexpected events %d or environments %d", ov.PendingEvents, len(ov.Environments))
	}
	if ov.Me.Subject == "" || ov.Me.Role != "ADMIN" {
		t.Fatalf("unexpected me %+v", ov.Me)
	}
}

func TestHealthAndOpenAPI(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/v1/health", nil, nil)
	expectStatus(t, res, data, http.StatusOK)
	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/openapi.json", nil, nil)
	expectStatus(t, res, data, http.StatusOK)
	spec := decode[map[string]any](t, data)
	paths, _ := spec["paths"].(map[string]any)
	if _, ok := paths["/api/v1/deployments/{deployment_id}/stages/{stage_id}/log"]; !ok {
		t.Fatalf("stage log route missing from openapi")
	}
}

type received struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []webhookActivity
}

func (r *received) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var body webhookActivity
	json.NewDecoder(req.Body).Decode(&body)
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.bodies = append(r.bodies, body)
	r.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func TestWebhookDispatcher(t *testing.T) {
	e, set := newTestEngine(t)
	recv := &received{}
	url := serve(t, recv)
	cfg := config.Default(fixtures.ProjectID)
	cfg.Webhooks = []config.WebhookConfig{{URL: url, Secret: "s3cret", Events: []string{"piped.*"}}}
	d := NewWebhookDispatcher(e.Repo, cfg, nil)
	if d == nil {
		t.Fatal("expected a dispatcher")
	}
	ctx := context.Background()
	// The first pass only positions the cursor after the seed activity.
	d.DispatchOnce(ctx)

	pctx := rpc.WithProject(ctx, fixtures.ProjectID)
	if _, err := e.AddEnvironment(pctx, &webapi.AddEnvironmentRequest{Name: "staging"}); err != nil {
		t.Fatalf("add environment: %v", err)
	}
	if _, err := e.DisablePiped(pctx, &webapi.DisablePipedRequest{PipedID: set.Piped.ID}); err != nil {
		t.Fatalf("disable piped: %v", err)
	}
	d.DispatchOnce(ctx)
	d.DispatchOnce(ctx)

	recv.mu.Lock()
	defer recv.mu.Unlock()
	if len(recv.requests) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(recv.requests))
	}
	req := recv.requests[0]
	if req.Header.Get("X-Pipeconsole-Event") != "piped.disabled" || req.Header.Get("X-Pipeconsole-Secret") != "s3cret" {
		t.Fatalf("unexpected headers %v", req.Header)
	}
	if body := recv.bodies[0]; body.EntityID != set.Piped.ID || body.ProjectID != fixtures.ProjectID {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestNoDispatcherWithoutWebhooks(t *testing.T) {
	off := false
	cfg := config.Default(fixtures.ProjectID)
	cfg.Webhooks = []config.WebhookConfig{{URL: ""}, {URL: "http://127.0.0.1:1", Enabled: &off}}
	if d := NewWebhookDispatcher(engine.Engine{}.Repo, cfg, nil); d != nil {
		t.Fatal("expected no dispatcher")
	}
}

func TestActivityFilter(t *testing.T) {
	cases := []struct {
		types []string
		typ   string
		want  bool
	}{
		{nil, "piped.registered", true},
		{[]string{" "}, "command.enqueued", true},
		{[]string{"piped.*"}, "piped.enabled", true},
		{[]string{"piped.*"}, "application.enabled", false},
		{[]string{"command.enqueued"}, "command.enqueued", true},
		{[]string{"command.enqueued"}, "project.seeded", false},
	}
	for _, tc := range cases {
		if got := newActivityFilter(tc.types).match(tc.typ); got != tc.want {
			t.Fatalf("filter %v on %s: got %v want %v", tc.types, tc.typ, got, tc.want)
		}
	}
}
