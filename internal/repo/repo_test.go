package repo_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pipeconsole/internal/db"
	"pipeconsole/internal/domain"
	"pipeconsole/internal/fixtures"
	"pipeconsole/internal/migrate"
	"pipeconsole/internal/repo"
)

func newTestRepo(t *testing.T) (repo.Repo, context.Context) {
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
	return repo.Repo{DB: conn}, ctx
}

func TestMigrateIsIdempotent(t *testing.T) {
	r, ctx := newTestRepo(t)
	if err := migrate.Migrate(ctx, r.DB); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	got, err := migrate.Version(ctx, r.DB)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	want, err := migrate.Latest()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got != want || want == 0 {
		t.Fatalf("expected version %d, got %d", want, got)
	}
}

func TestApplicationStoredInWireEncoding(t *testing.T) {
	r, ctx := newTestRepo(t)
	app := fixtures.Application()
	if err := r.InsertApplication(ctx, nil, app); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := r.GetApplication(ctx, nil, app.ProjectID, app.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(app, got); diff != "" {
		t.Fatalf("stored application differs (-want +got):\n%s", diff)
	}
	if err := r.InsertApplication(ctx, nil, app); !errors.Is(err, repo.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestGetScopedToProject(t *testing.T) {
	r, ctx := newTestRepo(t)
	env := fixtures.Environment()
	if err := r.InsertEnvironment(ctx, nil, env); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := r.GetEnvironment(ctx, nil, "other-project", env.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound across projects, got %v", err)
	}
	if _, err := r.GetEnvironment(ctx, nil, env.ProjectID, "missing"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	env.ProjectID = "other-project"
	if err := r.UpdateEnvironment(ctx, nil, env); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("update across projects should miss, got %v", err)
	}
}

func TestListDeploymentsPages(t *testing.T) {
	r, ctx := newTestRepo(t)
	app := fixtures.Application()
	for i := 0; i < 5; i++ {
		d := fixtures.Deployment(app)
		d.UpdatedAt = int64(1000 + i)
		if i%2 == 1 {
			d.Status = domain.DeploymentStatusSuccess
		}
		if err := r.InsertDeployment(ctx, nil, d); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	var (
		seen   []int64
		cursor string
	)
	for page := 0; ; page++ {
		if page > 5 {
			t.Fatalf("listing did not terminate")
		}
		ds, next, err := r.ListDeployments(ctx, fixtures.ProjectID, repo.Listing{PageSize: 2, Cursor: cursor}, nil)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for _, d := range ds {
			seen = append(seen, d.UpdatedAt)
		}
		if next == "" {
			break
		}
		cursor = next
	}
	if diff := cmp.Diff([]int64{1004, 1003, 1002, 1001, 1000}, seen); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}

	running := func(d *domain.Deployment) bool { return d.Status == domain.DeploymentStatusRunning }
	ds, next, err := r.ListDeployments(ctx, fixtures.ProjectID, repo.Listing{PageSize: 2}, running)
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if len(ds) != 2 || next == "" {
		t.Fatalf("expected a full first page with a cursor, got %d entries, cursor %q", len(ds), next)
	}
	ds, next, err = r.ListDeployments(ctx, fixtures.ProjectID, repo.Listing{PageSize: 2, Cursor: next}, running)
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if len(ds) != 1 || next != "" || ds[0].UpdatedAt != 1000 {
		t.Fatalf("unexpected last page: %d entries, cursor %q", len(ds), next)
	}

	ds, _, err = r.ListDeployments(ctx, fixtures.ProjectID, repo.Listing{MinUpdatedAt: 1003}, nil)
	if err != nil {
		t.Fatalf("min updated list: %v", err)
	}
	if len(ds) != 2 {
		t.Fatalf("expected 2 deployments updated since 1003, got %d", len(ds))
	}

	if _, _, err := r.ListDeployments(ctx, fixtures.ProjectID, repo.Listing{Cursor: "%%%"}, nil); !errors.Is(err, repo.ErrInvalidCursor) {
		t.Fatalf("expected ErrInvalidCursor, got %v", err)
	}
}

func TestStageLog(t *testing.T) {
	r, ctx := newTestRepo(t)
	key := repo.StageLogKey{DeploymentID: "d-1", StageID: "stage-canary"}
	blocks := fixtures.LogBlocks(4)
	if err := r.AppendStageLog(ctx, nil, key, blocks[:2]); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, completed, err := r.StageLog(ctx, key, 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || completed {
		t.Fatalf("expected 2 pending blocks, got %d completed=%v", len(got), completed)
	}

	err = r.InTx(ctx, func(tx *sql.Tx) error {
		if err := r.AppendStageLog(ctx, tx, key, blocks); err != nil {
			return err
		}
		return r.CompleteStageLog(ctx, tx, key)
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, completed, err = r.StageLog(ctx, key, 2)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !completed {
		t.Fatalf("expected completed log")
	}
	if diff := cmp.Diff(blocks[2:], got); diff != "" {
		t.Fatalf("unexpected blocks from offset (-want +got):\n%s", diff)
	}

	other := key
	other.RetriedCount = 1
	got, completed, err = r.StageLog(ctx, other, 0)
	if err != nil || len(got) != 0 || completed {
		t.Fatalf("retry log should be empty: %d blocks, completed=%v, err=%v", len(got), completed, err)
	}
}

func TestUpsertEventReplaces(t *testing.T) {
	r, ctx := newTestRepo(t)
	e := fixtures.Event()
	if err := r.UpsertEvent(ctx, nil, e); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	e.Status = domain.EventStatusSuccess
	e.UpdatedAt++
	if err := r.UpsertEvent(ctx, nil, e); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	events, _, err := r.ListEvents(ctx, e.ProjectID, repo.Listing{}, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 || events[0].Status != domain.EventStatusSuccess {
		t.Fatalf("expected the replaced event, got %+v", events)
	}
}
