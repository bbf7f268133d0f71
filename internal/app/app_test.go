package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pipeconsole/internal/config"
	"pipeconsole/internal/webapi"
)

func TestResolveConfig(t *testing.T) {
	dir := t.TempDir()
	if _, err := ResolveConfig(dir, ""); !errors.Is(err, ErrNoProject) {
		t.Fatalf("expected ErrNoProject, got %v", err)
	}
	cfg, err := ResolveConfig(dir, "demo")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Project.ID != "demo" || cfg.Store.Workspace != dir {
		t.Fatalf("unexpected config %+v", cfg)
	}

	data := []byte("project:\n  id: from-file\nstore:\n  workspace: state\n")
	if err := os.WriteFile(config.Path(dir), data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err = ResolveConfig(dir, "")
	if err != nil {
		t.Fatalf("resolve from file: %v", err)
	}
	if cfg.Project.ID != "from-file" || cfg.Store.Workspace != filepath.Join(dir, "state") {
		t.Fatalf("unexpected config %+v", cfg)
	}
	cfg, err = ResolveConfig(dir, "override")
	if err != nil {
		t.Fatalf("resolve with override: %v", err)
	}
	if cfg.Project.ID != "override" {
		t.Fatalf("expected override, got %q", cfg.Project.ID)
	}
}

func TestOpenBackendSeedsOnce(t *testing.T) {
	cfg := config.Default("demo")
	cfg.Store.InMemory = true
	cfg.Store.Seed = true
	ctx := context.Background()
	b, err := OpenBackend(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	defer b.Close()

	seeded, err := b.Seed(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if seeded {
		t.Fatal("expected a populated project to be left alone")
	}
	c := webapi.NewClient(b.Local())
	resp, err := c.ListApplications(ctx, nil).Await(ctx)
	if err != nil {
		t.Fatalf("list applications: %v", err)
	}
	if len(resp.Applications) == 0 {
		t.Fatal("expected seeded applications")
	}
	for _, app := range resp.Applications {
		if app.ProjectID != "demo" {
			t.Fatalf("application %s seeded into %q", app.ID, app.ProjectID)
		}
	}
	if b.Webhooks != nil {
		t.Fatal("expected no webhook dispatcher without webhooks")
	}
}
