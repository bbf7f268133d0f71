package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default("project-1")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Project.ID != "project-1" || cfg.Project.Role != "ADMIN" {
		t.Fatalf("unexpected project section: %+v", cfg.Project)
	}
	if cfg.BackendTimeout() != 10*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.BackendTimeout())
	}
}

func TestFromYAMLKeepsDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte(`
project:
  id: demo
backend:
  timeout_seconds: 3
webhooks:
  - url: http://127.0.0.1:1/hook
    events: [command.enqueued]
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Project.Subject != "local-user" || cfg.Backend.Address != "http://127.0.0.1:9090" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if cfg.BackendTimeout() != 3*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.BackendTimeout())
	}
	if len(cfg.Webhooks) != 1 || cfg.Webhooks[0].Events[0] != "command.enqueued" {
		t.Fatalf("unexpected webhooks %+v", cfg.Webhooks)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"missing project": "project:\n  id: \"\"\n",
		"bad role":        "project:\n  id: p\n  role: OWNER\n",
		"relative url":    "project:\n  id: p\nbackend:\n  address: localhost:9090\n",
		"bad encoding":    "project:\n  id: p\nlog:\n  encoding: xml\n",
		"empty webhook":   "project:\n  id: p\nwebhooks:\n  - secret: s\n",
	}
	for name, doc := range cases {
		if _, err := FromYAML([]byte(doc)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	if err != nil || cfg != nil {
		t.Fatalf("expected nil config for empty workspace, got %v, %v", cfg, err)
	}
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "config init") {
		t.Fatalf("expected a hint to run config init, got %v", err)
	}
	if err := os.WriteFile(Path(dir), []byte(GenerateDefault("from-file")), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err = Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Project.ID != "from-file" {
		t.Fatalf("unexpected project %q", cfg.Project.ID)
	}
}
