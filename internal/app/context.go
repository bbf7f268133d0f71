// Package app wires the console together: config resolution and the
// backend's storage, engine and servers.
package app

import (
	"errors"
	"path/filepath"
	"strings"

	"pipeconsole/internal/config"
)

// ErrNoProject means neither console.yml nor the caller named a project.
var ErrNoProject = errors.New("project not specified; use --project or create console.yml with pc config init")

// ResolveConfig loads console.yml from workspace, falling back to defaults
// when there is none. A non-empty projectOverride replaces the configured
// project id. The store workspace is resolved against workspace.
func ResolveConfig(workspace, projectOverride string) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		if projectOverride == "" {
			return nil, ErrNoProject
		}
		cfg = config.Default(projectOverride)
	}
	if projectOverride != "" {
		cfg.Project.ID = projectOverride
	}
	if strings.TrimSpace(cfg.Project.ID) == "" {
		return nil, ErrNoProject
	}
	store := cfg.Store.Workspace
	switch {
	case store == "" || store == ".":
		cfg.Store.Workspace = workspace
	case !filepath.IsAbs(store) && workspace != "":
		cfg.Store.Workspace = filepath.Join(workspace, store)
	}
	return cfg, nil
}
