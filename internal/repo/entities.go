package repo

import (
	"context"
	"database/sql"

	"pipeconsole/internal/domain"
)

func (r Repo) InsertEnvironment(ctx context.Context, tx *sql.Tx, env *domain.Environment) error {
	return r.insert(ctx, tx, document{KindEnvironment, env.ID, env.ProjectID, env.CreatedAt, env.UpdatedAt, domain.EnvironmentSchema, env})
}

func (r Repo) UpdateEnvironment(ctx context.Context, tx *sql.Tx, env *domain.Environment) error {
	return r.update(ctx, tx, document{KindEnvironment, env.ID, env.ProjectID, env.CreatedAt, env.UpdatedAt, domain.EnvironmentSchema, env})
}

func (r Repo) GetEnvironment(ctx context.Context, tx *sql.Tx, projectID, id string) (*domain.Environment, error) {
	var env domain.Environment
	if err := r.get(ctx, tx, KindEnvironment, projectID, id, domain.EnvironmentSchema, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// ListEnvironments returns the live environments of a project.
func (r Repo) ListEnvironments(ctx context.Context, projectID string) ([]*domain.Environment, error) {
	envs, _, err := list(ctx, r.DB, KindEnvironment, projectID, domain.EnvironmentSchema, Listing{}, func(e *domain.Environment) bool {
		return !e.Deleted
	})
	return envs, err
}

func (r Repo) InsertPiped(ctx context.Context, tx *sql.Tx, p *domain.Piped) error {
	return r.insert(ctx, tx, document{KindPiped, p.ID, p.ProjectID, p.CreatedAt, p.UpdatedAt, domain.PipedSchema, p})
}

func (r Repo) UpdatePiped(ctx context.Context, tx *sql.Tx, p *domain.Piped) error {
	return r.update(ctx, tx, document{KindPiped, p.ID, p.ProjectID, p.CreatedAt, p.UpdatedAt, domain.PipedSchema, p})
}

func (r Repo) GetPiped(ctx context.Context, tx *sql.Tx, projectID, id string) (*domain.Piped, error) {
	var p domain.Piped
	if err := r.get(ctx, tx, KindPiped, projectID, id, domain.PipedSchema, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r Repo) ListPipeds(ctx context.Context, projectID string, keep func(*domain.Piped) bool) ([]*domain.Piped, error) {
	pipeds, _, err := list(ctx, r.DB, KindPiped, projectID, domain.PipedSchema, Listing{}, keep)
	return pipeds, err
}

func (r Repo) InsertApplication(ctx context.Context, tx *sql.Tx, app *domain.Application) error {
	return r.insert(ctx, tx, document{KindApplication, app.ID, app.ProjectID, app.CreatedAt, app.UpdatedAt, domain.ApplicationSchema, app})
}

func (r Repo) UpdateApplication(ctx context.Context, tx *sql.Tx, app *domain.Application) error {
	return r.update(ctx, tx, document{KindApplication, app.ID, app.ProjectID, app.CreatedAt, app.UpdatedAt, domain.ApplicationSchema, app})
}

func (r Repo) GetApplication(ctx context.Context, tx *sql.Tx, projectID, id string) (*domain.Application, error) {
	var app domain.Application
	if err := r.get(ctx, tx, KindApplication, projectID, id, domain.ApplicationSchema, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

func (r Repo) ListApplications(ctx context.Context, projectID string, keep func(*domain.Application) bool) ([]*domain.Application, error) {
	apps, _, err := list(ctx, r.DB, KindApplication, projectID, domain.ApplicationSchema, Listing{}, keep)
	return apps, err
}

func (r Repo) InsertDeployment(ctx context.Context, tx *sql.Tx, d *domain.Deployment) error {
	return r.insert(ctx, tx, document{KindDeployment, d.ID, d.ProjectID, d.CreatedAt, d.UpdatedAt, domain.DeploymentSchema, d})
}

func (r Repo) UpdateDeployment(ctx context.Context, tx *sql.Tx, d *domain.Deployment) error {
	return r.update(ctx, tx, document{KindDeployment, d.ID, d.ProjectID, d.CreatedAt, d.UpdatedAt, domain.DeploymentSchema, d})
}

func (r Repo) GetDeployment(ctx context.Context, tx *sql.Tx, projectID, id string) (*domain.Deployment, error) {
	var d domain.Deployment
	if err := r.get(ctx, tx, KindDeployment, projectID, id, domain.DeploymentSchema, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDeployments returns one page of deployments and the cursor of the next.
func (r Repo) ListDeployments(ctx context.Context, projectID string, l Listing, keep func(*domain.Deployment) bool) ([]*domain.Deployment, string, error) {
	return list(ctx, r.DB, KindDeployment, projectID, domain.DeploymentSchema, l, keep)
}

// UpsertEvent stores an event, replacing an earlier version with the same id.
func (r Repo) UpsertEvent(ctx context.Context, tx *sql.Tx, e *domain.Event) error {
	return r.upsert(ctx, tx, document{KindEvent, e.ID, e.ProjectID, e.CreatedAt, e.UpdatedAt, domain.EventSchema, e})
}

// ListEvents returns one page of events and the cursor of the next.
func (r Repo) ListEvents(ctx context.Context, projectID string, l Listing, keep func(*domain.Event) bool) ([]*domain.Event, string, error) {
	return list(ctx, r.DB, KindEvent, projectID, domain.EventSchema, l, keep)
}

// InsertCommand enqueues a command for its piped. Commands carry no project
// of their own, so the caller names it.
func (r Repo) InsertCommand(ctx context.Context, tx *sql.Tx, projectID string, c *domain.Command) error {
	return r.insert(ctx, tx, document{KindCommand, c.ID, projectID, c.CreatedAt, c.UpdatedAt, domain.CommandSchema, c})
}

func (r Repo) GetCommand(ctx context.Context, tx *sql.Tx, projectID, id string) (*domain.Command, error) {
	var c domain.Command
	if err := r.get(ctx, tx, KindCommand, projectID, id, domain.CommandSchema, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r Repo) ListCommands(ctx context.Context, projectID string, keep func(*domain.Command) bool) ([]*domain.Command, error) {
	cmds, _, err := list(ctx, r.DB, KindCommand, projectID, domain.CommandSchema, Listing{}, keep)
	return cmds, err
}
