// Package engine implements the web service operations on top of the
// repo. Every exported operation has the signature of an rpc handler, so
// the backend registers them as they are.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pipeconsole/internal/activity"
	"pipeconsole/internal/config"
	"pipeconsole/internal/domain"
	"pipeconsole/internal/repo"
	"pipeconsole/internal/rpc"
)

// maxPageSize caps list pages.
const maxPageSize = 500

type Engine struct {
	DB       *sql.DB
	Repo     repo.Repo
	Activity activity.Writer
	Config   *config.Config
	Now      func() time.Time
	Log      *zap.Logger
}

func New(db *sql.DB, cfg *config.Config, log *zap.Logger) Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return Engine{
		DB:       db,
		Repo:     repo.Repo{DB: db},
		Activity: activity.Writer{},
		Config:   cfg,
		Now:      time.Now,
		Log:      log,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) unix() int64 { return e.now().Unix() }

func (e Engine) logger() *zap.Logger {
	if e.Log != nil {
		return e.Log
	}
	return zap.NewNop()
}

// project returns the project a call acts on: the one sent with the call,
// else the configured one.
func (e Engine) project(ctx context.Context) (string, error) {
	if p := rpc.ProjectFromContext(ctx); p != "" {
		return p, nil
	}
	if e.Config != nil && e.Config.Project.ID != "" {
		return e.Config.Project.ID, nil
	}
	return "", rpc.Errorf(rpc.InvalidArgument, "project is required")
}

func (e Engine) subject() string {
	if e.Config != nil && e.Config.Project.Subject != "" {
		return e.Config.Project.Subject
	}
	return "anonymous"
}

func (e Engine) appendActivity(ctx context.Context, tx *sql.Tx, typ, projectID, kind, id string, payload activity.Payload) error {
	w := e.Activity
	if w.Now == nil {
		w.Now = e.now
	}
	return w.Append(ctx, tx, typ, projectID, kind, id, e.subject(), payload)
}

// enqueueCommand stores a fresh command for its piped and records it.
func (e Engine) enqueueCommand(ctx context.Context, tx *sql.Tx, projectID string, c *domain.Command) error {
	now := e.unix()
	c.ID = uuid.NewString()
	c.Commander = e.subject()
	c.Status = domain.CommandStatusNotHandledYet
	if c.Metadata == nil {
		c.Metadata = map[string]string{}
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := e.Repo.InsertCommand(ctx, tx, projectID, c); err != nil {
		return err
	}
	return e.appendActivity(ctx, tx, activity.TypeCommandEnqueued, projectID, repo.KindCommand, c.ID, activity.Payload{
		"type":           c.Type.String(),
		"piped_id":       c.PipedID,
		"application_id": c.ApplicationID,
		"deployment_id":  c.DeploymentID,
		"stage_id":       c.StageID,
	})
}

// storeError translates repo errors into transport errors. Anything else is
// returned unchanged and ends up as an opaque Internal error.
func storeError(err error, kind, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return rpc.Errorf(rpc.NotFound, "%s %s not found", kind, id)
	case errors.Is(err, repo.ErrAlreadyExists):
		return rpc.Errorf(rpc.AlreadyExists, "%s %s already exists", kind, id)
	case errors.Is(err, repo.ErrInvalidCursor):
		return rpc.Errorf(rpc.InvalidArgument, "invalid cursor")
	}
	return err
}

func listing(pageSize int32, cursor string, minUpdatedAt int64) (repo.Listing, error) {
	if pageSize < 0 {
		return repo.Listing{}, rpc.Errorf(rpc.InvalidArgument, "page size must not be negative")
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return repo.Listing{PageSize: int(pageSize), Cursor: cursor, MinUpdatedAt: minUpdatedAt}, nil
}

func labelsMatch(want, have map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}
