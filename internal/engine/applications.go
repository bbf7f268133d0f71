package engine

import (
	"context"
	"database/sql"
	"encoding/base64"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"

	"pipeconsole/internal/activity"
	"pipeconsole/internal/domain"
	"pipeconsole/internal/engine/auth"
	"pipeconsole/internal/repo"
	"pipeconsole/internal/rpc"
	"pipeconsole/internal/webapi"
)

func (e Engine) AddApplication(ctx context.Context, req *webapi.AddApplicationRequest) (*webapi.AddApplicationResponse, error) {
	projectID, err := e.project(ctx)
	if err != nil {
		return nil, err
	}
	switch {
	case strings.TrimSpace(req.Name) == "":
		return nil, rpc.Errorf(rpc.InvalidArgument, "application name is required")
	case req.EnvID == "" || req.PipedID == "":
		return nil, rpc.Errorf(rpc.InvalidArgument, "environment and piped are required")
	case req.GitPath == nil || req.GitPath.Repo == nil:
		return nil, rpc.Errorf(rpc.InvalidArgument, "git path with a repository is required")
	}
	now := e.unix()
	app := &domain.Application{
		ID:            uuid.NewString(),
		Name:          req.Name,
		EnvID:         req.EnvID,
		PipedID:       req.PipedID,
		ProjectID:     projectID,
		Kind:          req.Kind,
		GitPath:       req.GitPath,
		CloudProvider: req.CloudProvider,
		Description:   req.Description,
		Labels:        maps.Clone(req.Labels),
		SyncState:     &domain.ApplicationSyncState{Status: domain.ApplicationSyncStatusUnknown, Timestamp: now},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if app.Labels == nil {
		app.Labels = map[string]string{}
	}
	err = e.Repo.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := e.Repo.GetEnvironment(ctx, tx, projectID, req.EnvID); err != nil {
			return storeError(err, "environment", req.EnvID)
		}
		p, err := e.Repo.GetPiped(ctx, tx, projectID, req.PipedID)
		if err != nil {
			return storeError(err, "piped", req.PipedID)
		}
		if !slices.Contains(p.EnvIDs, req.EnvID) {
			return rpc.Errorf(rpc.InvalidArgument, "piped %s does not serve environment %s", p.ID, req.EnvID)
		}
		if err := e.Repo.InsertApplication(ctx, tx, app); err != nil {
			return storeError(err, "application", app.ID)
		}
		return e.appendActivity(ctx, tx, activity.TypeApplicationAdded, projectID, repo.KindApplication, app.ID, activity.Payload{
			"name": app.Name,
			"kind": app.Kind.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return &webapi.AddApplicationResponse{ApplicationID: app.ID}, nil
}

func (e Engine) EnableApplication(ctx context.Context, req *webapi.EnableApplicationRequest) (*webapi.EnableApplicationResponse, error) {
	if err := e.setApplicationDisabled(ctx, req.ApplicationID, false); err != nil {
		return nil, err
	}
	return &webapi.EnableApplicationResponse{}, nil
}

func (e Engine) DisableApplication(ctx context.Context, req *webapi.DisableApplicationRequest) (*webapi.DisableApplicationResponse, error) {
	if err := e.setApplicationDisabled(ctx, req.ApplicationID, true); err != nil {
		return nil, err
	}
	return &webapi.DisableApplicationResponse{}, nil
}

func (e Engine) setApplicationDisabled(ctx context.Context, appID string, disabled bool) error {
	projectID, err := e.project(ctx)
	if err != nil {
		return err
	}
	typ := activity.TypeApplicationEnabled
	if disabled {
		typ = activity.TypeApplicationDisabled
	}
	return e.Repo.InTx(ctx, func(tx *sql.Tx) error {
		app, err := e.Repo.GetApplication(ctx, tx, projectID, appID)
		if err != nil {
			return storeError(err, "application", appID)
		}
		if app.Deleted {
			return rpc.Errorf(rpc.InvalidArgument, "application %s is deleted", appID)
		}
		if app.Disabled == disabled {
			return nil
		}
		app.Disabled = disabled
		app.UpdatedAt = e.unix()
		if err := e.Repo.UpdateApplication(ctx, tx, app); err != nil {
			return err
		}
		return e.appendActivity(ctx, tx, typ, projectID, repo.KindApplication, app.ID, nil)
	})
}

func (e Engine) ListApplications(ctx context.Context, req *webapi.ListApplicationsRequest) (*webapi.ListApplicationsResponse, error) {
	projectID, err := e.project(ctx)
	if err != nil {
		return nil, err
	}
	opts := req.Options
	keep := func(app *domain.Application) bool {
		if app.Deleted {
			return false
		}
		if opts == nil {
			return true
		}
		if opts.Enabled != nil && app.Disabled == opts.Enabled.Value {
			return false
		}
		if len(opts.Kinds) > 0 && !slices.Contains(opts.Kinds, app.Kind) {
			return false
		}
		if len(opts.SyncStatuses) > 0 {
			status := domain.ApplicationSyncStatusUnknown
			if app.SyncState != nil {
				status = app.SyncState.Status
			}
			if !slices.Contains(opts.SyncStatuses, status) {
				return false
			}
		}
		if len(opts.EnvIDs) > 0 && !slices.Contains(opts.EnvIDs, app.EnvID) {
			return false
		}
		return labelsMatch(opts.Labels, app.Labels)
	}
	apps, err := e.Repo.ListApplications(ctx, projectID, keep)
	if err != nil {
		return nil, err
	}
	return &webapi.ListApplicationsResponse{Applications: apps}, nil
}

func (e Engine) GetApplication(ctx context.Context, req *webapi.GetApplicationRequest) (*webapi.GetApplicationResponse, error) {
	projectID, err := e.project(ctx)
	if err != nil {
		return nil, err
	}
	app, err := e.Repo.GetApplication(ctx, nil, projectID, req.ApplicationID)
	if err != nil {
		return nil, storeError(err, "application", req.ApplicationID)
	}
	return &webapi.GetApplicationResponse{Application: app}, nil
}

// SyncApplication asks the application's piped to deploy its latest
// configuration.
func (e Engine) SyncApplication(ctx context.Context, req *webapi.SyncApplicationRequest) (*webapi.SyncApplicationResponse, error) {
	projectID, err := e.project(ctx)
	if err != nil {
		return nil, err
	}
	cmd := &domain.Command{Type: domain.CommandTypeSyncApplication, ApplicationID: req.ApplicationID}
	err = e.Repo.InTx(ctx, func(tx *sql.Tx) error {
		app, err := e.Repo.GetApplication(ctx, tx, projectID, req.ApplicationID)
		if err != nil {
			return storeError(err, "application", req.ApplicationID)
		}
		if app.Deleted || app.Disabled {
			return rpc.Errorf(rpc.FailedPrecondition, "application %s is not enabled", app.ID)
		}
		cmd.PipedID = app.PipedID
		return e.enqueueCommand(ctx, tx, projectID, cmd)
	})
	if err != nil {
		return nil, err
	}
	return &webapi.SyncApplicationResponse{CommandID: cmd.ID}, nil
}

// GenerateApplicationSealedSecret encrypts data to the piped's sealing key.
// With Base64Encoding the data is base64 encoded before encryption.
func (e Engine) GenerateApplicationSealedSecret(ctx context.Context, req *webapi.GenerateApplicationSealedSecretRequest) (*webapi.GenerateApplicationSealedSecretResponse, error) {
	projectID, err := e.project(ctx)
	if err != nil {
		return nil, err
	}
	if req.Data == "" {
		return nil, rpc.Errorf(rpc.InvalidArgument, "data is required")
	}
	p, err := e.Repo.GetPiped(ctx, nil, projectID, req.PipedID)
	if err != nil {
		return nil, storeError(err, "piped", req.PipedID)
	}
	if p.SealedSecretEncryption == nil || p.SealedSecretEncryption.PublicKey == "" {
		return nil, rpc.Errorf(rpc.FailedPrecondition, "piped %s has no sealed secret encryption configured", p.ID)
	}
	data := req.Data
	if req.Base64Encoding {
		data = base64.StdEncoding.EncodeToString([]byte(data))
	}
	sealed, err := auth.Seal(p.SealedSecretEncryption.PublicKey, []byte(data))
	if err != nil {
		return nil, err
	}
	return &webapi.GenerateApplicationSealedSecretResponse{Data: sealed}, nil
}
