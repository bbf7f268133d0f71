package engine

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"pipeconsole/internal/activity"
	"pipeconsole/internal/domain"
	"pipeconsole/internal/engine/auth"
	"pipeconsole/internal/repo"
	"pipeconsole/internal/rpc"
	"pipeconsole/internal/webapi"
)

func (e Engine) AddEnvironment(ctx context.Context, req *webapi.AddEnvironmentRequest) (*webapi.AddEnvironmentResponse, error) {
	projectID, err := e.project(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, rpc.Errorf(rpc.InvalidArgument, "environment name is required")
	}
	now := e.unix()
	env := &domain.Environment{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Desc:      req.Desc,
		ProjectID: projectID,
		PipedIDs:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = e.Repo.InTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertEnvironment(ctx, tx, env); err != nil {
			return storeError(err, "environment", env.ID)
		}
		return e.appendActivity(ctx, tx, activity.TypeEnvironmentAdded, projectID, repo.KindEnvironment, env.ID, activity.Payload{"name": env.Name})
	})
	if err != nil {
		return nil, err
	}
	return &webapi.AddEnvironmentResponse{EnvironmentID: env.ID}, nil
}

func (e Engine) ListEnvironments(ctx context.Context, _ *webapi.ListEnvironmentsRequest) (*webapi.ListEnvironmentsResponse, error) {
	projectID, err := e.project(ctx)
	if err != nil {
		return nil, err
	}
	envs, err := e.Repo.ListEnvironments(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &webapi.ListEnvironmentsResponse{Environments: envs}, nil
}

// RegisterPiped creates a piped attached to the given environments and
// returns its key and sealed-secret private key. Neither is stored.
func (e Engine) RegisterPiped(ctx context.Context, req *webapi.RegisterPipedRequest) (*webapi.RegisterPipedResponse, error) {
	projectID, err := e.project(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, rpc.Errorf(rpc.InvalidArgument, "piped name is required")
	}
	key, hash, err := auth.GeneratePipedKey()
	if err != nil {
		return nil, err
	}
	sealing, err := auth.GenerateSealingKey()
	if err != nil {
		return nil, err
	}
	now := e.unix()
	p := &domain.Piped{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Desc:           req.Desc,
		ProjectID:      projectID,
		CloudProviders: []*domain.PipedCloudProvider{},
		Repositories:   []*domain.ApplicationGitRepository{},
		EnvIDs:         append([]string{}, req.EnvIDs...),
		Status:         domain.PipedConnectionStatusOffline,
		SealedSecretEncryption: &domain.PipedSealedSecretEncryption{
			Type:      auth.SealedSecretType,
			PublicKey: sealing.PublicKey,
		},
		KeyHash:   hash,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = e.Repo.InTx(ctx, func(tx *sql.Tx) error {
		for _, envID := range p.EnvIDs {
			env, err := e.Repo.GetEnvironment(ctx, tx, projectID, envID)
			if err != nil {
				return storeError(err, "environment", envID)
			}
			env.PipedIDs = append(env.PipedIDs, p.ID)
			env.UpdatedAt = now
			if err := e.Repo.UpdateEnvironment(ctx, tx, env); err != nil {
				return err
			}
		}
		if err := e.Repo.InsertPiped(ctx, tx, p); err != nil {
			return storeError(err, "piped", p.ID)
		}
		return e.appendActivity(ctx, tx, activity.TypePipedRegistered, projectID, repo.KindPiped, p.ID, activity.Payload{
			"name":    p.Name,
			"env_ids": p.EnvIDs,
		})
	})
	if err != nil {
		return nil, err
	}
	return &webapi.RegisterPipedResponse{ID: p.ID, Key: key, SealedSecretPrivateKey: sealing.PrivateKey}, nil
}

func (e Engine) EnablePiped(ctx context.Context, req *webapi.EnablePipedRequest) (*webapi.EnablePipedResponse, error) {
	if err := e.setPipedDisabled(ctx, req.PipedID, false); err != nil {
		return nil, err
	}
	return &webapi.EnablePipedResponse{}, nil
}

func (e Engine) DisablePiped(ctx context.Context, req *webapi.DisablePipedRequest) (*webapi.DisablePipedResponse, error) {
	if err := e.setPipedDisabled(ctx, req.PipedID, true); err != nil {
		return nil, err
	}
	return &webapi.DisablePipedResponse{}, nil
}

func (e Engine) setPipedDisabled(ctx context.Context, pipedID string, disabled bool) error {
	projectID, err := e.project(ctx)
	if err != nil {
		return err
	}
	typ := activity.TypePipedEnabled
	if disabled {
		typ = activity.TypePipedDisabled
	}
	return e.Repo.InTx(ctx, func(tx *sql.Tx) error {
		p, err := e.Repo.GetPiped(ctx, tx, projectID, pipedID)
		if err != nil {
			return storeError(err, "piped", pipedID)
		}
		if p.Disabled == disabled {
			return nil
		}
		p.Disabled = disabled
		p.UpdatedAt = e.unix()
		if err := e.Repo.UpdatePiped(ctx, tx, p); err != nil {
			return err
		}
		return e.appendActivity(ctx, tx, typ, projectID, repo.KindPiped, p.ID, nil)
	})
}

func (e Engine) ListPipeds(ctx context.Context, req *webapi.ListPipedsRequest) (*webapi.ListPipedsResponse, error) {
	projectID, err := e.project(ctx)
	if err != nil {
		return nil, err
	}
	var keep func(*domain.Piped) bool
	if opts := req.Options; opts != nil && opts.Enabled != nil {
		enabled := opts.Enabled.Value
		keep = func(p *domain.Piped) bool { return p.Disabled != enabled }
	}
	pipeds, err := e.Repo.ListPipeds(ctx, projectID, keep)
	if err != nil {
		return nil, err
	}
	for _, p := range pipeds {
		p.RedactSensitiveData()
	}
	return &webapi.ListPipedsResponse{Pipeds: pipeds}, nil
}

func (e Engine) GetPiped(ctx context.Context, req *webapi.GetPipedRequest) (*webapi.GetPipedResponse, error) {
	projectID, err := e.project(ctx)
	if err != nil {
		return nil, err
	}
	p, err := e.Repo.GetPiped(ctx, nil, projectID, req.PipedID)
	if err != nil {
		return nil, storeError(err, "piped", req.PipedID)
	}
	p.RedactSensitiveData()
	return &webapi.GetPipedResponse{Piped: p}, nil
}
