package engine

import (
	"context"
	"database/sql"
	"slices"
	"strconv"

	"pipeconsole/internal/domain"
	"pipeconsole/internal/repo"
	"pipeconsole/internal/rpc"
	"pipeconsole/internal/webapi"
)

func (e Engine) ListDeployments(ctx context.Context, req *webapi.ListDeploymentsRequest) (*webapi.ListDeploymentsResponse, error) {
	projectID, err := e.project(ctx)
	if err != nil {
		return nil, err
	}
	l, err := listing(req.PageSize, req.Cursor, req.PageMinUpdatedAt)
	if err != nil {
		return nil, err
	}
	var keep func(*domain.Deployment) bool
	if opts := req.Options; opts != nil {
		keep = func(d *domain.Deployment) bool {
			if len(opts.Statuses) > 0 && !slices.Contains(opts.Statuses, d.Status) {
				return false
			}
			if len(opts.Kinds) > 0 && !slices.Contains(opts.Kinds, d.Kind) {
				return false
			}
			if len(opts.ApplicationIDs) > 0 && !slices.Contains(opts.ApplicationIDs, d.ApplicationID) {
				return false
			}
			return len(opts.EnvIDs) == 0 || slices.Contains(opts.EnvIDs, d.EnvID)
		}
	}
	ds, cursor, err := e.Repo.ListDeployments(ctx, projectID, l, keep)
	if err != nil {
		return nil, storeError(err, "deployment", "")
	}
	return &webapi.ListDeploymentsResponse{Deployments: ds, Cursor: cursor}, nil
}

func (e Engine) GetDeployment(ctx context.Context, req *webapi.GetDeploymentRequest) (*webapi.GetDeploymentResponse, error) {
	projectID, err := e.project(ctx)
	if err != nil {
		return nil, err
	}
	d, err := e.Repo.GetDeployment(ctx, nil, projectID, req.DeploymentID)
	if err != nil {
		return nil, storeError(err, "deployment", req.DeploymentID)
	}
	return &webapi.GetDeploymentResponse{Deployment: d}, nil
}

// GetStageLog returns the log blocks of one stage attempt from
// OffsetIndex on.
func (e Engine) GetStageLog(ctx context.Context, req *webapi.GetStageLogRequest) (*webapi.GetStageLogResponse, error) {
	projectID, err := e.project(ctx)
	if err != nil {
		return nil, err
	}
	if req.OffsetIndex < 0 {
		return nil, rpc.Errorf(rpc.InvalidArgument, "offset index must not be negative")
	}
	d, err := e.Repo.GetDeployment(ctx, nil, projectID, req.DeploymentID)
	if err != nil {
		return nil, storeError(err, "deployment", req.DeploymentID)
	}
	if _, ok := d.Stage(req.StageID); !ok {
		return nil, rpc.Errorf(rpc.NotFound, "stage %s not found in deployment %s", req.StageID, d.ID)
	}
	key := repo.StageLogKey{DeploymentID: d.ID, StageID: req.StageID, RetriedCount: req.RetriedCount}
	blocks, completed, err := e.Repo.StageLog(ctx, key, req.OffsetIndex)
	if err != nil {
		return nil, err
	}
	return &webapi.GetStageLogResponse{Blocks: blocks, Completed: completed}, nil
}

// CancelDeployment asks the deployment's piped to stop it, rolling back
// unless WithoutRollback is set. A completed deployment cannot be cancelled.
func (e Engine) CancelDeployment(ctx context.Context, req *webapi.CancelDeploymentRequest) (*webapi.CancelDeploymentResponse, error) {
	projectID, err := e.project(ctx)
	if err != nil {
		return nil, err
	}
	cmd := &domain.Command{
		Type:         domain.CommandTypeCancelDeployment,
		DeploymentID: req.DeploymentID,
		Metadata: map[string]string{
			"withoutRollback": strconv.FormatBool(req.WithoutRollback),
		},
	}
	err = e.Repo.InTx(ctx, func(tx *sql.Tx) error {
		d, err := e.Repo.GetDeployment(ctx, tx, projectID, req.DeploymentID)
		if err != nil {
			return storeError(err, "deployment", req.DeploymentID)
		}
		if domain.IsCompletedDeployment(d.Status) {
			return rpc.Errorf(rpc.FailedPrecondition, "deployment %s has already completed", d.ID)
		}
		cmd.PipedID = d.PipedID
		cmd.ApplicationID = d.ApplicationID
		return e.enqueueCommand(ctx, tx, projectID, cmd)
	})
	if err != nil {
		return nil, err
	}
	return &webapi.CancelDeploymentResponse{CommandID: cmd.ID}, nil
}

// ApproveStage approves a stage waiting for a manual approval.
func (e Engine) ApproveStage(ctx context.Context, req *webapi.ApproveStageRequest) (*webapi.ApproveStageResponse, error) {
	projectID, err := e.project(ctx)
	if err != nil {
		return nil, err
	}
	cmd := &domain.Command{
		Type:         domain.CommandTypeApproveStage,
		DeploymentID: req.DeploymentID,
		StageID:      req.StageID,
	}
	err = e.Repo.InTx(ctx, func(tx *sql.Tx) error {
		d, err := e.Repo.GetDeployment(ctx, tx, projectID, req.DeploymentID)
		if err != nil {
			return storeError(err, "deployment", req.DeploymentID)
		}
		status, ok := d.StageStatusMap()[req.StageID]
		if !ok {
			return rpc.Errorf(rpc.FailedPrecondition, "stage %s not found in deployment %s", req.StageID, d.ID)
		}
		if domain.IsCompletedStage(status) {
			return rpc.Errorf(rpc.FailedPrecondition, "stage %s has already completed", req.StageID)
		}
		cmd.PipedID = d.PipedID
		cmd.ApplicationID = d.ApplicationID
		return e.enqueueCommand(ctx, tx, projectID, cmd)
	})
	if err != nil {
		return nil, err
	}
	return &webapi.ApproveStageResponse{CommandID: cmd.ID}, nil
}
