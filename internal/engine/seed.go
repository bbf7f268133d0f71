package engine

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"pipeconsole/internal/activity"
	"pipeconsole/internal/domain"
	"pipeconsole/internal/fixtures"
	"pipeconsole/internal/repo"
)

// Seed stores a demo project built from set under projectID. Stage logs of
// completed stages are marked complete.
func (e Engine) Seed(ctx context.Context, projectID string, set *fixtures.Set) error {
	set.Environment.ProjectID = projectID
	set.Piped.ProjectID = projectID
	for _, app := range set.Applications {
		app.ProjectID = projectID
	}
	for _, d := range set.Deployments {
		d.ProjectID = projectID
	}
	for _, ev := range set.Events {
		ev.ProjectID = projectID
	}
	err := e.Repo.InTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertEnvironment(ctx, tx, set.Environment); err != nil {
			return err
		}
		if err := e.Repo.InsertPiped(ctx, tx, set.Piped); err != nil {
			return err
		}
		for _, app := range set.Applications {
			if err := e.Repo.InsertApplication(ctx, tx, app); err != nil {
				return err
			}
		}
		for _, d := range set.Deployments {
			if err := e.Repo.InsertDeployment(ctx, tx, d); err != nil {
				return err
			}
			if err := e.seedStageLogs(ctx, tx, d, set.StageLogs[d.ID]); err != nil {
				return err
			}
		}
		for _, ev := range set.Events {
			if err := e.Repo.UpsertEvent(ctx, tx, ev); err != nil {
				return err
			}
		}
		return e.appendActivity(ctx, tx, activity.TypeProjectSeeded, projectID, "project", projectID, activity.Payload{
			"applications": len(set.Applications),
			"deployments":  len(set.Deployments),
			"events":       len(set.Events),
		})
	})
	if err != nil {
		return err
	}
	e.logger().Info("seeded demo project",
		zap.String("project", projectID),
		zap.Int("applications", len(set.Applications)),
		zap.Int("deployments", len(set.Deployments)))
	return nil
}

func (e Engine) seedStageLogs(ctx context.Context, tx *sql.Tx, d *domain.Deployment, logs map[string][]*domain.LogBlock) error {
	for _, st := range d.Stages {
		blocks, ok := logs[st.ID]
		if !ok {
			continue
		}
		key := repo.StageLogKey{DeploymentID: d.ID, StageID: st.ID, RetriedCount: st.RetriedCount}
		if err := e.Repo.AppendStageLog(ctx, tx, key, blocks); err != nil {
			return err
		}
		if domain.IsCompletedStage(st.Status) {
			if err := e.Repo.CompleteStageLog(ctx, tx, key); err != nil {
				return err
			}
		}
	}
	return nil
}
