package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pipeconsole/internal/domain"
	"pipeconsole/internal/dto"
)

// StageLogKey names the log of one attempt of a stage.
type StageLogKey struct {
	DeploymentID string
	StageID      string
	RetriedCount int32
}

// AppendStageLog stores blocks for key. A block index already present is
// kept as it was.
func (r Repo) AppendStageLog(ctx context.Context, tx *sql.Tx, key StageLogKey, blocks []*domain.LogBlock) error {
	db := r.conn(tx)
	for _, b := range blocks {
		data, err := dto.Encode(domain.LogBlockSchema, b)
		if err != nil {
			return fmt.Errorf("encode log block %d: %w", b.Index, err)
		}
		if _, err := db.ExecContext(ctx, `INSERT INTO stage_logs(deployment_id,stage_id,retried_count,block_index,data) VALUES (?,?,?,?,?)
ON CONFLICT DO NOTHING`, key.DeploymentID, key.StageID, key.RetriedCount, b.Index, data); err != nil {
			return err
		}
	}
	return nil
}

// CompleteStageLog marks the log of key as finished; no more blocks follow.
func (r Repo) CompleteStageLog(ctx context.Context, tx *sql.Tx, key StageLogKey) error {
	_, err := r.conn(tx).ExecContext(ctx, `INSERT INTO stage_log_states(deployment_id,stage_id,retried_count,completed) VALUES (?,?,?,1)
ON CONFLICT(deployment_id,stage_id,retried_count) DO UPDATE SET completed=1`, key.DeploymentID, key.StageID, key.RetriedCount)
	return err
}

// StageLog returns the blocks of key with index at or after offset, in
// index order, and whether the log is complete.
func (r Repo) StageLog(ctx context.Context, key StageLogKey, offset int64) ([]*domain.LogBlock, bool, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT data FROM stage_logs WHERE deployment_id=? AND stage_id=? AND retried_count=? AND block_index>=? ORDER BY block_index`,
		key.DeploymentID, key.StageID, key.RetriedCount, offset)
	if err != nil {
		return nil, false, err
	}
	blocks := []*domain.LogBlock{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			rows.Close()
			return nil, false, err
		}
		var b domain.LogBlock
		if err := dto.Decode(domain.LogBlockSchema, data, &b); err != nil {
			rows.Close()
			return nil, false, fmt.Errorf("decode log block: %w", err)
		}
		blocks = append(blocks, &b)
	}
	if err := rows.Close(); err != nil {
		return nil, false, err
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	var completed bool
	err = r.DB.QueryRowContext(ctx, `SELECT completed FROM stage_log_states WHERE deployment_id=? AND stage_id=? AND retried_count=?`,
		key.DeploymentID, key.StageID, key.RetriedCount).Scan(&completed)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}
	return blocks, completed, nil
}
