package repo

import (
	"context"
	"database/sql"
	"errors"

	"pipeconsole/internal/domain"
)

// ActivitiesAfter returns up to limit activities of a project with a sequence
// number above after, oldest first.
func (r Repo) ActivitiesAfter(ctx context.Context, projectID string, after int64, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT seq,ts,type,project_id,entity_kind,COALESCE(entity_id,''),actor,payload_json
FROM activities WHERE project_id=? AND seq>? ORDER BY seq LIMIT ?`, projectID, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Activity
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.Seq, &a.TS, &a.Type, &a.ProjectID, &a.EntityKind, &a.EntityID, &a.Actor, &a.Payload); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// LatestActivitySeq returns the newest sequence number of a project, 0 when
// it has no activity.
func (r Repo) LatestActivitySeq(ctx context.Context, projectID string) (int64, error) {
	var seq sql.NullInt64
	err := r.DB.QueryRowContext(ctx, `SELECT MAX(seq) FROM activities WHERE project_id=?`, projectID).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return seq.Int64, nil
}
