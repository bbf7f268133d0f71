// Package activity records console actions (environment added, piped
// registered, command enqueued ...) in an append-only log that webhooks
// and the CLI read back.
package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const (
	TypeEnvironmentAdded    = "environment.added"
	TypePipedRegistered     = "piped.registered"
	TypePipedEnabled        = "piped.enabled"
	TypePipedDisabled       = "piped.disabled"
	TypeApplicationAdded    = "application.added"
	TypeApplicationEnabled  = "application.enabled"
	TypeApplicationDisabled = "application.disabled"
	TypeCommandEnqueued     = "command.enqueued"
	TypeProjectSeeded       = "project.seeded"
)

type Writer struct {
	Now func() time.Time
}

type Payload map[string]any

// Append writes one activity row inside tx.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, typ, projectID, entityKind, entityID, actor string, payload Payload) error {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	ts := now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = Payload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal activity payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO activities(ts,type,project_id,entity_kind,entity_id,actor,payload_json) VALUES (?,?,?,?,?,?,?)`,
		ts, typ, projectID, entityKind, nullable(entityID), actor, string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
