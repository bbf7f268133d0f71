// Package repo persists console entities in SQLite. Every entity is stored
// as one document row holding its wire encoding, so the datastore shares the
// exact representation the RPC layer speaks.
package repo

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"pipeconsole/internal/dto"
	"pipeconsole/internal/wire"
)

type Repo struct {
	DB *sql.DB
}

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidCursor = errors.New("invalid cursor")
)

// Document kinds.
const (
	KindApplication = "application"
	KindDeployment  = "deployment"
	KindEnvironment = "environment"
	KindEvent       = "event"
	KindPiped       = "piped"
	KindCommand     = "command"
)

// dbtx is the subset of *sql.DB and *sql.Tx the repo needs.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r Repo) conn(tx *sql.Tx) dbtx {
	if tx != nil {
		return tx
	}
	return r.DB
}

// InTx runs fn inside a transaction, committing when it returns nil.
func (r Repo) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

type document struct {
	kind      string
	id        string
	projectID string
	createdAt int64
	updatedAt int64
	schema    *wire.Schema
	value     any
}

func (r Repo) insert(ctx context.Context, tx *sql.Tx, d document) error {
	data, err := dto.Encode(d.schema, d.value)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", d.kind, d.id, err)
	}
	_, err = r.conn(tx).ExecContext(ctx, `INSERT INTO documents(kind,id,project_id,created_at,updated_at,data) VALUES (?,?,?,?,?,?)`,
		d.kind, d.id, d.projectID, d.createdAt, d.updatedAt, data)
	if err != nil && isConstraint(err) {
		return fmt.Errorf("%s %s: %w", d.kind, d.id, ErrAlreadyExists)
	}
	return err
}

func (r Repo) upsert(ctx context.Context, tx *sql.Tx, d document) error {
	data, err := dto.Encode(d.schema, d.value)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", d.kind, d.id, err)
	}
	_, err = r.conn(tx).ExecContext(ctx, `INSERT INTO documents(kind,id,project_id,created_at,updated_at,data) VALUES (?,?,?,?,?,?)
ON CONFLICT(kind,id) DO UPDATE SET project_id=excluded.project_id, updated_at=excluded.updated_at, data=excluded.data`,
		d.kind, d.id, d.projectID, d.createdAt, d.updatedAt, data)
	return err
}

func (r Repo) update(ctx context.Context, tx *sql.Tx, d document) error {
	data, err := dto.Encode(d.schema, d.value)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", d.kind, d.id, err)
	}
	res, err := r.conn(tx).ExecContext(ctx, `UPDATE documents SET updated_at=?, data=? WHERE kind=? AND id=? AND project_id=?`,
		d.updatedAt, data, d.kind, d.id, d.projectID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// get decodes the document (kind, id) into out. A document owned by another
// project is reported as missing.
func (r Repo) get(ctx context.Context, tx *sql.Tx, kind, projectID, id string, s *wire.Schema, out any) error {
	var data []byte
	err := r.conn(tx).QueryRowContext(ctx, `SELECT data FROM documents WHERE kind=? AND id=? AND project_id=?`, kind, id, projectID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := dto.Decode(s, data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", kind, id, err)
	}
	return nil
}

// Listing pages through documents ordered by updated_at then id, newest
// first.
type Listing struct {
	// PageSize caps the page; zero means no limit.
	PageSize int
	// Cursor resumes after the last entry of a previous page.
	Cursor string
	// MinUpdatedAt drops documents updated before it.
	MinUpdatedAt int64
}

type cursor struct {
	updatedAt int64
	id        string
}

func (c cursor) encode() string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(c.updatedAt, 10) + "/" + c.id))
}

func parseCursor(s string) (cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return cursor{}, ErrInvalidCursor
	}
	ts, id, ok := strings.Cut(string(raw), "/")
	if !ok || id == "" {
		return cursor{}, ErrInvalidCursor
	}
	n, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return cursor{}, ErrInvalidCursor
	}
	return cursor{updatedAt: n, id: id}, nil
}

// list decodes the documents of kind in projectID, keeping those accepted by
// keep, and returns the page plus the cursor of the next one ("" when the
// listing is exhausted).
func list[T any](ctx context.Context, db dbtx, kind, projectID string, s *wire.Schema, l Listing, keep func(*T) bool) ([]*T, string, error) {
	clauses := []string{"kind=?", "project_id=?"}
	args := []any{kind, projectID}
	if l.Cursor != "" {
		c, err := parseCursor(l.Cursor)
		if err != nil {
			return nil, "", err
		}
		clauses = append(clauses, "(updated_at < ? OR (updated_at = ? AND id < ?))")
		args = append(args, c.updatedAt, c.updatedAt, c.id)
	}
	if l.MinUpdatedAt > 0 {
		clauses = append(clauses, "updated_at >= ?")
		args = append(args, l.MinUpdatedAt)
	}
	query := `SELECT id,updated_at,data FROM documents WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY updated_at DESC, id DESC`
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	res := []*T{}
	var last cursor
	for rows.Next() {
		var (
			c    cursor
			data []byte
		)
		if err := rows.Scan(&c.id, &c.updatedAt, &data); err != nil {
			return nil, "", err
		}
		v := new(T)
		if err := dto.Decode(s, data, v); err != nil {
			return nil, "", fmt.Errorf("decode %s %s: %w", kind, c.id, err)
		}
		if keep != nil && !keep(v) {
			continue
		}
		if l.PageSize > 0 && len(res) == l.PageSize {
			// A further match exists, so the page is not the last one.
			return res, last.encode(), rows.Err()
		}
		res = append(res, v)
		last = c
	}
	return res, "", rows.Err()
}

// Count returns the number of documents of kind in projectID.
func (r Repo) Count(ctx context.Context, kind, projectID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE kind=? AND project_id=?`, kind, projectID).Scan(&n)
	return n, err
}

func isConstraint(err error) bool {
	return strings.Contains(err.Error(), "constraint failed")
}
