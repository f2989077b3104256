package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"viagens/internal/models"
)

var ErrInvalidField = errors.New("invalid filter field")

var fieldPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// recordPtr constrains PT to a pointer to T that is a models.Record.
type recordPtr[T any] interface {
	*T
	models.Record
}

// RecordStore keeps one kind of entity as JSON documents in the records table.
type RecordStore[T any, PT recordPtr[T]] struct {
	s    *Store
	kind string
}

// Records returns the record store for T, e.g. Records[models.Supplier](db.Store).
func Records[T any, PT recordPtr[T]](s *Store) *RecordStore[T, PT] {
	var zero T
	return &RecordStore[T, PT]{s: s, kind: PT(&zero).Kind()}
}

func (r *RecordStore[T, PT]) Kind() string {
	return r.kind
}

func (r *RecordStore[T, PT]) Create(ctx context.Context, rec PT) error {
	meta := rec.Meta()
	ts := now()
	meta.CreatedAt, meta.UpdatedAt = ts, ts

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", r.kind, err)
	}
	res, err := r.s.q.ExecContext(ctx,
		`INSERT INTO records (kind, data, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		r.kind, string(data), ts, ts)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", r.kind, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	meta.ID = id
	return nil
}

// BulkCreate inserts every record; wrap in InTx for all-or-nothing.
func (r *RecordStore[T, PT]) BulkCreate(ctx context.Context, recs []PT) error {
	for i, rec := range recs {
		if err := r.Create(ctx, rec); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

func (r *RecordStore[T, PT]) Get(ctx context.Context, id int64) (PT, error) {
	recs, err := r.query(ctx, `SELECT id, data, created_at, updated_at FROM records WHERE kind = ? AND id = ?`, r.kind, id)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return recs[0], nil
}

func (r *RecordStore[T, PT]) List(ctx context.Context) ([]PT, error) {
	return r.query(ctx, `SELECT id, data, created_at, updated_at FROM records WHERE kind = ? ORDER BY id`, r.kind)
}

// Filter returns the records whose JSON field equals value. Field names are
// the JSON keys of T.
func (r *RecordStore[T, PT]) Filter(ctx context.Context, field string, value interface{}) ([]PT, error) {
	if !fieldPattern.MatchString(field) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	query := `SELECT id, data, created_at, updated_at FROM records
              WHERE kind = ? AND json_extract(data, '$.` + field + `') = ? ORDER BY id`
	return r.query(ctx, query, r.kind, value)
}

func (r *RecordStore[T, PT]) Update(ctx context.Context, rec PT) error {
	meta := rec.Meta()
	ts := now()
	prev := meta.UpdatedAt
	meta.UpdatedAt = ts

	data, err := json.Marshal(rec)
	if err != nil {
		meta.UpdatedAt = prev
		return fmt.Errorf("failed to encode %s: %w", r.kind, err)
	}
	res, err := r.s.q.ExecContext(ctx,
		`UPDATE records SET data = ?, updated_at = ? WHERE kind = ? AND id = ?`,
		string(data), ts, r.kind, meta.ID)
	if err != nil {
		meta.UpdatedAt = prev
		return fmt.Errorf("failed to update %s: %w", r.kind, err)
	}
	if err := affectedOne(res, ErrNotFound); err != nil {
		meta.UpdatedAt = prev
		return err
	}
	return nil
}

func (r *RecordStore[T, PT]) Delete(ctx context.Context, id int64) error {
	res, err := r.s.q.ExecContext(ctx, `DELETE FROM records WHERE kind = ? AND id = ?`, r.kind, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", r.kind, err)
	}
	return affectedOne(res, ErrNotFound)
}

func (r *RecordStore[T, PT]) query(ctx context.Context, query string, args ...interface{}) ([]PT, error) {
	rows, err := r.s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", r.kind, err)
	}
	defer rows.Close()

	var recs []PT
	for rows.Next() {
		var (
			id   int64
			data string
			meta models.RecordMeta
		)
		if err := rows.Scan(&id, &data, &meta.CreatedAt, &meta.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", r.kind, err)
		}
		rec := PT(new(T))
		if err := json.Unmarshal([]byte(data), rec); err != nil {
			return nil, fmt.Errorf("failed to decode %s %d: %w", r.kind, id, err)
		}
		meta.ID = id
		*rec.Meta() = meta
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// rawRecords returns the stored documents of every kind, keyed by kind.
func (s *Store) rawRecords(ctx context.Context) (map[string][]json.RawMessage, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id, kind, data FROM records ORDER BY kind, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]json.RawMessage)
	for rows.Next() {
		var (
			id   int64
			kind string
			data sql.RawBytes
		)
		if err := rows.Scan(&id, &kind, &data); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode record %d: %w", id, err)
		}
		doc["id"] = json.RawMessage(fmt.Sprint(id))
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		out[kind] = append(out[kind], raw)
	}
	return out, rows.Err()
}
