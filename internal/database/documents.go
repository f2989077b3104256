package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"viagens/internal/models"
)

const documentColumns = `id, owner_type, owner_id, file_name, stored_name, content_type, size_bytes, uploaded_by, created_at`

func (s *Store) CreateDocument(ctx context.Context, d *models.Document) error {
	ts := now()
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO documents (owner_type, owner_id, file_name, stored_name, content_type, size_bytes, uploaded_by, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.OwnerType, d.OwnerID, d.FileName, d.StoredName, d.ContentType, d.SizeBytes, d.UploadedBy, ts)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	d.ID = id
	d.CreatedAt = ts
	return nil
}

func (s *Store) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	var d models.Document
	err := s.q.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id).Scan(
		&d.ID, &d.OwnerType, &d.OwnerID, &d.FileName, &d.StoredName, &d.ContentType, &d.SizeBytes, &d.UploadedBy, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &d, nil
}

func (s *Store) ListDocuments(ctx context.Context, ownerType string, ownerID int64) ([]*models.Document, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE owner_type = ? AND owner_id = ? ORDER BY created_at, id`,
		ownerType, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.OwnerType, &d.OwnerID, &d.FileName, &d.StoredName, &d.ContentType,
			&d.SizeBytes, &d.UploadedBy, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}

func (s *Store) DeleteDocument(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return affectedOne(res, ErrNotFound)
}
