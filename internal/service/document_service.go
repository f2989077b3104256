package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"viagens/internal/database"
	"viagens/internal/domain"
	"viagens/internal/events"
	"viagens/internal/models"
	"viagens/internal/storage"

	"github.com/rs/zerolog"
)

type DocumentService struct {
	notifier
	db    *database.DB
	files *storage.FileStore
}

func NewDocumentService(db *database.DB, files *storage.FileStore, eventBus domain.EventPublisher, logger *zerolog.Logger) *DocumentService {
	return &DocumentService{
		notifier: newNotifier(eventBus, nil, logger),
		db:       db,
		files:    files,
	}
}

// Upload stores a file for a trip or client. The file is written first and
// removed again if the metadata cannot be saved.
func (s *DocumentService) Upload(ctx context.Context, ownerType string, ownerID int64, fileName string, r io.Reader) (*models.Document, error) {
	if err := s.checkOwner(ctx, ownerType, ownerID); err != nil {
		return nil, err
	}
	fileName = strings.TrimSpace(filepath.Base(fileName))
	if fileName == "" || fileName == "." || fileName == string(filepath.Separator) {
		return nil, invalid("file name is required")
	}

	stored, err := s.files.Save(r)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) || errors.Is(err, storage.ErrTypeNotAllowed) || errors.Is(err, storage.ErrEmpty) {
			return nil, invalidErr(err)
		}
		return nil, err
	}

	doc := &models.Document{
		OwnerType:   ownerType,
		OwnerID:     ownerID,
		FileName:    fileName,
		StoredName:  stored.Name,
		ContentType: stored.ContentType,
		SizeBytes:   stored.Size,
		UploadedBy:  ActorFrom(ctx),
	}
	if err := s.db.CreateDocument(ctx, doc); err != nil {
		if rmErr := s.files.Remove(stored.Name); rmErr != nil {
			s.logger.Error().Err(rmErr).Str("stored", stored.Name).Msg("remove orphan upload error")
		}
		return nil, err
	}

	s.publishEvent(ctx, events.EventDocumentUploaded, events.Payload{Entity: "document", EntityID: doc.ID, Detail: doc.FileName})
	return doc, nil
}

// Open returns the document metadata and its content; the caller closes the file.
func (s *DocumentService) Open(ctx context.Context, id int64) (*models.Document, *os.File, error) {
	doc, err := s.db.GetDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.files.Open(doc.StoredName)
	if errors.Is(err, storage.ErrStoredNotExists) {
		return nil, nil, database.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return doc, f, nil
}

func (s *DocumentService) List(ctx context.Context, ownerType string, ownerID int64) ([]*models.Document, error) {
	if err := s.checkOwner(ctx, ownerType, ownerID); err != nil {
		return nil, err
	}
	return s.db.ListDocuments(ctx, ownerType, ownerID)
}

func (s *DocumentService) Delete(ctx context.Context, id int64) error {
	doc, err := s.db.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if err := s.files.Remove(doc.StoredName); err != nil {
		s.logger.Error().Err(err).Int64("document_id", id).Msg("remove stored file error")
	}
	s.publishEvent(ctx, events.EventDocumentDeleted, events.Payload{Entity: "document", EntityID: id, Detail: doc.FileName})
	return nil
}

func (s *DocumentService) checkOwner(ctx context.Context, ownerType string, ownerID int64) error {
	var err error
	switch ownerType {
	case models.OwnerTrip:
		_, err = s.db.GetTrip(ctx, ownerID)
	case models.OwnerClient:
		_, err = s.db.GetClient(ctx, ownerID)
	default:
		return invalid("unknown document owner %q", ownerType)
	}
	return err
}
