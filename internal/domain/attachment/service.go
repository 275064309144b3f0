package attachment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Service orchestrates attachment ingestion, retrieval and lifecycle.
type Service struct {
	repo      Repository
	storage   Storage
	guard     *Guard
	namer     *Namer
	validator *Validator
	dir       OwnerDirectory
	log       zerolog.Logger
}

func NewService(repo Repository, storage Storage, guard *Guard, namer *Namer, validator *Validator, dir OwnerDirectory, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		storage:   storage,
		guard:     guard,
		namer:     namer,
		validator: validator,
		dir:       dir,
		log:       log.With().Str("component", "attachment-service").Logger(),
	}
}

// UploadInput carries one file part of a task/subtask update.
type UploadInput struct {
	Owner        OwnerRef
	OriginalName string
	DeclaredMime string
	SizeBytes    int64
	Body         io.Reader
}

// Upload validates, names, stores and registers one file. No bytes are
// durably written before validation completes, and a registry entry is
// only created after the storage write succeeds.
func (s *Service) Upload(ctx context.Context, p Principal, in UploadInput) (*Attachment, error) {
	if err := s.guard.Authorize(ctx, p, in.Owner); err != nil {
		return nil, err
	}
	if err := s.checkOwner(ctx, in.Owner); err != nil {
		return nil, err
	}

	prefix := make([]byte, PrefixSize)
	n, err := io.ReadFull(in.Body, prefix)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, &StorageError{Op: "read", Key: in.OriginalName, Err: err}
	}
	prefix = prefix[:n]

	class, err := s.validator.Validate(in.DeclaredMime, in.OriginalName, in.SizeBytes, prefix)
	if err != nil {
		return nil, err
	}

	cleanName, err := SanitizeName(in.OriginalName)
	if err != nil {
		return nil, err
	}

	id, key, err := s.namer.Name(in.Owner, in.OriginalName, class.Extension)
	if err != nil {
		return nil, err
	}

	body := io.MultiReader(bytes.NewReader(prefix), in.Body)
	written, err := s.storage.Write(ctx, key, body, Limit(class.Category))
	if err != nil {
		return nil, err
	}

	att := &Attachment{
		ID:           id,
		OwnerType:    in.Owner.Type,
		OwnerID:      in.Owner.ID,
		CustomerID:   in.Owner.CustomerID,
		StorageKey:   key,
		OriginalName: cleanName,
		DeclaredMime: in.DeclaredMime,
		DetectedMime: class.DetectedMime,
		Category:     class.Category,
		SizeBytes:    written,
		UploadedBy:   p.ID,
		UploadedAt:   time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, att); err != nil {
		// Keep the invariant: no registry row without bytes and no
		// surviving bytes without a row.
		if _, derr := s.storage.Delete(ctx, key); derr != nil {
			s.log.Error().Err(derr).Str("storage_key", key).Msg("orphaned bytes after failed registry create")
		}
		return nil, err
	}

	s.log.Info().
		Str("attachment_id", att.ID).
		Str("owner_type", string(att.OwnerType)).
		Str("owner_id", att.OwnerID).
		Str("category", string(att.Category)).
		Int64("bytes", att.SizeBytes).
		Msg("attachment stored")

	return att, nil
}

// Download authorizes and opens an attachment for streaming. The guard
// runs before any registry or storage read.
func (s *Service) Download(ctx context.Context, p Principal, owner OwnerRef, attachmentID string) (*Attachment, io.ReadCloser, error) {
	if err := s.guard.Authorize(ctx, p, owner); err != nil {
		return nil, nil, err
	}

	att, err := s.repo.GetByID(ctx, attachmentID)
	if err != nil {
		return nil, nil, err
	}
	if att == nil || att.OwnerType != owner.Type || att.OwnerID != owner.ID || att.CustomerID != owner.CustomerID {
		return nil, nil, ErrNotFound
	}

	reader, _, err := s.storage.Read(ctx, att.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return att, reader, nil
}

// Info returns one attachment's metadata, guard-checked against the
// owner recorded on it.
func (s *Service) Info(ctx context.Context, p Principal, attachmentID string) (*Attachment, error) {
	att, err := s.repo.GetByID(ctx, attachmentID)
	if err != nil {
		return nil, err
	}
	if att == nil {
		return nil, ErrNotFound
	}
	if err := s.guard.Authorize(ctx, p, att.OwnerRef()); err != nil {
		return nil, err
	}
	return att, nil
}

// Delete removes one attachment: bytes first, then the registry row,
// so a crash mid-operation leaves sweeper-recoverable orphaned bytes
// rather than a row pointing at nothing.
func (s *Service) Delete(ctx context.Context, p Principal, attachmentID string) error {
	att, err := s.repo.GetByID(ctx, attachmentID)
	if err != nil {
		return err
	}
	if att == nil {
		return ErrNotFound
	}
	if err := s.guard.Authorize(ctx, p, att.OwnerRef()); err != nil {
		return err
	}

	if _, err := s.storage.Delete(ctx, att.StorageKey); err != nil {
		return err
	}
	if _, err := s.repo.Delete(ctx, att.ID); err != nil {
		return err
	}
	return nil
}

// UpdateOwner forwards a task/subtask update payload to the owning
// record store, after the same guard check uploads get.
func (s *Service) UpdateOwner(ctx context.Context, p Principal, owner OwnerRef, payload json.RawMessage) error {
	if err := s.guard.Authorize(ctx, p, owner); err != nil {
		return err
	}
	if err := s.checkOwner(ctx, owner); err != nil {
		return err
	}
	return s.dir.ApplyUpdate(ctx, owner.Type, owner.ID, payload)
}

// CascadeDelete removes every attachment of a deleted owner. Records
// are processed independently; one failure does not abort the rest.
func (s *Service) CascadeDelete(ctx context.Context, ownerType OwnerType, ownerID string) (int, error) {
	records, err := s.repo.ListByOwner(ctx, ownerType, ownerID)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, att := range records {
		if _, err := s.storage.Delete(ctx, att.StorageKey); err != nil {
			s.log.Error().Err(err).Str("attachment_id", att.ID).Msg("cascade delete bytes failed")
			continue
		}
		if _, err := s.repo.Delete(ctx, att.ID); err != nil {
			s.log.Error().Err(err).Str("attachment_id", att.ID).Msg("cascade delete record failed")
			continue
		}
		deleted++
	}

	// Directory-level purge catches anything the registry lost track of.
	if err := s.storage.PurgeOwner(ctx, ownerType, ownerID); err != nil {
		s.log.Error().Err(err).Str("owner_id", ownerID).Msg("owner directory purge failed")
	}

	return deleted, nil
}

// SubscribeCascade wires the service to owner-deleted events.
func (s *Service) SubscribeCascade(bus *OwnerEventBus) {
	bus.Subscribe(func(ctx context.Context, event OwnerDeleted) {
		if _, err := s.CascadeDelete(ctx, event.Type, event.ID); err != nil {
			s.log.Error().Err(err).
				Str("owner_type", string(event.Type)).
				Str("owner_id", event.ID).
				Msg("cascade delete failed")
		}
	})
}

// Stats aggregates the registry into per-category usage.
func (s *Service) Stats(ctx context.Context) (UsageStats, error) {
	return s.repo.Stats(ctx)
}

// checkOwner verifies the owning record exists and that the customer
// id on the request matches the record store's view. A mismatch is
// reported as an unknown owner rather than leaking whose record it is.
func (s *Service) checkOwner(ctx context.Context, owner OwnerRef) error {
	customerID, err := s.dir.GetOwnerCustomer(ctx, owner.Type, owner.ID)
	if err != nil {
		return err
	}
	if customerID != owner.CustomerID {
		return ErrOwnerNotFound
	}
	return nil
}
