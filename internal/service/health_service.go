package service

import (
	"context"
	"errors"
	"mhollis/stable-app/internal/domain"
	"mhollis/stable-app/internal/repository"
	"mhollis/stable-app/internal/storage"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrHealthRecordNotFound = errors.New("health record not found")
)

// --- Service Interface ---
type HealthService interface {
	CreateRecord(ctx context.Context, ownerID, horseID primitive.ObjectID, recordType domain.HealthRecordType, date time.Time, description string) (*domain.HealthRecord, error)
	GetRecordsForHorse(ctx context.Context, userID, horseID primitive.ObjectID) ([]domain.HealthRecord, error)
	DeleteRecord(ctx context.Context, ownerID, recordID primitive.ObjectID) error

	GenerateAttachmentUploadURL(ctx context.Context, ownerID, recordID primitive.ObjectID, contentType string) (*UploadURLResponse, error)
	ConfirmAttachmentUpload(ctx context.Context, ownerID, recordID primitive.ObjectID, objectKey, fileName string, size int64, contentType string) (*domain.HealthRecord, error)
	GetAttachmentDownloadURL(ctx context.Context, userID, recordID primitive.ObjectID) (string, error)
}

// --- Service Implementation ---

// healthService implements the HealthService interface.
type healthService struct {
	healthRepo  repository.HealthRecordRepository
	horseRepo   repository.HorseRepository
	uploadRepo  repository.UploadRepository
	fileStorage storage.FileStorage
}

// NewHealthService creates a new instance of healthService.
func NewHealthService(
	healthRepo repository.HealthRecordRepository,
	horseRepo repository.HorseRepository,
	uploadRepo repository.UploadRepository,
	fileStorage storage.FileStorage,
) HealthService {
	return &healthService{
		healthRepo:  healthRepo,
		horseRepo:   horseRepo,
		uploadRepo:  uploadRepo,
		fileStorage: fileStorage,
	}
}

// CreateRecord adds a dated health event to an owned horse.
func (s *healthService) CreateRecord(ctx context.Context, ownerID, horseID primitive.ObjectID, recordType domain.HealthRecordType, date time.Time, description string) (*domain.HealthRecord, error) {
	if recordType == "" {
		return nil, errors.New("record type is required")
	}
	horse, err := s.horseRepo.GetByID(ctx, horseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrHorseNotFound
		}
		return nil, err
	}
	if horse.OwnerID != ownerID {
		return nil, ErrHorseAccessDenied
	}

	record := &domain.HealthRecord{
		HorseID:     horseID,
		Type:        recordType,
		Date:        date,
		Description: description,
		CreatedBy:   ownerID,
	}
	id, err := s.healthRepo.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	record.ID = id
	return record, nil
}

// GetRecordsForHorse lists a horse's health records for any user with access.
func (s *healthService) GetRecordsForHorse(ctx context.Context, userID, horseID primitive.ObjectID) ([]domain.HealthRecord, error) {
	horse, err := s.horseRepo.GetByID(ctx, horseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrHorseNotFound
		}
		return nil, err
	}
	if !canAccessHorse(horse, userID) {
		return nil, ErrHorseAccessDenied
	}
	return s.healthRepo.GetByHorseID(ctx, horseID)
}

// DeleteRecord removes a health record from an owned horse, along with its
// stored attachment if it had one.
func (s *healthService) DeleteRecord(ctx context.Context, ownerID, recordID primitive.ObjectID) error {
	record, err := s.getOwnedRecord(ctx, ownerID, recordID)
	if err != nil {
		return err
	}
	if err := s.healthRepo.Delete(ctx, recordID); err != nil {
		return err
	}
	if record.AttachmentObjectKey != "" {
		_ = s.fileStorage.DeleteObject(ctx, record.AttachmentObjectKey)
	}
	return nil
}

// GenerateAttachmentUploadURL creates a presigned PUT URL for a record's
// document scan (invoice, certificate, photo).
func (s *healthService) GenerateAttachmentUploadURL(ctx context.Context, ownerID, recordID primitive.ObjectID, contentType string) (*UploadURLResponse, error) {
	if contentType == "" {
		return nil, errors.New("content type is required")
	}
	if _, err := s.getOwnedRecord(ctx, ownerID, recordID); err != nil {
		return nil, err
	}

	objectKey := buildObjectKey("health", recordID.Hex(), contentType)
	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, ErrUploadURLError
	}
	return &UploadURLResponse{UploadURL: uploadURL, ObjectKey: objectKey}, nil
}

// ConfirmAttachmentUpload records the uploaded object on the health record.
func (s *healthService) ConfirmAttachmentUpload(ctx context.Context, ownerID, recordID primitive.ObjectID, objectKey, fileName string, size int64, contentType string) (*domain.HealthRecord, error) {
	if objectKey == "" {
		return nil, errors.New("object key is required")
	}
	record, err := s.getOwnedRecord(ctx, ownerID, recordID)
	if err != nil {
		return nil, err
	}

	upload := &domain.Upload{
		UploaderID:  ownerID,
		HorseID:     &record.HorseID,
		Purpose:     domain.UploadHealthAttachment,
		S3ObjectKey: objectKey,
		FileName:    fileName,
		ContentType: contentType,
		Size:        size,
	}
	if _, err := s.uploadRepo.Create(ctx, upload); err != nil {
		return nil, err
	}

	if record.AttachmentObjectKey != "" && record.AttachmentObjectKey != objectKey {
		_ = s.fileStorage.DeleteObject(ctx, record.AttachmentObjectKey)
	}
	record.AttachmentObjectKey = objectKey
	if err := s.healthRepo.Update(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// GetAttachmentDownloadURL returns a presigned GET URL for a record's attachment.
func (s *healthService) GetAttachmentDownloadURL(ctx context.Context, userID, recordID primitive.ObjectID) (string, error) {
	record, err := s.healthRepo.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrHealthRecordNotFound
		}
		return "", err
	}
	horse, err := s.horseRepo.GetByID(ctx, record.HorseID)
	if err != nil {
		return "", err
	}
	if !canAccessHorse(horse, userID) {
		return "", ErrHorseAccessDenied
	}
	if record.AttachmentObjectKey == "" {
		return "", errors.New("health record has no attachment")
	}
	return s.fileStorage.GeneratePresignedDownloadURL(ctx, record.AttachmentObjectKey, storage.DefaultPresignedURLExpiry)
}

func (s *healthService) getOwnedRecord(ctx context.Context, ownerID, recordID primitive.ObjectID) (*domain.HealthRecord, error) {
	record, err := s.healthRepo.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrHealthRecordNotFound
		}
		return nil, err
	}
	horse, err := s.horseRepo.GetByID(ctx, record.HorseID)
	if err != nil {
		return nil, err
	}
	if horse.OwnerID != ownerID {
		return nil, ErrHorseAccessDenied
	}
	return record, nil
}
