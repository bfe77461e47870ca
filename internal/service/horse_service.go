package service

import (
	"context"
	"errors"
	"fmt"
	"mhollis/stable-app/internal/domain"
	"mhollis/stable-app/internal/repository"
	"mhollis/stable-app/internal/storage"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrHorseNotFound     = errors.New("horse not found")
	ErrHorseAccessDenied = errors.New("access denied to this horse")
	ErrRiderNotFound     = errors.New("rider user not found")
	ErrRiderNotRole      = errors.New("user found but is not a rider")
	ErrUploadURLError    = errors.New("failed to generate upload URL")
)

// UploadURLResponse carries a presigned PUT URL and the object key the client
// must confirm after uploading.
type UploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"`
}

// --- Service Interface ---
type HorseService interface {
	CreateHorse(ctx context.Context, ownerID primitive.ObjectID, name, breed, sex, notes string, yearOfBirth int) (*domain.Horse, error)
	GetHorse(ctx context.Context, userID, horseID primitive.ObjectID) (*domain.Horse, error)
	GetHorsesForUser(ctx context.Context, user *domain.User) ([]domain.Horse, error)
	UpdateHorse(ctx context.Context, ownerID primitive.ObjectID, horse *domain.Horse) (*domain.Horse, error)
	DeleteHorse(ctx context.Context, ownerID, horseID primitive.ObjectID) error
	ShareHorseWithRider(ctx context.Context, ownerID, horseID primitive.ObjectID, riderEmail string) (*domain.User, error)

	// Photo handling via presigned S3 URLs
	GeneratePhotoUploadURL(ctx context.Context, ownerID, horseID primitive.ObjectID, contentType string) (*UploadURLResponse, error)
	ConfirmPhotoUpload(ctx context.Context, ownerID, horseID primitive.ObjectID, objectKey, fileName string, size int64, contentType string) (*domain.Horse, error)
	GetPhotoDownloadURL(ctx context.Context, userID, horseID primitive.ObjectID) (string, error)
}

// --- Service Implementation ---

// horseService implements the HorseService interface.
type horseService struct {
	horseRepo   repository.HorseRepository
	userRepo    repository.UserRepository
	healthRepo  repository.HealthRecordRepository
	uploadRepo  repository.UploadRepository
	fileStorage storage.FileStorage
}

// NewHorseService creates a new instance of horseService.
func NewHorseService(
	horseRepo repository.HorseRepository,
	userRepo repository.UserRepository,
	healthRepo repository.HealthRecordRepository,
	uploadRepo repository.UploadRepository,
	fileStorage storage.FileStorage,
) HorseService {
	return &horseService{
		horseRepo:   horseRepo,
		userRepo:    userRepo,
		healthRepo:  healthRepo,
		uploadRepo:  uploadRepo,
		fileStorage: fileStorage,
	}
}

// CreateHorse registers a new horse in the manager's stable.
func (s *horseService) CreateHorse(ctx context.Context, ownerID primitive.ObjectID, name, breed, sex, notes string, yearOfBirth int) (*domain.Horse, error) {
	if ownerID == primitive.NilObjectID || name == "" {
		return nil, errors.New("owner ID and horse name are required")
	}

	horse := &domain.Horse{
		OwnerID:     ownerID,
		Name:        name,
		Breed:       breed,
		Sex:         sex,
		Notes:       notes,
		YearOfBirth: yearOfBirth,
	}
	id, err := s.horseRepo.Create(ctx, horse)
	if err != nil {
		return nil, err
	}
	horse.ID = id
	return horse, nil
}

// GetHorse retrieves one horse readable by the caller.
func (s *horseService) GetHorse(ctx context.Context, userID, horseID primitive.ObjectID) (*domain.Horse, error) {
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
	return horse, nil
}

// GetHorsesForUser lists the caller's horses: owned ones for a manager,
// shared ones for a rider.
func (s *horseService) GetHorsesForUser(ctx context.Context, user *domain.User) ([]domain.Horse, error) {
	if user == nil {
		return nil, errors.New("user is required")
	}
	if user.IsManager() {
		return s.horseRepo.GetByOwnerID(ctx, user.ID)
	}
	return s.horseRepo.GetSharedWithRider(ctx, user.ID)
}

// UpdateHorse saves the editable fields of an owned horse.
func (s *horseService) UpdateHorse(ctx context.Context, ownerID primitive.ObjectID, horse *domain.Horse) (*domain.Horse, error) {
	existing, err := s.horseRepo.GetByID(ctx, horse.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrHorseNotFound
		}
		return nil, err
	}
	if existing.OwnerID != ownerID {
		return nil, ErrHorseAccessDenied
	}
	if horse.Name == "" {
		return nil, errors.New("horse name must not be empty")
	}

	// Keep the stored photo key unless the caller provided a replacement.
	if horse.PhotoObjectKey == "" {
		horse.PhotoObjectKey = existing.PhotoObjectKey
	}
	if err := s.horseRepo.Update(ctx, horse); err != nil {
		return nil, err
	}
	return s.horseRepo.GetByID(ctx, horse.ID)
}

// DeleteHorse removes a horse and cascades to its health records. Session
// logs and historical plans are left to their own lifecycles.
func (s *horseService) DeleteHorse(ctx context.Context, ownerID, horseID primitive.ObjectID) error {
	err := s.horseRepo.Delete(ctx, horseID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrHorseNotFound
		}
		return err
	}
	_, err = s.healthRepo.DeleteByHorseID(ctx, horseID)
	return err
}

// ShareHorseWithRider grants a rider (looked up by email) access to a horse.
func (s *horseService) ShareHorseWithRider(ctx context.Context, ownerID, horseID primitive.ObjectID, riderEmail string) (*domain.User, error) {
	if riderEmail == "" {
		return nil, errors.New("rider email is required")
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

	rider, err := s.userRepo.GetByEmail(ctx, riderEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRiderNotFound
		}
		return nil, err
	}
	if rider.Role != domain.RoleRider {
		return nil, ErrRiderNotRole
	}

	if err := s.horseRepo.AddRider(ctx, horseID, rider.ID); err != nil {
		return nil, err
	}
	if err := s.userRepo.AddSharedHorse(ctx, rider.ID, horseID); err != nil {
		return nil, err
	}

	rider.PasswordHash = ""
	return rider, nil
}

// === Photo handling ===

// GeneratePhotoUploadURL creates a presigned PUT URL for a horse photo.
func (s *horseService) GeneratePhotoUploadURL(ctx context.Context, ownerID, horseID primitive.ObjectID, contentType string) (*UploadURLResponse, error) {
	if contentType == "" || !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return nil, errors.New("invalid or missing image content type")
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

	objectKey := buildObjectKey("photos", horseID.Hex(), contentType)
	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, ErrUploadURLError
	}
	return &UploadURLResponse{UploadURL: uploadURL, ObjectKey: objectKey}, nil
}

// ConfirmPhotoUpload records the uploaded object and points the horse at it.
// Called after the client has PUT the file to S3 via the presigned URL.
func (s *horseService) ConfirmPhotoUpload(ctx context.Context, ownerID, horseID primitive.ObjectID, objectKey, fileName string, size int64, contentType string) (*domain.Horse, error) {
	if objectKey == "" {
		return nil, errors.New("object key is required")
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

	upload := &domain.Upload{
		UploaderID:  ownerID,
		HorseID:     &horseID,
		Purpose:     domain.UploadHorsePhoto,
		S3ObjectKey: objectKey,
		FileName:    fileName,
		ContentType: contentType,
		Size:        size,
	}
	if _, err := s.uploadRepo.Create(ctx, upload); err != nil {
		return nil, err
	}

	// Replace the previous photo object, if any.
	if horse.PhotoObjectKey != "" && horse.PhotoObjectKey != objectKey {
		_ = s.fileStorage.DeleteObject(ctx, horse.PhotoObjectKey)
	}
	horse.PhotoObjectKey = objectKey
	if err := s.horseRepo.Update(ctx, horse); err != nil {
		return nil, err
	}
	return horse, nil
}

// GetPhotoDownloadURL returns a presigned GET URL for the horse's photo.
func (s *horseService) GetPhotoDownloadURL(ctx context.Context, userID, horseID primitive.ObjectID) (string, error) {
	horse, err := s.GetHorse(ctx, userID, horseID)
	if err != nil {
		return "", err
	}
	if horse.PhotoObjectKey == "" {
		return "", errors.New("horse has no photo")
	}
	return s.fileStorage.GeneratePresignedDownloadURL(ctx, horse.PhotoObjectKey, storage.DefaultPresignedURLExpiry)
}

// canAccessHorse reports whether the user may read this horse.
func canAccessHorse(horse *domain.Horse, userID primitive.ObjectID) bool {
	if horse.OwnerID == userID {
		return true
	}
	for _, riderID := range horse.RiderIDs {
		if riderID == userID {
			return true
		}
	}
	return false
}

// buildObjectKey creates a unique S3 key under a purpose prefix, keeping the
// content-type extension so browsers render downloads sensibly.
func buildObjectKey(prefix, scope, contentType string) string {
	uniqueID := uuid.NewString()
	fileExtension := ""
	parts := strings.Split(contentType, "/")
	if len(parts) == 2 {
		fileExtension = parts[1]
	}
	return path.Join(prefix, scope, fmt.Sprintf("%s.%s", uniqueID, fileExtension))
}
