package services

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/tablefire/ordering-api/utils"
)

// ImageService handles menu item images: upload, URL generation and deletion
type ImageService interface {
	// UploadImage validates and stores an image file and returns its storage key
	UploadImage(fileHeader *multipart.FileHeader) (string, error)

	// GetImageURL generates a URL for accessing an uploaded image
	GetImageURL(imageKey string) (string, error)

	// DeleteImage removes an image from storage
	DeleteImage(imageKey string) error
}

// StorageImageService implements ImageService on top of ObjectStorage
type StorageImageService struct {
	storage ObjectStorage
	prefix  string
}

// NewImageService creates an ImageService storing keys under prefix
func NewImageService(storage ObjectStorage, prefix string) *StorageImageService {
	return &StorageImageService{storage: storage, prefix: prefix}
}

// UploadImage validates the file and uploads it under a fresh key
func (s *StorageImageService) UploadImage(fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	key := utils.NewImageKey(s.prefix, fileHeader.Filename)
	if err := s.storage.PutObject(context.Background(), key, utils.ImageContentType(fileHeader.Filename), file); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return key, nil
}

// GetImageURL generates a presigned URL for accessing an image
func (s *StorageImageService) GetImageURL(imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}
	url, err := s.storage.PresignGet(context.Background(), imageKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate image URL: %w", err)
	}
	return url, nil
}

// DeleteImage deletes an image from storage
func (s *StorageImageService) DeleteImage(imageKey string) error {
	if imageKey == "" {
		return nil
	}
	if err := s.storage.DeleteObject(context.Background(), imageKey); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
