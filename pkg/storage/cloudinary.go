package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// ImageStorage is the contract for poster/avatar image hosting.
type ImageStorage interface {
	// UploadImage uploads an image from r and returns the secure URL. folder
	// is the logical folder in storage (e.g. "avatars", "posters").
	UploadImage(ctx context.Context, r io.Reader, folder, fileName string) (string, error)
	// DeleteImage removes an uploaded image by its URL.
	DeleteImage(ctx context.Context, fileURL string) error
}

type cloudinaryStorage struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStorage builds a Cloudinary-backed ImageStorage from explicit
// credentials. When cloudName is empty the client falls back to the
// CLOUDINARY_URL environment variable, the SDK's native configuration.
func NewCloudinaryStorage(cloudName, apiKey, apiSecret, folder string) (ImageStorage, error) {
	var (
		cld *cloudinary.Cloudinary
		err error
	)
	if cloudName != "" {
		cld, err = cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	} else {
		cld, err = cloudinary.New()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary client: %w", err)
	}

	cld.Config.URL.Secure = true

	if folder == "" {
		folder = "reelist"
	}

	return &cloudinaryStorage{cld: cld, folder: folder}, nil
}

func (s *cloudinaryStorage) UploadImage(ctx context.Context, r io.Reader, folder, fileName string) (string, error) {
	if s == nil || s.cld == nil {
		return "", fmt.Errorf("cloudinary storage is not initialized")
	}

	publicID := fmt.Sprintf("%d-%s", time.Now().UnixNano(), strings.TrimSuffix(fileName, filepath.Ext(fileName)))

	params := uploader.UploadParams{
		Folder:         s.folder + "/" + folder,
		UseFilename:    api.Bool(true),
		UniqueFilename: api.Bool(true),
		PublicID:       publicID,
		Overwrite:      api.Bool(false),
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".gif", ".webp":
		params.Format = "webp"
		params.Transformation = "q_auto"
	}

	resp, err := s.cld.Upload.Upload(ctx, r, params)
	if err != nil {
		return "", fmt.Errorf("cloudinary upload failed: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload failed: %s", resp.Error.Message)
	}

	return resp.SecureURL, nil
}

func (s *cloudinaryStorage) DeleteImage(ctx context.Context, fileURL string) error {
	if s == nil || s.cld == nil {
		return fmt.Errorf("cloudinary storage is not initialized")
	}

	publicID, err := publicIDFromURL(fileURL)
	if err != nil {
		return err
	}

	_, err = s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	return err
}

// publicIDFromURL extracts the public ID from a cloudinary delivery URL:
// .../upload/v123/<folder>/<name>.<ext>
func publicIDFromURL(fileURL string) (string, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return "", fmt.Errorf("invalid image url: %w", err)
	}

	parts := strings.Split(strings.TrimPrefix(u.Path, "/"), "/")
	uploadIdx := -1
	for i, p := range parts {
		if p == "upload" {
			uploadIdx = i
			break
		}
	}
	if uploadIdx == -1 || uploadIdx+2 >= len(parts) {
		return "", fmt.Errorf("unrecognized cloudinary url: %s", fileURL)
	}

	idParts := parts[uploadIdx+1:]
	// skip the version segment (v123...)
	if len(idParts) > 0 && strings.HasPrefix(idParts[0], "v") {
		idParts = idParts[1:]
	}

	publicID := strings.Join(idParts, "/")
	return strings.TrimSuffix(publicID, filepath.Ext(publicID)), nil
}
