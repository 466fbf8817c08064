package media

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/louisbranch/roleandroll/internal/platform/errors"
	"github.com/louisbranch/roleandroll/internal/platform/id"
	"github.com/louisbranch/roleandroll/internal/platform/timeouts"
	storage "github.com/supabase-community/storage-go"
)

// MaxImageBytes is the largest accepted upload.
const MaxImageBytes = 5 << 20

var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
}

// Config configures Supabase Storage access.
type Config struct {
	URL        string `env:"ROLEANDROLL_SUPABASE_URL"`
	ServiceKey string `env:"ROLEANDROLL_SUPABASE_SERVICE_KEY"`
	Bucket     string `env:"ROLEANDROLL_SUPABASE_BUCKET" envDefault:"images"`
}

// Enabled reports whether uploads can be stored.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.URL) != "" && strings.TrimSpace(c.ServiceKey) != ""
}

// Upload is a stored image.
type Upload struct {
	Path        string
	ContentType string
	Size        int
	URL         string
}

// Uploader writes images to a Supabase Storage bucket.
type Uploader struct {
	storageURL string
	key        string
	bucket     string
	timeout    time.Duration
	idGen      func() (string, error)
}

// NewUploader builds an uploader for cfg.
func NewUploader(cfg Config) *Uploader {
	bucket := strings.Trim(strings.TrimSpace(cfg.Bucket), "/")
	if bucket == "" {
		bucket = "images"
	}
	return &Uploader{
		storageURL: strings.TrimRight(strings.TrimSpace(cfg.URL), "/") + "/storage/v1",
		key:        strings.TrimSpace(cfg.ServiceKey),
		bucket:     bucket,
		timeout:    timeouts.ProviderRequest,
		idGen:      id.NewID,
	}
}

// client returns a fresh storage client. storage-go keeps per-upload
// headers on the client, so clients are not shared between uploads.
func (u *Uploader) client() *storage.Client {
	return storage.NewClient(u.storageURL, u.key, map[string]string{"apikey": u.key})
}

// DetectImageType sniffs data and returns its content type and extension.
func DetectImageType(data []byte) (string, string, error) {
	if len(data) == 0 {
		return "", "", apperrors.New(apperrors.CodeInvalidArgument, "image is empty")
	}
	if len(data) > MaxImageBytes {
		return "", "", apperrors.WithMetadata(apperrors.CodeUploadTooLarge, "image must be 5 MiB or smaller", map[string]string{"MaxBytes": fmt.Sprint(MaxImageBytes)})
	}
	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", "", apperrors.WithMetadata(apperrors.CodeUploadUnsupportedType, "image must be png, jpeg, or webp", map[string]string{"ContentType": contentType})
	}
	return contentType, ext, nil
}

// UploadImage validates data and stores it under ownerID's folder.
func (u *Uploader) UploadImage(ctx context.Context, ownerID string, data []byte) (Upload, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return Upload{}, apperrors.New(apperrors.CodeUnauthenticated, "sign in to upload images")
	}
	contentType, ext, err := DetectImageType(data)
	if err != nil {
		return Upload{}, err
	}
	objectID, err := u.idGen()
	if err != nil {
		return Upload{}, fmt.Errorf("generate object id: %w", err)
	}
	path := url.PathEscape(ownerID) + "/" + objectID + "." + ext

	if err := u.store(ctx, path, contentType, data); err != nil {
		return Upload{}, err
	}
	return Upload{
		Path:        path,
		ContentType: contentType,
		Size:        len(data),
		URL:         u.PublicURL(path),
	}, nil
}

// store uploads data, giving up when ctx ends. storage-go takes no context,
// so the call runs in its own goroutine.
func (u *Uploader) store(ctx context.Context, path, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := u.client().UploadFile(u.bucket, path, bytes.NewReader(data), storage.FileOptions{
			CacheControl: ptr("3600"),
			ContentType:  ptr(contentType),
			Upsert:       ptr(false),
		})
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return apperrors.Wrap(apperrors.CodeUnavailable, "image storage rejected the upload", fmt.Errorf("supabase storage: %w", err))
		}
		return nil
	case <-ctx.Done():
		return apperrors.Wrap(apperrors.CodeUnavailable, "image storage is unavailable", ctx.Err())
	}
}

// PublicURL returns the public object URL for path.
func (u *Uploader) PublicURL(path string) string {
	return u.client().GetPublicUrl(u.bucket, strings.TrimLeft(path, "/")).SignedURL
}

func ptr[T any](v T) *T {
	return &v
}
