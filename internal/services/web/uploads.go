package web

import (
	"errors"
	"io"
	"mime"
	"net/http"

	apperrors "github.com/louisbranch/roleandroll/internal/platform/errors"
	"github.com/louisbranch/roleandroll/internal/platform/requestctx"
	"github.com/louisbranch/roleandroll/internal/services/media"
	"github.com/louisbranch/roleandroll/internal/services/web/platform/httpx"
)

// imageField is the multipart field holding the uploaded image.
const imageField = "image"

type uploadJSON struct {
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	URL         string `json:"url"`
}

// handleUploadImage accepts a multipart image upload or a raw image body.
func (h *handler) handleUploadImage(w http.ResponseWriter, r *http.Request, viewer requestctx.Viewer) {
	if h.deps.Uploads == nil {
		httpx.WriteError(w, r, apperrors.New(apperrors.CodeUnavailable, "uploads are not configured"))
		return
	}
	// One extra KiB leaves room for multipart framing.
	r.Body = http.MaxBytesReader(w, r.Body, media.MaxImageBytes+1<<10)
	data, err := readImage(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httpx.WriteError(w, r, apperrors.New(apperrors.CodeUploadTooLarge, "image exceeds 5 MiB"))
			return
		}
		httpx.WriteError(w, r, err)
		return
	}
	upload, err := h.deps.Uploads.UploadImage(r.Context(), viewer.UserID, data)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, uploadJSON{
		Path:        upload.Path,
		ContentType: upload.ContentType,
		Size:        upload.Size,
		URL:         upload.URL,
	})
}

func readImage(r *http.Request) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return io.ReadAll(r.Body)
	}
	if err := r.ParseMultipartForm(media.MaxImageBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid multipart body", err)
	}
	file, _, err := r.FormFile(imageField)
	if err != nil {
		return nil, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "image file is required", map[string]string{"Field": imageField})
	}
	defer file.Close()
	return io.ReadAll(file)
}
