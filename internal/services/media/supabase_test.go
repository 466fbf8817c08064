package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "github.com/louisbranch/roleandroll/internal/platform/errors"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestDetectImageType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want string
		code apperrors.Code
	}{
		{name: "png", data: pngHeader, want: "image/png"},
		{name: "jpeg", data: []byte("\xFF\xD8\xFF\xE0\x00\x10JFIF"), want: "image/jpeg"},
		{name: "webp", data: []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), want: "image/webp"},
		{name: "gif", data: []byte("GIF89a......"), code: apperrors.CodeUploadUnsupportedType},
		{name: "text", data: []byte("hello"), code: apperrors.CodeUploadUnsupportedType},
		{name: "empty", data: nil, code: apperrors.CodeInvalidArgument},
		{name: "too large", data: append(append([]byte{}, pngHeader...), make([]byte, MaxImageBytes)...), code: apperrors.CodeUploadTooLarge},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, _, err := DetectImageType(tc.data)
			if tc.code != "" {
				if apperrors.CodeOf(err) != tc.code {
					t.Fatalf("code = %s, want %s", apperrors.CodeOf(err), tc.code)
				}
				return
			}
			if err != nil {
				t.Fatalf("detect: %v", err)
			}
			if got != tc.want {
				t.Fatalf("content type = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestUploadImagePostsToBucket(t *testing.T) {
	var gotPath, gotAuth, gotKey, gotType, gotUpsert string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("apikey")
		gotType = r.Header.Get("Content-Type")
		gotUpsert = r.Header.Get("x-upsert")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"Key":"images/x"}`))
	}))
	defer server.Close()

	uploader := NewUploader(Config{URL: server.URL + "/", ServiceKey: "service-key", Bucket: "covers"})
	uploader.idGen = func() (string, error) { return "obj1", nil }

	upload, err := uploader.UploadImage(context.Background(), "user-1", pngHeader)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if gotPath != "/storage/v1/object/covers/user-1/obj1.png" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer service-key" || gotKey != "service-key" || gotType != "image/png" || !bytes.Equal(gotBody, pngHeader) {
		t.Fatalf("unexpected request auth=%q apikey=%q type=%q body=%d bytes", gotAuth, gotKey, gotType, len(gotBody))
	}
	if gotUpsert != "false" {
		t.Fatalf("x-upsert = %q, want false", gotUpsert)
	}
	if upload.URL != server.URL+"/storage/v1/object/public/covers/user-1/obj1.png" {
		t.Fatalf("url = %q", upload.URL)
	}
}

func TestUploadImageStorageFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Duplicate"}`, http.StatusConflict)
	}))
	defer server.Close()

	uploader := NewUploader(Config{URL: server.URL, ServiceKey: "k"})
	_, err := uploader.UploadImage(context.Background(), "user-1", pngHeader)
	if apperrors.CodeOf(err) != apperrors.CodeUnavailable {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if _, err := uploader.UploadImage(context.Background(), "", pngHeader); apperrors.CodeOf(err) != apperrors.CodeUnauthenticated {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestUploadImageHonorsContext(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte(`{"Key":"images/x"}`))
	}))
	defer server.Close()
	defer close(release)

	uploader := NewUploader(Config{URL: server.URL, ServiceKey: "k"})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := uploader.UploadImage(ctx, "user-1", pngHeader)
	if apperrors.CodeOf(err) != apperrors.CodeUnavailable {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
