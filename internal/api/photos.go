package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

// MaxUploadBytes is the largest photo the backend accepts.
const MaxUploadBytes = 10 << 20

var uploadExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// UploadResult is the response of POST /photos/upload.
type UploadResult struct {
	PhotoURL string `json:"photoUrl"`
	Message  string `json:"message"`
	FileName string `json:"fileName"`
}

// CheckPhotoName rejects anything but jpg, jpeg and png files.
func CheckPhotoName(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if !uploadExtensions[ext] {
		return &ValidationError{Field: "photo", Message: fmt.Sprintf("%s is not a JPG or PNG file", filepath.Base(name))}
	}
	return nil
}

// UploadPhoto sends one photo as multipart field "file" and returns the URL
// the backend stored it under.
func (c *Client) UploadPhoto(ctx context.Context, name string, r io.Reader) (UploadResult, error) {
	var result UploadResult
	if err := CheckPhotoName(name); err != nil {
		return result, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return result, fmt.Errorf("api: build upload: %w", err)
	}
	n, err := io.Copy(part, io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return result, fmt.Errorf("api: read photo: %w", err)
	}
	if n > MaxUploadBytes {
		return result, &ValidationError{Field: "photo", Message: "larger than 10MB"}
	}
	if err := mw.Close(); err != nil {
		return result, fmt.Errorf("api: build upload: %w", err)
	}

	err = c.send(ctx, http.MethodPost, "/photos/upload", &buf, mw.FormDataContentType(), &result)
	return result, err
}
