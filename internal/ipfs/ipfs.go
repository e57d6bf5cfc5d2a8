// Package ipfs defines the off-chain metadata upload seam create_project
// depends on. The backing service is out of scope; this package only
// defines the interface and one HTTP-multipart implementation against a
// configurable upload endpoint.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"
)

// Uploader uploads raw bytes and returns a content-addressed URI a client
// can later resolve.
type Uploader interface {
	Upload(ctx context.Context, data []byte, mimeType string) (uri string, err error)
}

// HTTPUploader implements Uploader against an HTTP endpoint that accepts a
// multipart/form-data POST and replies with a JSON body containing the
// resulting URI.
type HTTPUploader struct {
	Endpoint string
	Client   *http.Client
}

// NewHTTPUploader builds an HTTPUploader with a bounded default client.
func NewHTTPUploader(endpoint string) *HTTPUploader {
	return &HTTPUploader{Endpoint: endpoint, Client: &http.Client{Timeout: 15 * time.Second}}
}

type uploadResponse struct {
	URI string `json:"uri"`
}

// Upload posts data as a multipart file field named "file" and returns the
// URI from the endpoint's JSON response.
func (u *HTTPUploader) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "upload")
	if err != nil {
		return "", fmt.Errorf("ipfs: create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("ipfs: write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("ipfs: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.Endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("ipfs: build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := u.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ipfs: upload request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ipfs: upload returned status %d", resp.StatusCode)
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ipfs: decode upload response: %w", err)
	}
	return out.URI, nil
}
