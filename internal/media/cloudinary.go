package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.cloudinary.com/v1_1"

// CloudinaryClient uploads through Cloudinary's unsigned upload API: a
// multipart POST carrying the file and an upload preset, answered with JSON
// holding the hosted secure_url.
type CloudinaryClient struct {
	cloudName    string
	uploadPreset string
	baseURL      string
	httpClient   *http.Client
}

var _ Uploader = (*CloudinaryClient)(nil)

func NewCloudinaryClient(cloudName, uploadPreset string) (*CloudinaryClient, error) {
	if cloudName == "" {
		return nil, errors.New("missing cloudinary cloud name")
	}
	if uploadPreset == "" {
		return nil, errors.New("missing cloudinary upload preset")
	}
	return &CloudinaryClient{
		cloudName:    cloudName,
		uploadPreset: uploadPreset,
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// SetBaseURL overrides the API endpoint. Test hook.
func (c *CloudinaryClient) SetBaseURL(u string) { c.baseURL = u }

func (c *CloudinaryClient) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("copy file body: %w", err)
	}
	if err := mw.WriteField("upload_preset", c.uploadPreset); err != nil {
		return "", fmt.Errorf("write upload preset: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finalize multipart body: %w", err)
	}

	url := fmt.Sprintf("%s/%s/image/upload", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("upload image: unexpected status %d: %s", resp.StatusCode, payload)
	}

	var parsed struct {
		SecureURL string `json:"secure_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if parsed.SecureURL == "" {
		return "", errors.New("upload response missing secure_url")
	}

	slog.InfoContext(ctx, "Proof image uploaded", "filename", filename, "url", parsed.SecureURL)
	return parsed.SecureURL, nil
}
