package media

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewCloudinaryClientValidation(t *testing.T) {
	if _, err := NewCloudinaryClient("", "preset"); err == nil {
		t.Error("missing cloud name should fail")
	}
	if _, err := NewCloudinaryClient("cloud", ""); err == nil {
		t.Error("missing upload preset should fail")
	}
	if _, err := NewCloudinaryClient("cloud", "preset"); err != nil {
		t.Errorf("valid configuration failed: %v", err)
	}
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/demo/image/upload" {
			t.Errorf("path = %s, want /demo/image/upload", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("upload_preset"); got != "unsigned-preset" {
			t.Errorf("upload_preset = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "proof.png" {
			t.Errorf("filename = %q, want proof.png", header.Filename)
		}
		body, _ := io.ReadAll(file)
		if string(body) != "image-bytes" {
			t.Errorf("file body = %q", body)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"secure_url":"https://res.cloudinary.com/demo/image/upload/proof.png"}`))
	}))
	defer srv.Close()

	client, err := NewCloudinaryClient("demo", "unsigned-preset")
	if err != nil {
		t.Fatalf("NewCloudinaryClient: %v", err)
	}
	client.SetBaseURL(srv.URL)

	url, err := client.Upload(context.Background(), "proof.png", strings.NewReader("image-bytes"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://res.cloudinary.com/demo/image/upload/proof.png" {
		t.Errorf("url = %q", url)
	}
}

func TestUploadRejectsNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Upload preset not found"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client, _ := NewCloudinaryClient("demo", "unsigned-preset")
	client.SetBaseURL(srv.URL)

	if _, err := client.Upload(context.Background(), "proof.png", strings.NewReader("x")); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestUploadRejectsMissingSecureURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client, _ := NewCloudinaryClient("demo", "unsigned-preset")
	client.SetBaseURL(srv.URL)

	if _, err := client.Upload(context.Background(), "proof.png", strings.NewReader("x")); err == nil {
		t.Fatal("expected error when secure_url is absent")
	}
}
