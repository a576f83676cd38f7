package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Ask(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ask" || r.URL.Query().Get("q") != "what & why?" {
			t.Errorf("Unexpected request %s", r.URL.String())
		}
		w.Write([]byte(`{"response":"because"}`))
	}))
	defer server.Close()

	answer, err := New(server.URL+"/", time.Second).Ask(context.Background(), "what & why?")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if answer != "because" {
		t.Errorf("Expected %q, got %q", "because", answer)
	}
}

func TestClient_DetectSendsBodyAndThreshold(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/detect-objects" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("threshold"); got != "0.25" {
			t.Errorf("Expected threshold 0.25, got %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "image/jpeg" {
			t.Errorf("Expected image/jpeg, got %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "jpeg-bytes" {
			t.Errorf("Unexpected body %q", body)
		}
		w.Write([]byte(`{"success":true,"request_id":"abc","detections":[{"class":"dog","confidence":0.7,"bbox":{"x1":1,"y1":2,"x2":3,"y2":4}}],"total_objects":1,"annotated_image":"aGk=","image_format":"jpeg"}`))
	}))
	defer server.Close()

	resp, err := New(server.URL, time.Second).Detect(context.Background(), []byte("jpeg-bytes"), "image/jpeg", 0.25)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if resp.RequestID != "abc" || resp.TotalObjects != 1 || resp.Detections[0].Class != "dog" {
		t.Errorf("Unexpected response: %+v", resp)
	}
	if resp.Detections[0].BBox.Y2 != 4 || resp.ImageFormat != "jpeg" {
		t.Errorf("Unexpected detection: %+v", resp.Detections[0])
	}
}

func TestClient_DetectDefaultThreshold(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			t.Errorf("Expected no query, got %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"success":true,"detections":[],"total_objects":0}`))
	}))
	defer server.Close()

	if _, err := New(server.URL, time.Second).Detect(context.Background(), []byte("x"), "image/png", -1); err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnsupportedMediaType)
		w.Write([]byte(`{"success":false,"code":"invalid_input","error":"not an image","request_id":"r1"}`))
	}))
	defer server.Close()

	_, err := New(server.URL, time.Second).Detect(context.Background(), []byte("x"), "text/plain", -1)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnsupportedMediaType || apiErr.Code != "invalid_input" || apiErr.RequestID != "r1" {
		t.Errorf("Unexpected error: %+v", apiErr)
	}
}

func TestClient_NonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := New(server.URL, time.Second).Ask(context.Background(), "hi")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("Expected 500 APIError, got %v", err)
	}
	if apiErr.Code != "" {
		t.Errorf("Expected empty code, got %q", apiErr.Code)
	}
}
