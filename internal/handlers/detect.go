package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"visionbridge/internal/config"
	"visionbridge/internal/detection"
	"visionbridge/internal/middleware"
	"visionbridge/internal/services"
)

// DetectResponse is the body of a successful detection.
type DetectResponse struct {
	Success   bool   `json:"success"`
	RequestID string `json:"request_id"`
	*detection.Result
}

var errNoFile = errors.New("multipart upload has no \"file\" field")

// statusForError maps each pipeline error kind to its own HTTP status.
var statusForError = map[string]int{
	"invalid_input":        http.StatusUnsupportedMediaType,
	"decode_error":         http.StatusBadRequest,
	"detector_unavailable": http.StatusServiceUnavailable,
	"unknown_class":        http.StatusBadGateway,
	"encode_error":         http.StatusInternalServerError,
	"inference_error":      http.StatusInternalServerError,
}

// DetectObjectsHandler accepts an image either as the raw request body with
// an image content type, or as the "file" field of a multipart form.
func DetectObjectsHandler(manager *services.Manager, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.RequestIDFromContext(r.Context())

		threshold := manager.DefaultThreshold()
		if value := r.URL.Query().Get("threshold"); value != "" {
			parsed, err := strconv.ParseFloat(value, 64)
			if err != nil || detection.ValidateThreshold(parsed) != nil {
				respondError(w, requestID, "invalid_threshold", fmt.Sprintf("threshold must be a number in [0, 1], got %q", value), http.StatusBadRequest)
				return
			}
			threshold = parsed
		}

		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes())
		image, contentType, err := readUpload(r, cfg.MaxUploadBytes())
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondError(w, requestID, "too_large", fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
				return
			}
			respondError(w, requestID, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}

		result, err := manager.Detect(requestID, image, contentType, threshold)
		if err != nil {
			kind := detection.Kind(err)
			status, ok := statusForError[kind]
			if !ok {
				status = http.StatusInternalServerError
			}
			respondError(w, requestID, kind, err.Error(), status)
			return
		}

		respondJSON(w, DetectResponse{Success: true, RequestID: requestID, Result: result}, http.StatusOK)
	}
}

// readUpload returns the image bytes and their declared content type.
func readUpload(r *http.Request, maxBytes int64) ([]byte, string, error) {
	contentType := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "multipart/form-data" {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, "", err
		}
		return body, contentType, nil
	}

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, "", err
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", errNoFile
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}

	partType := header.Header.Get("Content-Type")
	if partType == "" || partType == "application/octet-stream" {
		if guessed := mime.TypeByExtension(filepath.Ext(header.Filename)); guessed != "" {
			partType = guessed
		}
	}
	return data, partType, nil
}
