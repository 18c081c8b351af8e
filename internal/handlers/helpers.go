// Package handlers implements the FormDrop HTTP operation handlers: the
// upload form, the upload orchestrator, and shared response helpers.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	uperr "github.com/formdrop/formdrop/internal/errors"
)

// FileResult is the per-file entry of the upload response body. Accepted
// files carry type/size/status; rejected files carry only the error.
type FileResult struct {
	Filename string `json:"filename"`
	Type     string `json:"type,omitempty"`
	Size     string `json:"size,omitempty"`
	Status   string `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Status values reported per file. A result is created as StatusApproved
// during validation and flips to StatusUploaded only after its write
// succeeded. When a sibling failure blocks the persist phase, approved
// entries are reported as-is so the caller can see which files would have
// been accepted.
const (
	StatusApproved = "Approved"
	StatusUploaded = "Uploaded successfully"
)

// formatSize renders a byte count the way the upload response reports it,
// e.g. 10240 -> "10.00 Kb".
func formatSize(n int64) string {
	return fmt.Sprintf("%.2f Kb", float64(n)/1024)
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an UploadError as a JSON error response. Only the
// user-facing message is exposed; internal detail stays in the logs.
func WriteError(w http.ResponseWriter, e *uperr.UploadError) {
	writeJSON(w, e.HTTPStatus, map[string]string{"error": e.Message})
}
