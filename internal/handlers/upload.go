package handlers

import (
	"log/slog"
	"net/http"

	uperr "github.com/formdrop/formdrop/internal/errors"
	"github.com/formdrop/formdrop/internal/history"
	"github.com/formdrop/formdrop/internal/metrics"
	"github.com/formdrop/formdrop/internal/multipart"
	"github.com/formdrop/formdrop/internal/names"
	"github.com/formdrop/formdrop/internal/sniff"
	"github.com/formdrop/formdrop/internal/storage"
)

// UploadHandler orchestrates the ingestion pipeline for one POST / request:
// accumulate the body under the total ceiling, split it on the boundary,
// parse each part, validate every file-bearing part, and only then persist.
// The two-pass design (validate all, then persist all) guarantees a late
// validation failure never leaves a half-uploaded request on disk.
type UploadHandler struct {
	store  *storage.LocalStore
	ledger history.Store

	maxFileSize    int64
	maxRequestSize int64
	allowedTypes   []string
}

// NewUploadHandler creates an UploadHandler with injected dependencies. The
// policy values are threaded in at construction; nothing is read from
// ambient global state.
func NewUploadHandler(store *storage.LocalStore, ledger history.Store, maxFileSize, maxRequestSize int64, allowedTypes []string) *UploadHandler {
	return &UploadHandler{
		store:          store,
		ledger:         ledger,
		maxFileSize:    maxFileSize,
		maxRequestSize: maxRequestSize,
		allowedTypes:   allowedTypes,
	}
}

// pendingFile is a file part that passed validation and is waiting for the
// persist phase. The resolved name was derived during validation; the write
// itself re-verifies uniqueness via the store's exclusive publish.
type pendingFile struct {
	original string
	resolved string
	mime     string
	body     []byte
	result   *FileResult
}

// Upload handles POST /. Transport- and framing-level failures are fatal to
// the whole request; validation failures are per-file and recoverable.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	boundary, uerr := multipart.Boundary(r.Header.Get("Content-Type"))
	if uerr != nil {
		h.fail(w, uerr, "bad_request")
		return
	}

	body, uerr := multipart.ReadAll(ctx, r.Body, h.maxRequestSize)
	if uerr != nil {
		outcome := "error"
		if uerr == uperr.ErrRequestTooLarge {
			outcome = "too_large"
		}
		h.fail(w, uerr, outcome)
		return
	}

	raw, uerr := multipart.Split(body, boundary)
	if uerr != nil {
		h.fail(w, uerr, "bad_request")
		return
	}

	parts := make([]multipart.Part, 0, len(raw))
	for _, seg := range raw {
		part, uerr := multipart.ParsePart(seg)
		if uerr != nil {
			h.fail(w, uerr, "bad_request")
			return
		}
		parts = append(parts, part)
	}

	// Validation pass: every file-bearing part is checked and named before
	// any write occurs.
	results := make([]*FileResult, 0, len(parts))
	resolver := names.NewResolver(h.store)
	var pending []pendingFile
	allValid := true

	for _, part := range parts {
		filename, ok := part.Filename()
		if !ok {
			// Plain form field: parsed and counted, nothing to persist.
			slog.Debug("Skipping non-file part", "field", part.FieldName())
			continue
		}

		res := &FileResult{Filename: filename}
		results = append(results, res)

		if int64(len(part.Body)) > h.maxFileSize {
			res.Error = uperr.FileTooLarge(h.maxFileSize)
			metrics.FilesRejectedTotal.WithLabelValues("size").Inc()
			allValid = false
			continue
		}

		detected := sniff.Detect(part.Body)
		if !sniff.Allowed(detected, h.allowedTypes) {
			res.Error = uperr.InvalidContentType(detected, h.allowedTypes)
			metrics.FilesRejectedTotal.WithLabelValues("type").Inc()
			allValid = false
			continue
		}

		resolved, err := resolver.Resolve(filename)
		if err != nil {
			slog.Error("Name resolution failed", "filename", filename, "error", err)
			h.fail(w, uperr.ErrPersistenceFailure, "error")
			return
		}

		res.Type = detected
		res.Size = formatSize(int64(len(part.Body)))
		res.Status = StatusApproved
		pending = append(pending, pendingFile{
			original: filename,
			resolved: resolved,
			mime:     detected,
			body:     part.Body,
			result:   res,
		})
	}

	// Persist pass: runs only when every file-bearing part passed
	// validation, so a rejected sibling never leaves partial state behind.
	if allValid {
		for i := range pending {
			if uerr := h.persist(r, &pending[i], resolver); uerr != nil {
				h.recordRejected(r, results)
				h.fail(w, uerr, "error")
				return
			}
		}
	}

	h.recordRejected(r, results)
	metrics.UploadRequestsTotal.WithLabelValues(requestOutcome(results, allValid)).Inc()
	writeJSON(w, http.StatusOK, results)
}

// persist writes one approved file. On a lost publish race (a concurrent
// request took the resolved name after our probe) it re-resolves and
// retries; any other storage error is fatal to the remaining pipeline.
func (h *UploadHandler) persist(r *http.Request, pend *pendingFile, resolver *names.Resolver) *uperr.UploadError {
	ctx := r.Context()

	for {
		err := h.store.Save(ctx, pend.resolved, pend.body)
		if err == nil {
			break
		}
		if err == storage.ErrNameTaken {
			resolver.Reserve(pend.resolved)
			next, rerr := resolver.Resolve(pend.original)
			if rerr != nil {
				slog.Error("Re-resolving upload name failed", "name", pend.resolved, "error", rerr)
				return uperr.ErrPersistenceFailure
			}
			slog.Debug("Upload name taken, retrying", "taken", pend.resolved, "next", next)
			pend.resolved = next
			continue
		}
		slog.Error("Persisting upload failed", "name", pend.resolved, "error", err)
		return uperr.ErrPersistenceFailure
	}

	pend.result.Status = StatusUploaded
	size := int64(len(pend.body))
	metrics.FilesUploadedTotal.Inc()
	metrics.FileSizeBytes.Observe(float64(size))
	metrics.BytesPersistedTotal.Add(float64(size))

	if err := h.ledger.RecordUpload(ctx, &history.UploadRecord{
		Filename:    pend.original,
		StoredName:  pend.resolved,
		ContentType: pend.mime,
		SizeBytes:   size,
		Status:      history.StatusUploaded,
	}); err != nil {
		// Ledger is observability, not correctness: the file is on disk.
		slog.Warn("Recording upload failed", "name", pend.resolved, "error", err)
	}

	slog.Info("File uploaded", "name", pend.resolved, "type", pend.mime, "size", size)
	return nil
}

// recordRejected writes ledger entries for every file the validation pass
// refused. Approved-but-unpersisted entries are not recorded; they were
// neither rejected nor stored.
func (h *UploadHandler) recordRejected(r *http.Request, results []*FileResult) {
	for _, res := range results {
		if res.Error == "" {
			continue
		}
		if err := h.ledger.RecordUpload(r.Context(), &history.UploadRecord{
			Filename:     res.Filename,
			Status:       history.StatusRejected,
			ErrorMessage: res.Error,
		}); err != nil {
			slog.Warn("Recording rejection failed", "filename", res.Filename, "error", err)
		}
	}
}

// requestOutcome labels the terminal state of an upload request for metrics.
func requestOutcome(results []*FileResult, allValid bool) string {
	switch {
	case len(results) == 0:
		return "empty"
	case allValid:
		return "uploaded"
	default:
		for _, res := range results {
			if res.Error == "" {
				return "partial"
			}
		}
		return "rejected"
	}
}

// fail terminates the request with an UploadError response and counts the
// outcome. Nothing written to disk by this request survives a fatal
// pre-persist failure; failures inside the persist phase leave prior writes
// in place (documented limitation, not a transaction).
func (h *UploadHandler) fail(w http.ResponseWriter, e *uperr.UploadError, outcome string) {
	metrics.UploadRequestsTotal.WithLabelValues(outcome).Inc()
	WriteError(w, e)
}
