// Package multipart implements FormDrop's multipart/form-data decoding
// pipeline: bounded accumulation of the request body, boundary-delimited
// splitting into raw part segments, and per-part header/body parsing.
//
// The package deliberately does not use mime/multipart. The ingestion
// pipeline needs byte-level control over framing errors (distinguishing a
// missing boundary from truncated framing), and the whole-buffer model keeps
// validation and all-or-nothing persistence simple for the bounded upload
// sizes this service accepts.
package multipart

import (
	"bytes"
	"context"
	"io"
	"mime"
	"strings"

	uperr "github.com/formdrop/formdrop/internal/errors"
)

// readChunkSize is the size of each read from the request body.
const readChunkSize = 32 * 1024

// Boundary extracts the multipart boundary token from a Content-Type header
// value. It returns ErrMissingBoundary when the header is not
// multipart/form-data or carries no boundary parameter. The token is derived
// exactly once per request and never re-derived mid-request.
func Boundary(contentType string) (string, *uperr.UploadError) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.EqualFold(mediaType, "multipart/form-data") {
		return "", uperr.ErrMissingBoundary
	}
	boundary := params["boundary"]
	if boundary == "" {
		return "", uperr.ErrMissingBoundary
	}
	return boundary, nil
}

// ReadAll accumulates the request body chunk by chunk under the total-size
// ceiling. After each chunk, if the cumulative size exceeds maxTotal, it
// aborts immediately with ErrRequestTooLarge without buffering further.
// Client disconnects surface through ctx or the reader error; in both cases
// the partially buffered data is released to the caller as nil.
func ReadAll(ctx context.Context, r io.Reader, maxTotal int64) ([]byte, *uperr.UploadError) {
	var buf bytes.Buffer
	chunk := make([]byte, readChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return nil, uperr.ErrInternal
		}

		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if int64(buf.Len()) > maxTotal {
				return nil, uperr.ErrRequestTooLarge
			}
		}
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, uperr.ErrInternal
		}
	}
}
