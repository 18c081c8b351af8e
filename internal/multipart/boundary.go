package multipart

import (
	"bytes"

	uperr "github.com/formdrop/formdrop/internal/errors"
)

// crlf is the line terminator trimmed from segment edges.
var crlf = []byte("\r\n")

// Split partitions the accumulated request body into raw part segments using
// the boundary token. Per multipart framing:
//
//   - Every part is delimited by an occurrence of "--{boundary}". Content
//     before the first occurrence is insignificant preamble and is discarded.
//   - The terminating delimiter is "--{boundary}--"; splitting stops there so
//     no trailing phantom part is emitted. A body that contains the token but
//     never the terminator is truncated.
//   - Each segment has its delimiting CRLFs trimmed before being handed to
//     the part parser.
//
// Split returns ErrBoundaryNotFound when the token never occurs, and
// ErrMalformedMultipart when delimiter positions do not leave room for a
// part body (adjacent or out-of-order delimiters, truncated stream).
func Split(data []byte, boundary string) ([][]byte, *uperr.UploadError) {
	delim := []byte("--" + boundary)

	var offsets []int
	for search := 0; search < len(data); {
		idx := bytes.Index(data[search:], delim)
		if idx < 0 {
			break
		}
		offsets = append(offsets, search+idx)
		search += idx + len(delim)
	}
	if len(offsets) == 0 {
		return nil, uperr.ErrBoundaryNotFound
	}

	var parts [][]byte
	closed := false
	for i := 0; i < len(offsets); i++ {
		segStart := offsets[i] + len(delim)

		// The delimiter followed by "--" is the stream terminator.
		if bytes.HasPrefix(data[segStart:], []byte("--")) {
			closed = true
			break
		}
		if i+1 >= len(offsets) {
			// Opening delimiter with no closing counterpart: truncated.
			break
		}

		segEnd := offsets[i+1]
		// Trim the trailing line terminator that precedes the next delimiter.
		if segEnd-segStart >= len(crlf) && bytes.Equal(data[segEnd-len(crlf):segEnd], crlf) {
			segEnd -= len(crlf)
		}
		if segStart >= segEnd {
			return nil, uperr.ErrMalformedMultipart
		}

		seg := data[segStart:segEnd]
		// Trim the line terminator that follows the opening delimiter.
		seg = bytes.TrimPrefix(seg, crlf)
		parts = append(parts, seg)
	}

	if !closed {
		return nil, uperr.ErrMalformedMultipart
	}
	return parts, nil
}
