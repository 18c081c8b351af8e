package multipart

import (
	"bytes"
	"strings"

	uperr "github.com/formdrop/formdrop/internal/errors"
)

// headerSeparator divides the header block from the body within a part.
var headerSeparator = []byte("\r\n\r\n")

// Part is one decoded multipart segment: a case-insensitive header mapping,
// the structured Content-Disposition fields, and the raw body bytes.
type Part struct {
	// Headers maps lower-cased header names to their raw values.
	Headers map[string]string
	// Disposition holds the fields of the Content-Disposition header
	// ("name", "filename") with whitespace and wrapping quotes stripped.
	Disposition map[string]string
	// Body is the raw part payload.
	Body []byte
}

// Filename returns the original client filename, or "" for a part that is a
// plain form field. The presence of the filename parameter is what
// distinguishes a file field from a non-file field.
func (p Part) Filename() (string, bool) {
	name, ok := p.Disposition["filename"]
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// FieldName returns the form field name from Content-Disposition, if any.
func (p Part) FieldName() string {
	return p.Disposition["name"]
}

// DeclaredContentType returns the client-declared per-part Content-Type.
// It is informational only: content policy decisions are made from the
// sniffed signature, never from this value.
func (p Part) DeclaredContentType() string {
	return p.Headers["content-type"]
}

// ParsePart splits one raw segment into its header block and body at the
// first blank-line separator, parsing header lines into the Part mapping.
// A segment with no separator is malformed framing and fails the request.
func ParsePart(raw []byte) (Part, *uperr.UploadError) {
	sep := bytes.Index(raw, headerSeparator)
	if sep < 0 {
		return Part{}, uperr.ErrMalformedMultipart
	}

	part := Part{
		Headers:     make(map[string]string),
		Disposition: make(map[string]string),
		Body:        raw[sep+len(headerSeparator):],
	}

	for _, line := range strings.Split(string(raw[:sep]), "\r\n") {
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, ": ")
		if !found {
			continue
		}
		key = strings.ToLower(key)
		part.Headers[key] = value
		if key == "content-disposition" {
			part.Disposition = parseDisposition(value)
		}
	}

	return part, nil
}

// parseDisposition parses a Content-Disposition value such as
//
//	form-data; name="photos"; filename="cat picture.PNG"
//
// into its semicolon-separated fields, stripping surrounding whitespace and
// wrapping quotes from each value. Tokens without "=" (the leading
// "form-data") are skipped.
func parseDisposition(value string) map[string]string {
	fields := make(map[string]string)
	for _, token := range strings.Split(value, ";") {
		key, val, found := strings.Cut(token, "=")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		val = strings.Trim(val, `"`)
		fields[key] = val
	}
	return fields
}
