// Package sniff detects a file's true content type from its leading byte
// signature. Client-declared Content-Type headers are attacker-controlled,
// so upload policy is enforced exclusively on the sniffed type.
package sniff

import "bytes"

// signature describes one magic-byte pattern and the MIME type it proves.
type signature struct {
	mime   string
	offset int
	magic  []byte
}

// signatures are checked in order; the first full match wins. The WEBP entry
// relies on the RIFF container check below rather than a flat prefix.
var signatures = []signature{
	{mime: "image/png", magic: []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}},
	{mime: "image/jpeg", magic: []byte{0xFF, 0xD8, 0xFF}},
	{mime: "image/gif", magic: []byte("GIF87a")},
	{mime: "image/gif", magic: []byte("GIF89a")},
	{mime: "image/bmp", magic: []byte("BM")},
	{mime: "image/tiff", magic: []byte{'I', 'I', 0x2A, 0x00}},
	{mime: "image/tiff", magic: []byte{'M', 'M', 0x00, 0x2A}},
	{mime: "application/pdf", magic: []byte("%PDF-")},
	{mime: "application/zip", magic: []byte{'P', 'K', 0x03, 0x04}},
	{mime: "image/webp", offset: 8, magic: []byte("WEBP")},
}

// Detect sniffs the leading bytes of body against the known signature table.
// It returns the detected MIME type, or "" when no signature matches.
func Detect(body []byte) string {
	for _, sig := range signatures {
		end := sig.offset + len(sig.magic)
		if len(body) < end {
			continue
		}
		if !bytes.Equal(body[sig.offset:end], sig.magic) {
			continue
		}
		// WEBP is a RIFF container: require the RIFF tag as well.
		if sig.mime == "image/webp" && !bytes.HasPrefix(body, []byte("RIFF")) {
			continue
		}
		return sig.mime
	}
	return ""
}

// Allowed reports whether the detected MIME type is on the allow-list.
// An empty detection never passes.
func Allowed(detected string, allowList []string) bool {
	if detected == "" {
		return false
	}
	for _, mime := range allowList {
		if mime == detected {
			return true
		}
	}
	return false
}
