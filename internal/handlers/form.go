package handlers

import (
	"fmt"
	"net/http"

	"github.com/dustin/go-humanize"
)

// formTemplate is the static upload page served at GET /. The placeholders
// are the per-file and per-request limits, rendered human-readable.
const formTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>FormDrop</title>
  <style>
    body { font-family: sans-serif; max-width: 40rem; margin: 3rem auto; }
    .limits { color: #555; font-size: 0.9rem; }
  </style>
</head>
<body>
  <h1>FormDrop</h1>
  <p>Upload one or more images.</p>
  <form method="POST" action="/" enctype="multipart/form-data">
    <input type="file" name="files" multiple>
    <button type="submit">Upload</button>
  </form>
  <p class="limits">Limits: %s per file, %s per request. Images only.</p>
</body>
</html>
`

// Form serves the HTML upload form. No side effects.
func (h *UploadHandler) Form(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, formTemplate,
		humanize.IBytes(uint64(h.maxFileSize)),
		humanize.IBytes(uint64(h.maxRequestSize)),
	)
}
