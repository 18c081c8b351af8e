package metrics

import "testing"

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "/", want: "/"},
		{path: "", want: "/"},
		{path: "/uploads", want: "/uploads"},
		{path: "/health", want: "/health"},
		{path: "/healthz", want: "/health"},
		{path: "/metrics", want: "/metrics"},
		{path: "/openapi.json", want: "/openapi.json"},
		{path: "/docs", want: "/docs"},
		{path: "/docs/assets/app.js", want: "/docs"},
		{path: "/favicon.ico", want: "/other"},
		{path: "/some/random/path", want: "/other"},
	}

	for _, tt := range tests {
		if got := NormalizePath(tt.path); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestRegisterIdempotent(t *testing.T) {
	// A second Register must not panic on duplicate registration.
	Register()
	Register()
}
