package names

import (
	"fmt"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "already clean", in: "photo.png", want: "photo.png"},
		{name: "uppercase", in: "Cat-Photo.PNG", want: "cat-photo.png"},
		{name: "spaces", in: "my cat photo.jpg", want: "my_cat_photo.jpg"},
		{name: "path traversal", in: "../../etc/passwd", want: "etc_passwd"},
		{name: "windows traversal", in: `..\..\boot.ini`, want: "boot.ini"},
		{name: "absolute path", in: "/etc/shadow", want: "_etc_shadow"},
		{name: "unicode", in: "código.png", want: "c_digo.png"},
		{name: "shell metacharacters", in: "a;rm -rf.png", want: "a_rm_-rf.png"},
		{name: "dots only", in: "...", want: "file"},
		{name: "empty", in: "", want: "file"},
		{name: "inner dots kept", in: "archive.tar.gz", want: "archive.tar.gz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.in)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
			// Idempotency: sanitizing a sanitized name is a no-op.
			if again := Sanitize(got); again != got {
				t.Errorf("Sanitize not idempotent: %q -> %q -> %q", tt.in, got, again)
			}
		})
	}
}

// fakeNamespace is an in-memory Namespace for resolver tests.
type fakeNamespace map[string]struct{}

func (ns fakeNamespace) Exists(name string) (bool, error) {
	_, ok := ns[name]
	return ok, nil
}

func TestResolveFreeName(t *testing.T) {
	r := NewResolver(fakeNamespace{})

	got, err := r.Resolve("photo.png")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "photo.png" {
		t.Errorf("Resolve() = %q, want %q", got, "photo.png")
	}
}

func TestResolveTakenName(t *testing.T) {
	ns := fakeNamespace{"photo.png": {}}
	r := NewResolver(ns)

	got, err := r.Resolve("photo.png")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "photo_1.png" {
		t.Errorf("Resolve() = %q, want %q", got, "photo_1.png")
	}
}

func TestResolveCounterAdvances(t *testing.T) {
	ns := fakeNamespace{
		"photo.png":   {},
		"photo_1.png": {},
		"photo_2.png": {},
	}
	r := NewResolver(ns)

	got, err := r.Resolve("photo.png")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "photo_3.png" {
		t.Errorf("Resolve() = %q, want %q", got, "photo_3.png")
	}
}

func TestResolveSanitizesInput(t *testing.T) {
	r := NewResolver(fakeNamespace{})

	got, err := r.Resolve("../Secret File.PNG")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "secret_file.png" {
		t.Errorf("Resolve() = %q, want %q", got, "secret_file.png")
	}
}

func TestResolveReservesWithinRequest(t *testing.T) {
	// Two parts with the same original filename in one request must not
	// resolve to the same name, even though neither is on disk yet.
	r := NewResolver(fakeNamespace{})

	first, err := r.Resolve("photo.png")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	second, err := r.Resolve("photo.png")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if first != "photo.png" {
		t.Errorf("first = %q, want %q", first, "photo.png")
	}
	if second != "photo_1.png" {
		t.Errorf("second = %q, want %q", second, "photo_1.png")
	}
}

func TestResolveNoExtension(t *testing.T) {
	ns := fakeNamespace{"readme": {}}
	r := NewResolver(ns)

	got, err := r.Resolve("README")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "readme_1" {
		t.Errorf("Resolve() = %q, want %q", got, "readme_1")
	}
}

func TestReserve(t *testing.T) {
	r := NewResolver(fakeNamespace{})
	r.Reserve("photo.png")

	got, err := r.Resolve("photo.png")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "photo_1.png" {
		t.Errorf("Resolve() = %q, want %q", got, "photo_1.png")
	}
}

func TestResolveManyDistinct(t *testing.T) {
	// Dedup never hands out the same name twice within one resolver.
	r := NewResolver(fakeNamespace{})
	seen := make(map[string]struct{})

	for i := 0; i < 50; i++ {
		got, err := r.Resolve("photo.png")
		if err != nil {
			t.Fatalf("Resolve #%d failed: %v", i, err)
		}
		if _, dup := seen[got]; dup {
			t.Fatalf("Resolve handed out %q twice", got)
		}
		seen[got] = struct{}{}
	}
}

func TestResolveProbeError(t *testing.T) {
	r := NewResolver(errNamespace{})

	if _, err := r.Resolve("photo.png"); err == nil {
		t.Fatal("Resolve swallowed a namespace probe error")
	}
}

type errNamespace struct{}

func (errNamespace) Exists(name string) (bool, error) {
	return false, fmt.Errorf("probe failed")
}
