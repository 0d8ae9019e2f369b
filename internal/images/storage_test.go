package images

import (
	"context"
	"strings"
	"testing"
)

func TestKeySanitizesAndPrefixes(t *testing.T) {
	key, err := Key("heroes", "My Hero Portrait.PNG")
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if !strings.HasPrefix(key, "heroes/") {
		t.Fatalf("expected folder prefix, got %s", key)
	}
	if !strings.HasSuffix(key, "-my-hero-portrait.png") {
		t.Fatalf("expected sanitized filename, got %s", key)
	}
	base := strings.TrimPrefix(key, "heroes/")
	if len(base) <= len("-my-hero-portrait.png") {
		t.Fatalf("expected a random prefix, got %s", base)
	}

	other, err := Key("heroes", "My Hero Portrait.PNG")
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if other == key {
		t.Fatalf("two keys for the same filename must differ")
	}
}

func TestKeyRejectsDisallowedExtensions(t *testing.T) {
	for _, name := range []string{"script.exe", "noextension", "archive.tar.gz", "page.html"} {
		if _, err := Key("heroes", name); err == nil {
			t.Errorf("expected %q to be rejected", name)
		}
	}
	for _, name := range []string{"a.png", "b.jpg", "c.jpeg", "d.gif", "e.webp"} {
		if _, err := Key("", name); err != nil {
			t.Errorf("expected %q to be accepted: %v", name, err)
		}
	}
}

func TestMemoryStorageRoundTrip(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	if err := store.Upload(ctx, "heroes/abc-spiderman.png", strings.NewReader("image-bytes"), "image/png"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !store.Has("heroes/abc-spiderman.png") {
		t.Fatalf("uploaded object missing")
	}
	if err := store.Delete(ctx, "heroes/abc-spiderman.png"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if store.Has("heroes/abc-spiderman.png") {
		t.Fatalf("deleted object still present")
	}
	if err := store.Delete(ctx, "heroes/abc-spiderman.png"); err == nil {
		t.Fatalf("expected error deleting a missing object")
	}
}
