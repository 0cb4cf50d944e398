package content

import (
	"errors"
	"testing"
)

func TestSlugRoundTrip(t *testing.T) {
	enc, err := NewSlugEncoder("test-salt")
	if err != nil {
		t.Fatalf("NewSlugEncoder: %v", err)
	}

	for _, id := range []int64{1, 42, 9999, 1 << 40} {
		slug := enc.Encode(id)
		if len(slug) < 8 {
			t.Errorf("slug %q for id %d shorter than the minimum length", slug, id)
		}
		got, err := enc.Decode(slug)
		if err != nil {
			t.Fatalf("Decode(%q): %v", slug, err)
		}
		if got != id {
			t.Errorf("round trip: Decode(Encode(%d)) = %d", id, got)
		}
	}
}

func TestSlugDecodeGarbage(t *testing.T) {
	enc, err := NewSlugEncoder("test-salt")
	if err != nil {
		t.Fatalf("NewSlugEncoder: %v", err)
	}

	for _, slug := range []string{"", "!!!", "not a slug"} {
		if _, err := enc.Decode(slug); !errors.Is(err, ErrNotFound) {
			t.Errorf("Decode(%q) = %v, want ErrNotFound", slug, err)
		}
	}
}

func TestSlugSaltChangesOutput(t *testing.T) {
	a, _ := NewSlugEncoder("salt-a")
	b, _ := NewSlugEncoder("salt-b")

	if a.Encode(7) == b.Encode(7) {
		t.Fatalf("different salts must produce different slugs")
	}

	// A slug minted under one salt must not decode to the same id elsewhere.
	if id, err := b.Decode(a.Encode(7)); err == nil && id == 7 {
		t.Fatalf("cross-salt decode yielded the original id")
	}
}
