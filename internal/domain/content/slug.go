package content

import (
	"fmt"

	"github.com/speps/go-hashids/v2"
)

// SlugEncoder turns numeric article IDs into short public slugs. Slugs are
// derived, never stored: decoding a slug yields the ID back.
type SlugEncoder struct {
	h *hashids.HashID
}

func NewSlugEncoder(salt string) (*SlugEncoder, error) {
	data := hashids.NewData()
	data.Salt = salt
	data.MinLength = 8

	h, err := hashids.NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("slug encoder: %w", err)
	}
	return &SlugEncoder{h: h}, nil
}

func (e *SlugEncoder) Encode(id int64) string {
	slug, err := e.h.EncodeInt64([]int64{id})
	if err != nil {
		// EncodeInt64 only fails on empty input; an ID is always present.
		return fmt.Sprintf("%d", id)
	}
	return slug
}

func (e *SlugEncoder) Decode(slug string) (int64, error) {
	ids, err := e.h.DecodeInt64WithError(slug)
	if err != nil || len(ids) == 0 {
		return 0, ErrNotFound
	}
	return ids[0], nil
}
