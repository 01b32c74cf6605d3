package store

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"

	"memoria/models"
)

var ErrBadCursor = errors.New("malformed cursor")

// Cursor is the position after the last item of a page, ordered by (CreatedAt, ID)
type Cursor struct {
	CreatedAt int64
	ID        string
}

func EncodeCursor(createdAt int64, id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(createdAt, 10) + "|" + id))
}

// DecodeCursor parses an opaque cursor. An empty string yields nil.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrBadCursor
	}
	createdAt, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return nil, ErrBadCursor
	}
	ts, err := strconv.ParseInt(createdAt, 10, 64)
	if err != nil {
		return nil, ErrBadCursor
	}
	return &Cursor{CreatedAt: ts, ID: id}, nil
}

// Before reports whether (createdAt, id) sorts after the cursor in newest first order
func (c *Cursor) Before(createdAt int64, id string) bool {
	if c == nil {
		return true
	}
	return createdAt < c.CreatedAt || (createdAt == c.CreatedAt && id < c.ID)
}

// NewPage builds a page from up to limit+1 fetched items.
// key returns the ordering key of an item.
func NewPage[T any](fetched []T, limit int, key func(T) (int64, string)) Page[T] {
	if fetched == nil {
		fetched = []T{}
	}
	page := Page[T]{Items: fetched, IsDone: true}
	if limit > 0 && len(fetched) > limit {
		page.Items = fetched[:limit]
		page.IsDone = false
	}
	if n := len(page.Items); n > 0 {
		createdAt, id := key(page.Items[n-1])
		page.ContinueCursor = EncodeCursor(createdAt, id)
	}
	return page
}

func AlbumKey(a models.Album) (int64, string) { return a.CreatedAt, a.ID }
func PhotoKey(p models.Photo) (int64, string) { return p.CreatedAt, p.ID }
func UserKey(u models.User) (int64, string)   { return u.CreatedAt, u.ID }
