package processing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"memoria/storage"
)

const MaxUploadSize = 5 << 20

var (
	ErrTooLarge        = errors.New("file too large, max 5MB")
	ErrUnsupportedType = errors.New("unsupported image type, use JPEG, PNG, WebP or GIF")
	ErrNoTicket        = errors.New("no upload ticket for this key")
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

func normalizeType(contentType string) string {
	contentType, _, _ = strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(contentType))
}

func AllowedType(contentType string) bool {
	_, ok := allowedTypes[normalizeType(contentType)]
	return ok
}

// Uploader moves photo bytes into the bucket and derives thumbnails
type Uploader struct {
	storage storage.StorageAPI
	tickets *UploadTickets
}

func NewUploader(st storage.StorageAPI, tickets *UploadTickets) *Uploader {
	return &Uploader{storage: st, tickets: tickets}
}

// NewKey issues a fresh storage key for userID
func (u *Uploader) NewKey(userID, contentType string) (string, error) {
	contentType = normalizeType(contentType)
	ext, ok := allowedTypes[contentType]
	if !ok {
		return "", ErrUnsupportedType
	}
	key := fmt.Sprintf("photos/%s/%s%s", userID, uuid.NewString(), ext)
	u.tickets.Issue(key, userID, contentType)
	return key, nil
}

// IssueURL returns a new key and the URL the client should send the bytes to
func (u *Uploader) IssueURL(ctx context.Context, userID, contentType string) (key, url string, err error) {
	if key, err = u.NewKey(userID, contentType); err != nil {
		return "", "", err
	}
	url, err = u.storage.UploadURL(ctx, key, normalizeType(contentType))
	return key, url, err
}

// Accept stores the body for a key previously issued to userID
func (u *Uploader) Accept(ctx context.Context, userID, key string, body io.Reader) (int64, error) {
	issuedType, ok := u.tickets.Check(key, userID)
	if !ok {
		return 0, ErrNoTicket
	}
	data, contentType, err := readImage(body)
	if err != nil {
		return 0, err
	}
	if allowedTypes[contentType] != allowedTypes[issuedType] {
		return 0, ErrUnsupportedType
	}
	return u.storage.Save(ctx, key, bytes.NewReader(data), contentType)
}

// Store validates and saves a whole upload in one go and returns its key
func (u *Uploader) Store(ctx context.Context, userID string, body io.Reader) (string, error) {
	data, contentType, err := readImage(body)
	if err != nil {
		return "", err
	}
	key, err := u.NewKey(userID, contentType)
	if err != nil {
		return "", err
	}
	if _, err = u.storage.Save(ctx, key, bytes.NewReader(data), contentType); err != nil {
		u.tickets.Redeem(key)
		return "", err
	}
	return key, nil
}

// Claim checks that userID may attach key to a photo
func (u *Uploader) Claim(key, userID string) error {
	if _, ok := u.tickets.Check(key, userID); !ok {
		return ErrNoTicket
	}
	return nil
}

// Release forgets the ticket once a photo points at the key
func (u *Uploader) Release(keys ...string) {
	for _, key := range keys {
		u.tickets.Redeem(key)
	}
}

// cappedBuffer refuses writes past max bytes, stopping the copy early
type cappedBuffer struct {
	buf bytes.Buffer
	max int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if b.buf.Len()+len(p) > b.max {
		return 0, ErrTooLarge
	}
	return b.buf.Write(p)
}

// Verify reads a stored upload back and checks it against the upload limits.
// Clients may PUT straight to object storage, bypassing Accept.
func (u *Uploader) Verify(ctx context.Context, key string) ([]byte, error) {
	capped := &cappedBuffer{max: MaxUploadSize}
	if _, err := u.storage.Load(ctx, key, capped); err != nil {
		if errors.Is(err, ErrTooLarge) {
			return nil, ErrTooLarge
		}
		return nil, fmt.Errorf("loading %s: %w", key, err)
	}
	data := capped.buf.Bytes()
	if _, ok := allowedTypes[normalizeType(http.DetectContentType(data))]; !ok {
		return nil, ErrUnsupportedType
	}
	return data, nil
}

// EnsureThumbnail verifies key and creates its thumbnail
func (u *Uploader) EnsureThumbnail(ctx context.Context, key string) (string, error) {
	original, err := u.Verify(ctx, key)
	if err != nil {
		return "", err
	}
	return u.Thumbnail(ctx, key, original)
}

// Thumbnail stores the thumbnail of already verified bytes and returns its key
func (u *Uploader) Thumbnail(ctx context.Context, key string, original []byte) (string, error) {
	var thumb bytes.Buffer
	if _, err := CreateThumb(ThumbSize, bytes.NewReader(original), &thumb); err != nil {
		return "", fmt.Errorf("thumbnail for %s: %w", key, err)
	}
	thumbKey := ThumbKey(key)
	if _, err := u.storage.Save(ctx, thumbKey, &thumb, "image/jpeg"); err != nil {
		return "", err
	}
	return thumbKey, nil
}

// readImage reads at most MaxUploadSize bytes and sniffs the image type
func readImage(body io.Reader) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxUploadSize+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > MaxUploadSize {
		return nil, "", ErrTooLarge
	}
	contentType := normalizeType(http.DetectContentType(data))
	if _, ok := allowedTypes[contentType]; !ok {
		return nil, "", ErrUnsupportedType
	}
	return data, contentType, nil
}
