package storage

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "photos/u1/a.jpg", want: "photos/u1/a.jpg"},
		{in: "/photos//u1/./a.jpg", want: "photos/u1/a.jpg"},
		{in: "photos/../../etc/passwd", wantErr: true},
		{in: "..", wantErr: true},
		{in: "a\\b", wantErr: true},
		{in: "  ", wantErr: true},
		{in: "/", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CleanKey(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiskStorage(t *testing.T) {
	ctx := context.Background()
	s, err := New(&Bucket{Name: "local", StorageType: StorageTypeFile, Path: t.TempDir(), BaseURL: "http://localhost:8080"})
	require.NoError(t, err)

	n, err := s.Save(ctx, "photos/u1/a.jpg", strings.NewReader("jpeg bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)

	var buf bytes.Buffer
	_, err = s.Load(ctx, "photos/u1/a.jpg", &buf)
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", buf.String())

	_, err = s.Save(ctx, "../escape", strings.NewReader("x"), "text/plain")
	assert.ErrorIs(t, err, ErrBadKey)

	u, err := s.URL(ctx, "photos/u1/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/blob?key=photos%2Fu1%2Fa.jpg", u)
	u, err = s.UploadURL(ctx, "photos/u1/a.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/upload/blob?key=photos%2Fu1%2Fa.jpg", u)

	rec := httptest.NewRecorder()
	s.Serve("photos/u1/a.jpg", httptest.NewRequest(http.MethodGet, "/blob", nil), rec)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jpeg bytes", rec.Body.String())

	assert.Greater(t, s.GetFreeSpace(), uint64(0))

	require.NoError(t, s.Delete(ctx, "photos/u1/a.jpg"))
	require.NoError(t, s.Delete(ctx, "photos/u1/a.jpg"))
	_, err = s.Load(ctx, "photos/u1/a.jpg", &buf)
	assert.Error(t, err)
}

func TestS3Presign(t *testing.T) {
	ctx := context.Background()
	s, err := NewS3Storage(&Bucket{
		Name:        "memoria",
		StorageType: StorageTypeS3,
		Path:        "/prod/",
		Endpoint:    "http://127.0.0.1:9000",
		Region:      "eu-west-1",
		S3Key:       "key",
		S3Secret:    "secret",
	})
	require.NoError(t, err)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	upload, err := s.UploadURL(ctx, "photos/u1/a.jpg", "image/jpeg")
	require.NoError(t, err)
	parsed, err := url.Parse(upload)
	require.NoError(t, err)
	assert.Equal(t, "/memoria/prod/photos/u1/a.jpg", parsed.Path)
	assert.NotEmpty(t, parsed.Query().Get("X-Amz-Signature"))
	assert.Equal(t, "900", parsed.Query().Get("X-Amz-Expires"))

	first, err := s.URL(ctx, "photos/u1/a.jpg")
	require.NoError(t, err)
	again, err := s.URL(ctx, "photos/u1/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, first, again)

	clock = clock.Add(presignViewURLFor - presignValidAtLeastFor + time.Minute)
	_, err = s.URL(ctx, "photos/u1/a.jpg")
	require.NoError(t, err)
	cached, _ := s.signed.Get("photos/u1/a.jpg")
	assert.Equal(t, clock.Add(presignViewURLFor), cached.until)

	_, err = s.URL(ctx, "../x")
	assert.ErrorIs(t, err, ErrBadKey)
}
