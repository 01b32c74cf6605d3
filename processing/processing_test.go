package processing

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memoria/storage"
)

func testPNG(t *testing.T, w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 7 {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCreateThumb(t *testing.T) {
	var out bytes.Buffer
	res, err := CreateThumb(ThumbSize, bytes.NewReader(testPNG(t, 2000, 1000)), &out)
	require.NoError(t, err)
	assert.Equal(t, 1280, res.NewX)
	assert.Equal(t, 640, res.NewY)
	assert.Equal(t, 2000, res.OldX)
	assert.EqualValues(t, out.Len(), res.ThumbSize)

	decoded, err := jpeg.Decode(&out)
	require.NoError(t, err)
	assert.Equal(t, 1280, decoded.Bounds().Dx())

	_, err = CreateThumb(ThumbSize, strings.NewReader("not an image"), &out)
	assert.Error(t, err)
}

func TestUploadTickets(t *testing.T) {
	clock := time.Unix(1000, 0)
	tickets := NewUploadTickets(time.Hour)
	tickets.now = func() time.Time { return clock }

	tickets.Issue("k1", "u1", "image/png")
	ct, ok := tickets.Check("k1", "u1")
	assert.True(t, ok)
	assert.Equal(t, "image/png", ct)
	_, ok = tickets.Check("k1", "u2")
	assert.False(t, ok)

	tickets.Issue("k2", "u1", "image/jpeg")
	clock = clock.Add(time.Hour)
	_, ok = tickets.Check("k1", "u1")
	assert.False(t, ok)
	assert.Equal(t, 2, tickets.Sweep())
	assert.Zero(t, tickets.Count())
}

func newUploader(t *testing.T) (*Uploader, storage.StorageAPI) {
	st, err := storage.New(&storage.Bucket{Name: "test", StorageType: storage.StorageTypeFile, Path: t.TempDir()})
	require.NoError(t, err)
	return NewUploader(st, NewUploadTickets(TicketTTL)), st
}

func TestUploaderFlow(t *testing.T) {
	ctx := context.Background()
	u, st := newUploader(t)

	_, _, err := u.IssueURL(ctx, "u1", "application/pdf")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	key, url, err := u.IssueURL(ctx, "u1", "image/png; charset=binary")
	require.NoError(t, err)
	assert.Regexp(t, `^photos/u1/[0-9a-f-]{36}\.png$`, key)
	assert.Contains(t, url, "/upload/blob?key=")

	_, err = u.Accept(ctx, "u2", key, bytes.NewReader(testPNG(t, 10, 10)))
	assert.ErrorIs(t, err, ErrNoTicket)
	_, err = u.Accept(ctx, "u1", key, strings.NewReader("plain text"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
	_, err = u.Accept(ctx, "u1", key, bytes.NewReader(make([]byte, MaxUploadSize+1)))
	assert.ErrorIs(t, err, ErrTooLarge)

	n, err := u.Accept(ctx, "u1", key, bytes.NewReader(testPNG(t, 1600, 800)))
	require.NoError(t, err)
	assert.Positive(t, n)

	require.NoError(t, u.Claim(key, "u1"))
	assert.ErrorIs(t, u.Claim(key, "u2"), ErrNoTicket)

	thumbKey, err := u.EnsureThumbnail(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, key+"_thumb.jpg", thumbKey)
	var thumb bytes.Buffer
	_, err = st.Load(ctx, thumbKey, &thumb)
	require.NoError(t, err)
	img, err := jpeg.Decode(&thumb)
	require.NoError(t, err)
	assert.Equal(t, 1280, img.Bounds().Dx())

	u.Release(key)
	assert.ErrorIs(t, u.Claim(key, "u1"), ErrNoTicket)
}

func TestUploaderStore(t *testing.T) {
	ctx := context.Background()
	u, st := newUploader(t)

	key, err := u.Store(ctx, "u1", bytes.NewReader(testPNG(t, 20, 20)))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, ".png"))
	require.NoError(t, u.Claim(key, "u1"))
	var buf bytes.Buffer
	_, err = st.Load(ctx, key, &buf)
	require.NoError(t, err)

	_, err = u.Store(ctx, "u1", strings.NewReader("GIF? no"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

type zeros struct{}

func (zeros) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

// hugeObject stands in for a bucket holding an object far over the upload limit
type hugeObject struct {
	storage.StorageAPI
	copied int64
}

func (h *hugeObject) Load(ctx context.Context, key string, w io.Writer) (int64, error) {
	n, err := io.Copy(w, io.LimitReader(zeros{}, 64<<20))
	h.copied = n
	return n, err
}

func TestVerifyStopsAtUploadLimit(t *testing.T) {
	obj := &hugeObject{}
	u := NewUploader(obj, NewUploadTickets(time.Hour))

	_, err := u.Verify(context.Background(), "photos/u1/big.png")
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.LessOrEqual(t, obj.copied, int64(MaxUploadSize))

	_, err = u.EnsureThumbnail(context.Background(), "photos/u1/big.png")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestVerifyChecksStoredType(t *testing.T) {
	ctx := context.Background()
	u, st := newUploader(t)
	_, err := st.Save(ctx, "photos/u1/notes.png", strings.NewReader("just some notes"), "image/png")
	require.NoError(t, err)
	_, err = u.Verify(ctx, "photos/u1/notes.png")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = st.Save(ctx, "photos/u1/ok.png", bytes.NewReader(testPNG(t, 8, 8)), "image/png")
	require.NoError(t, err)
	data, err := u.Verify(ctx, "photos/u1/ok.png")
	require.NoError(t, err)
	assert.Equal(t, testPNG(t, 8, 8), data)
}

type fakeRefs map[string]int64

func (f fakeRefs) CountStorageRefs(ctx context.Context, key string) (int64, error) {
	return f[key], nil
}

type fakeDeleter struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeDeleter) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeDeleter) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func TestReaper(t *testing.T) {
	deleter := &fakeDeleter{}
	r := NewReaper(deleter, fakeRefs{"shared": 1}, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	r.Enqueue("shared", "orphan", "orphan_thumb.jpg")
	require.Eventually(t, func() bool { return len(deleter.Deleted()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"orphan", "orphan_thumb.jpg"}, deleter.Deleted())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}

func TestReaperDropsWhenFull(t *testing.T) {
	r := NewReaper(&fakeDeleter{}, fakeRefs{}, 1)
	r.Enqueue("a", "b", "c")
	assert.Len(t, r.keys, 1)
}
