package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	cmap "github.com/orcaman/concurrent-map/v2"
	"golang.org/x/sys/unix"
)

type DiskStorage struct {
	Bucket Bucket
	// BasePath is a directory (usually mount point of a disk) that is writable by the current process
	BasePath string
	dirs     cmap.ConcurrentMap[string, bool]
}

func NewDiskStorage(bucket *Bucket) (*DiskStorage, error) {
	if bucket.Path == "" {
		return nil, errors.New("disk bucket needs a path")
	}
	if err := os.MkdirAll(bucket.Path, 0o755); err != nil {
		return nil, err
	}
	return &DiskStorage{
		Bucket:   *bucket,
		BasePath: bucket.Path,
		dirs:     cmap.New[bool](),
	}, nil
}

func (s *DiskStorage) createDir(dir string) error {
	if ok, _ := s.dirs.Get(dir); ok {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	s.dirs.Set(dir, true)
	return nil
}

func (s *DiskStorage) getFullPath(key string) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.BasePath, filepath.FromSlash(key)), nil
}

func (s *DiskStorage) Save(ctx context.Context, key string, reader io.Reader, contentType string) (int64, error) {
	fileName, err := s.getFullPath(key)
	if err != nil {
		return 0, err
	}
	if err = s.createDir(filepath.Dir(fileName)); err != nil {
		return 0, err
	}
	file, err := os.Create(fileName)
	if err != nil {
		return 0, err
	}
	result, err := io.Copy(file, reader)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(fileName)
	}
	return result, err
}

func (s *DiskStorage) Load(ctx context.Context, key string, writer io.Writer) (int64, error) {
	fileName, err := s.getFullPath(key)
	if err != nil {
		return 0, err
	}
	file, err := os.Open(fileName)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	return io.Copy(writer, file)
}

func (s *DiskStorage) Delete(ctx context.Context, key string) error {
	fileName, err := s.getFullPath(key)
	if err != nil {
		return err
	}
	err = os.Remove(fileName)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *DiskStorage) UploadURL(ctx context.Context, key, contentType string) (string, error) {
	return localURL(s.Bucket.BaseURL, "/upload/blob", key), nil
}

func (s *DiskStorage) URL(ctx context.Context, key string) (string, error) {
	return localURL(s.Bucket.BaseURL, "/blob", key), nil
}

func (s *DiskStorage) Serve(key string, request *http.Request, writer http.ResponseWriter) {
	fileName, err := s.getFullPath(key)
	if err != nil {
		http.NotFound(writer, request)
		return
	}
	http.ServeFile(writer, request, fileName)
}

func (s *DiskStorage) GetFreeSpace() uint64 {
	var stat unix.Statfs_t
	if err := unix.Statfs(s.BasePath, &stat); err != nil {
		return 0
	}
	return stat.Bavail * uint64(stat.Bsize)
}

func (s *DiskStorage) GetBucket() *Bucket {
	return &s.Bucket
}
