package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

type StorageAPI interface {
	Save(ctx context.Context, key string, reader io.Reader, contentType string) (int64, error)
	Load(ctx context.Context, key string, writer io.Writer) (int64, error)
	Delete(ctx context.Context, key string) error
	// UploadURL is where a client sends the bytes for key
	UploadURL(ctx context.Context, key, contentType string) (string, error)
	// URL is where a client reads key from
	URL(ctx context.Context, key string) (string, error)
	Serve(key string, request *http.Request, writer http.ResponseWriter)
	GetFreeSpace() uint64
	GetBucket() *Bucket
}

func New(bucket *Bucket) (StorageAPI, error) {
	switch bucket.StorageType {
	case StorageTypeFile:
		s, err := NewDiskStorage(bucket)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StorageTypeS3:
		s, err := NewS3Storage(bucket)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("storage type %d unavailable for bucket %q", bucket.StorageType, bucket.Name)
}

func localURL(base, route, key string) string {
	return base + route + "?key=" + url.QueryEscape(key)
}

var (
	_ StorageAPI = (*DiskStorage)(nil)
	_ StorageAPI = (*S3Storage)(nil)
)
