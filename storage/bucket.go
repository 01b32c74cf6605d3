package storage

import (
	"errors"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

type StorageType uint8

const (
	StorageTypeFile StorageType = 0
	StorageTypeS3   StorageType = 1
)

var ErrBadKey = errors.New("invalid storage key")

// Bucket describes where photo bytes live
type Bucket struct {
	Name        string
	StorageType StorageType
	Path        string // Path on a drive or a prefix in a S3 bucket
	// BaseURL is prepended to locally served URLs, e.g. https://api.example.com
	BaseURL       string
	Endpoint      string // S3 compatible endpoint, empty for AWS
	Region        string
	S3Key         string
	S3Secret      string
	SSEEncryption string
}

func (b *Bucket) IsS3() bool {
	return b.StorageType == StorageTypeS3
}

// GetRemotePath returns the object key inside the S3 bucket
func (b *Bucket) GetRemotePath(key string) string {
	prefix := strings.Trim(b.Path, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

func (b *Bucket) CreateSVC() (*s3.S3, error) {
	region := b.Region
	if region == "" {
		region = "us-east-1"
	}
	cfg := aws.NewConfig().
		WithRegion(region).
		WithCredentials(credentials.NewStaticCredentials(b.S3Key, b.S3Secret, ""))
	if b.Endpoint != "" {
		cfg = cfg.WithEndpoint(b.Endpoint).WithS3ForcePathStyle(true)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, err
	}
	return s3.New(sess), nil
}

// CleanKey normalises a storage key and rejects keys escaping the bucket
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.Contains(key, "\\") || strings.Contains(key, "\x00") {
		return "", ErrBadKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", ErrBadKey
		}
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+key), "/")
	if cleaned == "" || cleaned == "." {
		return "", ErrBadKey
	}
	return cleaned, nil
}
