package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	cmap "github.com/orcaman/concurrent-map/v2"
)

const (
	presignUploadFor       = 15 * time.Minute
	presignViewURLFor      = 7 * 24 * time.Hour
	presignValidAtLeastFor = 30 * time.Minute
)

type presigned struct {
	url   string
	until time.Time
}

type S3Storage struct {
	Bucket   Bucket
	s3Client *s3.S3
	// view URLs are reused while they stay valid for presignValidAtLeastFor
	signed cmap.ConcurrentMap[string, presigned]
	now    func() time.Time
}

func NewS3Storage(bucket *Bucket) (*S3Storage, error) {
	if bucket.Name == "" {
		return nil, errors.New("s3 bucket needs a name")
	}
	svc, err := bucket.CreateSVC()
	if err != nil {
		return nil, err
	}
	return &S3Storage{
		Bucket:   *bucket,
		s3Client: svc,
		signed:   cmap.New[presigned](),
		now:      time.Now,
	}, nil
}

func (s *S3Storage) remoteKey(key string) (*string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	return aws.String(s.Bucket.GetRemotePath(key)), nil
}

func (s *S3Storage) Save(ctx context.Context, key string, reader io.Reader, contentType string) (int64, error) {
	remote, err := s.remoteKey(key)
	if err != nil {
		return 0, err
	}
	counter := &countingReader{r: reader}
	input := s3manager.UploadInput{
		Bucket:      &s.Bucket.Name,
		Key:         remote,
		ContentType: aws.String(contentType),
		Body:        counter,
	}
	if s.Bucket.SSEEncryption != "" {
		input.ServerSideEncryption = &s.Bucket.SSEEncryption
	}
	uploader := s3manager.NewUploaderWithClient(s.s3Client)
	_, err = uploader.UploadWithContext(ctx, &input)
	return counter.n, err
}

func (s *S3Storage) Load(ctx context.Context, key string, writer io.Writer) (int64, error) {
	remote, err := s.remoteKey(key)
	if err != nil {
		return 0, err
	}
	resp, err := s.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: &s.Bucket.Name,
		Key:    remote,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return io.Copy(writer, resp.Body)
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	remote, err := s.remoteKey(key)
	if err != nil {
		return err
	}
	s.signed.Remove(key)
	_, err = s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: &s.Bucket.Name,
		Key:    remote,
	})
	var aerr awserr.Error
	if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
		return nil
	}
	return err
}

// UploadURL returns a pre-signed PUT URL the client uploads to directly
func (s *S3Storage) UploadURL(ctx context.Context, key, contentType string) (string, error) {
	remote, err := s.remoteKey(key)
	if err != nil {
		return "", err
	}
	req, _ := s.s3Client.PutObjectRequest(&s3.PutObjectInput{
		Bucket:      &s.Bucket.Name,
		Key:         remote,
		ContentType: aws.String(contentType),
	})
	req.SetContext(ctx)
	return req.Presign(presignUploadFor)
}

// URL returns a pre-signed GET URL, reusing a cached one while it is fresh enough
func (s *S3Storage) URL(ctx context.Context, key string) (string, error) {
	now := s.now()
	if p, ok := s.signed.Get(key); ok && p.until.After(now.Add(presignValidAtLeastFor)) {
		return p.url, nil
	}
	remote, err := s.remoteKey(key)
	if err != nil {
		return "", err
	}
	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: &s.Bucket.Name,
		Key:    remote,
	})
	req.SetContext(ctx)
	signed, err := req.Presign(presignViewURLFor)
	if err != nil {
		return "", err
	}
	s.signed.Set(key, presigned{url: signed, until: now.Add(presignViewURLFor)})
	return signed, nil
}

func (s *S3Storage) Serve(key string, request *http.Request, writer http.ResponseWriter) {
	signed, err := s.URL(request.Context(), key)
	if err != nil {
		http.NotFound(writer, request)
		return
	}
	http.Redirect(writer, request, signed, http.StatusFound)
}

// GetFreeSpace is unknown for object storage
func (s *S3Storage) GetFreeSpace() uint64 {
	return 0
}

func (s *S3Storage) GetBucket() *Bucket {
	return &s.Bucket
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
