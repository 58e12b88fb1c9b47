package storage

import (
	"context"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/rowjay/lily-delivery/internal/remote"
)

const (
	defaultS3Endpoint = "s3.amazonaws.com"
	aclHeader         = "x-amz-acl"
	aclPublicRead     = "public-read"
)

// noRetries makes minio-go send each request once. Remote calls are never
// retried.
const noRetries = 1

type S3 struct {
	Client *minio.Client
	Bucket string
}

func NewS3(endpoint, region, bucket, accessKey, secretKey string, useSSL, forcePathStyle bool) (*S3, error) {
	if endpoint == "" {
		endpoint = defaultS3Endpoint
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:      credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:     useSSL,
		Region:     region,
		MaxRetries: noRetries,
		BucketLookup: func() minio.BucketLookupType {
			if forcePathStyle {
				return minio.BucketLookupPath
			}
			return minio.BucketLookupAuto
		}(),
	})
	if err != nil {
		return nil, err
	}
	return &S3{Client: client, Bucket: bucket}, nil
}

func (s *S3) Put(ctx context.Context, key string, reader io.Reader, size int64, opts PutOptions) error {
	putOpts := minio.PutObjectOptions{
		ContentType:     opts.ContentType,
		ContentEncoding: opts.ContentEncoding,
		CacheControl:    opts.CacheControl,
	}
	if opts.PublicRead {
		putOpts.UserMetadata = map[string]string{aclHeader: aclPublicRead}
	}
	_, err := s.Client.PutObject(ctx, s.Bucket, key, reader, size, putOpts)
	return remote.Wrap(remote.S3, "put "+key, err)
}

func (s *S3) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	ch := s.Client.ListObjects(ctx, s.Bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})
	infos := []ObjectInfo{}
	for obj := range ch {
		if obj.Err != nil {
			return nil, remote.Wrap(remote.S3, "list "+prefix, obj.Err)
		}
		infos = append(infos, ObjectInfo{Key: obj.Key, Size: obj.Size, Modified: obj.LastModified, ETag: obj.ETag})
	}
	return infos, nil
}

func (s *S3) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Client.StatObject(ctx, s.Bucket, key, minio.StatObjectOptions{})
	return remote.Check(remote.S3, "stat "+key, err)
}

func (s *S3) HasPrefix(ctx context.Context, prefix string) (bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := s.Client.ListObjects(ctx, s.Bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true, MaxKeys: 1})
	for obj := range ch {
		if obj.Err != nil {
			return false, remote.Wrap(remote.S3, "list "+prefix, obj.Err)
		}
		return true, nil
	}
	return false, nil
}

func (s *S3) Check(ctx context.Context) (bool, error) {
	ok, err := s.Client.BucketExists(ctx, s.Bucket)
	if err == nil {
		return ok, nil
	}
	switch remote.StatusCode(err) {
	case http.StatusForbidden, http.StatusNotFound:
		return false, nil
	}
	return false, remote.Wrap(remote.S3, "check bucket", err)
}
