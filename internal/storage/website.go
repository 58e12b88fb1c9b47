package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/rowjay/lily-delivery/internal/remote"
)

type websiteAPI interface {
	GetBucketWebsite(ctx context.Context, params *s3.GetBucketWebsiteInput, optFns ...func(*s3.Options)) (*s3.GetBucketWebsiteOutput, error)
	PutBucketWebsite(ctx context.Context, params *s3.PutBucketWebsiteInput, optFns ...func(*s3.Options)) (*s3.PutBucketWebsiteOutput, error)
}

// S3Website manages the website hosting configuration of a bucket.
type S3Website struct {
	Client websiteAPI
	Bucket string
}

// NewS3Website builds a website client. endpoint is optional and, when set,
// points the client at an S3 compatible service instead of AWS.
func NewS3Website(endpoint, region, bucket, accessKey, secretKey string, useSSL, forcePathStyle bool) *S3Website {
	opts := s3.Options{
		Region:       region,
		Credentials:  aws.NewCredentialsCache(awscreds.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		UsePathStyle: forcePathStyle,
	}
	if endpoint != "" {
		scheme := "https"
		if !useSSL {
			scheme = "http"
		}
		opts.BaseEndpoint = aws.String(fmt.Sprintf("%s://%s", scheme, endpoint))
	}
	return &S3Website{Client: s3.New(opts), Bucket: bucket}
}

// SetIndexDocument points the website index at document. The error document
// and routing rules already configured on the bucket are kept.
func (w *S3Website) SetIndexDocument(ctx context.Context, document string) error {
	site := &s3types.WebsiteConfiguration{
		IndexDocument: &s3types.IndexDocument{Suffix: aws.String(document)},
	}

	current, err := w.Client.GetBucketWebsite(ctx, &s3.GetBucketWebsiteInput{Bucket: aws.String(w.Bucket)})
	if _, checkErr := remote.Check(remote.S3, "get website", err); checkErr != nil {
		return checkErr
	}
	if current != nil {
		site.ErrorDocument = current.ErrorDocument
		site.RoutingRules = current.RoutingRules
	}

	_, err = w.Client.PutBucketWebsite(ctx, &s3.PutBucketWebsiteInput{
		Bucket:               aws.String(w.Bucket),
		WebsiteConfiguration: site,
	})
	return remote.Wrap(remote.S3, "put website", err)
}
