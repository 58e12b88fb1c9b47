// Package cdn drives the CloudFront distribution in front of the website
// bucket.
package cdn

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/google/uuid"

	"github.com/rowjay/lily-delivery/internal/config"
	"github.com/rowjay/lily-delivery/internal/remote"
)

const (
	// ErrorCachingMinTTL is how long CloudFront caches the rewritten 404.
	ErrorCachingMinTTL = 300
	invalidateAllPath  = "/*"
)

type API interface {
	GetDistribution(ctx context.Context, params *cloudfront.GetDistributionInput, optFns ...func(*cloudfront.Options)) (*cloudfront.GetDistributionOutput, error)
	GetDistributionConfig(ctx context.Context, params *cloudfront.GetDistributionConfigInput, optFns ...func(*cloudfront.Options)) (*cloudfront.GetDistributionConfigOutput, error)
	UpdateDistribution(ctx context.Context, params *cloudfront.UpdateDistributionInput, optFns ...func(*cloudfront.Options)) (*cloudfront.UpdateDistributionOutput, error)
	CreateInvalidation(ctx context.Context, params *cloudfront.CreateInvalidationInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error)
}

type CloudFront struct {
	Client         API
	DistributionID string
	// Token returns the caller reference of an invalidation. Every call must
	// return a new value.
	Token func() string
}

func New(cfg config.CloudFrontHosting) *CloudFront {
	client := cloudfront.New(cloudfront.Options{
		Region:      cfg.Region,
		Credentials: aws.NewCredentialsCache(awscreds.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	})
	return &CloudFront{Client: client, DistributionID: cfg.DistributionID, Token: CallerReference}
}

// CallerReference combines the current time with a random suffix so two
// invalidations issued in the same instant stay distinct.
func CallerReference() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), uuid.NewString())
}

// Check reports whether the distribution is readable with the configured
// credentials.
func (c *CloudFront) Check(ctx context.Context) (bool, error) {
	_, err := c.Client.GetDistribution(ctx, &cloudfront.GetDistributionInput{Id: aws.String(c.DistributionID)})
	if err == nil {
		return true, nil
	}
	switch remote.StatusCode(err) {
	case http.StatusForbidden, http.StatusNotFound:
		return false, nil
	}
	return false, remote.Wrap(remote.CloudFront, "get distribution", err)
}

// UpdateRouting makes the distribution answer 404s with the entry document so
// client side routes resolve.
func (c *CloudFront) UpdateRouting(ctx context.Context, entryDocument string) error {
	current, err := c.Client.GetDistributionConfig(ctx, &cloudfront.GetDistributionConfigInput{Id: aws.String(c.DistributionID)})
	if err != nil {
		return remote.Wrap(remote.CloudFront, "get distribution config", err)
	}
	if current.DistributionConfig == nil {
		return fmt.Errorf("distribution %s returned no config", c.DistributionID)
	}
	_, err = c.Client.UpdateDistribution(ctx, &cloudfront.UpdateDistributionInput{
		Id:                 aws.String(c.DistributionID),
		IfMatch:            current.ETag,
		DistributionConfig: RoutingConfig(*current.DistributionConfig, entryDocument),
	})
	return remote.Wrap(remote.CloudFront, "update distribution", err)
}

// RoutingConfig returns cfg with its custom error responses replaced by a
// single 404 -> /entryDocument (200) mapping. Other fields are kept.
func RoutingConfig(cfg types.DistributionConfig, entryDocument string) *types.DistributionConfig {
	cfg.CustomErrorResponses = &types.CustomErrorResponses{
		Quantity: aws.Int32(1),
		Items: []types.CustomErrorResponse{
			{
				ErrorCode:          aws.Int32(http.StatusNotFound),
				ResponsePagePath:   aws.String("/" + entryDocument),
				ResponseCode:       aws.String("200"),
				ErrorCachingMinTTL: aws.Int64(ErrorCachingMinTTL),
			},
		},
	}
	return &cfg
}

// InvalidateAll invalidates every cached path and returns the invalidation id.
func (c *CloudFront) InvalidateAll(ctx context.Context) (string, error) {
	token := c.Token
	if token == nil {
		token = CallerReference
	}
	out, err := c.Client.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(c.DistributionID),
		InvalidationBatch: &types.InvalidationBatch{
			CallerReference: aws.String(token()),
			Paths: &types.Paths{
				Quantity: aws.Int32(1),
				Items:    []string{invalidateAllPath},
			},
		},
	})
	if err != nil {
		return "", remote.Wrap(remote.CloudFront, "create invalidation", err)
	}
	if out.Invalidation == nil {
		return "", nil
	}
	return aws.ToString(out.Invalidation.Id), nil
}
