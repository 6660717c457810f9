package cdn

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudfront"
	"github.com/aws/aws-sdk-go/service/cloudfront/cloudfrontiface"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/andresuchdata/mediasync/pkg/logger"
)

// CloudFrontConfig encapsulates what is needed to reach one distribution.
type CloudFrontConfig struct {
	DistributionID string
	Region         string
	AccessKey      string
	SecretKey      string
	SessionToken   string
}

// CloudFront implements Invalidator for an AWS CloudFront distribution.
type CloudFront struct {
	api            cloudfrontiface.CloudFrontAPI
	distributionID string
	log            zerolog.Logger
}

// NewCloudFront builds a CloudFront invalidator. Static keys are used when
// provided, otherwise the SDK's default credential chain.
func NewCloudFront(cfg CloudFrontConfig) (*CloudFront, error) {
	if cfg.DistributionID == "" {
		return nil, fmt.Errorf("cloudfront distribution id must be provided")
	}

	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken))
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("aws session init failed: %w", err)
	}

	return NewCloudFrontWithAPI(cloudfront.New(sess), cfg.DistributionID), nil
}

// NewCloudFrontWithAPI wraps an existing CloudFront API client.
func NewCloudFrontWithAPI(api cloudfrontiface.CloudFrontAPI, distributionID string) *CloudFront {
	return &CloudFront{
		api:            api,
		distributionID: distributionID,
		log:            logger.Component("cloudfront"),
	}
}

// Invalidate requests an invalidation for paths. No paths means no request.
func (c *CloudFront) Invalidate(ctx context.Context, paths []string) (string, error) {
	paths = collapse(paths)
	if len(paths) == 0 {
		return "", nil
	}

	ref := fmt.Sprintf("mediasync-%s-%s", time.Now().UTC().Format("20060102T150405"), uuid.NewString())
	out, err := c.api.CreateInvalidationWithContext(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(c.distributionID),
		InvalidationBatch: &cloudfront.InvalidationBatch{
			CallerReference: aws.String(ref),
			Paths: &cloudfront.Paths{
				Quantity: aws.Int64(int64(len(paths))),
				Items:    aws.StringSlice(paths),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("create invalidation for %s: %w", c.distributionID, err)
	}

	var id string
	if out.Invalidation != nil {
		id = aws.StringValue(out.Invalidation.Id)
	}
	c.log.Info().
		Str("distribution", c.distributionID).
		Str("invalidation", id).
		Int("paths", len(paths)).
		Bool("wildcard", len(paths) == 1 && strings.HasSuffix(paths[0], "*")).
		Msg("invalidation created")
	return id, nil
}

var _ Invalidator = (*CloudFront)(nil)
