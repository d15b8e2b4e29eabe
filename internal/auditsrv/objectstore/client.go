// Package objectstore wraps the S3-compatible object storage API used for
// per-client evidence buckets. It exposes only the bucket lifecycle
// operations the provisioner needs: existence check, creation, recursive
// purge, and removal.
package objectstore

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"

	"github.com/attestra/attestra/internal/auditsrv/config"
	"github.com/attestra/attestra/internal/common/apperrors"
)

// Client provides bucket lifecycle operations against an S3-compatible
// endpoint.
type Client struct {
	s3     *s3.Client
	region string
}

// New builds a Client from the object store configuration.
func New(ctx context.Context, osCfg config.ObjectStoreConfig) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(osCfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(osCfg.AccessKey, osCfg.SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = osCfg.UsePathStyle
		if osCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(osCfg.Endpoint)
		}
	})

	return &Client{s3: client, region: osCfg.Region}, nil
}

// BucketExists reports whether the named bucket exists.
func (c *Client) BucketExists(ctx context.Context, name string) (bool, apperrors.Error) {
	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(name)})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, ErrObjectStore.MsgErr("unable to check bucket", err)
	}
	return true, nil
}

// EnsureBucket creates the named bucket if it does not already exist.
func (c *Client) EnsureBucket(ctx context.Context, name string) apperrors.Error {
	exists, aerr := c.BucketExists(ctx, name)
	if aerr != nil {
		return aerr
	}
	if exists {
		log.Ctx(ctx).Info().Str("bucket", name).Msg("bucket already exists")
		return nil
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(name)}
	// us-east-1 rejects an explicit location constraint
	if c.region != "" && c.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.region),
		}
	}

	if _, err := c.s3.CreateBucket(ctx, input); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return ErrObjectStore.MsgErr("unable to create bucket", err)
	}
	return nil
}

// PurgeBucket deletes every object in the named bucket. A bucket that
// does not exist is treated as already purged.
func (c *Client) PurgeBucket(ctx context.Context, name string) apperrors.Error {
	exists, aerr := c.BucketExists(ctx, name)
	if aerr != nil {
		return aerr
	}
	if !exists {
		return nil
	}

	paginator := s3.NewListObjectsV2Paginator(c.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(name),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return ErrObjectStore.MsgErr("unable to list bucket objects", err)
		}
		if len(page.Contents) == 0 {
			continue
		}

		objects := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			objects = append(objects, types.ObjectIdentifier{Key: obj.Key})
		}

		_, err = c.s3.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(name),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return ErrObjectStore.MsgErr("unable to delete bucket objects", err)
		}
	}
	return nil
}

// RemoveBucket deletes the named bucket. The bucket must be empty; callers
// purge first. A bucket that does not exist is treated as already removed.
func (c *Client) RemoveBucket(ctx context.Context, name string) apperrors.Error {
	_, err := c.s3.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(name)})
	if err != nil {
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noBucket) {
			return nil
		}
		return ErrObjectStore.MsgErr("unable to remove bucket", err)
	}
	return nil
}
