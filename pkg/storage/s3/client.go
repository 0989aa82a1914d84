package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/peakrent/peakrent-backend/pkg/config"
	"github.com/peakrent/peakrent-backend/pkg/logger"
)

const pingTimeout = 5 * time.Second

type uploader interface {
	Upload(ctx context.Context, input *awss3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type objectAPI interface {
	HeadBucket(ctx context.Context, params *awss3.HeadBucketInput, optFns ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error)
	DeleteObject(ctx context.Context, params *awss3.DeleteObjectInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
}

// Uploader is the storage surface the catalog image flow depends on.
type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Client stores product images in a single S3 bucket.
type Client struct {
	uploader      uploader
	api           objectAPI
	bucket        string
	publicBaseURL string
}

// NewClient loads the default AWS credential chain and builds an upload manager.
func NewClient(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3 bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	api := awss3.NewFromConfig(awsCfg)
	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("s3 client initialized (bucket=%s region=%s)", cfg.Bucket, cfg.Region))
	}
	return newClient(manager.NewUploader(api), api, cfg), nil
}

func newClient(up uploader, api objectAPI, cfg config.StorageConfig) *Client {
	return &Client{
		uploader:      up,
		api:           api,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// Upload streams body to key and returns the public URL of the object.
func (c *Client) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("object key is required")
	}
	input := &awss3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	result, err := c.uploader.Upload(ctx, input)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	if c.publicBaseURL != "" {
		return c.publicBaseURL + "/" + key, nil
	}
	return result.Location, nil
}

// Delete removes an object. Missing objects are not an error in S3.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Ping checks that the bucket exists and is reachable with the loaded credentials.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	_, err := c.api.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	return err
}

var unsafeKeyChars = regexp.MustCompile(`[^a-z0-9._-]+`)

// ProductImageKey builds the object key for an uploaded product image.
func ProductImageKey(productID uuid.UUID, filename string, now time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	base := strings.ToLower(strings.TrimSuffix(path.Base(filename), path.Ext(filename)))
	base = strings.Trim(unsafeKeyChars.ReplaceAllString(base, "-"), "-")
	if base == "" {
		base = "image"
	}
	return fmt.Sprintf("products/%s/%s-%s%s", productID, now.UTC().Format("20060102150405"), base, unsafeKeyChars.ReplaceAllString(ext, ""))
}
