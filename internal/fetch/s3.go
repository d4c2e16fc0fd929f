package fetch

import (
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/rescale/ncbi-refdl/internal/catalog"
	"github.com/rescale/ncbi-refdl/internal/constants"
	inthttp "github.com/rescale/ncbi-refdl/internal/http"
	"github.com/rescale/ncbi-refdl/internal/logging"
)

// S3Options locates a catalog mirror in S3 or an S3-compatible store.
type S3Options struct {
	Bucket     string
	Prefix     string
	Region     string
	Endpoint   string // custom endpoint; enables path-style addressing
	MaxRetries int
}

// S3Source reads catalogs from {bucket}/{prefix}/{taxon}/assembly_summary.txt.
type S3Source struct {
	client *s3.Client
	opts   S3Options
	logger *logging.Logger
}

// NewS3Source creates an S3 client over the proxy-configured httpClient.
// Static keys from the environment take precedence over the AWS default
// credential chain.
func NewS3Source(ctx context.Context, opts S3Options, httpClient *nethttp.Client, logger *logging.Logger) (*S3Source, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithHTTPClient(httpClient),
	}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	accessKey := os.Getenv(constants.EnvS3AccessKeyID)
	secretKey := os.Getenv(constants.EnvS3SecretAccessKey)
	if accessKey != "" && secretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Source{client: client, opts: opts, logger: logger}, nil
}

// Describe implements Source.
func (s *S3Source) Describe(taxon catalog.Taxon) string {
	return "s3://" + s.opts.Bucket + "/" + objectKey(s.opts.Prefix, taxon)
}

// Open implements Source.
func (s *S3Source) Open(ctx context.Context, taxon catalog.Taxon) (io.ReadCloser, int64, error) {
	key := objectKey(s.opts.Prefix, taxon)

	var resp *s3.GetObjectOutput
	err := inthttp.ExecuteWithRetry(ctx, retryConfig(s.opts.MaxRetries, s.Describe(taxon), s.logger), func() error {
		r, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.opts.Bucket),
			Key:    aws.String(key),
		})
		resp = r
		return err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get s3://%s/%s: %w", s.opts.Bucket, key, err)
	}

	size := int64(-1)
	if resp.ContentLength != nil {
		size = *resp.ContentLength
	}
	return resp.Body, size, nil
}
