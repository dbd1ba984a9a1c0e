package coldtier

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/cottontaildb/cottontail"
)

// S3Overflow is the destination the flusher exports archive segments to
// after each run that archived rows (§10, §11 "S3 is the tier beneath
// DuckDB"); cfg.S3RollThresholdMB is not consulted.
type S3Overflow struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Overflow builds an S3 client from cfg using the AWS SDK's default
// credential chain, or the supplied static keys when present.
func NewS3Overflow(ctx context.Context, cfg cottontail.ColdTierConfig, accessKey, secretKey, region string) (*S3Overflow, error) {
	if cfg.S3Bucket == "" {
		return nil, cottontail.NewBindError(cottontail.CodeMissingField, "coldtier: s3 overflow requires a bucket")
	}

	var optFns []func(*awsconfig.LoadOptions) error
	if region != "" {
		optFns = append(optFns, awsconfig.WithRegion(region))
	}
	if accessKey != "" && secretKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, cottontail.NewIoError("load aws config for s3 overflow").WithCause(err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Overflow{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.S3Bucket,
		prefix:   cfg.S3Prefix,
	}, nil
}

// Upload streams the local archive segment at filePath to the overflow
// bucket under segmentFileName, using the SDK's multipart uploader so
// segments larger than a single PutObject can still be shipped in one
// call (§10, §11).
func (o *S3Overflow) Upload(ctx context.Context, filePath, segmentFileName string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return cottontail.NewIoError("open archive segment for s3 upload").WithCause(err).WithDetail("path", filePath)
	}
	defer f.Close()

	key := o.Key(segmentFileName)
	if _, err := o.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
		Body:   f,
	}); err != nil {
		return cottontail.NewIoError("s3 archive segment upload failed").WithCause(err).WithDetail("key", key)
	}
	return nil
}

// HealthCheck verifies the configured bucket is reachable and, per the
// SDK's default retry policy, that credentials resolve (§9.1: surfaced as
// an IoError, never logged on a hot path).
func (o *S3Overflow) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := o.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(o.bucket)})
	if err != nil {
		return cottontail.NewIoError("s3 overflow bucket unreachable").WithCause(err).WithDetail("bucket", o.bucket)
	}
	return nil
}

// Key builds the object key for an archive segment file name under the
// configured prefix.
func (o *S3Overflow) Key(segmentFileName string) string {
	if o.prefix == "" {
		return segmentFileName
	}
	return o.prefix + "/" + segmentFileName
}
