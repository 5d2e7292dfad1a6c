package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/zhengshuai-xiao/xbackup/internal/compression"
)

// AWSStore is the S3 backend built on the AWS SDK, for endpoints where the
// SDK's signing and retry behaviour is preferred over minio-go.
type AWSStore struct {
	client *s3.Client
	bucket string
	comp   compression.Compressor
}

func NewAWSStore(ctx context.Context, conf *Config, comp compression.Compressor) (*AWSStore, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(conf.Region),
		config.WithRetryMaxAttempts(conf.Retries),
	}
	if conf.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(conf.AccessKey, conf.SecretKey, "")))
	}
	if conf.Endpoint != "" {
		endpoint := conf.Endpoint
		if !strings.Contains(endpoint, "://") {
			if conf.Secure {
				endpoint = "https://" + endpoint
			} else {
				endpoint = "http://" + endpoint
			}
		}
		opts = append(opts, config.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				if service == s3.ServiceID {
					return aws.Endpoint{
						URL:           endpoint,
						SigningRegion: region,
					}, nil
				}
				return aws.Endpoint{}, fmt.Errorf("unknown endpoint requested")
			}),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return &AWSStore{client: client, bucket: conf.Bucket, comp: comp}, nil
}

func (a *AWSStore) Name() string {
	return "aws:" + a.bucket
}

func isAWSNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

func (a *AWSStore) Insert(ctx context.Context, d Digest, data []byte) (bool, int64, error) {
	key := chunkKey(d)
	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, 0, nil
	}
	if !isAWSNotFound(err) {
		return false, 0, fmt.Errorf("failed to head chunk %s: %w", d, err)
	}

	blob, err := EncodeBlob(a.comp, data)
	if err != nil {
		return false, 0, err
	}
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(blob),
		ContentLength: aws.Int64(int64(len(blob))),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return false, 0, fmt.Errorf("failed to upload chunk %s: %w", d, err)
	}
	return false, int64(len(blob)), nil
}

func (a *AWSStore) Get(ctx context.Context, d Digest) ([]byte, error) {
	resp, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(chunkKey(d)),
	})
	if err != nil {
		if isAWSNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrChunkNotFound, d)
		}
		return nil, fmt.Errorf("failed to get chunk %s: %w", d, err)
	}
	defer resp.Body.Close()

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk %s: %w", d, err)
	}
	data, err := DecodeBlob(blob)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", d, err)
	}
	return data, nil
}

func (a *AWSStore) Close() error {
	return nil
}
