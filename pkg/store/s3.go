// Copyright 2025 zhengshuai.xiao@outlook.com
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/zhengshuai-xiao/xbackup/internal/compression"
)

// chunkKey is the object key of a chunk in a bucket.
func chunkKey(d Digest) string {
	return fmt.Sprintf("chunks/%s/%s", d.prefix(), d.String())
}

// S3Store keeps chunks as objects in an S3 compatible bucket via minio-go.
type S3Store struct {
	client *miniogo.Core
	bucket string
	comp   compression.Compressor
}

func NewS3Store(ctx context.Context, conf *Config, comp compression.Compressor) (*S3Store, error) {
	core, err := miniogo.NewCore(conf.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(conf.AccessKey, conf.SecretKey, ""),
		Secure: conf.Secure,
		Region: conf.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client for %s: %w", conf.Endpoint, err)
	}
	s := &S3Store{client: core, bucket: conf.Bucket, comp: comp}
	if err := s.ensureBucket(ctx, conf.Region); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *S3Store) ensureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, miniogo.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	logger.Infof("bucket %s created", s.bucket)
	return nil
}

func (s *S3Store) Name() string {
	return "s3:" + s.client.EndpointURL().Host + "/" + s.bucket
}

func isNoSuchKey(err error) bool {
	code := miniogo.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func (s *S3Store) Insert(ctx context.Context, d Digest, data []byte) (bool, int64, error) {
	key := chunkKey(d)
	if _, err := s.client.StatObject(ctx, s.bucket, key, miniogo.StatObjectOptions{}); err == nil {
		return true, 0, nil
	} else if !isNoSuchKey(err) {
		return false, 0, fmt.Errorf("failed to stat chunk %s: %w", d, err)
	}

	blob, err := EncodeBlob(s.comp, data)
	if err != nil {
		return false, 0, err
	}
	md5sum := md5.Sum(blob)
	shasum := sha256.Sum256(blob)
	opts := miniogo.PutObjectOptions{ContentType: "application/octet-stream"}
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(blob), int64(len(blob)),
		base64.StdEncoding.EncodeToString(md5sum[:]), hex.EncodeToString(shasum[:]), opts)
	if err != nil {
		return false, 0, fmt.Errorf("failed to upload chunk %s: %w", d, err)
	}
	return false, int64(len(blob)), nil
}

func (s *S3Store) Get(ctx context.Context, d Digest) ([]byte, error) {
	rc, _, _, err := s.client.GetObject(ctx, s.bucket, chunkKey(d), miniogo.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%w: %s", ErrChunkNotFound, d)
		}
		return nil, fmt.Errorf("failed to get chunk %s: %w", d, err)
	}
	defer rc.Close()

	blob, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk %s: %w", d, err)
	}
	data, err := DecodeBlob(blob)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", d, err)
	}
	return data, nil
}

func (s *S3Store) Close() error {
	return nil
}
