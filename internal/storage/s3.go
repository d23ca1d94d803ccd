package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"jukebox/internal/config"
	"jukebox/internal/services"
)

// S3Provider serves objects from an S3 compatible bucket. Keys are relative
// to the configured prefix.
type S3Provider struct {
	api    s3iface.S3API
	bucket string
	prefix string
}

// NewS3Provider builds a provider from the storage configuration. Static
// credentials are used when configured; otherwise the default AWS chain applies.
func NewS3Provider(cfg config.Storage) (*S3Provider, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "s3", "storage.bucket is required", nil)
	}
	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""))
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "s3", "create aws session", err)
	}
	return NewS3ProviderWithClient(s3.New(sess), cfg.Bucket, cfg.Prefix), nil
}

// NewS3ProviderWithClient wraps an existing S3 client.
func NewS3ProviderWithClient(api s3iface.S3API, bucket, prefix string) *S3Provider {
	return &S3Provider{api: api, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Name identifies the backend in logs.
func (s *S3Provider) Name() string { return "s3" }

func (s *S3Provider) objectKey(key string) (string, error) {
	cleaned, ok := cleanKey(key)
	if !ok {
		return "", services.Wrap(services.ErrValidation, "storage", "s3", fmt.Sprintf("invalid file reference %q", key), nil)
	}
	if s.prefix == "" {
		return cleaned, nil
	}
	return s.prefix + "/" + cleaned, nil
}

// List returns audio keys under prefix, relative to the configured prefix.
func (s *S3Provider) List(ctx context.Context, prefix string) ([]string, error) {
	full := strings.Trim(path.Join(s.prefix, prefix), "/")
	if s.prefix != "" && prefix == "" {
		full += "/"
	}
	var keys []string
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(full),
	}
	err := s.api.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, item := range page.Contents {
			key := aws.StringValue(item.Key)
			if !IsAudioFile(key) {
				continue
			}
			if s.prefix != "" {
				key = strings.TrimPrefix(key, s.prefix+"/")
			}
			keys = append(keys, key)
		}
		return true
	})
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "storage", "s3 list", s.bucket, err)
	}
	return keys, nil
}

// Open streams the object at key.
func (s *S3Provider) Open(ctx context.Context, key string) (*Object, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return nil, err
	}
	out, err := s.api.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, services.Wrap(services.ErrNotFound, "storage", "s3 get", objectKey, err)
		}
		return nil, services.Wrap(services.ErrTransient, "storage", "s3 get", objectKey, err)
	}
	return &Object{
		Body:         out.Body,
		Size:         aws.Int64Value(out.ContentLength),
		LastModified: aws.TimeValue(out.LastModified),
	}, nil
}

// Exists reports whether an object is stored at key.
func (s *S3Provider) Exists(ctx context.Context, key string) (bool, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return false, err
	}
	_, err = s.api.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err == nil {
		return true, nil
	}
	if isS3NotFound(err) {
		return false, nil
	}
	return false, services.Wrap(services.ErrTransient, "storage", "s3 head", objectKey, err)
}

func isS3NotFound(err error) bool {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}

// Ping verifies the bucket exists and the credentials can reach it.
func (s *S3Provider) Ping(ctx context.Context) error {
	_, err := s.api.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return services.Wrap(services.ErrTransient, "storage", "s3 head bucket", s.bucket, err)
	}
	return nil
}
