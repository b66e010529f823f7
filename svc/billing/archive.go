package billing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrymomot/billsync/pkg/logger"
	"github.com/dmitrymomot/billsync/pkg/subscription"
)

// S3Client is the part of *s3.Client used by the archive.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive stores the raw payload of every verified webhook event.
type S3Archive struct {
	client S3Client
	bucket string
	prefix string
	log    *slog.Logger
}

// NewS3Archive builds an S3 client from cfg.
func NewS3Archive(ctx context.Context, cfg ArchiveConfig, log *slog.Logger) (*S3Archive, error) {
	if !cfg.Enabled() {
		return nil, ErrArchiveBucket
	}

	awsOptions := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsOptions = append(awsOptions, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, awsOptions...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3ArchiveWithClient(client, cfg, log), nil
}

// NewS3ArchiveWithClient uses an existing client. Panics if client is nil.
func NewS3ArchiveWithClient(client S3Client, cfg ArchiveConfig, log *slog.Logger) *S3Archive {
	if client == nil {
		panic("billing: s3 client cannot be nil")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &S3Archive{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		log:    log.With(logger.Component("event_archive")),
	}
}

// Key returns the object key for evt: <prefix>/<type>/<yyyy>/<mm>/<dd>/<id>.json.
func (a *S3Archive) Key(evt *subscription.Event) string {
	created := evt.Created.UTC()
	return path.Join(
		a.prefix,
		string(evt.Type),
		created.Format("2006"),
		created.Format("01"),
		created.Format("02"),
		evt.ID+".json",
	)
}

// Archive uploads payload.
func (a *S3Archive) Archive(ctx context.Context, evt *subscription.Event, payload []byte) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.Key(evt)),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"event-id":   evt.ID,
			"event-type": string(evt.Type),
		},
	})
	if err != nil {
		return errors.Join(ErrArchiveUpload, err)
	}
	return nil
}

// Hook archives each verified event. Failures are logged and never
// block processing.
func (a *S3Archive) Hook() subscription.VerifiedHook {
	return func(ctx context.Context, evt *subscription.Event, payload []byte) {
		if err := a.Archive(ctx, evt, payload); err != nil {
			a.log.WarnContext(ctx, "webhook event not archived",
				logger.Event(evt.ID),
				logger.EventType(string(evt.Type)),
				logger.Error(err),
			)
		}
	}
}
