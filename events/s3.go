package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Archive writes each envelope as its own JSON object to an S3 bucket
// or a compatible service. Object keys are derived from the sequence number
// so a replay of the archive lists events in order.
type S3Archive struct {
	client s3iface.S3API
	bucket string
	prefix string
	log    *slog.Logger
}

// S3Config holds the connection settings of an S3Archive.
type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewS3Archive creates an archive from connection settings. Without static
// credentials the default AWS credential chain is used.
func NewS3Archive(cfg S3Config, log *slog.Logger) (*S3Archive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	awsCfg := aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(&awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return NewS3ArchiveWithClient(s3.New(sess), cfg.Bucket, cfg.Prefix, log), nil
}

// NewS3ArchiveWithClient creates an archive on top of an existing client.
func NewS3ArchiveWithClient(client s3iface.S3API, bucket, prefix string, log *slog.Logger) *S3Archive {
	return &S3Archive{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		log:    log,
	}
}

// Deliver uploads the envelope.
func (a *S3Archive) Deliver(ctx context.Context, env Envelope) error {
	start := time.Now()
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	key := a.ObjectKey(env.Seq)
	_, err = a.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		a.log.Error("Failed to archive event",
			slog.String("bucket", a.bucket),
			slog.String("key", key),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return fmt.Errorf("failed to upload event to S3: %w", err)
	}

	a.log.Debug("Archived event",
		slog.String("bucket", a.bucket),
		slog.String("key", key),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Fetch reads back the archived envelope with the given sequence number.
func (a *S3Archive) Fetch(ctx context.Context, seq uint64) (Envelope, error) {
	key := a.ObjectKey(seq)
	result, err := a.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return Envelope{}, fmt.Errorf("%w: %s", ErrNotArchived, key)
		}
		return Envelope{}, fmt.Errorf("failed to get event from S3: %w", err)
	}
	defer result.Body.Close()

	var raw RawEnvelope
	if err := json.NewDecoder(result.Body).Decode(&raw); err != nil {
		return Envelope{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return raw.Decode()
}

// Available checks whether the bucket can be reached.
func (a *S3Archive) Available(ctx context.Context) bool {
	_, err := a.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		a.log.Warn("S3 event archive unavailable", slog.String("bucket", a.bucket), "err", err)
		return false
	}
	return true
}

// LastArchivedSeq lists the objects under the prefix and returns the highest
// sequence number among them.
func (a *S3Archive) LastArchivedSeq(ctx context.Context) (uint64, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
	}
	if a.prefix != "" {
		input.Prefix = aws.String(a.prefix + "/")
	}

	var last uint64
	err := a.client.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, object := range page.Contents {
			if seq, ok := seqFromName(path.Base(aws.StringValue(object.Key))); ok {
				last = max(last, seq)
			}
		}
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list events in S3: %w", err)
	}
	return last, nil
}

// ObjectKey returns the key under which the envelope with seq is stored.
func (a *S3Archive) ObjectKey(seq uint64) string {
	name := fmt.Sprintf("%020d.json", seq)
	if a.prefix == "" {
		return name
	}
	return path.Join(a.prefix, name)
}

func (a *S3Archive) Name() string {
	return fmt.Sprintf("s3-%s", a.bucket)
}
