package upload

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

const (
	// Bucket receives every generated image.
	Bucket = "output_images"
	// multipartThreshold is the payload size at which the single PutObject
	// path stops being worth it.
	multipartThreshold = 5 * 1024 * 1024
	// partSize is the fixed multipart chunk size (the S3 minimum).
	partSize = 5 * 1024 * 1024
	// presignTTL is the fixed validity window of issued retrieval URLs.
	presignTTL = 604800 * time.Second
)

// Credentials identify one S3-compatible endpoint for the duration of a
// single request. They are never cached across requests.
type Credentials struct {
	EndpointURL     string
	AccessKeyID     string
	SecretAccessKey string
}

// objectStore is the subset of the S3 client the uploader needs.
type objectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// presigner issues presigned GET URLs.
type presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Uploader publishes generated images to object storage and returns
// time-limited retrieval URLs. The client factory is injectable so tests can
// simulate the storage backend without network calls.
type Uploader struct {
	logger    zerolog.Logger
	newClient func(ctx context.Context, creds Credentials) (objectStore, presigner, error)
}

// NewUploader builds an Uploader that talks to real S3-compatible storage.
func NewUploader(logger zerolog.Logger) *Uploader {
	return &Uploader{logger: logger, newClient: newS3Client}
}

func newS3Client(ctx context.Context, creds Credentials) (objectStore, presigner, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			creds.AccessKeyID,
			creds.SecretAccessKey,
			"",
		)),
	}
	if region := ExtractRegion(creds.EndpointURL); region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, nil, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(creds.EndpointURL)
		o.UsePathStyle = true
	})
	return client, s3.NewPresignClient(client), nil
}

// ExtractRegion guesses the storage region from the endpoint URL. It is a
// best-effort heuristic: an empty result means the provider default applies,
// and never blocks an upload.
func ExtractRegion(endpointURL string) string {
	if endpointURL == "" {
		return ""
	}
	if _, after, found := strings.Cut(endpointURL, ".s3."); found {
		return strings.SplitN(after, ".", 2)[0]
	}
	parsed, err := url.Parse(endpointURL)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(parsed.Host, ".digitaloceanspaces.com") {
		parts := strings.Split(parsed.Host, ".")
		if len(parts) >= 3 {
			return parts[len(parts)-3]
		}
	}
	return ""
}

// ObjectKey synthesizes a collision-resistant object name from the current
// timestamp and a random 4-digit suffix, e.g. "1700000000_4821.png".
func ObjectKey() string {
	return fmt.Sprintf("%d_%04d.png", time.Now().Unix(), 1000+rand.Intn(9000))
}

// Publish uploads data under a fresh object key and returns a presigned GET
// URL valid for seven days. Payloads under 5 MiB go up in a single
// PutObject; anything larger is chunked sequentially on the calling
// goroutine so uploads never compete with the generation workload for
// threads.
func (u *Uploader) Publish(ctx context.Context, creds Credentials, data []byte) (string, error) {
	store, presign, err := u.newClient(ctx, creds)
	if err != nil {
		return "", fmt.Errorf("building storage client: %w", err)
	}

	key := ObjectKey()
	start := time.Now()
	if len(data) < multipartThreshold {
		err = u.putSingle(ctx, store, key, data)
	} else {
		err = u.putMultipart(ctx, store, key, data)
	}
	if err != nil {
		return "", err
	}
	u.logger.Info().Str("key", key).Int("bytes", len(data)).Dur("elapsed", time.Since(start)).Msg("image uploaded")

	req, err := presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return "", fmt.Errorf("presigning retrieval url: %w", err)
	}
	return req.URL, nil
}

func (u *Uploader) putSingle(ctx context.Context, store objectStore, key string, data []byte) error {
	_, err := store.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("uploading object: %w", err)
	}
	return nil
}

func (u *Uploader) putMultipart(ctx context.Context, store objectStore, key string, data []byte) error {
	created, err := store.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("starting multipart upload: %w", err)
	}

	var completed []types.CompletedPart
	for i, offset := 0, 0; offset < len(data); i, offset = i+1, offset+partSize {
		end := offset + partSize
		if end > len(data) {
			end = len(data)
		}
		partNumber := int32(i + 1)
		part, err := store.UploadPart(ctx, &s3.UploadPartInput{
			Bucket:     aws.String(Bucket),
			Key:        aws.String(key),
			UploadId:   created.UploadId,
			PartNumber: aws.Int32(partNumber),
			Body:       bytes.NewReader(data[offset:end]),
		})
		if err != nil {
			_, _ = store.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
				Bucket:   aws.String(Bucket),
				Key:      aws.String(key),
				UploadId: created.UploadId,
			})
			return fmt.Errorf("uploading part %d: %w", partNumber, err)
		}
		completed = append(completed, types.CompletedPart{
			ETag:       part.ETag,
			PartNumber: aws.Int32(partNumber),
		})
	}

	_, err = store.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(Bucket),
		Key:      aws.String(key),
		UploadId: created.UploadId,
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		return fmt.Errorf("completing multipart upload: %w", err)
	}
	return nil
}
