package artifact

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds configuration for S3-compatible artifact storage.
// Works with AWS S3, Cloudflare R2, and MinIO endpoints.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// Opener resolves artifact references to readable streams. References are
// either local filesystem paths or "s3://bucket/key" URIs. The catalog and
// embedding artifacts are fetched exactly once, before initialization; the
// serving path never touches the opener.
type Opener struct {
	cfg    *S3Config
	client *s3.Client
}

// NewOpener creates an artifact opener.
// Parameters:
//   - cfg: S3 configuration; nil restricts the opener to local paths.
// Returns:
//   - *Opener: initialized opener. The S3 client is created lazily on the
//     first s3:// reference so local-only deployments need no credentials.
func NewOpener(cfg *S3Config) *Opener {
	return &Opener{cfg: cfg}
}

// Open returns a reader over the referenced artifact.
// Parameters:
//   - ctx: context for the S3 fetch.
//   - ref: local path or s3://bucket/key URI.
// Returns:
//   - io.ReadCloser: artifact stream; caller closes.
//   - error: non-nil if the artifact cannot be opened.
func (o *Opener) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if bucket, key, ok := parseS3Ref(ref); ok {
		return o.openS3(ctx, bucket, key)
	}

	f, err := os.Open(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact %s: %w", ref, err)
	}
	return f, nil
}

func (o *Opener) openS3(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	if o.cfg == nil {
		return nil, fmt.Errorf("s3 artifact %s/%s requested but no storage configured", bucket, key)
	}

	if o.client == nil {
		client, err := newS3Client(o.cfg)
		if err != nil {
			return nil, err
		}
		o.client = client
	}

	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artifact s3://%s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}

// newS3Client creates an S3 client for S3-compatible services.
func newS3Client(cfg *S3Config) (*s3.Client, error) {
	endpoint := normalizeEndpoint(cfg.Endpoint)

	region := cfg.Region
	if region == "" {
		region = "us-east-1" // Default region for S3-compatible services
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			scheme := "http"
			if cfg.UseSSL {
				scheme = "https"
			}
			o.BaseEndpoint = aws.String(fmt.Sprintf("%s://%s", scheme, endpoint))
			o.UsePathStyle = true // Use path-style for S3-compatible services
		}
	})

	return client, nil
}

// parseS3Ref splits an s3://bucket/key reference.
func parseS3Ref(ref string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(ref, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// normalizeEndpoint removes protocol prefix and path from endpoint
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")

	if idx := strings.Index(endpoint, "/"); idx != -1 {
		endpoint = endpoint[:idx]
	}

	return strings.TrimSuffix(endpoint, "/")
}
