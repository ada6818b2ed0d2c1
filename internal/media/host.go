// Package media integrates the third-party media host that stores video
// files, thumbnails, and profile images. The contract is deliberately small:
// accept a staged local file, return a hosted URL and public id, and never
// leave the local temp file behind, whether the upload succeeded or not.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/config"
	"github.com/cliptube/backend/internal/logging"
)

// Asset describes a file hosted by the media store.
type Asset struct {
	URL      string
	PublicID string
	Size     int64
}

type uploadAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Host uploads local files to an S3-compatible object store.
type Host struct {
	uploader uploadAPI
	bucket   string
	baseURL  string
}

// NewHost configures an uploader targeting the provided object store.
func NewHost(ctx context.Context, cfg config.ObjectStoreConfig) (*Host, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("media host: bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if strings.TrimSpace(cfg.Endpoint) != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					URL:           cfg.Endpoint,
					SigningRegion: cfg.Region,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		loadOpts = append(loadOpts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
		u.LeavePartsOnError = false
	})

	return &Host{
		uploader: uploader,
		bucket:   cfg.Bucket,
		baseURL:  strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

// Upload pushes the staged file at localPath to the object store and returns
// the hosted asset. The local file is removed before returning on every path.
func (h *Host) Upload(ctx context.Context, localPath string) (Asset, error) {
	ctx, span := logging.StartSpan(ctx, "media.upload")
	defer span.End()

	defer func() {
		if err := os.Remove(localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.FromContext(ctx).Warn("remove staged upload", "path", localPath, "error", err)
		}
	}()

	file, err := os.Open(localPath)
	if err != nil {
		return Asset{}, fmt.Errorf("open staged upload: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Asset{}, fmt.Errorf("stat staged upload: %w", err)
	}

	publicID := uuid.NewString() + strings.ToLower(filepath.Ext(localPath))

	if _, err := h.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(publicID),
		Body:   manager.ReadSeekCloser(file),
		ACL:    s3types.ObjectCannedACLPublicRead,
	}); err != nil {
		return Asset{}, fmt.Errorf("media host upload %s: %w", publicID, err)
	}

	url := publicID
	if h.baseURL != "" {
		url = fmt.Sprintf("%s/%s", h.baseURL, publicID)
	}

	return Asset{URL: url, PublicID: publicID, Size: info.Size()}, nil
}
