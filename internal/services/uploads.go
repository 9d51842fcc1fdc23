package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const uploadURLExpiry = time.Hour

// UploadService mints pre-signed S3 PUT URLs so clients upload media
// directly; the API never proxies file bytes.
type UploadService struct {
	presigner *s3.PresignClient
	bucket    string
	region    string
}

func NewUploadService(ctx context.Context, region, bucket string) (*UploadService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &UploadService{
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		region:    region,
	}, nil
}

type PresignedUpload struct {
	UploadURL string `json:"upload_url"`
	FileURL   string `json:"file_url"`
}

// PresignUpload returns a one-hour upload URL and the object's eventual
// public URL. Keys are uuid-prefixed so repeated file names cannot collide.
func (s *UploadService) PresignUpload(ctx context.Context, fileName string) (*PresignedUpload, error) {
	key := fmt.Sprintf("%s_%s", uuid.New(), fileName)

	request, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(uploadURLExpiry))
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &PresignedUpload{
		UploadURL: request.URL,
		FileURL:   fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key),
	}, nil
}
