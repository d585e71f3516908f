package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const voiceClipPrefix = "voice-clips/"

// Presigner is the subset of *s3.PresignClient used for voice clips.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// VoiceClipService hands out presigned S3 URLs for voice message audio. The
// resulting object key travels as a message's AudioKey.
type VoiceClipService struct {
	presigner Presigner
	bucket    string
	expires   time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

func NewVoiceClipService(cfg aws.Config, bucket string, logger zerolog.Logger) *VoiceClipService {
	return NewVoiceClipServiceWithPresigner(s3.NewPresignClient(s3.NewFromConfig(cfg)), bucket, logger)
}

func NewVoiceClipServiceWithPresigner(p Presigner, bucket string, logger zerolog.Logger) *VoiceClipService {
	return &VoiceClipService{
		presigner: p,
		bucket:    bucket,
		expires:   5 * time.Minute,
		now:       time.Now,
		logger:    logger,
	}
}

// UploadURL returns a presigned PUT URL and the object key for a new clip in
// matchID. Only audio content types are accepted.
func (s *VoiceClipService) UploadURL(ctx context.Context, matchID, fileName, contentType string) (string, string, error) {
	if matchID == "" || fileName == "" {
		return "", "", fmt.Errorf("%w: matchId and fileName are required", ErrInvalidMessage)
	}
	if !strings.HasPrefix(contentType, "audio/") {
		return "", "", fmt.Errorf("%w: content type %q is not audio", ErrInvalidMessage, contentType)
	}

	key := voiceClipPrefix + matchID + "/" + s.now().UTC().Format("20060102150405") + "-" + uuid.NewString()[:8] + "-" + path.Base(fileName)
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.expires))
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("❌ failed to presign upload")
		return "", "", fmt.Errorf("presign upload: %w", err)
	}

	s.logger.Debug().Str("key", key).Msg("🎙️ upload url issued")
	return req.URL, key, nil
}

// ReadURL returns a presigned GET URL for a clip key issued by UploadURL.
func (s *VoiceClipService) ReadURL(ctx context.Context, key string) (string, error) {
	if !strings.HasPrefix(key, voiceClipPrefix) || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q is not a voice clip key", ErrInvalidMessage, key)
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expires))
	if err != nil {
		return "", fmt.Errorf("presign read: %w", err)
	}
	return req.URL, nil
}
