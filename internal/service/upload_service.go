package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"stratolift/internal/media/sniffer"
	"stratolift/internal/storage"
)

// MaxUploadBytes caps a single attachment.
const MaxUploadBytes = 50 << 20

var ErrUnsupportedMedia = errors.New("unsupported media type")

type UploadInput struct {
	UserID string
	File   io.Reader
}

type UploadResult struct {
	URL      string
	PublicID string
	MIME     string
	Size     int
}

type UploadService struct {
	blobs storage.BlobStore
	log   zerolog.Logger
	now   func() time.Time
}

func NewUploadService(blobs storage.BlobStore, log zerolog.Logger) *UploadService {
	return &UploadService{blobs: blobs, log: log, now: time.Now}
}

// Upload stores a photo or video. The type is taken from the data, never
// from the declared header.
func (s *UploadService) Upload(ctx context.Context, input UploadInput) (UploadResult, error) {
	if input.File == nil {
		return UploadResult{}, invalid("No file uploaded")
	}

	data, err := io.ReadAll(io.LimitReader(input.File, MaxUploadBytes+1))
	if err != nil {
		return UploadResult{}, fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return UploadResult{}, invalid("No file uploaded")
	}
	if len(data) > MaxUploadBytes {
		return UploadResult{}, invalid("File is too large")
	}

	result, err := sniffer.DetectHead(data)
	if err != nil || (result.Kind != sniffer.KindImage && result.Kind != sniffer.KindVideo) {
		return UploadResult{}, ErrUnsupportedMedia
	}

	publicID := "stratolift/" + uuid.NewString()
	objectKey := s.buildObjectKey(publicID, string(result.Type))

	url, err := s.blobs.Put(ctx, objectKey, data, result.MIME)
	if err != nil {
		return UploadResult{}, fmt.Errorf("store upload: %w", err)
	}

	s.log.Info().
		Str("user_id", input.UserID).
		Str("public_id", publicID).
		Str("mime", result.MIME).
		Int("size", len(data)).
		Str("backend", s.blobs.Name()).
		Msg("upload stored")

	return UploadResult{
		URL:      url,
		PublicID: publicID,
		MIME:     result.MIME,
		Size:     len(data),
	}, nil
}

func (s *UploadService) buildObjectKey(publicID string, ext string) string {
	datePrefix := s.now().UTC().Format("2006/01/02")
	return path.Join(datePrefix, fmt.Sprintf("%s.%s", publicID, ext))
}
