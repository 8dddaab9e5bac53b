package images

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"log/slog"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/trailheadapp/trailhead-server/internal/errors"
)

// Target sizes and JPEG qualities for the two photo kinds.
const (
	TourCoverWidth  = 2000
	TourCoverHeight = 1333
	TourQuality     = 90

	UserPhotoSize = 500
	UserQuality   = 40
)

// Processor normalizes uploaded photos: decode, scale to the target box,
// re-encode as JPEG.
type Processor struct {
	logger *slog.Logger
}

// NewProcessor creates a new Processor instance.
func NewProcessor(logger *slog.Logger) *Processor {
	return &Processor{logger: logger}
}

// ProcessTourImage resizes an uploaded tour photo to the 3:2 cover box.
func (p *Processor) ProcessTourImage(data []byte) ([]byte, error) {
	return p.process(data, TourCoverWidth, TourCoverHeight, TourQuality)
}

// ProcessUserPhoto resizes an uploaded avatar to a square.
func (p *Processor) ProcessUserPhoto(data []byte) ([]byte, error) {
	return p.process(data, UserPhotoSize, UserPhotoSize, UserQuality)
}

func (p *Processor) process(data []byte, width, height, quality int) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Validation("Not an image! Please upload only images.").WithCause(err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	p.logger.Debug("processed image",
		"source_format", format,
		"width", width,
		"height", height,
		"bytes", buf.Len(),
	)

	return buf.Bytes(), nil
}

// TourCoverFilename builds the deterministic name for a tour cover upload.
// Entity IDs already carry their resource prefix.
func TourCoverFilename(tourID string, now time.Time) string {
	return fmt.Sprintf("%s-%d-cover.jpeg", tourID, now.UnixMilli())
}

// TourImageFilename builds the name for the i-th tour gallery upload.
func TourImageFilename(tourID string, now time.Time, i int) string {
	return fmt.Sprintf("%s-%d-%d.jpeg", tourID, now.UnixMilli(), i+1)
}

// UserPhotoFilename builds the name for a user photo upload.
func UserPhotoFilename(userID string, now time.Time) string {
	return fmt.Sprintf("%s-%d.jpeg", userID, now.UnixMilli())
}
