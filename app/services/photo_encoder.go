package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/amirphl/pick-intro/config"
	"github.com/amirphl/pick-intro/models"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Photo encoding error constants
var (
	ErrPhotoEmpty       = errors.New("photo file is empty")
	ErrPhotoTooLarge    = errors.New("photo file is too large")
	ErrPhotoUnsupported = errors.New("photo file is not a supported image")
)

// PhotoFile is a user-selected image awaiting encoding
type PhotoFile struct {
	FileName     string
	Size         int64
	LastModified time.Time
	Reader       io.Reader
}

// PhotoEncoder turns an image file into a transferable data URL
type PhotoEncoder interface {
	Encode(ctx context.Context, file *PhotoFile) (*models.ProfilePhoto, error)
}

// ImagePhotoEncoder decodes jpeg/png/gif/webp, downscales to a bounded size and re-encodes as JPEG
type ImagePhotoEncoder struct {
	maxBytes     int64
	maxDimension int
	maxPixels    int64
	quality      int
}

const defaultPhotoMaxPixels = 40_000_000

// NewImagePhotoEncoder creates an encoder from the photo configuration
func NewImagePhotoEncoder(cfg *config.PhotoConfig) *ImagePhotoEncoder {
	maxPixels := cfg.MaxPixels
	if maxPixels <= 0 {
		maxPixels = defaultPhotoMaxPixels
	}
	return &ImagePhotoEncoder{
		maxBytes:     cfg.MaxBytes,
		maxDimension: cfg.MaxDimension,
		maxPixels:    maxPixels,
		quality:      cfg.JPEGQuality,
	}
}

func (e *ImagePhotoEncoder) Encode(ctx context.Context, file *PhotoFile) (*models.ProfilePhoto, error) {
	if file == nil || file.Reader == nil {
		return nil, ErrPhotoEmpty
	}

	data, err := io.ReadAll(io.LimitReader(file.Reader, e.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrPhotoEmpty
	}
	if int64(len(data)) > e.maxBytes {
		return nil, ErrPhotoTooLarge
	}

	detected := http.DetectContentType(data)
	if !strings.HasPrefix(detected, "image/") {
		return nil, ErrPhotoUnsupported
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Size is checked from the header before any pixel buffer is allocated
	header, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPhotoUnsupported, err)
	}
	if header.Width <= 0 || header.Height <= 0 {
		return nil, ErrPhotoUnsupported
	}
	if int64(header.Width)*int64(header.Height) > e.maxPixels {
		return nil, fmt.Errorf("%w: %dx%d pixels", ErrPhotoTooLarge, header.Width, header.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPhotoUnsupported, err)
	}

	buf := &bytes.Buffer{}
	if err := jpeg.Encode(buf, flattenAndResize(img, e.maxDimension), &jpeg.Options{Quality: e.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode photo: %w", err)
	}

	size := file.Size
	if size <= 0 {
		size = int64(len(data))
	}
	var lastModified int64
	if !file.LastModified.IsZero() {
		lastModified = file.LastModified.UnixMilli()
	}

	return &models.ProfilePhoto{
		DataURL:      "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		FileName:     file.FileName,
		FileSize:     size,
		LastModified: lastModified,
	}, nil
}

// flattenAndResize paints src over white, scaling it down so neither side exceeds maxDim
func flattenAndResize(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	nw, nh := w, h
	if w > maxDim || h > maxDim {
		if w >= h {
			nw = maxDim
			nh = max(1, int(float64(h)*float64(maxDim)/float64(w)))
		} else {
			nh = maxDim
			nw = max(1, int(float64(w)*float64(maxDim)/float64(h)))
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	imagedraw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, imagedraw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}
