package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"yatube/internal/config"
	"yatube/internal/models"
	"yatube/internal/observability"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaRoot            = "media"
	DefaultImageMaxUploadSizeMB = 5
	MaxImageSide                = 1080
	JPEGQuality                 = 82
	WebPQuality                 = 70

	postImageDir = "posts"
)

// ImageUpload is a file received from a post form.
type ImageUpload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// StoredImage is where Save put an upload. Created is false when an identical
// file was already on disk and may be shared with another post.
type StoredImage struct {
	Path    string
	Created bool
}

// ImageSaver stores post images under media-relative paths.
type ImageSaver interface {
	Save(ctx context.Context, in ImageUpload) (StoredImage, error)
	// Discard removes a stored image and its variants.
	Discard(ctx context.Context, rel string) error
}

// ImageService normalizes uploads and writes them under the media root.
type ImageService struct {
	mediaRoot          string
	maxUploadSizeBytes int64
}

func NewImageService(cfg *config.Config) *ImageService {
	mediaRoot := DefaultMediaRoot
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB

	if cfg != nil {
		if cfg.MediaRoot != "" {
			mediaRoot = cfg.MediaRoot
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
	}

	return &ImageService{
		mediaRoot:          mediaRoot,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// MediaRoot is the directory uploaded files live in.
func (s *ImageService) MediaRoot() string {
	return s.mediaRoot
}

// MaxUploadBytes is the largest accepted upload.
func (s *ImageService) MaxUploadBytes() int64 {
	return s.maxUploadSizeBytes
}

// Save validates, downsizes and writes the image as JPEG plus a WebP sibling.
// Identical uploads map to the same file.
func (s *ImageService) Save(ctx context.Context, in ImageUpload) (stored StoredImage, err error) {
	_, span := observability.StartSpan(ctx, "service", "ImageService.Save")
	defer func() { observability.EndSpan(span, err) }()

	if len(in.Content) == 0 {
		return StoredImage{}, models.NewFieldValidationError("image", "No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return StoredImage{}, models.NewFieldValidationError("image", fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detectedType) {
		return StoredImage{}, models.NewFieldValidationError("image", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return StoredImage{}, models.NewFieldValidationError("image", "Invalid image file")
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, decodedFormatToMime(format)) {
		return StoredImage{}, models.NewFieldValidationError("image", "Image content type mismatch")
	}

	scaled := resizeToFit(decoded, MaxImageSide, MaxImageSide)

	jpg, err := encodeJPEG(scaled, JPEGQuality)
	if err != nil {
		return StoredImage{}, models.NewInternalError(err)
	}
	wp, err := encodeWebP(scaled, WebPQuality)
	if err != nil {
		return StoredImage{}, models.NewInternalError(err)
	}

	hash := contentHash(jpg)
	jpgRel := filepath.ToSlash(filepath.Join(postImageDir, hash+".jpg"))
	webpRel := filepath.ToSlash(filepath.Join(postImageDir, hash+".webp"))
	jpgAbs := filepath.Join(s.mediaRoot, filepath.FromSlash(jpgRel))
	webpAbs := filepath.Join(s.mediaRoot, filepath.FromSlash(webpRel))

	_, statErr := os.Stat(jpgAbs)
	created := os.IsNotExist(statErr)

	if err := writeBytesToFile(jpgAbs, jpg); err != nil {
		return StoredImage{}, models.NewInternalError(err)
	}
	if err := writeBytesToFile(webpAbs, wp); err != nil {
		if created {
			_ = os.Remove(jpgAbs)
		}
		return StoredImage{}, models.NewInternalError(err)
	}
	return StoredImage{Path: jpgRel, Created: created}, nil
}

// Discard deletes the JPEG at rel and its WebP sibling. Missing files are ignored.
func (s *ImageService) Discard(_ context.Context, rel string) error {
	for _, p := range []string{rel, WebPVariant(rel)} {
		if p == "" {
			continue
		}
		if err := os.Remove(filepath.Join(s.mediaRoot, filepath.FromSlash(p))); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// WebPVariant maps a stored JPEG path to its WebP sibling.
func WebPVariant(rel string) string {
	if !strings.HasSuffix(rel, ".jpg") {
		return ""
	}
	return strings.TrimSuffix(rel, ".jpg") + ".webp"
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
