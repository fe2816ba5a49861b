// Package visual renders insight visual prompts into images.
package visual

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/easeaico/memorify/internal/models"
	"github.com/easeaico/memorify/internal/retry"
)

// ImageSource produces an image from a prompt.
type ImageSource interface {
	Generate(ctx context.Context, prompt string) (models.Image, error)
}

// Uploader stores bytes and returns a URL for them.
type Uploader interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Renderer generates the image and uploads it. Without an uploader the image
// is returned inline as a data URL.
type Renderer struct {
	images   ImageSource
	uploader Uploader
	retrier  *retry.Retrier
}

// NewRenderer creates a Renderer. uploader may be nil.
func NewRenderer(images ImageSource, uploader Uploader, retrier *retry.Retrier) *Renderer {
	return &Renderer{images: images, uploader: uploader, retrier: retrier}
}

// Render returns a URL for an image of prompt.
func (r *Renderer) Render(ctx context.Context, userID, prompt string) (string, error) {
	img, err := retry.Do(ctx, r.retrier, "generate_image", func(ctx context.Context) (models.Image, error) {
		return r.images.Generate(ctx, prompt)
	})
	if err != nil {
		return "", err
	}
	if r.uploader == nil {
		return img.DataURL(), nil
	}

	key := fmt.Sprintf("insights/%s/%s%s", userID, uuid.NewString(), extension(img.MIMEType))
	return retry.Do(ctx, r.retrier, "upload_image", func(ctx context.Context) (string, error) {
		return r.uploader.Put(ctx, key, img.Data, img.MIMEType)
	})
}

func extension(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
