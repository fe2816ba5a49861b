package visual

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/easeaico/memorify/internal/apperr"
	"github.com/easeaico/memorify/internal/models"
	"github.com/easeaico/memorify/internal/retry"
)

type fakeImages struct {
	img   models.Image
	errs  []error
	calls int
}

func (f *fakeImages) Generate(context.Context, string) (models.Image, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return models.Image{}, err
	}
	return f.img, nil
}

type fakeUploader struct {
	keys []string
}

func (u *fakeUploader) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	u.keys = append(u.keys, key)
	return "https://objects.local/" + key, nil
}

func testRetrier() *retry.Retrier {
	return retry.New(retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Timeout: time.Second}, nil)
}

func TestRenderUploads(t *testing.T) {
	images := &fakeImages{
		img:  models.Image{Data: []byte{1, 2, 3}, MIMEType: "image/jpeg"},
		errs: []error{apperr.Errorf(apperr.KindServer, "generate_image", "503")},
	}
	uploader := &fakeUploader{}
	r := NewRenderer(images, uploader, testRetrier())

	url, err := r.Render(context.Background(), "u1", "a calm sea")
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if images.calls != 2 {
		t.Fatalf("expected a retry after the server error, got %d calls", images.calls)
	}
	if len(uploader.keys) != 1 || !strings.HasPrefix(uploader.keys[0], "insights/u1/") || !strings.HasSuffix(uploader.keys[0], ".jpg") {
		t.Fatalf("unexpected upload keys %v", uploader.keys)
	}
	if url != "https://objects.local/"+uploader.keys[0] {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestRenderInlineWithoutUploader(t *testing.T) {
	images := &fakeImages{img: models.Image{Data: []byte("png"), MIMEType: "image/png"}}
	url, err := NewRenderer(images, nil, testRetrier()).Render(context.Background(), "u1", "a forest")
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Fatalf("expected data URL, got %q", url)
	}
}
