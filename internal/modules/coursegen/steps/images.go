package steps

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg"
	"image/png"

	"github.com/gen2brain/webp"
)

const webpQuality = 90

// toWebP re-encodes PNG or JPEG bytes as lossy WebP.
func toWebP(data []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, webp.Options{Lossless: false, Quality: webpQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodedImage is the upload form of a generated image. It falls back to the
// original bytes when they cannot be re-encoded.
func encodedImage(res ImageResult) (data []byte, mime, ext string) {
	if out, err := toWebP(res.Data); err == nil {
		return out, "image/webp", "webp"
	}
	switch res.MimeType {
	case "image/jpeg":
		return res.Data, res.MimeType, "jpg"
	default:
		return res.Data, "image/png", "png"
	}
}

// generateImage tries with references first and once more without them.
func generateImage(ctx context.Context, ai Generative, prompt string, refs []string) (ImageResult, bool, error) {
	res, err := ai.GenerateImage(ctx, prompt, refs)
	if err == nil || len(refs) == 0 {
		return res, len(refs) > 0, err
	}
	if ctx.Err() != nil {
		return ImageResult{}, false, err
	}
	res, err = ai.GenerateImage(ctx, prompt, nil)
	return res, false, err
}
