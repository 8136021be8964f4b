package cacheengine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/disintegration/imaging"

	// Registers WebP decoding with image.Decode's format sniffing, for
	// providers (or photos within a container) that serve WebP originals;
	// the standard library has no WebP decoder of its own.
	_ "golang.org/x/image/webp"
)

// transform decodes a photo's original bytes, resizes it to fit within
// displayWidth x displayHeight without upscaling past the source
// dimensions, and re-encodes as JPEG at the given quality. It returns the
// encoded bytes and their MIME type. The source stream's raw bytes are
// always returned too, even on error, so a caller whose decode/encode
// fails can still fall back to storing the raw bytes without re-reading
// the now-drained stream.
func transform(ctx context.Context, r io.Reader, displayWidth, displayHeight, quality int) (raw []byte, encoded []byte, mimeType string, err error) {
	raw, err = io.ReadAll(r)
	if err != nil {
		return nil, nil, "", fmt.Errorf("reading source stream: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return raw, nil, "", err
	}

	img, err := decode(raw)
	if err != nil {
		return raw, nil, "", fmt.Errorf("decoding image: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return raw, nil, "", err
	}

	fitted := fitWithoutUpscale(img, displayWidth, displayHeight)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, fitted, &jpeg.Options{Quality: quality}); err != nil {
		return raw, nil, "", fmt.Errorf("encoding jpeg: %w", err)
	}

	return raw, buf.Bytes(), "image/jpeg", nil
}

// decode tries the standard jpeg/png decoders first (the two formats most
// providers serve), falling back to image.Decode's registered format
// sniffing for anything else — including WebP, registered by the blank
// import above.
func decode(raw []byte) (image.Image, error) {
	if img, err := jpeg.Decode(bytes.NewReader(raw)); err == nil {
		return img, nil
	}

	if img, err := png.Decode(bytes.NewReader(raw)); err == nil {
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(raw))

	return img, err
}

// fitWithoutUpscale resizes img to fit within width x height, preserving
// aspect ratio, but never enlarges an image that is already smaller than
// the target box. imaging.Fit alone can upscale, so the size check happens
// before calling it.
func fitWithoutUpscale(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if width <= 0 || height <= 0 || (b.Dx() <= width && b.Dy() <= height) {
		return img
	}

	return imaging.Fit(img, width, height, imaging.Lanczos)
}
