package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/jung-kurt/gofpdf"
)

var (
	// ErrNoPhotos возвращается при пустом списке фотографий.
	ErrNoPhotos = errors.New("no photos supplied")
	// ErrUnsupportedFormat возвращается для форматов кроме JPEG и PNG.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// BuildFromPhotos собирает PDF, размещая каждую фотографию на отдельной
// странице размером в её пиксельные габариты (1px = 1pt).
func BuildFromPhotos(photos [][]byte) ([]byte, error) {
	if len(photos) == 0 {
		return nil, ErrNoPhotos
	}

	doc := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: 595.28, Ht: 841.89},
	})

	for i, photo := range photos {
		cfg, format, err := image.DecodeConfig(bytes.NewReader(photo))
		if err != nil {
			return nil, fmt.Errorf("decode photo %d: %v: %w", i+1, err, ErrUnsupportedFormat)
		}

		var imageType string
		switch format {
		case "jpeg":
			imageType = "JPG"
		case "png":
			imageType = "PNG"
		default:
			return nil, fmt.Errorf("photo %d has format %q: %w", i+1, format, ErrUnsupportedFormat)
		}

		w := float64(cfg.Width)
		h := float64(cfg.Height)
		doc.AddPageFormat("P", gofpdf.SizeType{Wd: w, Ht: h})

		opts := gofpdf.ImageOptions{ImageType: imageType}
		name := fmt.Sprintf("photo-%d", i+1)
		doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(photo))
		doc.ImageOptions(name, 0, 0, w, h, false, opts, 0, "")
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
