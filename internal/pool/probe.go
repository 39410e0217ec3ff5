package pool

import (
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"math"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ratioTolerance is the relative aspect-ratio drift tolerated between the
// manifest and the decoded image.
const ratioTolerance = 0.02

// probeGeometry decodes the image header at path and warns when its aspect
// ratio disagrees with the manifest. Formats without a registered decoder
// (SVG in particular) are skipped.
func probeGeometry(log *slog.Logger, path, rel string, width, height float64) {
	w, h, err := decodeSize(path)
	if errors.Is(err, image.ErrFormat) {
		log.Debug("probe skipped", "file", rel)
		return
	}
	if err != nil {
		log.Warn("probe failed", "file", rel, "err", err)
		return
	}
	if drift, ok := ratioDrift(width, height, float64(w), float64(h)); ok {
		log.Warn("glyph geometry drift",
			"file", rel,
			"manifest_ratio", width/height,
			"image_ratio", float64(w)/float64(h),
			"drift", drift)
	}
}

func decodeSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// ratioDrift reports the relative difference between two aspect ratios when
// it exceeds ratioTolerance.
func ratioDrift(mw, mh, iw, ih float64) (float64, bool) {
	if mw <= 0 || mh <= 0 || iw <= 0 || ih <= 0 {
		return 0, false
	}
	want := mw / mh
	drift := math.Abs(iw/ih-want) / want
	return drift, drift > ratioTolerance
}
