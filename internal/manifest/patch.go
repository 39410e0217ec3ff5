package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tidwall/sjson"
)

// VariantPatch assigns flicker variants to one glyph, addressed by the
// positions recorded when the manifest was parsed.
type VariantPatch struct {
	ItemPos  int
	GlyphPos int
	Variants []string
}

// PatchMeta is the bookkeeping written next to patched variants.
type PatchMeta struct {
	Frames      int
	BucketScale int
	GeneratedAt time.Time
}

// ApplyVariants returns a copy of m.Raw with every patch applied and the
// metadata fields set. Fields the patch does not touch are preserved.
// The result is indented with two spaces and ends with a newline.
func (m *Manifest) ApplyVariants(patches []VariantPatch, meta PatchMeta) ([]byte, error) {
	out := append([]byte(nil), m.Raw...)
	opts := &sjson.Options{ReplaceInPlace: true}

	var err error
	for _, p := range patches {
		path := fmt.Sprintf("items.%d.glyphs.%d.flickerVariants", p.ItemPos, p.GlyphPos)
		variants := p.Variants
		if variants == nil {
			variants = []string{}
		}
		if out, err = sjson.SetBytesOptions(out, path, variants, opts); err != nil {
			return nil, fmt.Errorf("set %s: %w", path, err)
		}
	}

	fields := []struct {
		path  string
		value any
	}{
		{"flickerVariantFrames", meta.Frames},
		{"flickerVariantBucketScale", meta.BucketScale},
		{"flickerVariantsGeneratedAt", meta.GeneratedAt.UTC().Format(time.RFC3339Nano)},
	}
	for _, f := range fields {
		if out, err = sjson.SetBytesOptions(out, f.path, f.value, opts); err != nil {
			return nil, fmt.Errorf("set %s: %w", f.path, err)
		}
	}

	var compact, pretty bytes.Buffer
	if err := json.Compact(&compact, out); err != nil {
		return nil, fmt.Errorf("compact manifest: %w", err)
	}
	if err := json.Indent(&pretty, compact.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("indent manifest: %w", err)
	}
	pretty.WriteByte('\n')
	return pretty.Bytes(), nil
}

// WriteVariants applies the patches and rewrites the manifest file in place.
func (m *Manifest) WriteVariants(patches []VariantPatch, meta PatchMeta) error {
	if m.Path == "" {
		return fmt.Errorf("manifest: no path to write")
	}
	data, err := m.ApplyVariants(patches, meta)
	if err != nil {
		return err
	}
	info, err := os.Stat(m.Path)
	mode := os.FileMode(0o644)
	if err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(m.Path, data, mode); err != nil {
		return fmt.Errorf("write manifest %s: %w", m.Path, err)
	}
	m.Raw = data
	return nil
}
