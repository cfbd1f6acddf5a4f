// Package media generates resized WebP variants of the site's logos and
// project images.
package media

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/mkim/mystory/internal/infrastructure/observability/logging"
)

// Quality is the WebP encoder quality for every variant.
const Quality = 85

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// ImageProcessor reads originals from sourceDir and writes variants to outDir.
type ImageProcessor struct {
	sourceDir string
	outDir    string
	widths    []int
	logger    *logging.ChanneledLogger
}

// NewImageProcessor creates a new ImageProcessor instance
func NewImageProcessor(sourceDir, outDir string, widths []int, logger *logging.ChanneledLogger) *ImageProcessor {
	return &ImageProcessor{sourceDir: sourceDir, outDir: outDir, widths: widths, logger: logger}
}

// Widths returns the configured variant widths.
func (p *ImageProcessor) Widths() []int { return append([]int(nil), p.widths...) }

// VariantName maps a content image path to its variant filename, e.g.
// "/SAP logo.png" at 160 becomes "sap-logo_160px.webp".
func VariantName(src string, width int) string {
	base := path.Base(strings.ReplaceAll(src, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(base), "-"), "-")
	if slug == "" {
		slug = "image"
	}
	return fmt.Sprintf("%s_%dpx.webp", slug, width)
}

// VariantURL returns the public URL of a generated variant, if it exists.
func (p *ImageProcessor) VariantURL(src string, width int) (string, bool) {
	name := VariantName(src, width)
	if _, err := os.Stat(filepath.Join(p.outDir, name)); err != nil {
		return "", false
	}
	return "/media/" + name, true
}

// sourcePath resolves a content path ("./amazon_logo.png", "/SAP logo.png")
// inside sourceDir, refusing anything that escapes it.
func (p *ImageProcessor) sourcePath(src string) (string, error) {
	clean := path.Clean("/" + strings.TrimPrefix(strings.ReplaceAll(src, "\\", "/"), "."))
	full := filepath.Join(p.sourceDir, filepath.FromSlash(clean))
	rel, err := filepath.Rel(p.sourceDir, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("image path %q escapes source directory", src)
	}
	return full, nil
}

// GenerateVariants writes one WebP per configured width for src, skipping
// variants newer than the original. Images are never upscaled. SVGs have no
// raster variants and return nil.
func (p *ImageProcessor) GenerateVariants(src string) ([]string, error) {
	if strings.EqualFold(path.Ext(src), ".svg") {
		return nil, nil
	}
	original, err := p.sourcePath(src)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(original)
	if err != nil {
		return nil, fmt.Errorf("failed to stat original: %w", err)
	}
	if err := os.MkdirAll(p.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	var pending []int
	for _, width := range p.widths {
		out := filepath.Join(p.outDir, VariantName(src, width))
		if vi, err := os.Stat(out); err == nil && !vi.ModTime().Before(info.ModTime()) {
			continue
		}
		pending = append(pending, width)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	img, err := imaging.Open(original, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	var written []string
	for _, width := range pending {
		resized := img
		if img.Bounds().Dx() > width {
			resized = imaging.Resize(img, width, 0, imaging.Lanczos)
		}
		out := filepath.Join(p.outDir, VariantName(src, width))
		if err := webp.Save(out, resized, &webp.Options{Quality: Quality}); err != nil {
			for _, w := range written {
				os.Remove(w)
			}
			return nil, fmt.Errorf("failed to save WebP variant %s: %w", filepath.Base(out), err)
		}
		written = append(written, out)
	}
	p.logger.Media().Debug("Variants generated", "source", src, "count", len(written))
	return written, nil
}

// Report summarizes a WarmAll run.
type Report struct {
	Images  int               `json:"images"`
	Written int               `json:"written"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// WarmAll generates variants for every image, continuing past failures.
func (p *ImageProcessor) WarmAll(ctx context.Context, images []string) Report {
	report := Report{Images: len(images), Failed: map[string]string{}}
	for _, src := range images {
		if ctx.Err() != nil {
			report.Failed[src] = ctx.Err().Error()
			continue
		}
		written, err := p.GenerateVariants(src)
		if err != nil {
			p.logger.Media().Warn("Variant generation failed", "source", src, "error", err.Error())
			report.Failed[src] = err.Error()
			continue
		}
		report.Written += len(written)
	}
	p.logger.Media().Info("Media warm complete",
		"images", report.Images, "written", report.Written, "failed", len(report.Failed))
	return report
}
