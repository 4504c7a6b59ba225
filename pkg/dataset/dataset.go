// Package dataset drives batch captcha generation and converts the results
// to the third-party annotation layout used by the downstream training
// pipeline. The rendering itself lives in pkg/captcha; this package is the
// batch loop, the filename conventions and the JSON writing around it.
package dataset

import (
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/Abdullah-Taha9/captcha-generator/pkg/captcha"
)

// Box is one serialized character annotation of a generated image.
type Box struct {
	Character string  `json:"character"`
	XCenter   float64 `json:"x_center"`
	YCenter   float64 `json:"y_center"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Rotation  float64 `json:"rotation"`
}

// Metadata describes one generated sample on disk.
type Metadata struct {
	Filename   string `json:"filename"`
	Filepath   string `json:"filepath"`
	Text       string `json:"text"`
	Length     int    `json:"length"`
	Resolution string `json:"resolution"` // "WxH"
	Mode       string `json:"mode"`
	Bboxes     []Box  `json:"bboxes,omitempty"`
}

// Summary aggregates a finished batch.
type Summary struct {
	TotalSamples   int     `json:"total_samples"`
	Mode           string  `json:"mode"`
	Resolution     string  `json:"resolution"`
	CharacterSet   string  `json:"character_set"`
	CaptchaLengths []int   `json:"captcha_lengths"`
	AvgLength      float64 `json:"avg_length"`
}

// BatchConfig holds options for one Generate run.
type BatchConfig struct {
	NumSamples      int
	Mode            string         // normal, part3 or part4
	OutputDir       string
	Override        map[string]any // highest-precedence degradation overrides
	SaveAnnotations bool
	Logger          io.Writer // progress and per-sample failures (nil = stdout)
}

// ModeOverride resolves the degradation override mapping for a mode: the
// settings document's mode_configs entry when present, otherwise the
// built-in per-mode defaults.
func ModeOverride(settings *captcha.Settings, mode string) map[string]any {
	if settings != nil && len(settings.ModeConfigs) > 0 {
		return settings.ModeConfigs[mode]
	}
	return captcha.DefaultModeConfigs()[mode]
}

// Generate renders a batch of samples into cfg.OutputDir and writes the
// per-image metadata and summary JSON files alongside them.
//
// A sample that fails to render or save is reported and skipped; the batch
// continues. Directory creation and metadata writing failures abort the run.
func Generate(gen *captcha.Generator, cfg BatchConfig) ([]Metadata, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = os.Stdout
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	override := captcha.Merge(ModeOverride(gen.Settings(), cfg.Mode), cfg.Override)
	width, height := gen.Size()
	resolution := fmt.Sprintf("%dx%d", width, height)

	metadata := make([]Metadata, 0, cfg.NumSamples)
	for i := 0; i < cfg.NumSamples; i++ {
		sample, err := gen.GenerateOne("", 0, override)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}

		filename := fmt.Sprintf("%s_%06d.png", cfg.Mode, i)
		path := filepath.Join(cfg.OutputDir, filename)
		if err := savePNG(sample.Image, path); err != nil {
			fmt.Fprintf(logger, "sample %d: %v (skipped)\n", i, err)
			continue
		}

		m := Metadata{
			Filename:   filename,
			Filepath:   path,
			Text:       sample.Text,
			Length:     len(sample.Text),
			Resolution: resolution,
			Mode:       cfg.Mode,
		}
		if cfg.SaveAnnotations {
			for _, b := range sample.Boxes {
				m.Bboxes = append(m.Bboxes, Box{
					Character: b.Character,
					XCenter:   b.XCenter,
					YCenter:   b.YCenter,
					Width:     b.Width,
					Height:    b.Height,
					Rotation:  b.Rotation,
				})
			}
		}
		metadata = append(metadata, m)

		if (i+1)%100 == 0 {
			fmt.Fprintf(logger, "Generated %d/%d samples for %s mode\n", i+1, cfg.NumSamples, cfg.Mode)
		}
	}

	if err := writeJSON(filepath.Join(cfg.OutputDir, cfg.Mode+"_metadata.json"), metadata); err != nil {
		return nil, err
	}
	if err := writeJSON(filepath.Join(cfg.OutputDir, cfg.Mode+"_summary.json"), summarize(metadata, cfg.Mode, resolution, gen)); err != nil {
		return nil, err
	}
	return metadata, nil
}

func summarize(metadata []Metadata, mode, resolution string, gen *captcha.Generator) Summary {
	s := Summary{
		TotalSamples: len(metadata),
		Mode:         mode,
		Resolution:   resolution,
		CharacterSet: gen.Settings().Charset,
	}
	seen := map[int]bool{}
	total := 0
	for _, m := range metadata {
		if !seen[m.Length] {
			seen[m.Length] = true
			s.CaptchaLengths = append(s.CaptchaLengths, m.Length)
		}
		total += m.Length
	}
	if len(metadata) > 0 {
		s.AvgLength = float64(total) / float64(len(metadata))
	}
	return s
}

// savePNG writes img losslessly to path.
func savePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
