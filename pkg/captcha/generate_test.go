package captcha

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

// newTestGenerator builds a deterministic generator on the default settings,
// optionally adjusted by mutate. No font files are configured, so every glyph
// renders with the built-in face.
func newTestGenerator(t *testing.T, mutate func(*Settings)) *Generator {
	t.Helper()
	settings := DefaultSettings()
	if mutate != nil {
		mutate(settings)
	}
	g, err := New(settings, WithSeed(42), WithLogger(io.Discard))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

// quiet is the per-call override that disables every stochastic degradation
// not under test.
func quiet() map[string]any {
	return map[string]any{
		"noise_level":        0.0,
		"blur_level":         0.0,
		"complex_background": false,
	}
}

func TestGenerateOneBoxesMatchText(t *testing.T) {
	g := newTestGenerator(t, nil)
	sample, err := g.GenerateOne("AB12", 0, quiet())
	if err != nil {
		t.Fatalf("GenerateOne: %v", err)
	}

	if sample.Text != "AB12" {
		t.Errorf("text = %q, want AB12", sample.Text)
	}
	if got, want := len(sample.Boxes), len(sample.Text); got != want {
		t.Fatalf("box count = %d, want %d", got, want)
	}
	for i, want := range []string{"A", "B", "1", "2"} {
		if sample.Boxes[i].Character != want {
			t.Errorf("box %d character = %q, want %q", i, sample.Boxes[i].Character, want)
		}
	}
}

func TestGenerateOneCanvasSize(t *testing.T) {
	for _, mode := range []string{ModeNormal, ModePart3, ModePart4} {
		g := newTestGenerator(t, nil)
		override := Merge(DefaultModeConfigs()[mode], nil)
		sample, err := g.GenerateOne("", 0, override)
		if err != nil {
			t.Fatalf("mode %s: %v", mode, err)
		}
		if got := sample.Image.Rect; got.Dx() != 640 || got.Dy() != 160 {
			t.Errorf("mode %s canvas = %dx%d, want 640x160", mode, got.Dx(), got.Dy())
		}
	}
}

func TestGenerateOneNormalizedBoxes(t *testing.T) {
	g := newTestGenerator(t, nil)
	for i := 0; i < 10; i++ {
		sample, err := g.GenerateOne("", 0, quiet())
		if err != nil {
			t.Fatalf("GenerateOne: %v", err)
		}
		for j, box := range sample.Boxes {
			if box.XCenter < 0 || box.XCenter > 1 || box.YCenter < 0 || box.YCenter > 1 {
				t.Errorf("sample %d box %d center (%v, %v) outside [0,1]", i, j, box.XCenter, box.YCenter)
			}
			if box.Width <= 0 || box.Width > 1 || box.Height <= 0 || box.Height > 1 {
				t.Errorf("sample %d box %d size (%v, %v) outside (0,1]", i, j, box.Width, box.Height)
			}
		}
	}
}

func TestGenerateOneRandomText(t *testing.T) {
	g := newTestGenerator(t, func(s *Settings) {
		s.Charset = "AB"
		s.CaptchaLengthRange = []int{3, 5}
	})
	for i := 0; i < 20; i++ {
		sample, err := g.GenerateOne("", 0, quiet())
		if err != nil {
			t.Fatalf("GenerateOne: %v", err)
		}
		if n := len(sample.Text); n < 3 || n > 5 {
			t.Errorf("text length %d outside configured range", n)
		}
		for _, ch := range sample.Text {
			if ch != 'A' && ch != 'B' {
				t.Errorf("text %q contains character outside charset", sample.Text)
			}
		}
	}
}

func TestGenerateOneExplicitLength(t *testing.T) {
	g := newTestGenerator(t, nil)
	sample, err := g.GenerateOne("", 9, quiet())
	if err != nil {
		t.Fatalf("GenerateOne: %v", err)
	}
	if len(sample.Text) != 9 {
		t.Errorf("text length = %d, want 9", len(sample.Text))
	}
}

func TestGenerateOneEmptyPalette(t *testing.T) {
	g := newTestGenerator(t, func(s *Settings) {
		s.BackgroundColors = nil
	})
	_, err := g.GenerateOne("AB", 0, quiet())
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("want ConfigError for empty palette, got %v", err)
	}
}

func TestGenerateOneInvalidOverride(t *testing.T) {
	g := newTestGenerator(t, nil)
	_, err := g.GenerateOne("AB", 0, map[string]any{"rotation_range": []any{30.0, -30.0}})
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("want ConfigError for inverted range, got %v", err)
	}
}

func TestFontSelectionIgnoresChallengingFonts(t *testing.T) {
	// Glyph fonts always draw uniformly from the configured pool; the
	// challenging_fonts key must not change the selection. With identical
	// seeds and a multi-font pool, any flag-dependent pick would shift the
	// random stream and change the rendered pixels.
	dir := t.TempDir()
	paths := make([]string, 2)
	for i := range paths {
		paths[i] = filepath.Join(dir, fmt.Sprintf("font%d.ttf", i))
		if err := os.WriteFile(paths[i], goregular.TTF, 0o644); err != nil {
			t.Fatalf("write font file: %v", err)
		}
	}

	render := func(challenging bool) []uint8 {
		g := newTestGenerator(t, func(s *Settings) { s.FontPaths = paths })
		override := quiet()
		override["challenging_fonts"] = challenging
		sample, err := g.GenerateOne("AB12", 0, override)
		if err != nil {
			t.Fatalf("GenerateOne: %v", err)
		}
		return sample.Image.Pix
	}

	if !bytes.Equal(render(false), render(true)) {
		t.Error("challenging_fonts changed glyph font selection")
	}
}

func TestNewRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero width", func(s *Settings) { s.Width = 0 }},
		{"empty charset", func(s *Settings) { s.Charset = "" }},
		{"bad length range", func(s *Settings) { s.CaptchaLengthRange = []int{5, 2} }},
		{"malformed palette entry", func(s *Settings) { s.BackgroundColors = [][]int{{255, 255}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := DefaultSettings()
			tt.mutate(settings)
			if _, err := New(settings); err == nil {
				t.Error("New accepted invalid settings")
			}
		})
	}
}

func TestDistractorZeroCountsNoop(t *testing.T) {
	for _, mode := range []string{ModePart3, ModePart4} {
		g := newTestGenerator(t, nil)
		cfg, err := effectiveConfig(nil, map[string]any{
			"mode":                  mode,
			"line_distractors":      0,
			"circular_distractors":  0,
			"non_ascii_distractors": 0,
		})
		if err != nil {
			t.Fatalf("effectiveConfig: %v", err)
		}

		canvas, err := g.buildBackground(false)
		if err != nil {
			t.Fatalf("buildBackground: %v", err)
		}
		before := make([]uint8, len(canvas.Pix))
		copy(before, canvas.Pix)

		g.applyDistractors(canvas, cfg)
		for i := range before {
			if canvas.Pix[i] != before[i] {
				t.Fatalf("mode %s: zero-count distractors modified the canvas", mode)
			}
		}
	}
}

func TestDistractorsDrawInPart3(t *testing.T) {
	g := newTestGenerator(t, nil)
	cfg, err := effectiveConfig(nil, map[string]any{
		"mode":             ModePart3,
		"line_distractors": 3,
	})
	if err != nil {
		t.Fatalf("effectiveConfig: %v", err)
	}
	canvas, err := g.buildBackground(false)
	if err != nil {
		t.Fatalf("buildBackground: %v", err)
	}
	before := make([]uint8, len(canvas.Pix))
	copy(before, canvas.Pix)

	g.applyDistractors(canvas, cfg)
	changed := false
	for i := range before {
		if canvas.Pix[i] != before[i] {
			changed = true
			break
		}
	}
	if !changed {
		t.Error("line distractors did not draw anything")
	}
}
