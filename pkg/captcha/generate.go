// Package captcha renders labeled captcha-style images for training and
// evaluating text-recognition models.
//
// A Generator owns a fixed canvas size, a font pool and a background palette.
// Each call to GenerateOne produces one image: a plain or procedural
// background, one transformed glyph per character of the ground-truth text,
// mode-dependent distractors, and whole-image noise and blur. Alongside the
// pixels it emits one normalized bounding box per character.
//
// Degradation behavior is controlled by three layered key-value mappings
// (built-in defaults, the settings file's captcha_config, and an explicit
// per-call override), merged shallowly with later sources winning.
//
// Rendering-stage failures (a bad font file, a transform on a degenerate
// tile, an oversized paste) do not abort generation: they are reported
// through the configured warning writer and replaced with a documented
// fallback. Only configuration and I/O errors propagate to the caller.
package captcha

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math/rand"
	"os"
	"time"
)

// Sample is the atomic unit returned by one generation call.
type Sample struct {
	Image *image.NRGBA
	Text  string
	Boxes []BoundingBox
}

// Generator produces captcha samples for one fixed canvas configuration.
// It is not safe for concurrent use; create one Generator per goroutine.
type Generator struct {
	settings *Settings
	width    int
	height   int
	charset  []rune
	symbols  []rune
	palette  []color.NRGBA
	fonts    *fontPool
	rng      *rand.Rand

	logger      io.Writer
	logWarnings bool
}

// Option adjusts a Generator at construction time.
type Option func(*Generator)

// WithSeed makes the generator's random stream reproducible. Without it the
// stream is time-seeded and runs are not reproducible.
func WithSeed(seed int64) Option {
	return func(g *Generator) { g.rng = rand.New(rand.NewSource(seed)) }
}

// WithLogger directs warnings about recoverable render failures to w.
func WithLogger(w io.Writer) Option {
	return func(g *Generator) { g.logger = w }
}

// WithoutWarnings silences recoverable-failure warnings.
func WithoutWarnings() Option {
	return func(g *Generator) { g.logWarnings = false }
}

// New validates the settings and builds a Generator. Font files that fail to
// load are reported and replaced by the built-in face; that is never fatal.
func New(settings *Settings, opts ...Option) (*Generator, error) {
	if settings == nil {
		settings = DefaultSettings()
	}
	if settings.Width < 1 || settings.Height < 1 {
		return nil, &ConfigError{Key: "width", Reason: fmt.Sprintf("canvas %dx%d is not positive", settings.Width, settings.Height)}
	}
	if settings.Charset == "" {
		return nil, &ConfigError{Key: "charset", Reason: "must not be empty"}
	}
	if lr := settings.CaptchaLengthRange; len(lr) != 2 || lr[0] < 1 || lr[0] > lr[1] {
		return nil, &ConfigError{Key: "captcha_length_range", Reason: "expected [min, max] with 1 <= min <= max"}
	}

	g := &Generator{
		settings:    settings,
		width:       settings.Width,
		height:      settings.Height,
		charset:     []rune(settings.Charset),
		symbols:     []rune(settings.NonASCIIDistractors),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:      os.Stdout,
		logWarnings: true,
	}
	for _, triple := range settings.BackgroundColors {
		if len(triple) != 3 {
			return nil, &ConfigError{Key: "background_colors", Reason: fmt.Sprintf("expected RGB triple, got %v", triple)}
		}
		g.palette = append(g.palette, color.NRGBA{
			R: clamp8(triple[0]),
			G: clamp8(triple[1]),
			B: clamp8(triple[2]),
			A: 0xff,
		})
	}
	for _, opt := range opts {
		opt(g)
	}

	pool, err := newFontPool(settings.FontPaths, g.warnf)
	if err != nil {
		return nil, err
	}
	g.fonts = pool
	return g, nil
}

// Settings returns the generator's settings document. Callers must treat it
// as read-only.
func (g *Generator) Settings() *Settings { return g.settings }

// Size returns the canvas dimensions.
func (g *Generator) Size() (width, height int) { return g.width, g.height }

// GenerateOne renders a single sample.
//
// With text empty, a random string is drawn from the charset; its length is
// length when positive, otherwise random within captcha_length_range.
// override is the per-call degradation mapping layered over the settings
// file's captcha_config and the built-in defaults.
func (g *Generator) GenerateOne(text string, length int, override map[string]any) (*Sample, error) {
	cfg, err := effectiveConfig(g.settings.CaptchaConfig, override)
	if err != nil {
		return nil, err
	}

	if text == "" {
		n := length
		if n < 1 {
			lr := g.settings.CaptchaLengthRange
			n = lr[0] + g.rng.Intn(lr[1]-lr[0]+1)
		}
		text = g.randomText(n)
	}

	useComplex := cfg.ComplexBackground && (cfg.Mode == ModePart3 || cfg.Mode == ModePart4)
	canvas, err := g.buildBackground(useComplex)
	if err != nil {
		return nil, err
	}

	chars := []rune(text)
	boxes := make([]BoundingBox, 0, len(chars))
	for i, ch := range chars {
		boxes = append(boxes, g.drawCharacter(canvas, ch, i, len(chars), cfg))
	}

	g.applyDistractors(canvas, cfg)
	canvas = postprocess(canvas, cfg, g.rng)

	return &Sample{Image: canvas, Text: text, Boxes: boxes}, nil
}

// drawCharacter renders, transforms and composites one glyph, returning its
// bounding box.
func (g *Generator) drawCharacter(canvas *image.NRGBA, ch rune, index, total int, cfg GenerationConfig) BoundingBox {
	size := cfg.FontSizeRange[0]
	if spread := cfg.FontSizeRange[1] - cfg.FontSizeRange[0]; spread > 0 {
		size += g.rng.Intn(spread + 1)
	}

	face, err := newFace(g.fonts.pick(g.rng), float64(size))
	if err != nil {
		g.warnf("face for %q at %dpt: %v (using built-in font)", ch, size, err)
		face, _ = newFace(g.fonts.builtin, float64(size))
	}
	defer face.Close()

	col := glyphColor(g.rng, cfg.ColorVariation)
	tile := renderGlyph(ch, face, col)
	angle := rotationAngle(g.rng, cfg)
	transformed := g.applyTransforms(tile.Img, angle, col, cfg)

	return g.placeGlyph(canvas, tile, transformed, ch, index, total, face, col, angle, cfg)
}

func (g *Generator) randomText(n int) string {
	runes := make([]rune, n)
	for i := range runes {
		runes[i] = g.charset[g.rng.Intn(len(g.charset))]
	}
	return string(runes)
}

// warnf reports a recoverable render failure.
func (g *Generator) warnf(format string, args ...any) {
	if !g.logWarnings || g.logger == nil {
		return
	}
	fmt.Fprintf(g.logger, "warning: "+format+"\n", args...)
}
