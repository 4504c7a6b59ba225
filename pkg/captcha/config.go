package captcha

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings is the top-level configuration document for a generator instance.
// It is typically loaded from a YAML file, with any omitted field falling back
// to the value from DefaultSettings.
type Settings struct {
	Width               int                       `yaml:"width"`                 // Canvas width in pixels
	Height              int                       `yaml:"height"`                // Canvas height in pixels
	Charset             string                    `yaml:"charset"`               // Characters the captcha text is drawn from
	NonASCIIDistractors string                    `yaml:"non_ascii_distractors"` // Symbol pool for foreign-glyph distractors
	FontPaths           []string                  `yaml:"font_paths"`            // TTF/OTF files to render with
	BackgroundColors    [][]int                   `yaml:"background_colors"`     // RGB triples for plain backgrounds
	CaptchaLengthRange  []int                     `yaml:"captcha_length_range"`  // [min, max] text length
	CaptchaConfig       map[string]any            `yaml:"captcha_config"`        // Base degradation settings
	ModeConfigs         map[string]map[string]any `yaml:"mode_configs"`          // Per-mode overrides keyed by mode name
	Dataset             DatasetSettings           `yaml:"dataset_generation"`
}

// DatasetSettings holds batch-generation options.
type DatasetSettings struct {
	NumSamples      int    `yaml:"num_samples"`
	Mode            string `yaml:"mode"`
	OutputDir       string `yaml:"output_dir"`
	SaveAnnotations *bool  `yaml:"save_annotations"`
	TrainSamples    *int   `yaml:"train_samples"`
	ValSamples      *int   `yaml:"val_samples"`
	TestSamples     *int   `yaml:"test_samples"`
}

// Generation modes. A mode selects which degradations apply and at what intensity.
const (
	ModeNormal = "normal"
	ModePart3  = "part3"
	ModePart4  = "part4"
)

// ConfigError reports a missing or invalid configuration value.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %q: %s", e.Key, e.Reason)
}

// DefaultSettings returns the built-in settings used for any field a config
// file leaves unset. An explicitly empty background palette is preserved and
// rejected later, when a plain background is requested.
func DefaultSettings() *Settings {
	return &Settings{
		Width:               640,
		Height:              160,
		Charset:             "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ",
		NonASCIIDistractors: "αβγδεζηθικλμνξοπρστυφχψω№§¶†‡•…‰′″‹›€™",
		BackgroundColors: [][]int{
			{255, 255, 255}, // white
			{240, 240, 240}, // light gray
			{255, 248, 220}, // cornsilk
			{245, 245, 220}, // beige
			{230, 230, 250}, // lavender
		},
		CaptchaLengthRange: []int{3, 7},
		Dataset: DatasetSettings{
			NumSamples: 100,
			Mode:       ModeNormal,
			OutputDir:  "generated_captchas",
		},
	}
}

// LoadSettings reads a YAML settings document from path, layered over
// DefaultSettings.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	return s, nil
}

// Merge combines degradation mappings key-by-key, later sources winning.
// Inputs are never mutated; nil maps are skipped. Merging the same override
// twice yields the same result as merging it once.
func Merge(base map[string]any, overrides ...map[string]any) map[string]any {
	merged := make(map[string]any, len(base))
	for k, v := range base {
		merged[k] = v
	}
	for _, o := range overrides {
		for k, v := range o {
			merged[k] = v
		}
	}
	return merged
}

// GenerationConfig is the typed, validated view of the merged degradation
// settings for one sample. It is read-only after construction.
type GenerationConfig struct {
	Mode string

	RotationRange      [2]float64 // degrees, normal mode
	LargeRotationRange [2]float64 // degrees, part3/part4
	ShearRange         [2]float64 // shear factors
	FontSizeRange      [2]int     // points

	ColorVariation    bool
	ChallengingFonts  bool // accepted config key; glyph fonts draw uniformly from the pool either way
	ComplexBackground bool

	NoiseLevel float64 // fraction of full channel range
	BlurLevel  float64 // gaussian radius

	LineDistractors int
	LineWidth       int

	CircularDistractors int
	CircleRadius        int
	CircleWidth         int

	NonASCIIDistractors int
	NonASCIIFontSize    float64

	CharacterOverlap bool
	OverlapAmount    float64
	HasOverlapAmount bool // overlap shift only applies when the amount was configured

	ScaleDistortion       bool
	PerspectiveDistortion bool
	CharacterOutline      bool
}

// defaultGeneration is the base layer every per-sample config merge starts from.
func defaultGeneration() map[string]any {
	return map[string]any{
		"mode":                  ModeNormal,
		"rotation_range":        []any{-15.0, 15.0},
		"shear_range":           []any{-0.2, 0.2},
		"font_size_range":       []any{40, 60},
		"color_variation":       true,
		"large_rotation_range":  []any{-45.0, 45.0},
		"line_distractors":      0,
		"noise_level":           0.0,
		"complex_background":    false,
		"circular_distractors":  0,
		"non_ascii_distractors": 0,
		"challenging_fonts":     false,
		"blur_level":            0.0,
		"character_overlap":     false,
	}
}

// DefaultModeConfigs returns the built-in per-mode override mappings, used
// when the settings document does not supply mode_configs.
func DefaultModeConfigs() map[string]map[string]any {
	return map[string]map[string]any{
		ModeNormal: {
			"mode":               ModeNormal,
			"rotation_range":     []any{-25.0, 25.0},
			"font_size_range":    []any{40, 70},
			"color_variation":    true,
			"challenging_fonts":  true,
			"complex_background": false,
		},
		ModePart3: {
			"mode":                 ModePart3,
			"large_rotation_range": []any{-55.0, 55.0},
			"line_distractors":     2,
			"noise_level":          0.12,
			"complex_background":   true,
			"font_size_range":      []any{35, 75},
			"challenging_fonts":    true,
			"color_variation":      true,
		},
		ModePart4: {
			"mode":                  ModePart4,
			"large_rotation_range":  []any{-65.0, 65.0},
			"line_distractors":      3,
			"circular_distractors":  1,
			"non_ascii_distractors": 2,
			"challenging_fonts":     true,
			"blur_level":            1.2,
			"character_overlap":     true,
			"noise_level":           0.18,
			"complex_background":    true,
			"font_size_range":       []any{30, 80},
			"color_variation":       true,
		},
	}
}

// effectiveConfig merges the base defaults, the settings-file captcha_config
// and an explicit per-sample override (in that precedence order) and decodes
// the result into a validated GenerationConfig.
func effectiveConfig(captchaConfig, override map[string]any) (GenerationConfig, error) {
	m := Merge(defaultGeneration(), captchaConfig, override)

	var cfg GenerationConfig
	var err error

	if cfg.Mode, err = stringKey(m, "mode"); err != nil {
		return cfg, err
	}
	switch cfg.Mode {
	case ModeNormal, ModePart3, ModePart4:
	default:
		return cfg, &ConfigError{Key: "mode", Reason: fmt.Sprintf("unknown mode %q", cfg.Mode)}
	}

	if cfg.RotationRange, err = floatRange(m, "rotation_range"); err != nil {
		return cfg, err
	}
	if cfg.LargeRotationRange, err = floatRange(m, "large_rotation_range"); err != nil {
		return cfg, err
	}
	if cfg.ShearRange, err = floatRange(m, "shear_range"); err != nil {
		return cfg, err
	}
	fsr, err := floatRange(m, "font_size_range")
	if err != nil {
		return cfg, err
	}
	cfg.FontSizeRange = [2]int{int(fsr[0]), int(fsr[1])}
	if cfg.FontSizeRange[0] < 1 {
		return cfg, &ConfigError{Key: "font_size_range", Reason: "font sizes must be positive"}
	}

	if cfg.ColorVariation, err = boolKey(m, "color_variation"); err != nil {
		return cfg, err
	}
	if cfg.ChallengingFonts, err = boolKey(m, "challenging_fonts"); err != nil {
		return cfg, err
	}
	if cfg.ComplexBackground, err = boolKey(m, "complex_background"); err != nil {
		return cfg, err
	}

	if cfg.NoiseLevel, err = floatKey(m, "noise_level"); err != nil {
		return cfg, err
	}
	if cfg.BlurLevel, err = floatKey(m, "blur_level"); err != nil {
		return cfg, err
	}
	if cfg.NoiseLevel < 0 || cfg.BlurLevel < 0 {
		return cfg, &ConfigError{Key: "noise_level", Reason: "noise and blur levels must be non-negative"}
	}

	if cfg.LineDistractors, err = countKey(m, "line_distractors"); err != nil {
		return cfg, err
	}
	if cfg.CircularDistractors, err = countKey(m, "circular_distractors"); err != nil {
		return cfg, err
	}
	if cfg.NonASCIIDistractors, err = countKey(m, "non_ascii_distractors"); err != nil {
		return cfg, err
	}

	cfg.LineWidth = intOr(m, "line_width", 2)
	cfg.CircleRadius = intOr(m, "circle_radius", 20)
	cfg.CircleWidth = intOr(m, "circle_width", 2)
	cfg.NonASCIIFontSize = floatOr(m, "non_ascii_font_size", 40)

	if cfg.CharacterOverlap, err = boolKey(m, "character_overlap"); err != nil {
		return cfg, err
	}
	if v, ok := m["overlap_amount"]; ok {
		amount, ok := toFloat(v)
		if !ok {
			return cfg, &ConfigError{Key: "overlap_amount", Reason: "must be a number"}
		}
		cfg.OverlapAmount = amount
		cfg.HasOverlapAmount = true
	}

	cfg.ScaleDistortion = boolOr(m, "scale_distortion", false)
	cfg.PerspectiveDistortion = boolOr(m, "perspective_distortion", false)
	cfg.CharacterOutline = boolOr(m, "character_outline", false)

	return cfg, nil
}

// toFloat coerces the numeric types YAML and literal maps produce.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func floatKey(m map[string]any, key string) (float64, error) {
	v, ok := m[key]
	if !ok {
		return 0, &ConfigError{Key: key, Reason: "missing"}
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, &ConfigError{Key: key, Reason: fmt.Sprintf("expected number, got %T", v)}
	}
	return f, nil
}

func floatOr(m map[string]any, key string, fallback float64) float64 {
	if f, ok := toFloat(m[key]); ok {
		return f
	}
	return fallback
}

func intOr(m map[string]any, key string, fallback int) int {
	if f, ok := toFloat(m[key]); ok {
		return int(f)
	}
	return fallback
}

func boolKey(m map[string]any, key string) (bool, error) {
	v, ok := m[key]
	if !ok {
		return false, &ConfigError{Key: key, Reason: "missing"}
	}
	b, ok := v.(bool)
	if !ok {
		return false, &ConfigError{Key: key, Reason: fmt.Sprintf("expected bool, got %T", v)}
	}
	return b, nil
}

func boolOr(m map[string]any, key string, fallback bool) bool {
	if b, ok := m[key].(bool); ok {
		return b
	}
	return fallback
}

func stringKey(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", &ConfigError{Key: key, Reason: "missing"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ConfigError{Key: key, Reason: fmt.Sprintf("expected string, got %T", v)}
	}
	return s, nil
}

// countKey reads a non-negative integer count.
func countKey(m map[string]any, key string) (int, error) {
	f, err := floatKey(m, key)
	if err != nil {
		return 0, err
	}
	n := int(f)
	if n < 0 {
		return 0, &ConfigError{Key: key, Reason: "count must be non-negative"}
	}
	return n, nil
}

// floatRange reads a (min, max) pair, accepting any slice of two numbers.
func floatRange(m map[string]any, key string) ([2]float64, error) {
	var r [2]float64
	v, ok := m[key]
	if !ok {
		return r, &ConfigError{Key: key, Reason: "missing"}
	}

	var elems []any
	switch s := v.(type) {
	case []any:
		elems = s
	case []float64:
		for _, f := range s {
			elems = append(elems, f)
		}
	case []int:
		for _, n := range s {
			elems = append(elems, n)
		}
	case [2]float64:
		return s, nil
	default:
		return r, &ConfigError{Key: key, Reason: fmt.Sprintf("expected [min, max] pair, got %T", v)}
	}

	if len(elems) != 2 {
		return r, &ConfigError{Key: key, Reason: fmt.Sprintf("expected 2 values, got %d", len(elems))}
	}
	for i, e := range elems {
		f, ok := toFloat(e)
		if !ok {
			return r, &ConfigError{Key: key, Reason: fmt.Sprintf("expected number, got %T", e)}
		}
		r[i] = f
	}
	if r[0] > r[1] {
		return r, &ConfigError{Key: key, Reason: fmt.Sprintf("min %v exceeds max %v", r[0], r[1])}
	}
	return r, nil
}
