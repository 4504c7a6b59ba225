package captcha

import (
	"errors"
	"testing"
)

func TestMergePrecedence(t *testing.T) {
	base := map[string]any{"a": 1, "b": 1, "c": 1}
	mid := map[string]any{"b": 2, "c": 2}
	top := map[string]any{"c": 3}

	got := Merge(base, mid, top)
	if got["a"] != 1 || got["b"] != 2 || got["c"] != 3 {
		t.Errorf("Merge precedence wrong: %v", got)
	}
	if base["b"] != 1 || mid["c"] != 2 {
		t.Error("Merge mutated its inputs")
	}
}

func TestMergeIdempotent(t *testing.T) {
	base := map[string]any{"noise_level": 0.1, "mode": ModePart3}
	override := map[string]any{"noise_level": 0.5, "blur_level": 1.0}

	once := Merge(base, override)
	twice := Merge(base, override, override)
	if len(once) != len(twice) {
		t.Fatalf("merge not idempotent: %v vs %v", once, twice)
	}
	for k, v := range once {
		if twice[k] != v {
			t.Errorf("key %q: %v after one merge, %v after two", k, v, twice[k])
		}
	}
}

func TestEffectiveConfigDefaults(t *testing.T) {
	cfg, err := effectiveConfig(nil, nil)
	if err != nil {
		t.Fatalf("effectiveConfig: %v", err)
	}
	if cfg.Mode != ModeNormal {
		t.Errorf("default mode = %q, want %q", cfg.Mode, ModeNormal)
	}
	if cfg.RotationRange != [2]float64{-15, 15} {
		t.Errorf("default rotation range = %v", cfg.RotationRange)
	}
	if cfg.NoiseLevel != 0 || cfg.BlurLevel != 0 {
		t.Errorf("defaults should disable noise and blur, got %v / %v", cfg.NoiseLevel, cfg.BlurLevel)
	}
	if cfg.HasOverlapAmount {
		t.Error("overlap amount must not default to a value")
	}
	if cfg.LineWidth != 2 || cfg.CircleRadius != 20 || cfg.CircleWidth != 2 {
		t.Errorf("distractor geometry defaults wrong: %d/%d/%d", cfg.LineWidth, cfg.CircleRadius, cfg.CircleWidth)
	}
}

func TestEffectiveConfigOverride(t *testing.T) {
	cfg, err := effectiveConfig(
		map[string]any{"noise_level": 0.1, "mode": ModePart3},
		map[string]any{"noise_level": 0.3, "overlap_amount": 0.25},
	)
	if err != nil {
		t.Fatalf("effectiveConfig: %v", err)
	}
	if cfg.Mode != ModePart3 {
		t.Errorf("mode = %q, want part3", cfg.Mode)
	}
	if cfg.NoiseLevel != 0.3 {
		t.Errorf("noise level = %v, want explicit override 0.3", cfg.NoiseLevel)
	}
	if !cfg.HasOverlapAmount || cfg.OverlapAmount != 0.25 {
		t.Errorf("overlap amount = %v (has=%v), want 0.25", cfg.OverlapAmount, cfg.HasOverlapAmount)
	}
}

func TestEffectiveConfigValidation(t *testing.T) {
	tests := []struct {
		name     string
		override map[string]any
	}{
		{"inverted range", map[string]any{"rotation_range": []any{15.0, -15.0}}},
		{"negative count", map[string]any{"line_distractors": -1}},
		{"unknown mode", map[string]any{"mode": "part9"}},
		{"negative noise", map[string]any{"noise_level": -0.5}},
		{"non-numeric range", map[string]any{"shear_range": "wide"}},
		{"wrong arity range", map[string]any{"font_size_range": []any{40}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := effectiveConfig(nil, tt.override)
			var cerr *ConfigError
			if !errors.As(err, &cerr) {
				t.Errorf("want ConfigError, got %v", err)
			}
		})
	}
}

func TestDefaultModeConfigs(t *testing.T) {
	configs := DefaultModeConfigs()
	for _, mode := range []string{ModeNormal, ModePart3, ModePart4} {
		override, ok := configs[mode]
		if !ok {
			t.Fatalf("no default config for mode %s", mode)
		}
		cfg, err := effectiveConfig(nil, override)
		if err != nil {
			t.Fatalf("mode %s default config invalid: %v", mode, err)
		}
		if cfg.Mode != mode {
			t.Errorf("mode %s config resolves to mode %q", mode, cfg.Mode)
		}
	}
}

func TestDefaultSettingsValid(t *testing.T) {
	if _, err := New(DefaultSettings(), WithSeed(1), WithoutWarnings()); err != nil {
		t.Fatalf("DefaultSettings must build a generator: %v", err)
	}
}
