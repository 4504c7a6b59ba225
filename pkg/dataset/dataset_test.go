package dataset

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Abdullah-Taha9/captcha-generator/pkg/captcha"
)

func newTestGenerator(t *testing.T) *captcha.Generator {
	t.Helper()
	settings := captcha.DefaultSettings()
	settings.Width = 320
	settings.Height = 80
	gen, err := captcha.New(settings,
		captcha.WithSeed(42),
		captcha.WithLogger(io.Discard),
		captcha.WithoutWarnings())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return gen
}

func TestModeOverride(t *testing.T) {
	settings := captcha.DefaultSettings()
	if ModeOverride(settings, "part3") == nil {
		t.Error("part3 should resolve to the built-in mode defaults")
	}

	settings.ModeConfigs = map[string]map[string]any{
		"normal": {"num_lines": 7.0},
	}
	got := ModeOverride(settings, "normal")
	if got["num_lines"] != 7.0 {
		t.Errorf("settings mode_configs should win, got %v", got)
	}
}

func TestGenerateBatch(t *testing.T) {
	gen := newTestGenerator(t)
	dir := t.TempDir()

	metadata, err := Generate(gen, BatchConfig{
		NumSamples:      3,
		Mode:            "normal",
		OutputDir:       dir,
		SaveAnnotations: true,
		Logger:          io.Discard,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(metadata) != 3 {
		t.Fatalf("got %d metadata entries, want 3", len(metadata))
	}

	for i, m := range metadata {
		if _, err := os.Stat(m.Filepath); err != nil {
			t.Errorf("sample %d image missing: %v", i, err)
		}
		if m.Resolution != "320x80" {
			t.Errorf("sample %d resolution = %q", i, m.Resolution)
		}
		if m.Length != len(m.Text) {
			t.Errorf("sample %d length %d does not match text %q", i, m.Length, m.Text)
		}
		if len(m.Bboxes) != m.Length {
			t.Errorf("sample %d has %d boxes for %d characters", i, len(m.Bboxes), m.Length)
		}
		for j, b := range m.Bboxes {
			if string([]rune(m.Text)[j]) != b.Character {
				t.Errorf("sample %d box %d character %q does not match text %q", i, j, b.Character, m.Text)
			}
		}
	}

	var onDisk []Metadata
	data, err := os.ReadFile(filepath.Join(dir, "normal_metadata.json"))
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if len(onDisk) != len(metadata) {
		t.Errorf("metadata file has %d entries, want %d", len(onDisk), len(metadata))
	}

	var summary Summary
	data, err = os.ReadFile(filepath.Join(dir, "normal_summary.json"))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.TotalSamples != 3 || summary.Mode != "normal" {
		t.Errorf("summary = %+v", summary)
	}
	if summary.AvgLength < 3 || summary.AvgLength > 7 {
		t.Errorf("average length %v outside the configured range", summary.AvgLength)
	}
}

func TestGenerateWithoutAnnotations(t *testing.T) {
	gen := newTestGenerator(t)

	metadata, err := Generate(gen, BatchConfig{
		NumSamples: 1,
		Mode:       "normal",
		OutputDir:  t.TempDir(),
		Logger:     io.Discard,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(metadata[0].Bboxes) != 0 {
		t.Errorf("annotations were not requested but %d boxes were kept", len(metadata[0].Bboxes))
	}
}

func TestGenerateRejectsBadOverride(t *testing.T) {
	gen := newTestGenerator(t)

	_, err := Generate(gen, BatchConfig{
		NumSamples: 1,
		Mode:       "normal",
		OutputDir:  t.TempDir(),
		Override:   map[string]any{"mode": "no-such-mode"},
		Logger:     io.Discard,
	})
	if err == nil {
		t.Fatal("an invalid override must abort the batch")
	}
}

func TestWritePreview(t *testing.T) {
	gen := newTestGenerator(t)
	dir := t.TempDir()

	metadata, err := Generate(gen, BatchConfig{
		NumSamples: 2,
		Mode:       "normal",
		OutputDir:  dir,
		Logger:     io.Discard,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	path := filepath.Join(dir, "preview.pdf")
	if err := WritePreview(metadata, path); err != nil {
		t.Fatalf("WritePreview: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat preview: %v", err)
	}
	if info.Size() == 0 {
		t.Error("preview PDF is empty")
	}
}
