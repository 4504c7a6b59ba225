// captchagen is a command-line tool for generating labeled captcha datasets.
//
// For each requested part it renders train/val/test splits into temporary
// staging directories, exports them to the annotation layout expected by the
// downstream training pipeline, and removes the staging directories.
//
// Usage:
//
//	captchagen -config config.yaml [options]
//
// Required flags:
//
//	-config string    Path to the YAML settings file
//
// Generation options:
//
//	-part string           Comma-separated parts to generate: part2, part3, part4
//	                       (part2 renders with the normal degradation profile)
//	-train-samples int     Override number of training samples from config
//	-val-samples int       Override number of validation samples from config
//	-test-samples int      Override number of test samples from config
//	-output-dir string     Override base output directory from config
//	-seed int              Seed the random stream for reproducible output
//	-preview               Also write a <part>_preview.pdf contact sheet
//
// Example:
//
//	captchagen -config config.yaml -part part3,part4 -train-samples 500
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Abdullah-Taha9/captcha-generator/pkg/captcha"
	"github.com/Abdullah-Taha9/captcha-generator/pkg/dataset"
)

// partMode maps a part name to its degradation mode. part2 is the original
// dataset's name for undergraded captchas.
func partMode(part string) (string, error) {
	switch part {
	case "part2", captcha.ModeNormal:
		return captcha.ModeNormal, nil
	case captcha.ModePart3, captcha.ModePart4:
		return part, nil
	default:
		return "", fmt.Errorf("unknown part %q (expected part2, part3 or part4)", part)
	}
}

func main() {
	configPath := flag.String("config", "", "Path to the YAML settings file (required)")
	parts := flag.String("part", "part2", "Comma-separated parts to generate (part2, part3, part4)")
	trainSamples := flag.Int("train-samples", -1, "Override number of training samples from config")
	valSamples := flag.Int("val-samples", -1, "Override number of validation samples from config")
	testSamples := flag.Int("test-samples", -1, "Override number of test samples from config")
	outputDir := flag.String("output-dir", "", "Override base output directory from config")
	seed := flag.Int64("seed", 0, "Seed the random stream for reproducible output")
	preview := flag.Bool("preview", false, "Write a preview PDF per generated part")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -config flag is required")
		flag.PrintDefaults()
		os.Exit(1)
	}

	settings, err := captcha.LoadSettings(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var opts []captcha.Option
	if *seed != 0 {
		opts = append(opts, captcha.WithSeed(*seed))
	}
	gen, err := captcha.New(settings, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	baseDir := settings.Dataset.OutputDir
	if *outputDir != "" {
		baseDir = *outputDir
	}

	splits := []struct {
		name    string
		samples int
	}{
		{"train", resolveCount(*trainSamples, settings.Dataset.TrainSamples, 100)},
		{"val", resolveCount(*valSamples, settings.Dataset.ValSamples, 20)},
		{"test", resolveCount(*testSamples, settings.Dataset.TestSamples, 20)},
	}

	saveAnnotations := true
	if settings.Dataset.SaveAnnotations != nil {
		saveAnnotations = *settings.Dataset.SaveAnnotations
	}

	for _, part := range strings.Split(*parts, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		mode, err := partMode(part)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Generating %s dataset (mode %s)...\n", part, mode)
		var previewMeta []dataset.Metadata
		var staging []string

		for _, split := range splits {
			if split.samples < 1 {
				continue
			}
			stagingDir := filepath.Join(baseDir, "temp_"+split.name)
			staging = append(staging, stagingDir)

			fmt.Printf("Generating %s set (%d samples)...\n", split.name, split.samples)
			metadata, err := dataset.Generate(gen, dataset.BatchConfig{
				NumSamples:      split.samples,
				Mode:            mode,
				OutputDir:       stagingDir,
				SaveAnnotations: saveAnnotations,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error generating %s/%s: %v\n", part, split.name, err)
				os.Exit(1)
			}

			if err := dataset.Export(metadata, baseDir, part, split.name, nil); err != nil {
				fmt.Fprintf(os.Stderr, "Error exporting %s/%s: %v\n", part, split.name, err)
				os.Exit(1)
			}

			if *preview && split.name == "train" {
				previewMeta = metadata
			}
		}

		if *preview && len(previewMeta) > 0 {
			previewPath := filepath.Join(baseDir, part+"_preview.pdf")
			if err := dataset.WritePreview(previewMeta, previewPath); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing preview: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("Preview written:", previewPath)
		}

		// staging dirs are only an intermediate format
		for _, dir := range staging {
			if err := os.RemoveAll(dir); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to remove %s: %v\n", dir, err)
			}
		}
		fmt.Printf("Done: %s\n", filepath.Join(baseDir, part))
	}
}

// resolveCount picks a split's sample count: CLI flag, then config, then the
// built-in default.
func resolveCount(flagValue int, configValue *int, fallback int) int {
	if flagValue >= 0 {
		return flagValue
	}
	if configValue != nil {
		return *configValue
	}
	return fallback
}
