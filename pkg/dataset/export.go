package dataset

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
)

// Annotation is one character box in the exported labels.json schema.
// BBox is axis-aligned [x1, y1, x2, y2] in pixels; OrientedBBox is the four
// box corners rotated about the center, as (x, y) pairs in top-left,
// top-right, bottom-right, bottom-left order.
type Annotation struct {
	BBox         [4]float64 `json:"bbox"`
	OrientedBBox [8]float64 `json:"oriented_bbox"`
	CategoryID   int        `json:"category_id"`
}

// LabelEntry is one image record in labels.json.
type LabelEntry struct {
	Height        int          `json:"height"`
	Width         int          `json:"width"`
	ImageID       string       `json:"image_id"`
	CaptchaString string       `json:"captcha_string"`
	Annotations   []Annotation `json:"annotations"`
}

// CategoryID maps a captcha character to its class index: digits map to
// their value (0-9), letters case-insensitively to 10-35. Any other rune has
// no category.
func CategoryID(ch rune) (int, bool) {
	switch {
	case unicode.IsDigit(ch):
		return int(ch - '0'), true
	case ch >= 'a' && ch <= 'z':
		return int(ch-'a') + 10, true
	case ch >= 'A' && ch <= 'Z':
		return int(ch-'A') + 10, true
	default:
		return 0, false
	}
}

// OrientedBox rotates the axis-aligned box of size w x h about its center
// (cx, cy) by rotation degrees and returns the corners as x,y pairs in
// top-left, top-right, bottom-right, bottom-left order.
func OrientedBox(cx, cy, w, h, rotation float64) [8]float64 {
	rad := rotation * math.Pi / 180
	cos := math.Cos(rad)
	sin := math.Sin(rad)

	corners := [4][2]float64{
		{-w / 2, -h / 2}, // top-left
		{w / 2, -h / 2},  // top-right
		{w / 2, h / 2},   // bottom-right
		{-w / 2, h / 2},  // bottom-left
	}

	var out [8]float64
	for i, c := range corners {
		out[2*i] = c[0]*cos - c[1]*sin + cx
		out[2*i+1] = c[0]*sin + c[1]*cos + cy
	}
	return out
}

// Export converts a generated batch to the annotation layout
// <part>/<split>/images/<6-digit-id>.png plus <part>/<split>/labels.json.
// Image files are copied from their staging location. Bounding boxes are
// denormalized to pixels; character annotations are emitted for the train
// and val splits only.
func Export(metadata []Metadata, outputDir, part, split string, logger io.Writer) error {
	if logger == nil {
		logger = os.Stdout
	}
	splitDir := filepath.Join(outputDir, part, split)
	imagesDir := filepath.Join(splitDir, "images")
	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	withBoxes := split == "train" || split == "val"
	labels := make([]LabelEntry, 0, len(metadata))

	for i, item := range metadata {
		imageID := fmt.Sprintf("%06d", i+1)
		if err := copyFile(item.Filepath, filepath.Join(imagesDir, imageID+".png")); err != nil {
			return fmt.Errorf("failed to copy image %s: %w", item.Filename, err)
		}

		width, height, err := parseResolution(item.Resolution)
		if err != nil {
			return fmt.Errorf("sample %s: %w", item.Filename, err)
		}

		entry := LabelEntry{
			Height:        height,
			Width:         width,
			ImageID:       imageID,
			CaptchaString: item.Text,
			Annotations:   []Annotation{},
		}

		if withBoxes {
			for _, box := range item.Bboxes {
				ch := []rune(box.Character)
				if len(ch) != 1 {
					continue
				}
				categoryID, ok := CategoryID(ch[0])
				if !ok {
					continue
				}

				cx := box.XCenter * float64(width)
				cy := box.YCenter * float64(height)
				w := box.Width * float64(width)
				h := box.Height * float64(height)

				entry.Annotations = append(entry.Annotations, Annotation{
					BBox:         [4]float64{cx - w/2, cy - h/2, cx + w/2, cy + h/2},
					OrientedBBox: OrientedBox(cx, cy, w, h, box.Rotation),
					CategoryID:   categoryID,
				})
			}
		}
		labels = append(labels, entry)
	}

	if err := writeJSON(filepath.Join(splitDir, "labels.json"), labels); err != nil {
		return err
	}
	fmt.Fprintf(logger, "Exported %d samples to %s\n", len(labels), splitDir)
	return nil
}

// parseResolution splits a "WxH" string into pixel dimensions.
func parseResolution(s string) (width, height int, err error) {
	w, h, ok := strings.Cut(s, "x")
	if !ok {
		return 0, 0, fmt.Errorf("malformed resolution %q", s)
	}
	if width, err = strconv.Atoi(w); err != nil {
		return 0, 0, fmt.Errorf("malformed resolution %q", s)
	}
	if height, err = strconv.Atoi(h); err != nil {
		return 0, 0, fmt.Errorf("malformed resolution %q", s)
	}
	return width, height, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
