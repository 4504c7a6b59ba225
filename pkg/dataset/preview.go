package dataset

import (
	"bytes"
	"fmt"
	"os"

	"codeberg.org/go-pdf/fpdf"
)

// WritePreview renders a PDF contact sheet of generated samples for manual
// inspection: each sample's image at page width with its ground-truth string
// captioned underneath. Useful for eyeballing degradation settings before
// committing to a large batch.
func WritePreview(metadata []Metadata, path string) error {
	const (
		pageWidth  = 595.0 // A4 in points
		pageHeight = 842.0
		margin     = 36.0
		caption    = 16.0
		gap        = 12.0
	)

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 10)

	y := pageHeight // force a page on the first sample
	for i, item := range metadata {
		data, err := os.ReadFile(item.Filepath)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", item.Filename, err)
		}
		width, height, err := parseResolution(item.Resolution)
		if err != nil {
			return fmt.Errorf("sample %s: %w", item.Filename, err)
		}

		drawWidth := pageWidth - 2*margin
		drawHeight := drawWidth * float64(height) / float64(width)

		if y+drawHeight+caption > pageHeight-margin {
			pdf.AddPage()
			y = margin
		}

		name := fmt.Sprintf("sample%d", i)
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
		pdf.ImageOptions(name, margin, y, drawWidth, drawHeight, false, opts, 0, "")

		pdf.Text(margin, y+drawHeight+12, fmt.Sprintf("%s  (%s, %s)", item.Text, item.Mode, item.Resolution))
		y += drawHeight + caption + gap
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create preview file: %w", err)
	}
	defer f.Close()
	if err := pdf.Output(f); err != nil {
		return fmt.Errorf("failed to write preview PDF: %w", err)
	}
	return nil
}
