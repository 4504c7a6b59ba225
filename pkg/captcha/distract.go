package captcha

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// distractorGray is the fixed tone shared by all distractor shapes.
var distractorGray = color.NRGBA{R: 100, G: 100, B: 100, A: 0xff}

// applyDistractors draws the mode-dependent occluders directly onto the
// canvas. Zero counts leave the canvas untouched.
func (g *Generator) applyDistractors(canvas *image.NRGBA, cfg GenerationConfig) {
	switch cfg.Mode {
	case ModePart3:
		g.drawLineDistractors(canvas, cfg)
	case ModePart4:
		g.drawCircleDistractors(canvas, cfg)
		g.drawSymbolDistractors(canvas, cfg)
	}
}

// drawLineDistractors draws random-endpoint gray line segments.
func (g *Generator) drawLineDistractors(canvas *image.NRGBA, cfg GenerationConfig) {
	for i := 0; i < cfg.LineDistractors; i++ {
		x1 := g.rng.Intn(g.width + 1)
		y1 := g.rng.Intn(g.height + 1)
		x2 := g.rng.Intn(g.width + 1)
		y2 := g.rng.Intn(g.height + 1)
		drawLine(canvas, x1, y1, x2, y2, cfg.LineWidth, distractorGray)
	}
}

// drawCircleDistractors draws outlined gray circles with centers inset 50px
// from the canvas edges.
func (g *Generator) drawCircleDistractors(canvas *image.NRGBA, cfg GenerationConfig) {
	const inset = 50
	if cfg.CircularDistractors == 0 || g.width <= 2*inset || g.height <= 2*inset {
		return
	}
	for i := 0; i < cfg.CircularDistractors; i++ {
		x := inset + g.rng.Intn(g.width-2*inset)
		y := inset + g.rng.Intn(g.height-2*inset)
		drawCircleOutline(canvas, x, y, cfg.CircleRadius, cfg.CircleWidth, distractorGray)
	}
}

// drawSymbolDistractors draws glyphs from the non-target symbol pool using
// the first configured font. A symbol the font cannot draw is skipped,
// never fatal.
func (g *Generator) drawSymbolDistractors(canvas *image.NRGBA, cfg GenerationConfig) {
	if cfg.NonASCIIDistractors == 0 || len(g.symbols) == 0 {
		return
	}
	if g.width <= 50 || g.height <= 50 {
		return
	}

	face, err := newFace(g.fonts.first(), cfg.NonASCIIFontSize)
	if err != nil {
		g.warnf("distractor font: %v (skipping symbol distractors)", err)
		return
	}
	defer face.Close()

	for i := 0; i < cfg.NonASCIIDistractors; i++ {
		sym := g.symbols[g.rng.Intn(len(g.symbols))]
		if _, _, ok := face.GlyphBounds(sym); !ok {
			continue // font has no glyph for this symbol
		}
		x := g.rng.Intn(g.width - 50)
		y := g.rng.Intn(g.height - 50)
		d := &font.Drawer{
			Dst:  canvas,
			Src:  image.NewUniform(distractorGray),
			Face: face,
			Dot:  fixed.P(x, y+int(cfg.NonASCIIFontSize)),
		}
		d.DrawString(string(sym))
	}
}
