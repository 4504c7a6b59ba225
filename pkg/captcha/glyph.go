package captcha

import (
	"image"
	"image/color"
	"math/rand"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// glyphTileMargin is added around the glyph ink extent when sizing a tile,
// leaving room for the transform stages to displace pixels without clipping.
const glyphTileMargin = 60

// glyphTile is one character rasterized into an isolated transparent buffer.
// Transform stages replace Img; InkW/InkH keep the pre-transform ink extent
// the bounding-box accounting is based on.
type glyphTile struct {
	Img  *image.NRGBA
	InkW int
	InkH int
}

// measureGlyph returns the ink extent of ch in face, guarded to at least one
// pixel each way so degenerate glyphs still produce a tile.
func measureGlyph(face font.Face, ch rune) (w, h int, bounds fixed.Rectangle26_6) {
	bounds, _, _ = face.GlyphBounds(ch)
	w = (bounds.Max.X - bounds.Min.X).Ceil()
	h = (bounds.Max.Y - bounds.Min.Y).Ceil()
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h, bounds
}

// renderGlyph rasterizes one character into a square transparent tile, glyph
// centered. Tile side is the larger ink dimension plus a fixed margin.
func renderGlyph(ch rune, face font.Face, col color.NRGBA) glyphTile {
	w, h, bounds := measureGlyph(face, ch)

	side := w
	if h > side {
		side = h
	}
	side += glyphTileMargin

	img := image.NewNRGBA(image.Rect(0, 0, side, side))
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		// position the ink box at the tile center
		Dot: fixed.Point26_6{
			X: fixed.I((side-w)/2) - bounds.Min.X,
			Y: fixed.I((side-h)/2) - bounds.Min.Y,
		},
	}
	d.DrawString(string(ch))

	return glyphTile{Img: img, InkW: w, InkH: h}
}

// glyphColor implements the character color policy. With variation enabled it
// picks uniformly among a dark tone, one of five hue families, or pure black;
// disabled means always pure black. The chosen color is reused for the
// outline stage of the same glyph.
func glyphColor(rng *rand.Rand, variation bool) color.NRGBA {
	if !variation {
		return color.NRGBA{A: 0xff}
	}
	switch rng.Intn(3) {
	case 0: // dark
		return color.NRGBA{
			R: uint8(rng.Intn(61)),
			G: uint8(rng.Intn(61)),
			B: uint8(rng.Intn(61)),
			A: 0xff,
		}
	case 1: // colored
		switch rng.Intn(5) {
		case 0: // red tones
			return color.NRGBA{R: uint8(100 + rng.Intn(101)), A: 0xff}
		case 1: // green tones
			return color.NRGBA{G: uint8(100 + rng.Intn(101)), A: 0xff}
		case 2: // blue tones
			return color.NRGBA{B: uint8(100 + rng.Intn(101)), A: 0xff}
		case 3: // yellow/brown
			return color.NRGBA{R: uint8(80 + rng.Intn(71)), G: uint8(80 + rng.Intn(71)), A: 0xff}
		default: // purple
			return color.NRGBA{R: uint8(80 + rng.Intn(71)), B: uint8(80 + rng.Intn(71)), A: 0xff}
		}
	default: // high contrast
		return color.NRGBA{A: 0xff}
	}
}
