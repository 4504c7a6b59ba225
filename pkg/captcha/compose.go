package captcha

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// BoundingBox is the per-character label emitted alongside a sample. Center,
// width and height are normalized to [0, 1] by the canvas dimensions.
//
// The box is computed from the glyph's pre-transform ink extent and its
// jittered base position, not from the post-transform tile geometry. For
// large rotations the label is therefore approximate; downstream consumers
// depend on this convention, so it must not be tightened.
type BoundingBox struct {
	Character string  `json:"character"`
	XCenter   float64 `json:"x_center"`
	YCenter   float64 `json:"y_center"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Rotation  float64 `json:"rotation"`
}

// positionJitter is the maximum random offset applied to a glyph's base
// position on each axis.
const positionJitter = 10

// placeGlyph composites a transformed glyph tile onto the canvas and returns
// the character's bounding box.
//
// The base position spreads characters evenly across the width with the
// vertical center on the canvas midline, then jitters both axes. The paste
// position clamps the tile fully inside the canvas. If the tile cannot be
// pasted, the raw glyph is drawn directly with the renderer's face and color
// at the untransformed position; that fallback never fails.
func (g *Generator) placeGlyph(canvas *image.NRGBA, tile glyphTile, transformed *image.NRGBA,
	ch rune, index, total int, face font.Face, col color.NRGBA, angle float64, cfg GenerationConfig) BoundingBox {

	spacing := g.width / (total + 1)
	x := spacing*(index+1) + g.rng.Intn(2*positionJitter+1) - positionJitter
	y := g.height/2 + g.rng.Intn(2*positionJitter+1) - positionJitter

	// overlap shift needs an explicitly configured amount; no built-in default
	if cfg.CharacterOverlap && index > 0 && cfg.HasOverlapAmount {
		x -= int(cfg.OverlapAmount * float64(tile.InkW))
	}

	if err := pasteTile(canvas, transformed, x, y); err != nil {
		g.warnf("paste of %q failed: %v (drawing raw glyph)", ch, err)
		d := &font.Drawer{
			Dst:  canvas,
			Src:  image.NewUniform(col),
			Face: face,
			Dot:  fixed.P(x, y),
		}
		d.DrawString(string(ch))
	}

	return BoundingBox{
		Character: string(ch),
		XCenter:   float64(x) / float64(g.width),
		YCenter:   float64(y) / float64(g.height),
		Width:     float64(tile.InkW) / float64(g.width),
		Height:    float64(tile.InkH) / float64(g.height),
		Rotation:  angle,
	}
}

// pasteTile alpha-composites the tile centered near (x, y), clamped so it
// stays fully within the canvas. A tile larger than the canvas cannot be
// placed and is reported as an error.
func pasteTile(canvas, tile *image.NRGBA, x, y int) error {
	cw := canvas.Rect.Dx()
	ch := canvas.Rect.Dy()
	tw := tile.Rect.Dx()
	th := tile.Rect.Dy()

	if tw > cw || th > ch {
		return fmt.Errorf("tile %dx%d exceeds canvas %dx%d", tw, th, cw, ch)
	}

	px := clampInt(x-tw/2, 0, cw-tw)
	py := clampInt(y-th/2, 0, ch-th)

	r := image.Rect(px, py, px+tw, py+th).Add(canvas.Rect.Min)
	draw.Draw(canvas, r, tile, tile.Rect.Min, draw.Over)
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
