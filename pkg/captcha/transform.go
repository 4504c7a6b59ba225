package captcha

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand"

	"github.com/disintegration/imaging"
)

// The glyph transform pipeline. Stages run in a fixed order:
// rotate, shear, scale, perspective, outline. Every stage returns a fresh
// tile or an error; on error the caller keeps the stage's input tile, so a
// failed transform can never abort sample generation.

// minRotation is the angle below which rotation is treated as zero.
const minRotation = 0.5

// rotationAngle draws the per-glyph rotation for the active mode.
func rotationAngle(rng *rand.Rand, cfg GenerationConfig) float64 {
	r := cfg.RotationRange
	if cfg.Mode == ModePart3 || cfg.Mode == ModePart4 {
		r = cfg.LargeRotationRange
	}
	return r[0] + rng.Float64()*(r[1]-r[0])
}

// applyTransforms runs the pipeline over tile and returns the transformed
// image. Stage failures are reported through warnf and swallowed.
func (g *Generator) applyTransforms(tile *image.NRGBA, angle float64, col color.NRGBA, cfg GenerationConfig) *image.NRGBA {
	keep := func(stage string) func(*image.NRGBA, error) {
		return func(out *image.NRGBA, err error) {
			if err != nil {
				g.warnf("glyph %s failed: %v (keeping previous tile)", stage, err)
				return
			}
			tile = out
		}
	}

	if math.Abs(angle) > minRotation {
		keep("rotation")(rotateTile(tile, angle))
	}

	sx := cfg.ShearRange[0] + g.rng.Float64()*(cfg.ShearRange[1]-cfg.ShearRange[0])
	sy := cfg.ShearRange[0] + g.rng.Float64()*(cfg.ShearRange[1]-cfg.ShearRange[0])
	keep("shear")(shearTile(tile, sx, sy))

	if cfg.ScaleDistortion {
		keep("scale")(scaleTile(tile, 0.8+g.rng.Float64()*0.4, 0.8+g.rng.Float64()*0.4))
	}

	if cfg.PerspectiveDistortion && (cfg.Mode == ModePart3 || cfg.Mode == ModePart4) {
		keep("perspective")(perspectiveTile(tile, g.rng))
	}

	if cfg.CharacterOutline {
		keep("outline")(outlineTile(tile, col))
	}

	return tile
}

// rotateTile rotates the tile counter-clockwise by angle degrees, expanding
// the bounds so no ink is clipped. Uncovered area stays transparent.
func rotateTile(tile *image.NRGBA, angle float64) (*image.NRGBA, error) {
	if tile.Rect.Dx() < 1 || tile.Rect.Dy() < 1 {
		return nil, fmt.Errorf("empty tile")
	}
	return imaging.Rotate(tile, angle, color.NRGBA{}), nil
}

// shearTile applies an affine shear with independent x and y factors. The
// output keeps the input size; uncovered pixels are transparent.
func shearTile(tile *image.NRGBA, shearX, shearY float64) (*image.NRGBA, error) {
	w := tile.Rect.Dx()
	h := tile.Rect.Dy()
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("empty tile")
	}
	out := inverseMap(tile, w, h, func(x, y float64) (float64, float64) {
		return x + shearX*y, shearY*x + y
	})
	return out, nil
}

// scaleTile resizes the tile by independent x/y factors.
func scaleTile(tile *image.NRGBA, scaleX, scaleY float64) (*image.NRGBA, error) {
	w := int(float64(tile.Rect.Dx()) * scaleX)
	h := int(float64(tile.Rect.Dy()) * scaleY)
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("tile too small to scale")
	}
	return imaging.Resize(tile, w, h, imaging.Lanczos), nil
}

// perspectiveTile warps the tile by pulling the two corners of one randomly
// chosen edge inward, with a distortion magnitude in [0.05, 0.15]. Pixels are
// sampled through an inverse bilinear quad map.
func perspectiveTile(tile *image.NRGBA, rng *rand.Rand) (*image.NRGBA, error) {
	w := tile.Rect.Dx()
	h := tile.Rect.Dy()
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("empty tile")
	}

	fw := float64(w)
	fh := float64(h)
	d := 0.05 + rng.Float64()*0.10

	// source quad corners: top-left, top-right, bottom-right, bottom-left
	quad := [4][2]float64{{0, 0}, {fw, 0}, {fw, fh}, {0, fh}}
	switch rng.Intn(4) {
	case 0: // left edge squeezed
		quad[0][1] = fh * d
		quad[3][1] = fh * (1 - d)
	case 1: // right edge squeezed
		quad[1][1] = fh * d
		quad[2][1] = fh * (1 - d)
	case 2: // top edge squeezed
		quad[0][0] = fw * d
		quad[1][0] = fw * (1 - d)
	default: // bottom edge squeezed
		quad[3][0] = fw * d
		quad[2][0] = fw * (1 - d)
	}

	out := inverseMap(tile, w, h, func(x, y float64) (float64, float64) {
		u := x / fw
		v := y / fh
		// bilinear interpolation of the quad corners
		topX := quad[0][0] + u*(quad[1][0]-quad[0][0])
		topY := quad[0][1] + u*(quad[1][1]-quad[0][1])
		botX := quad[3][0] + u*(quad[2][0]-quad[3][0])
		botY := quad[3][1] + u*(quad[2][1]-quad[3][1])
		return topX + v*(botX-topX), topY + v*(botY-topY)
	})
	return out, nil
}

// outlineTile composites eight offset copies of the tile, recolored to a
// lighter tone of the glyph color, underneath the original to produce a
// stroke effect.
func outlineTile(tile *image.NRGBA, col color.NRGBA) (*image.NRGBA, error) {
	b := tile.Rect
	if b.Dx() < 1 || b.Dy() < 1 {
		return nil, fmt.Errorf("empty tile")
	}

	lighter := color.NRGBA{
		R: clamp8(int(col.R) + 100),
		G: clamp8(int(col.G) + 100),
		B: clamp8(int(col.B) + 100),
		A: 0xff,
	}
	stroke := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			a := tile.NRGBAAt(b.Min.X+x, b.Min.Y+y).A
			if a > 0 {
				stroke.SetNRGBA(x, y, color.NRGBA{R: lighter.R, G: lighter.G, B: lighter.B, A: a})
			}
		}
	}

	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			r := stroke.Rect.Add(image.Pt(dx, dy))
			draw.Draw(out, r, stroke, stroke.Rect.Min, draw.Over)
		}
	}
	draw.Draw(out, out.Rect, tile, b.Min, draw.Over)
	return out, nil
}

// inverseMap builds a w x h output image by mapping every destination pixel
// through src() to a source position and bilinearly sampling the tile there.
// Samples outside the tile are transparent.
func inverseMap(tile *image.NRGBA, w, h int, src func(x, y float64) (float64, float64)) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx, sy := src(float64(x), float64(y))
			out.SetNRGBA(x, y, sampleBilinear(tile, sx, sy))
		}
	}
	return out
}

// sampleBilinear samples the tile at a fractional position, treating
// everything outside the bounds as fully transparent.
func sampleBilinear(tile *image.NRGBA, x, y float64) color.NRGBA {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	at := func(px, py int) color.NRGBA {
		p := image.Pt(tile.Rect.Min.X+px, tile.Rect.Min.Y+py)
		if !p.In(tile.Rect) {
			return color.NRGBA{}
		}
		return tile.NRGBAAt(p.X, p.Y)
	}

	c00 := at(x0, y0)
	c10 := at(x0+1, y0)
	c01 := at(x0, y0+1)
	c11 := at(x0+1, y0+1)

	lerp2 := func(a, b, c, d uint8) uint8 {
		top := float64(a) + fx*(float64(b)-float64(a))
		bot := float64(c) + fx*(float64(d)-float64(c))
		return uint8(math.Round(top + fy*(bot-top)))
	}

	return color.NRGBA{
		R: lerp2(c00.R, c10.R, c01.R, c11.R),
		G: lerp2(c00.G, c10.G, c01.G, c11.G),
		B: lerp2(c00.B, c10.B, c01.B, c11.B),
		A: lerp2(c00.A, c10.A, c01.A, c11.A),
	}
}
