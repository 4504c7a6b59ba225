package captcha

import (
	"image"
	"image/color"
	"math"
	"math/rand"

	"github.com/disintegration/imaging"
)

// buildBackground produces the base canvas. Plain backgrounds are a uniform
// fill with a color picked from the configured palette; complex backgrounds
// choose one of four procedural styles. An empty palette is a configuration
// fault and fails loudly rather than substituting a built-in color.
func (g *Generator) buildBackground(useComplex bool) (*image.NRGBA, error) {
	if !useComplex {
		if len(g.palette) == 0 {
			return nil, &ConfigError{Key: "background_colors", Reason: "palette is empty"}
		}
		bg := g.palette[g.rng.Intn(len(g.palette))]
		return imaging.New(g.width, g.height, bg), nil
	}

	switch g.rng.Intn(4) {
	case 0:
		return g.gradientBackground(), nil
	case 1:
		return g.noisePatternBackground(), nil
	case 2:
		return g.geometricBackground(), nil
	default:
		return g.texturedBackground(), nil
	}
}

// gradientBackground fills the canvas with a sinusoidal color ramp along a
// random direction. Channels are clamped to [180, 255] so text stays legible.
func (g *Generator) gradientBackground() *image.NRGBA {
	img := imaging.New(g.width, g.height, color.NRGBA{A: 0xff})
	rng := g.rng

	switch rng.Intn(4) {
	case 0: // radial
		cx, cy := g.width/2, g.height/2
		maxRadius := math.Hypot(float64(cx), float64(cy))
		for y := 0; y < g.height; y++ {
			for x := 0; x < g.width; x++ {
				ratio := math.Hypot(float64(x-cx), float64(y-cy)) / maxRadius
				col := rampColor(
					220+35*math.Sin(ratio*math.Pi),
					230+25*math.Cos(ratio*math.Pi*1.5),
					240+15*math.Sin(ratio*math.Pi*2),
				)
				// sparse pixel noise over the radial ramp
				if rng.Float64() < 0.02 {
					n := rng.Intn(41) - 20
					col = color.NRGBA{
						R: clamp8(int(col.R) + n),
						G: clamp8(int(col.G) + n),
						B: clamp8(int(col.B) + n),
						A: 0xff,
					}
				}
				img.SetNRGBA(x, y, col)
			}
		}
	case 1: // diagonal
		for y := 0; y < g.height; y++ {
			for x := 0; x < g.width; x++ {
				ratio := float64(x+y) / float64(g.width+g.height)
				img.SetNRGBA(x, y, rampColor(
					200+55*math.Sin(ratio*math.Pi*2),
					210+45*math.Cos(ratio*math.Pi*3),
					220+35*math.Sin(ratio*math.Pi*1.5),
				))
			}
		}
	case 2: // horizontal
		for y := 0; y < g.height; y++ {
			for x := 0; x < g.width; x++ {
				img.SetNRGBA(x, y, jitteredRamp(rng, float64(x)/float64(g.width)))
			}
		}
	default: // vertical
		for y := 0; y < g.height; y++ {
			for x := 0; x < g.width; x++ {
				img.SetNRGBA(x, y, jitteredRamp(rng, float64(y)/float64(g.height)))
			}
		}
	}
	return img
}

func rampColor(r, gc, b float64) color.NRGBA {
	return color.NRGBA{
		R: clamp8(int(math.Max(180, math.Min(255, r)))),
		G: clamp8(int(math.Max(180, math.Min(255, gc)))),
		B: clamp8(int(math.Max(180, math.Min(255, b)))),
		A: 0xff,
	}
}

func jitteredRamp(rng *rand.Rand, ratio float64) color.NRGBA {
	j := func() float64 { return rng.Float64()*0.2 - 0.1 }
	return rampColor(
		210+45*math.Sin(ratio*math.Pi*2+j()),
		220+35*math.Cos(ratio*math.Pi*3+j()),
		230+25*math.Sin(ratio*math.Pi*1.8+j()),
	)
}

// noisePatternBackground fills with a flat light tint and offsets roughly a
// tenth of the pixels by a random intensity.
func (g *Generator) noisePatternBackground() *image.NRGBA {
	rng := g.rng
	bases := []color.NRGBA{
		{240, 240, 240, 0xff},
		{235, 245, 235, 0xff},
		{245, 235, 235, 0xff},
		{235, 235, 245, 0xff},
	}
	base := bases[rng.Intn(len(bases))]
	img := imaging.New(g.width, g.height, base)

	for i := 0; i < g.width*g.height/10; i++ {
		x := rng.Intn(g.width)
		y := rng.Intn(g.height)
		n := rng.Intn(61) - 30
		img.SetNRGBA(x, y, color.NRGBA{
			R: clamp8(int(base.R) + n),
			G: clamp8(int(base.G) + n),
			B: clamp8(int(base.B) + n),
			A: 0xff,
		})
	}
	return img
}

// geometricBackground layers 15-30 semi-transparent rectangles, ellipses and
// lines over a light base tint.
func (g *Generator) geometricBackground() *image.NRGBA {
	rng := g.rng
	bases := []color.NRGBA{
		{230, 230, 230, 0xff},
		{225, 235, 225, 0xff},
		{235, 225, 225, 0xff},
		{225, 225, 235, 0xff},
	}
	img := imaging.New(g.width, g.height, bases[rng.Intn(len(bases))])

	shapes := 15 + rng.Intn(16)
	for i := 0; i < shapes; i++ {
		x1 := rng.Intn(g.width + 1)
		y1 := rng.Intn(g.height + 1)
		x2 := x1 + 20 + rng.Intn(81)
		y2 := y1 + 20 + rng.Intn(41)
		col := color.NRGBA{
			R: uint8(200 + rng.Intn(51)),
			G: uint8(200 + rng.Intn(51)),
			B: uint8(200 + rng.Intn(51)),
			A: uint8(10 + rng.Intn(31)),
		}
		switch rng.Intn(3) {
		case 0:
			fillRect(img, x1, y1, x2, y2, col)
		case 1:
			fillEllipse(img, x1, y1, x2, y2, col)
		default:
			drawLine(img, x1, y1, x2, y2, 1+rng.Intn(4), col)
		}
	}
	return img
}

// texturedBackground composites three layers of dot, line or sine-wave
// patterns over a light base tint.
func (g *Generator) texturedBackground() *image.NRGBA {
	rng := g.rng
	bases := []color.NRGBA{
		{220, 220, 220, 0xff},
		{215, 225, 215, 0xff},
		{225, 215, 215, 0xff},
	}
	img := imaging.New(g.width, g.height, bases[rng.Intn(len(bases))])

	for layer := 0; layer < 3; layer++ {
		switch rng.Intn(3) {
		case 0: // dots
			for i := 0; i < 50+rng.Intn(101); i++ {
				x := rng.Intn(g.width + 1)
				y := rng.Intn(g.height + 1)
				r := 1 + rng.Intn(5)
				col := textureColor(rng, 20+rng.Intn(41))
				fillEllipse(img, x-r, y-r, x+r, y+r, col)
			}
		case 1: // lines
			for i := 0; i < 20+rng.Intn(31); i++ {
				x1 := rng.Intn(g.width + 1)
				y1 := rng.Intn(g.height + 1)
				x2 := x1 + rng.Intn(101) - 50
				y2 := y1 + rng.Intn(61) - 30
				col := textureColor(rng, 20+rng.Intn(31))
				drawLine(img, x1, y1, x2, y2, 1+rng.Intn(3), col)
			}
		default: // waves
			amplitude := float64(10 + rng.Intn(21))
			frequency := 0.01 + rng.Float64()*0.02
			for y := 0; y < g.height; y += 5 {
				col := textureColor(rng, 15+rng.Intn(26))
				prevX, prevY := 0, y+int(amplitude*math.Sin(0))
				for x := 10; x < g.width; x += 10 {
					waveY := y + int(amplitude*math.Sin(float64(x)*frequency))
					drawLine(img, prevX, prevY, x, waveY, 2, col)
					prevX, prevY = x, waveY
				}
			}
		}
	}
	return img
}

func textureColor(rng *rand.Rand, alpha int) color.NRGBA {
	return color.NRGBA{
		R: uint8(180 + rng.Intn(61)),
		G: uint8(180 + rng.Intn(61)),
		B: uint8(180 + rng.Intn(61)),
		A: uint8(alpha),
	}
}
