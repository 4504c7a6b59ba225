package captcha

import (
	"image"
	"math/rand"

	"github.com/disintegration/imaging"
)

// postprocess applies the whole-image degradations, noise first and then
// blur. With both levels at zero the input image is returned untouched.
func postprocess(img *image.NRGBA, cfg GenerationConfig, rng *rand.Rand) *image.NRGBA {
	if cfg.NoiseLevel > 0 {
		img = addNoise(img, cfg.NoiseLevel, rng)
	}
	if cfg.BlurLevel > 0 {
		img = imaging.Blur(img, cfg.BlurLevel)
	}
	return img
}

// addNoise adds independent integer noise in [-255*level, 255*level) to each
// color channel of each pixel, clipped to the valid range. Alpha is left
// alone.
func addNoise(img *image.NRGBA, level float64, rng *rand.Rand) *image.NRGBA {
	amp := int(255 * level)
	if amp < 1 {
		return img
	}

	b := img.Rect
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			p := img.NRGBAAt(b.Min.X+x, b.Min.Y+y)
			p.R = clamp8(int(p.R) + rng.Intn(2*amp) - amp)
			p.G = clamp8(int(p.G) + rng.Intn(2*amp) - amp)
			p.B = clamp8(int(p.B) + rng.Intn(2*amp) - amp)
			out.SetNRGBA(x, y, p)
		}
	}
	return out
}
