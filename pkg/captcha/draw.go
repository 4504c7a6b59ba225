package captcha

import (
	"image"
	"image/color"
	"math"
)

// Low-level raster helpers for distractors and procedural backgrounds.
// Everything draws directly into an *image.NRGBA canvas with source-over
// alpha blending, so semi-transparent shapes layer the way composited
// overlays would.

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// blendPixel source-over blends col onto img at (x, y). Out-of-bounds
// coordinates are ignored.
func blendPixel(img *image.NRGBA, x, y int, col color.NRGBA) {
	if !(image.Point{X: x, Y: y}).In(img.Rect) {
		return
	}
	if col.A == 0xff {
		img.SetNRGBA(x, y, col)
		return
	}
	if col.A == 0 {
		return
	}
	dst := img.NRGBAAt(x, y)
	a := int(col.A)
	ia := 255 - a
	img.SetNRGBA(x, y, color.NRGBA{
		R: uint8((int(col.R)*a + int(dst.R)*ia) / 255),
		G: uint8((int(col.G)*a + int(dst.G)*ia) / 255),
		B: uint8((int(col.B)*a + int(dst.B)*ia) / 255),
		A: 0xff,
	})
}

// fillRect blends an axis-aligned rectangle.
func fillRect(img *image.NRGBA, x1, y1, x2, y2 int, col color.NRGBA) {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x++ {
			blendPixel(img, x, y, col)
		}
	}
}

// fillEllipse blends the ellipse inscribed in the rectangle (x1,y1)-(x2,y2).
func fillEllipse(img *image.NRGBA, x1, y1, x2, y2 int, col color.NRGBA) {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	cx := float64(x1+x2) / 2
	cy := float64(y1+y2) / 2
	rx := float64(x2-x1) / 2
	ry := float64(y2-y1) / 2
	if rx <= 0 || ry <= 0 {
		return
	}
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x++ {
			dx := (float64(x) - cx) / rx
			dy := (float64(y) - cy) / ry
			if dx*dx+dy*dy <= 1 {
				blendPixel(img, x, y, col)
			}
		}
	}
}

// drawLine blends a line segment of the given width by stamping discs along
// the segment.
func drawLine(img *image.NRGBA, x1, y1, x2, y2, width int, col color.NRGBA) {
	if width < 1 {
		width = 1
	}
	dx := float64(x2 - x1)
	dy := float64(y2 - y1)
	steps := int(math.Max(math.Abs(dx), math.Abs(dy)))
	if steps == 0 {
		stampDisc(img, x1, y1, width, col)
		return
	}
	// One stamp per distinct center, to keep translucent strokes even.
	seen := make(map[[2]int]struct{}, steps+1)
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := x1 + int(math.Round(dx*t))
		y := y1 + int(math.Round(dy*t))
		if _, ok := seen[[2]int{x, y}]; ok {
			continue
		}
		seen[[2]int{x, y}] = struct{}{}
		stampDisc(img, x, y, width, col)
	}
}

// stampDisc blends a filled disc with diameter width centered at (x, y).
func stampDisc(img *image.NRGBA, x, y, width int, col color.NRGBA) {
	if width <= 1 {
		blendPixel(img, x, y, col)
		return
	}
	r := float64(width) / 2
	ri := int(math.Ceil(r))
	for oy := -ri; oy <= ri; oy++ {
		for ox := -ri; ox <= ri; ox++ {
			if float64(ox*ox+oy*oy) <= r*r {
				blendPixel(img, x+ox, y+oy, col)
			}
		}
	}
}

// drawCircleOutline blends a ring of the given stroke width centered at
// (cx, cy) with the given radius.
func drawCircleOutline(img *image.NRGBA, cx, cy, radius, width int, col color.NRGBA) {
	if radius < 1 {
		return
	}
	if width < 1 {
		width = 1
	}
	outer := float64(radius) + float64(width)/2
	inner := float64(radius) - float64(width)/2
	if inner < 0 {
		inner = 0
	}
	ri := int(math.Ceil(outer))
	for oy := -ri; oy <= ri; oy++ {
		for ox := -ri; ox <= ri; ox++ {
			d := math.Sqrt(float64(ox*ox + oy*oy))
			if d >= inner && d <= outer {
				blendPixel(img, cx+ox, cy+oy, col)
			}
		}
	}
}
