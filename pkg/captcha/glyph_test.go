package captcha

import (
	"image/color"
	"math/rand"
	"testing"
)

func testPool(t *testing.T) *fontPool {
	t.Helper()
	pool, err := newFontPool(nil, func(string, ...any) {})
	if err != nil {
		t.Fatalf("newFontPool: %v", err)
	}
	return pool
}

func TestRenderGlyphTileGeometry(t *testing.T) {
	pool := testPool(t)
	face, err := newFace(pool.builtin, 48)
	if err != nil {
		t.Fatalf("newFace: %v", err)
	}
	defer face.Close()

	tile := renderGlyph('W', face, color.NRGBA{A: 0xff})
	if tile.InkW < 1 || tile.InkH < 1 {
		t.Fatalf("ink extent %dx%d not positive", tile.InkW, tile.InkH)
	}

	bigger := tile.InkW
	if tile.InkH > bigger {
		bigger = tile.InkH
	}
	wantSide := bigger + glyphTileMargin
	if got := tile.Img.Rect; got.Dx() != wantSide || got.Dy() != wantSide {
		t.Errorf("tile size = %dx%d, want %dx%d", got.Dx(), got.Dy(), wantSide, wantSide)
	}

	if opaqueCount(tile.Img) == 0 {
		t.Error("rendered glyph has no ink")
	}
}

func TestRenderGlyphTransparentBackground(t *testing.T) {
	pool := testPool(t)
	face, err := newFace(pool.builtin, 40)
	if err != nil {
		t.Fatalf("newFace: %v", err)
	}
	defer face.Close()

	tile := renderGlyph('A', face, color.NRGBA{R: 200, A: 0xff})
	// the tile corners sit inside the margin and must stay transparent
	if got := tile.Img.NRGBAAt(0, 0); got.A != 0 {
		t.Errorf("corner pixel = %v, want transparent", got)
	}
}

func TestGlyphColorDisabled(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		if got := glyphColor(rng, false); got != (color.NRGBA{A: 0xff}) {
			t.Fatalf("variation disabled should always yield black, got %v", got)
		}
	}
}

func TestGlyphColorVariationStaysDark(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 200; i++ {
		col := glyphColor(rng, true)
		if col.A != 0xff {
			t.Fatalf("glyph color must be opaque, got %v", col)
		}
		// every policy branch caps channels at 200 so glyphs contrast with
		// the light backgrounds
		if col.R > 200 || col.G > 200 || col.B > 200 {
			t.Fatalf("glyph color %v too bright", col)
		}
	}
}
