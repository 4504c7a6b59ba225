package captcha

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// fontPool holds the parsed fonts configured for a generator. Entries are
// aligned with the configured path list; a nil entry marks a font that failed
// to load and falls back to the built-in face when picked. Loading problems
// are never fatal: a batch must not abort because of one bad font file.
type fontPool struct {
	paths   []string
	parsed  []*opentype.Font // nil where loading failed
	builtin *opentype.Font
}

func newFontPool(paths []string, warnf func(format string, args ...any)) (*fontPool, error) {
	builtin, err := opentype.Parse(goregular.TTF)
	if err != nil {
		// goregular is embedded in the binary, this indicates a broken build
		return nil, fmt.Errorf("failed to parse built-in font: %w", err)
	}

	pool := &fontPool{paths: paths, builtin: builtin}
	pool.parsed = make([]*opentype.Font, len(paths))
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			warnf("font %s: %v (using built-in fallback)", path, err)
			continue
		}
		fnt, err := opentype.Parse(data)
		if err != nil {
			warnf("font %s: %v (using built-in fallback)", path, err)
			continue
		}
		pool.parsed[i] = fnt
	}
	return pool, nil
}

// pick selects a font uniformly from the configured list, substituting the
// built-in face for entries that failed to load. With no configured fonts the
// built-in face is always used.
func (p *fontPool) pick(rng intner) *opentype.Font {
	if len(p.parsed) == 0 {
		return p.builtin
	}
	if fnt := p.parsed[rng.Intn(len(p.parsed))]; fnt != nil {
		return fnt
	}
	return p.builtin
}

// first returns the first usable configured font, or the built-in face.
// Distractor glyphs always render with this font.
func (p *fontPool) first() *opentype.Font {
	for _, fnt := range p.parsed {
		if fnt != nil {
			return fnt
		}
	}
	return p.builtin
}

// newFace creates a sized face for fnt.
func newFace(fnt *opentype.Font, size float64) (font.Face, error) {
	return opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// intner is the subset of *rand.Rand the font pool needs.
type intner interface {
	Intn(n int) int
}
