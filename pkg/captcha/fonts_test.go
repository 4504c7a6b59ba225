package captcha

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
)

func TestFontPoolBadPathFallsBack(t *testing.T) {
	var warnings []string
	pool, err := newFontPool([]string{"/nonexistent/font.ttf"}, func(format string, args ...any) {
		warnings = append(warnings, format)
	})
	if err != nil {
		t.Fatalf("newFontPool: %v", err)
	}
	if len(warnings) != 1 {
		t.Errorf("want one warning for the bad font path, got %d", len(warnings))
	}

	rng := rand.New(rand.NewSource(1))
	if got := pool.pick(rng); got != pool.builtin {
		t.Error("pick should fall back to the built-in font for a failed entry")
	}
	if got := pool.first(); got != pool.builtin {
		t.Error("first should fall back to the built-in font")
	}
}

func TestFontPoolEmpty(t *testing.T) {
	pool, err := newFontPool(nil, func(format string, args ...any) {
		t.Errorf("unexpected warning: %s", format)
	})
	if err != nil {
		t.Fatalf("newFontPool: %v", err)
	}
	rng := rand.New(rand.NewSource(1))
	if pool.pick(rng) != pool.builtin || pool.first() != pool.builtin {
		t.Error("empty pool must serve the built-in font")
	}
}

func TestFontPoolWarningMentionsPath(t *testing.T) {
	var got string
	_, err := newFontPool([]string{"/missing.otf"}, func(format string, args ...any) {
		got = fmt.Sprintf(format, args...)
	})
	if err != nil {
		t.Fatalf("newFontPool: %v", err)
	}
	if !strings.Contains(got, "/missing.otf") {
		t.Errorf("warning %q does not name the failing font file", got)
	}
}

func TestNewFaceSizes(t *testing.T) {
	pool, err := newFontPool(nil, func(string, ...any) {})
	if err != nil {
		t.Fatalf("newFontPool: %v", err)
	}
	for _, size := range []float64{12, 40, 80} {
		face, err := newFace(pool.builtin, size)
		if err != nil {
			t.Fatalf("newFace at %v: %v", size, err)
		}
		face.Close()
	}
}
