package provider

import (
	"fmt"
	"net/url"
	"strings"
	"testing"
)

func TestPlaceholdersDeterministic(t *testing.T) {
	seeds := []string{"a red bicycle poster", "sunset over mountains", ""}
	for _, seed := range seeds {
		for _, n := range []int{1, 3, 4} {
			first := Placeholders(n, seed)
			second := Placeholders(n, seed)
			if len(first) != n {
				t.Fatalf("seed %q: expected %d images, got %d", seed, n, len(first))
			}
			for i := range first {
				if first[i] != second[i] {
					t.Fatalf("seed %q image %d: output differs between calls", seed, i)
				}
			}
		}
	}
}

func TestPlaceholdersAreInlineSVG(t *testing.T) {
	images := Placeholders(3, "poster")
	for i, img := range images {
		if !strings.HasPrefix(img, "data:image/svg+xml;charset=utf-8,") {
			t.Errorf("image %d is not an inline SVG data URI: %s", i, img[:40])
		}
		label := fmt.Sprintf("Placeholder %d", i+1)
		if !strings.Contains(img, strings.ReplaceAll(label, " ", "%20")) {
			t.Errorf("image %d missing index label %q", i, label)
		}
	}
}

func TestPlaceholdersHuesDiffer(t *testing.T) {
	images := Placeholders(3, "a red bicycle poster")
	seen := map[string]bool{}
	for i, img := range images {
		// The SVG is percent-encoded inside the data URI.
		svg, err := url.PathUnescape(strings.TrimPrefix(img, "data:image/svg+xml;charset=utf-8,"))
		if err != nil {
			t.Fatalf("image %d: unescape: %v", i, err)
		}
		start := strings.Index(svg, "hsl(")
		if start == -1 {
			t.Fatalf("no hsl fill found in %s", svg[:80])
		}
		end := strings.Index(svg[start:], ")")
		color := svg[start : start+end+1]
		if seen[color] {
			t.Fatalf("duplicate color %s across placeholder set", color)
		}
		seen[color] = true
	}
}

func TestPlaceholdersSeedChangesOutput(t *testing.T) {
	a := Placeholders(2, "seed one")
	b := Placeholders(2, "seed two")
	if a[0] == b[0] {
		t.Fatal("different seeds produced identical first image")
	}
}
