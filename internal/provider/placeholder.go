package provider

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"math/big"
	"math/rand"
	"net/url"
)

// PlaceholderLabel marks results synthesized locally instead of fetched from
// a provider. Operator-facing labels for provider failures reuse the same
// prefix so the success check stays a single category test.
const PlaceholderLabel = "Placeholder (SVG, colored by prompt)"

// Placeholders synthesizes count inline SVG images colored from the seed.
// The same seed and count always yield byte-identical output: the seed is
// hashed and the hash drives both the base hue and the saturation/lightness
// stream. Hues step by 120 degrees per index so up to three images stay
// widely separated before the cycle repeats.
func Placeholders(count int, seed string) []string {
	sum := md5.Sum([]byte(seed))

	base := new(big.Int).SetBytes(sum[:])
	baseHue := int(new(big.Int).Mod(base, big.NewInt(360)).Int64())

	rng := rand.New(rand.NewSource(int64(binary.BigEndian.Uint64(sum[:8]))))

	images := make([]string, 0, count)
	for i := 0; i < count; i++ {
		hue := (baseHue + i*120) % 360
		saturation := 60 + rng.Intn(41)
		lightness := 50 + rng.Intn(31)
		color := fmt.Sprintf("hsl(%d, %d%%, %d%%)", hue, saturation, lightness)

		svg := fmt.Sprintf(
			"<svg xmlns='http://www.w3.org/2000/svg' width='512' height='512' viewBox='0 0 512 512'>"+
				"<rect width='100%%' height='100%%' fill='%s'/>"+
				"<text x='50%%' y='50%%' font-size='24' fill='white' text-anchor='middle' dominant-baseline='middle'>"+
				"Placeholder %d</text>"+
				"</svg>",
			color, i+1,
		)
		images = append(images, "data:image/svg+xml;charset=utf-8,"+url.PathEscape(svg))
	}
	return images
}
