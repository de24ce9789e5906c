package usecase

import (
	"image"

	"github.com/cenkalti/dominantcolor"
	"github.com/disintegration/imaging"
)

const paletteSize = 4

// dominantColors returns up to paletteSize dominant colors, computed on a
// downsampled copy of img.
func dominantColors(img image.Image) [][4]uint8 {
	sample := imaging.Fit(img, 128, 128, imaging.Box)
	found := dominantcolor.FindN(sample, paletteSize)
	colors := make([][4]uint8, 0, len(found))
	for _, c := range found {
		colors = append(colors, [4]uint8{c.R, c.G, c.B, c.A})
	}
	return colors
}
