package variants

import (
	"slices"
	"strings"

	"github.com/angelmondragon/merchdrop-backend/pkg/printify"
)

// PreviewImage picks the image shown for a variant: a front image tagged with
// the variant, then any tagged image, then the product's first image, then
// the thumbnail.
func PreviewImage(v printify.Variant, images []printify.Image, thumbnail string) string {
	var tagged string
	for _, img := range images {
		if img.Src == "" || !slices.Contains(img.VariantIDs, v.ID) {
			continue
		}
		if strings.EqualFold(img.Position, "front") {
			return img.Src
		}
		if tagged == "" {
			tagged = img.Src
		}
	}
	if tagged != "" {
		return tagged
	}
	if len(images) > 0 && images[0].Src != "" {
		return images[0].Src
	}
	return thumbnail
}
