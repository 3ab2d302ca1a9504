package presence

import "strings"

// Image keys uploaded to the Discord application, keyed by canonical map
// name. Human-readable names resolve through the de_ prefix.
var mapImages = map[string]string{
	"de_mirage":   "map_mirage",
	"de_inferno":  "map_inferno",
	"de_dust2":    "map_dust2",
	"de_nuke":     "map_nuke",
	"de_overpass": "map_overpass",
	"de_ancient":  "map_ancient",
	"de_anubis":   "map_anubis",
	"de_vertigo":  "map_vertigo",
	"de_train":    "map_train",
}

// MapImage resolves a map name to its image key. Accepts "de_mirage" and
// "Mirage" alike; unknown maps fall back to the brand image.
func MapImage(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if img, ok := mapImages[key]; ok {
		return img
	}
	if img, ok := mapImages["de_"+key]; ok {
		return img
	}
	return brandImage
}
