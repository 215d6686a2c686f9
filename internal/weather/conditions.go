package weather

import (
	"fmt"
	"sort"
)

// Art identifies the icon family for a condition code.
type Art string

const (
	ArtStorm       Art = "storm"
	ArtLightRain   Art = "light_rain"
	ArtRain        Art = "rain"
	ArtSnow        Art = "snow"
	ArtFog         Art = "fog"
	ArtClear       Art = "clear"
	ArtLightClouds Art = "light_clouds"
	ArtClouds      Art = "clouds"
)

// codeRange maps an inclusive range of condition codes to a value.
// Tables must be sorted by lo and must not overlap.
type codeRange[T any] struct {
	lo, hi int
	value  T
}

func lookup[T any](table []codeRange[T], code int) (T, bool) {
	i := sort.Search(len(table), func(i int) bool { return table[i].hi >= code })
	if i < len(table) && table[i].lo <= code {
		return table[i].value, true
	}
	var zero T
	return zero, false
}

var descriptions = []codeRange[string]{
	{200, 232, "Storm"},
	{300, 321, "Drizzle"},
	{500, 500, "Light Rain"},
	{501, 501, "Moderate Rain"},
	{502, 502, "Heavy Rain"},
	{503, 503, "Intense Rain"},
	{504, 504, "Extreme Rain"},
	{511, 511, "Freezing Rain"},
	{520, 520, "Light Shower"},
	{531, 531, "Ragged Shower"},
	{600, 600, "Light Snow"},
	{601, 601, "Snow"},
	{602, 602, "Heavy Snow"},
	{611, 611, "Sleet"},
	{612, 612, "Shower Sleet"},
	{615, 615, "Light Rain and Snow"},
	{616, 616, "Rain and Snow"},
	{620, 620, "Light Shower Snow"},
	{621, 621, "Shower Snow"},
	{622, 622, "Heavy Shower Snow"},
	{701, 701, "Mist"},
	{711, 711, "Smoke"},
	{721, 721, "Haze"},
	{731, 731, "Sand, Dust"},
	{741, 741, "Fog"},
	{751, 751, "Sand"},
	{761, 761, "Dust"},
	{762, 762, "Volcanic Ash"},
	{771, 771, "Squalls"},
	{781, 781, "Tornado"},
	{800, 800, "Clear"},
	{801, 801, "Mostly Clear"},
	{802, 802, "Scattered Clouds"},
	{803, 803, "Broken Clouds"},
	{804, 804, "Overcast Clouds"},
	{900, 900, "Tornado"},
	{901, 901, "Tropical Storm"},
	{902, 902, "Hurricane"},
	{903, 903, "Cold"},
	{904, 904, "Hot"},
	{905, 905, "Windy"},
	{906, 906, "Hail"},
	{951, 951, "Calm"},
	{952, 952, "Light Breeze"},
	{953, 953, "Gentle Breeze"},
	{954, 954, "Breeze"},
	{955, 955, "Fresh Breeze"},
	{956, 956, "Strong Breeze"},
	{957, 957, "High Wind"},
	{958, 958, "Gale"},
	{959, 959, "Severe Gale"},
	{960, 960, "Storm"},
	{961, 961, "Violent Storm"},
	{962, 962, "Hurricane"},
}

var arts = []codeRange[Art]{
	{200, 232, ArtStorm},
	{300, 321, ArtLightRain},
	{500, 504, ArtRain},
	{511, 511, ArtSnow},
	{520, 531, ArtRain},
	{600, 622, ArtSnow},
	{701, 761, ArtFog},
	{771, 771, ArtStorm},
	{781, 781, ArtStorm},
	{800, 800, ArtClear},
	{801, 801, ArtLightClouds},
	{802, 804, ArtClouds},
	{900, 906, ArtStorm},
	{951, 957, ArtClear},
	{958, 962, ArtStorm},
}

// Describe returns a short human description for a condition code.
func Describe(code int) string {
	if d, ok := lookup(descriptions, code); ok {
		return d
	}
	return fmt.Sprintf("Unknown (%d)", code)
}

// ArtFor returns the icon family for a condition code. Unknown codes fall back to storm.
func ArtFor(code int) Art {
	if a, ok := lookup(arts, code); ok {
		return a
	}
	return ArtStorm
}
