package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemperatureConversion(t *testing.T) {
	assert.InDelta(t, 32.0, Temperature(0, Imperial), 1e-9)
	assert.InDelta(t, 212.0, Temperature(100, Imperial), 1e-9)
	assert.InDelta(t, 21.5, Temperature(21.5, Metric), 1e-9)
	assert.Equal(t, 70, WholeTemperature(21, Imperial))
	assert.Equal(t, -4, WholeTemperature(-4.4, Metric))
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "21°", FormatTemperature(21.3, Metric))
	assert.Equal(t, "70°", FormatTemperature(21, Imperial))
	assert.Equal(t, "22° / 14°", FormatHighLow(21.6, 14.2, Metric))
	assert.Equal(t, "10 km/h SW", FormatWind(10, 225, Metric))
	assert.Equal(t, "6 mph N", FormatWind(10, 350, Imperial))
}

func TestCompass(t *testing.T) {
	cases := map[float64]string{
		0:     "N",
		22.4:  "N",
		22.5:  "NE",
		90:    "E",
		180:   "S",
		292.5: "NW",
		337.5: "N",
		359.9: "N",
		-1:    "Unknown",
		360:   "Unknown",
	}
	for deg, want := range cases {
		assert.Equal(t, want, Compass(deg), "degrees %v", deg)
	}
}
