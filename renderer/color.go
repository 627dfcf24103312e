package renderer

import (
	"image/color"
	"math"
)

// PPE breakpoints of the marker color ramp.
const (
	ppeGood = 0.6
	ppeFair = 2
	ppePoor = 4

	markerAlpha = 0.9
)

// PPEColor maps a PPE value to a marker fill: green for good streets, through
// yellow to red, then towards blue for severe values. Inputs are expected to be
// validated to [0, 10] beforehand.
func PPEColor(ppe float64) color.NRGBA {
	var red, green, blue float64
	light := 255.0
	switch {
	case ppe <= ppeGood:
		red = ppe / ppeGood
		green = 1
		light = 127 + 128*(ppe/ppeGood)
	case ppe < ppeFair:
		red = 1
		green = (ppeFair - ppe) / (ppeFair - ppeGood)
	default:
		// Values past ppePoor saturate blue.
		red = 1
		blue = clamp01((ppe - (ppePoor - ppeFair)) / (ppePoor - ppeFair))
	}
	return color.NRGBA{
		R: uint8(math.Floor(red * 255)),
		G: uint8(math.Floor(green * light)),
		B: uint8(math.Floor(blue * 255)),
		A: uint8(math.Floor(markerAlpha * 255)),
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
