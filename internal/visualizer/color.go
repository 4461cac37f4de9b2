package visualizer

import "github.com/olivier-w/webmplay/internal/termcolor"

var (
	// meterStops color a level bar from its quiet end to full scale.
	meterStops = []termcolor.RGB{
		{R: 60, G: 224, B: 116},
		{R: 240, G: 198, B: 72},
		{R: 242, G: 96, B: 86},
	}
	// heatStops color spectrum bars by height.
	heatStops = []termcolor.RGB{
		{R: 70, G: 30, B: 90},
		{R: 170, G: 50, B: 110},
		{R: 255, G: 95, B: 31},
		{R: 255, G: 140, B: 0},
		{R: 255, G: 226, B: 130},
	}

	peakColor  = termcolor.RGB{R: 255, G: 252, B: 210}
	axisColor  = termcolor.RGB{R: 68, G: 72, B: 88}
	leftColor  = termcolor.RGB{R: 0, G: 196, B: 230}
	rightColor = termcolor.RGB{R: 232, G: 92, B: 200}
	bothColor  = termcolor.RGB{R: 255, G: 248, B: 190}
)
