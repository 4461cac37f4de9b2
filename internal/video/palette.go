package video

// asciiRamp runs from darkest to brightest.
const asciiRamp = " .:-=+*#%@"

// brightnessChar maps a 0-255 luminance to a ramp character.
func brightnessChar(lum uint8) byte {
	return asciiRamp[int(lum)*(len(asciiRamp)-1)/255]
}

// luminance computes perceived brightness (ITU-R BT.601).
func luminance(r, g, b uint8) uint8 {
	return uint8((299*int(r) + 587*int(g) + 114*int(b)) / 1000)
}
