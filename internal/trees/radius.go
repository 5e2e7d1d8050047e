package trees

import "math"

// The eight compass step directions used by the radial falloff walk.
var radialDirections = [8][2]int{
	{0, -1}, {0, 1}, {-1, 0}, {1, 0},
	{-1, -1}, {-1, 1}, {1, -1}, {1, 1},
}

// EstimateCanopyRadiusFromRaster walks outward from a peak in 8 directions
// until the height drops below threshold x peak, and averages the stopping
// distances. The result is in pixels, clamped to a minimum of 1. Returns 0
// when the peak height is not a usable reference.
func EstimateCanopyRadiusFromRaster(heights []float32, width, height, peakRow, peakCol int, threshold float64) float64 {
	peak := float64(heights[peakRow*width+peakCol])
	if math.IsNaN(peak) || math.IsInf(peak, 0) || peak <= 0 {
		return 0
	}
	cutoff := peak * threshold

	maxSteps := width
	if height > maxSteps {
		maxSteps = height
	}

	total := 0.0
	for _, dir := range radialDirections {
		stepLen := 1.0
		if dir[0] != 0 && dir[1] != 0 {
			stepLen = math.Sqrt2
		}

		steps := 0
		for s := 1; s <= maxSteps; s++ {
			row := peakRow + dir[0]*s
			col := peakCol + dir[1]*s
			if row < 0 || row >= height || col < 0 || col >= width {
				break
			}
			h := float64(heights[row*width+col])
			if math.IsNaN(h) || math.IsInf(h, 0) || h < cutoff {
				break
			}
			steps = s
		}
		total += float64(steps) * stepLen
	}

	radius := total / float64(len(radialDirections))
	if radius < 1 {
		radius = 1
	}
	return radius
}
