package trees

import (
	"fmt"
	"math"
	"sort"
)

// MedFilt2D applies a 2-D median filter with zero padding at the raster
// edges. kernelSize must be a positive odd integer. NaN values inside a
// window are ignored; a pixel whose window is all-NaN stays NaN.
func MedFilt2D(data []float32, width, height, kernelSize int) ([]float32, error) {
	if kernelSize < 1 || kernelSize%2 == 0 {
		return nil, fmt.Errorf("kernel size must be a positive odd integer, got %d", kernelSize)
	}
	if len(data) != width*height {
		return nil, fmt.Errorf("raster length %d does not match %dx%d", len(data), width, height)
	}

	half := kernelSize / 2
	result := make([]float32, len(data))
	window := make([]float64, 0, kernelSize*kernelSize)

	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			window = window[:0]
			for dy := -half; dy <= half; dy++ {
				for dx := -half; dx <= half; dx++ {
					r, c := row+dy, col+dx
					if r < 0 || r >= height || c < 0 || c >= width {
						window = append(window, 0)
						continue
					}
					v := float64(data[r*width+c])
					if math.IsNaN(v) {
						continue
					}
					window = append(window, v)
				}
			}
			if len(window) == 0 {
				result[row*width+col] = float32(math.NaN())
				continue
			}
			sort.Float64s(window)
			result[row*width+col] = float32(window[len(window)/2])
		}
	}
	return result, nil
}
