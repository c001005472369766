package availability

import "math"

// Intensity maps an overlap count to a heatmap value in [0,1]. The square root lifts
// partial overlap above a linear scale. Teams of one have no overlap signal.
func Intensity(count, totalMembers int) float64 {
	if totalMembers <= 1 || count <= 0 {
		return 0
	}
	v := math.Sqrt(float64(count) / float64(totalMembers))
	if v > 1 {
		return 1
	}
	return v
}
