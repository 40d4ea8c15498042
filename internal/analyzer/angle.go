package analyzer

import (
	"math"

	"github.com/ayusman/swingcoach/internal/pose"
)

// degenerateEps is the minimum ray length below which an angle is undefined.
const degenerateEps = 1e-9

// Angle returns the interior angle at b formed by the rays b->a and b->c,
// in degrees within [0, 180]. Only X and Y are used.
// Coincident or non-finite points yield 0.
func Angle(a, b, c pose.Landmark) float64 {
	deg, _ := jointAngle(a, b, c)
	return deg
}

// jointAngle is Angle plus a flag reporting whether the reading is usable.
func jointAngle(a, b, c pose.Landmark) (float64, bool) {
	for _, v := range [...]float64{a.X, a.Y, b.X, b.Y, c.X, c.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
	}

	bax, bay := a.X-b.X, a.Y-b.Y
	bcx, bcy := c.X-b.X, c.Y-b.Y

	if math.Hypot(bax, bay) < degenerateEps || math.Hypot(bcx, bcy) < degenerateEps {
		return 0, false
	}

	radians := math.Atan2(bcy, bcx) - math.Atan2(bay, bax)
	deg := math.Abs(radians * 180.0 / math.Pi)
	if deg > 180.0 {
		deg = 360.0 - deg
	}

	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0, false
	}
	return deg, true
}
