package astro

import (
	"math"
)

// Direction returns the unit vector for a viewing azimuth and elevation in
// degrees. Azimuth sweeps the X/Z plane starting at +X toward +Z; elevation
// is measured from that plane toward +Y.
func Direction(azDeg, elDeg float64) Vec3 {
	az := degToRad(azDeg)
	el := degToRad(elDeg)
	return Vec3{
		X: math.Cos(el) * math.Cos(az),
		Y: math.Sin(el),
		Z: math.Cos(el) * math.Sin(az),
	}
}

// AzEl is the inverse of Direction: it returns azimuth (0-360) and elevation
// (-90..90) in degrees for any non-zero vector.
func AzEl(v Vec3) (azDeg, elDeg float64) {
	r := v.Norm()
	if r == 0 {
		return 0, 0
	}
	el := math.Asin(clamp(v.Y/r, -1, 1))
	az := math.Atan2(v.Z, v.X)
	azDeg = radToDeg(az)
	if azDeg < 0 {
		azDeg += 360
	}
	return azDeg, radToDeg(el)
}

// NormalizeAngle wraps an angle in degrees to the -180..+180 range.
func NormalizeAngle(a float64) float64 {
	for a > 180 {
		a -= 360
	}
	for a < -180 {
		a += 360
	}
	return a
}

// LerpAngle interpolates between angles, taking the shortest path.
func LerpAngle(a, b, t float64) float64 {
	diff := NormalizeAngle(b - a)
	return a + diff*t
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// degToRad converts degrees to radians.
func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// radToDeg converts radians to degrees.
func radToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
