package astro

// Ray is a half-line used for pointer picking. Dir is always unit length
// when the ray is built with NewRay.
type Ray struct {
	Origin Vec3
	Dir    Vec3
}

// NewRay builds a ray from an origin and a (not necessarily normalized)
// direction.
func NewRay(origin, dir Vec3) Ray {
	return Ray{Origin: origin, Dir: dir.Normalized()}
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Dir.Scale(t))
}

// ClosestPoint returns the parameter of the point on the ray closest to p.
// Points behind the origin clamp to 0.
func (r Ray) ClosestPoint(p Vec3) float64 {
	t := p.Sub(r.Origin).Dot(r.Dir)
	if t < 0 {
		return 0
	}
	return t
}

// DistanceSqToPoint returns the squared distance from p to the ray.
func (r Ray) DistanceSqToPoint(p Vec3) float64 {
	q := r.At(r.ClosestPoint(p))
	d := p.Sub(q)
	return d.Dot(d)
}

// DistanceSqToSegment returns the squared distance between the ray and the
// segment a-b, and the ray parameter of the closest approach.
func (r Ray) DistanceSqToSegment(a, b Vec3) (distSq, t float64) {
	u := r.Dir
	v := b.Sub(a)
	w0 := r.Origin.Sub(a)

	uu := u.Dot(u)
	uv := u.Dot(v)
	vv := v.Dot(v)
	uw := u.Dot(w0)
	vw := v.Dot(w0)

	// segment parameter in [0,1]
	var s float64
	denom := uu*vv - uv*uv

	switch {
	case vv == 0:
		// degenerate segment
		t = r.ClosestPoint(a)
		s = 0
	case denom < 1e-12:
		// parallel: the nearer endpoint decides
		ta, tb := r.ClosestPoint(a), r.ClosestPoint(b)
		da := r.At(ta).Sub(a)
		db := r.At(tb).Sub(b)
		if da.Dot(da) <= db.Dot(db) {
			return da.Dot(da), ta
		}
		return db.Dot(db), tb
	default:
		t = (uv*vw - vv*uw) / denom
		s = (uu*vw - uv*uw) / denom
		if t < 0 {
			t = 0
			s = clamp(vw/vv, 0, 1)
		}
	}

	if s < 0 || s > 1 {
		s = clamp(s, 0, 1)
		t = (s*uv - uw) / uu
		if t < 0 {
			t = 0
			s = clamp(vw/vv, 0, 1)
		}
	}

	d := r.At(t).Sub(a.Add(v.Scale(s)))
	return d.Dot(d), t
}
