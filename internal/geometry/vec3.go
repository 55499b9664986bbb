package geometry

import "math"

// #region vec3
// Vec3 is a 3D vector. Value type; all operations return new vectors.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Zero is the zero vector.
var Zero = Vec3{}

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z}
}

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{v.X - w.X, v.Y - w.Y, v.Z - w.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Dot returns the dot product of v and w.
func (v Vec3) Dot(w Vec3) float64 {
	return v.X*w.X + v.Y*w.Y + v.Z*w.Z
}

// Norm returns the L2 norm of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalize returns the unit vector in the direction of v.
// A zero-length vector normalizes to the zero vector, never NaN.
func (v Vec3) Normalize() Vec3 {
	n := v.Norm()
	if n == 0 {
		return Zero
	}
	return v.Scale(1 / n)
}

// Distance returns the Euclidean distance between v and w.
func (v Vec3) Distance(w Vec3) float64 {
	return v.Sub(w).Norm()
}

// IsZero reports whether all components are exactly zero.
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// ClampNorm rescales v to exactly max when its norm exceeds max.
// Direction is unchanged.
func (v Vec3) ClampNorm(max float64) Vec3 {
	n := v.Norm()
	if n <= max || n == 0 {
		return v
	}
	return v.Scale(max / n)
}

// #endregion vec3
