package shape

import "github.com/go-gl/mathgl/mgl64"

// Transform represents a rigid body frame: a rotation followed by a translation.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position: mgl64.Vec3{0, 0, 0},
		Rotation: mgl64.QuatIdent(),
	}
}

// Apply transforms a point from local space to world space.
func (t Transform) Apply(p mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(p).Add(t.Position)
}

// ApplyInverse transforms a point from world space to local space.
func (t Transform) ApplyInverse(p mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Conjugate().Rotate(p.Sub(t.Position))
}

// RotateDir rotates a direction from local space to world space.
// Directions are not affected by the translation part.
func (t Transform) RotateDir(d mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(d)
}

// RotateDirInverse rotates a direction from world space to local space.
func (t Transform) RotateDirInverse(d mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Conjugate().Rotate(d)
}

// ApplyPlane transforms a plane from local space to world space.
func (t Transform) ApplyPlane(p Plane) Plane {
	normal := t.Rotation.Rotate(p.Normal)
	return Plane{
		Normal: normal,
		Offset: p.Offset + normal.Dot(t.Position),
	}
}

// MulT computes the transform that maps b's local space into a's local space,
// that is inverse(a) * b. It is used to run separating-axis computations in
// the local frame of one of the two hulls.
func MulT(a, b Transform) Transform {
	rotation := a.Rotation.Conjugate().Mul(b.Rotation)
	return Transform{
		Position: a.Rotation.Conjugate().Rotate(b.Position.Sub(a.Position)),
		Rotation: rotation,
	}
}
