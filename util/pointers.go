package util

// Ptr returns a pointer to v. Useful for optional config fields and
// nullable database columns built from literals.
func Ptr[T any](v T) *T { return &v }

// Deref returns *p, or T's zero value when p is nil.
func Deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
