package schema

// Ptr returns a pointer to v. Handy for the optional fields of literal definitions.
func Ptr[T any](v T) *T {
	return &v
}

// Equal reports whether two optional values are the same. An unset value never
// equals a set one, even when the set value is the zero value.
func Equal[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
