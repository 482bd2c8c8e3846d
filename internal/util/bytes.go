package util

// CopyBytes returns an independent copy of b, or nil for nil input.
func CopyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// ZeroBytes overwrites b in place.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
