// Package strings2 holds conversions between string and []byte that reuse
// the underlying memory instead of copying. Callers must not mutate the
// result while the source is still reachable.
package strings2

import "unsafe"

// FromBytesNoAlloc views b as a string without copying.
func FromBytesNoAlloc(b []byte) string {
	return unsafe.String(
		unsafe.SliceData(b),
		len(b),
	)
}

// ToBytesNoAlloc views s as a byte slice without copying.
func ToBytesNoAlloc(s string) []byte {
	return unsafe.Slice(
		unsafe.StringData(s),
		len(s),
	)
}
