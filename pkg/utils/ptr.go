// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package utils

import "time"

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}

// Value safely dereferences p, returning the zero value if nil.
func Value[T any](p *T) T {
	if p != nil {
		return *p
	}
	var zero T
	return zero
}

// StringPtr converts a string to a pointer to a string.
func StringPtr(s string) *string {
	return Ptr(s)
}

// StringValue safely dereferences a string pointer, returning empty string if nil.
func StringValue(s *string) string {
	return Value(s)
}

// TimePtr converts a time.Time to a pointer to a time.Time.
func TimePtr(t time.Time) *time.Time {
	return Ptr(t)
}

// SetOnce assigns v to *dst only when *dst is nil, and reports whether it did.
func SetOnce[T any](dst **T, v T) bool {
	if *dst != nil {
		return false
	}
	*dst = &v
	return true
}
