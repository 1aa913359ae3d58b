package utils

import "strings"

func StringPtr(s string) *string {
	return &s
}

func IntPtr(i int) *int {
	return &i
}

// NonEmptyPtr returns nil for blank input so optional JSON fields serialize
// as null rather than "".
func NonEmptyPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
