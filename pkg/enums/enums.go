package enums

import (
	"fmt"
	"slices"
)

func parse[T ~string](kind, value string, valid []T) (T, error) {
	for _, candidate := range valid {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, value)
}

func contains[T ~string](valid []T, v T) bool {
	return slices.Contains(valid, v)
}
