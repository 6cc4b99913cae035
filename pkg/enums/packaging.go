package enums

import "fmt"

// Packaging describes how a cable line item is delivered.
type Packaging string

const (
	PackagingFullReel  Packaging = "pełne bębny"
	PackagingExactCuts Packaging = "dokładne odcinki"
)

var validPackagings = []Packaging{
	PackagingFullReel,
	PackagingExactCuts,
}

// IsValid checks whether the packaging matches a known mode.
func (p Packaging) IsValid() bool {
	for _, candidate := range validPackagings {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePackaging converts raw strings into Packaging.
func ParsePackaging(value string) (Packaging, error) {
	for _, candidate := range validPackagings {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid packaging %q", value)
}
