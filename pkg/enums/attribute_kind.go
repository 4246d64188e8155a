package enums

import "fmt"

// AttributeKind classifies an attribute group for pricing and display.
type AttributeKind string

const (
	AttributeKindSize    AttributeKind = "size"
	AttributeKindTopping AttributeKind = "topping"
	AttributeKindOther   AttributeKind = "other"
)

var validAttributeKinds = []AttributeKind{
	AttributeKindSize,
	AttributeKindTopping,
	AttributeKindOther,
}

// String implements fmt.Stringer.
func (a AttributeKind) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AttributeKind.
func (a AttributeKind) IsValid() bool {
	for _, candidate := range validAttributeKinds {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAttributeKind converts raw input into an AttributeKind.
func ParseAttributeKind(value string) (AttributeKind, error) {
	for _, candidate := range validAttributeKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid attribute kind %q", value)
}
