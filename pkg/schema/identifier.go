package schema

import (
	"strings"

	"github.com/kbinterp/ksyinterp/pkg/validator"
)

// Identifier is an ordered list of name components, one per dotted segment
// of a Kaitai identifier (e.g. a type path like "foo.bar"). Every
// component must independently match the identifier pattern.
type Identifier struct {
	parts []string
}

// NewIdentifier validates each part against the identifier pattern and
// returns the resulting Identifier. Loading aborts if any part is invalid.
func NewIdentifier(parts ...string) (Identifier, error) {
	if err := validator.Validate(parts, validator.Identifier); err != nil {
		return Identifier{}, err
	}
	cp := make([]string, len(parts))
	copy(cp, parts)
	return Identifier{parts: cp}, nil
}

// IdentifierFromString splits a dotted identifier string into components
// and validates each one.
func IdentifierFromString(s string) (Identifier, error) {
	return NewIdentifier(strings.Split(s, ".")...)
}

// Parts returns the ordered components of the identifier.
func (id Identifier) Parts() []string { return id.parts }

// String renders the identifier back to its dotted form.
func (id Identifier) String() string { return strings.Join(id.parts, ".") }

// IsZero reports whether the identifier was never set.
func (id Identifier) IsZero() bool { return len(id.parts) == 0 }
