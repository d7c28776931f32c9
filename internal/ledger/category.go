package ledger

import (
	"fmt"
	"strings"
)

// Category is the closed set of expense categories.
//
// Ordinals are fixed and must not be reordered: they are what gets stored
// and compared across the wire.
type Category uint8

const (
	CategoryFood Category = iota
	CategoryTransport
	CategoryLeisure
	CategoryHealth
	CategoryEducation
	CategoryBills
	CategoryOther
)

var categoryNames = [...]string{
	CategoryFood:      "Food",
	CategoryTransport: "Transport",
	CategoryLeisure:   "Leisure",
	CategoryHealth:    "Health",
	CategoryEducation: "Education",
	CategoryBills:     "Bills",
	CategoryOther:     "Other",
}

// Categories returns every category in ordinal order.
func Categories() []Category {
	out := make([]Category, len(categoryNames))
	for i := range categoryNames {
		out[i] = Category(i)
	}
	return out
}

// Valid reports whether c is one of the seven defined categories.
func (c Category) Valid() bool {
	return int(c) < len(categoryNames)
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Category(%d)", uint8(c))
	}
	return categoryNames[c]
}

// ParseCategory converts a name to a Category, ignoring case.
//
// This is the deserialization boundary: an empty name selects CategoryOther.
// Unknown names fail with ErrInvalidCategory.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CategoryOther, nil
	}
	for i, name := range categoryNames {
		if strings.EqualFold(s, name) {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// CategoryFromOrdinal converts a stored ordinal back to a Category.
func CategoryFromOrdinal(n int64) (Category, error) {
	if n < 0 || n >= int64(len(categoryNames)) {
		return 0, fmt.Errorf("%w: ordinal %d", ErrInvalidCategory, n)
	}
	return Category(n), nil
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: ordinal %d", ErrInvalidCategory, uint8(c))
	}
	return []byte(categoryNames[c]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler with ParseCategory rules.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
