// Package contract provides serialization-stable names for messages and
// aggregates.
//
// When two processes exchange events, they need a shared name for the shape
// of each message that does not depend on either side's in-process types. A
// Contract is that name. Contracts are canonical dotted strings such as
// "orders.OrderWasPaidInFull"; the equivalent qualified type name uses the
// namespace separator "/" instead ("orders/OrderWasPaidInFull").
package contract

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	ecerrors "github.com/randalmurphal/eventcentric/pkg/eventcentric/errors"
	"golang.org/x/text/unicode/norm"
)

const (
	// MaxLength is the maximum contract length in characters.
	MaxLength = 255

	// Separator joins segments of a canonical contract.
	Separator = "."

	// NamespaceSeparator joins segments of a qualified type name.
	NamespaceSeparator = "/"
)

// Contract is the canonical name of a message or aggregate type.
// The zero value is not a valid contract; see IsZero.
type Contract struct {
	name string
}

// ValidationError reports a contract name outside the accepted bounds.
type ValidationError struct {
	Name   string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid contract %q: %s", e.Name, e.Reason)
}

// Unwrap returns ErrValidation so callers can use errors.Is.
func (e *ValidationError) Unwrap() error {
	return ecerrors.ErrValidation
}

// With makes a contract from its string representation.
// The name is NFC-normalised and must be 1 to MaxLength characters long.
func With(name string) (Contract, error) {
	normalised := norm.NFC.String(name)
	n := utf8.RuneCountInString(normalised)
	switch {
	case n == 0:
		return Contract{}, &ValidationError{Name: name, Reason: "name is empty"}
	case n > MaxLength:
		return Contract{}, &ValidationError{
			Name:   name,
			Reason: fmt.Sprintf("name has %d characters, maximum is %d", n, MaxLength),
		}
	}
	return Contract{name: normalised}, nil
}

// MustWith is like With but panics on an invalid name.
// Use for contracts declared as package-level values.
func MustWith(name string) Contract {
	c, err := With(name)
	if err != nil {
		panic(err)
	}
	return c
}

// CanonicalFrom makes a contract from a qualified type name of the form
// "my/namespace/Type", producing "my.namespace.Type".
func CanonicalFrom(typeName string) (Contract, error) {
	return With(strings.ReplaceAll(typeName, NamespaceSeparator, Separator))
}

// Of returns the canonical contract of v's runtime type, e.g.
// "orders.OrderWasPaidInFull" for a value of type orders.OrderWasPaidInFull.
// Pointers are dereferenced; unnamed types have no contract.
//
// The contract uses the package name, not its import path, so it survives
// moving a package. Two packages with the same name that declare a type of
// the same name therefore share a contract: give one of them an explicit
// contract with With (see serializer.TypeRegistry.RegisterAs, which rejects
// a second type under a contract already taken).
func Of(v any) (Contract, error) {
	if v == nil {
		return Contract{}, &ValidationError{Name: "<nil>", Reason: "nil value has no type"}
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return Contract{}, &ValidationError{Name: t.String(), Reason: "type is not a named package-level type"}
	}
	// t.String() is "pkgname.TypeName".
	return With(t.String())
}

// MustOf is like Of but panics if v has no contract.
func MustOf(v any) Contract {
	c, err := Of(v)
	if err != nil {
		panic(err)
	}
	return c
}

// TypeName returns the qualified type name for the contract, the inverse of
// CanonicalFrom.
func (c Contract) TypeName() string {
	return strings.ReplaceAll(c.name, Separator, NamespaceSeparator)
}

// String returns the canonical contract name.
func (c Contract) String() string {
	return c.name
}

// Equals reports whether both contracts have the same canonical name.
func (c Contract) Equals(other Contract) bool {
	return c.name == other.name
}

// IsZero reports whether c is the zero Contract.
func (c Contract) IsZero() bool {
	return c.name == ""
}

// MarshalText implements encoding.TextMarshaler.
func (c Contract) MarshalText() ([]byte, error) {
	return []byte(c.name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. The text is validated.
func (c *Contract) UnmarshalText(text []byte) error {
	parsed, err := With(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
