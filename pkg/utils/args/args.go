// Package args turns parser functions into command line flag values.
//
// Values satisfy both of flag.Value and pflag.Value, so they serve the standard flag package
// (fairtraced, fairtrace-loops) and cobra (ftctl) alike.
package args

import "fmt"

// Value is a flag holding T parsed from the command line.
type Value[T fmt.Stringer] struct {
	parse    func(string) (T, error)
	typename string
	value    T
	set      bool
}

// Parser makes a Value parsed with parse.
func Parser[T fmt.Stringer](parse func(string) (T, error)) *Value[T] {
	var zero T
	typename := fmt.Sprintf("%T", zero)
	if typename == "<nil>" { // T is an interface
		typename = "string"
	}
	return &Value[T]{parse: parse, typename: typename}
}

// Named sets the type name shown in usages of cobra.
func (v *Value[T]) Named(typename string) *Value[T] {
	v.typename = typename
	return v
}

func (v *Value[T]) String() string {
	if v == nil || !v.set {
		return ""
	}
	return v.value.String()
}

func (v *Value[T]) Set(s string) error {
	parsed, err := v.parse(s)
	if err != nil {
		return err
	}
	v.value = parsed
	v.set = true
	return nil
}

func (v *Value[T]) Type() string {
	return v.typename
}

// Get returns the parsed value, or the zero value when it is not set.
func (v *Value[T]) Get() T {
	return v.value
}

// Or returns the parsed value, or def when it is not set.
func (v *Value[T]) Or(def T) T {
	if !v.set {
		return def
	}
	return v.value
}

func (v *Value[T]) IsSet() bool {
	return v.set
}
