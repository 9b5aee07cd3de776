package resolver

import "fmt"

// Source identifies the origin that supplied a resolved value.
type Source string

const (
	// SourceDirect means the caller passed the value explicitly.
	SourceDirect Source = "direct"
	// SourceConfig means the value came from the configuration mapping.
	SourceConfig Source = "config"
	// SourceEnvironment means the value came from an environment variable.
	SourceEnvironment Source = "environment"
	// SourceDefault means the value fell back to the supplied default.
	SourceDefault Source = "default"
)

// ValueType selects the coercion applied to environment-sourced strings.
// Values from other sources are assumed to carry the right type already.
type ValueType string

const (
	TypeString ValueType = "string"
	TypeInt    ValueType = "int"
	TypeFloat  ValueType = "float"
	TypeBool   ValueType = "bool"
	// TypeList coerces a comma-separated string into a []string.
	TypeList ValueType = "list"
)

func (t ValueType) valid() bool {
	switch t {
	case TypeString, TypeInt, TypeFloat, TypeBool, TypeList:
		return true
	}
	return false
}

// ParseValueType maps a textual type name onto a ValueType. An empty string
// selects TypeString.
func ParseValueType(s string) (ValueType, error) {
	if s == "" {
		return TypeString, nil
	}
	t := ValueType(s)
	if !t.valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

// Request describes a single lookup. Direct, Config, and Default are
// optional; nil means absent. An empty Type resolves as TypeString.
type Request struct {
	Key       string
	Direct    any
	Config    map[string]any
	Default   any
	Type      ValueType
	Sensitive bool
}

// Result carries the outcome of a lookup. Value is the unmasked resolved
// value; Display is the representation safe to log (masked when the lookup
// was sensitive). EnvKey is the environment variable name that was consulted.
type Result struct {
	Key     string
	Value   any
	Source  Source
	EnvKey  string
	Display string
}
