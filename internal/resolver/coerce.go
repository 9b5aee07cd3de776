package resolver

import (
	"fmt"
	"strconv"
	"strings"
)

// coerce converts an environment-sourced string into the target type. It is
// total on well-formed input and fails explicitly on anything malformed.
func coerce(raw string, target ValueType) (any, error) {
	switch target {
	case TypeString:
		return raw, nil
	case TypeInt:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("not an integer")
		}
		return v, nil
	case TypeFloat:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number")
		}
		return v, nil
	case TypeBool:
		return coerceBool(raw)
	case TypeList:
		return coerceList(raw), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidType, target)
}

// coerceBool accepts a fixed token set; anything outside it is an error
// rather than a silent false.
func coerceBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("not a recognised boolean token")
}

func coerceList(raw string) []string {
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		items = append(items, part)
	}
	return items
}
