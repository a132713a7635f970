package capture

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind tells the capture strategy of a Decision.
type Kind int

const (
	// KindNone disables capturing for a channel. The channel's stream is
	// left untouched.
	KindNone Kind = iota

	// KindAll captures everything that flows through a channel.
	KindAll

	// KindHead captures only the first N bytes.
	KindHead

	// KindTail captures only the last N bytes.
	KindTail
)

// Decision selects the capture strategy for one channel of one request.
// The zero value is None.
type Decision struct {
	kind Kind
	n    int
}

// ConfigurationError is returned when a decision value cannot be
// interpreted. It is never silently coerced.
type ConfigurationError struct {
	Value  interface{}
	Reason string
}

func (err *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid capture decision %#v: %s", err.Value, err.Reason)
}

// All captures everything.
func All() Decision { return Decision{kind: KindAll} }

// None captures nothing.
func None() Decision { return Decision{kind: KindNone} }

// Head captures the first n bytes. Head(0) behaves like None.
func Head(n int) Decision { return Decision{kind: KindHead, n: n} }

// Tail captures the last n bytes. Tail(0) behaves like None.
func Tail(n int) Decision { return Decision{kind: KindTail, n: n} }

func (d Decision) Kind() Kind { return d.kind }
func (d Decision) N() int     { return d.n }

// IsNone returns true when resolving the decision does not produce a
// buffer.
func (d Decision) IsNone() bool {
	switch d.kind {
	case KindNone:
		return true
	case KindHead, KindTail:
		return d.n == 0
	}

	return false
}

func (d Decision) String() string {
	switch d.kind {
	case KindAll:
		return "all"
	case KindHead:
		return "head:" + strconv.Itoa(d.n)
	case KindTail:
		return "tail:" + strconv.Itoa(d.n)
	default:
		return "none"
	}
}

func (d Decision) validate() error {
	switch d.kind {
	case KindNone, KindAll:
		return nil
	case KindHead, KindTail:
		if d.n < 0 {
			return &ConfigurationError{Value: d.String(), Reason: "size must not be negative"}
		}

		return nil
	default:
		return &ConfigurationError{Value: int(d.kind), Reason: "unknown kind"}
	}
}

// ParseDecision parses the textual form of a decision: all, none,
// head:N, tail:N, or a signed integer, where a positive integer means
// head and a negative one means tail.
func ParseDecision(s string) (Decision, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "all", "true":
		return All(), nil
	case "none", "false", "":
		return None(), nil
	}

	if kind, size, ok := strings.Cut(v, ":"); ok {
		n, err := strconv.Atoi(size)
		if err != nil || n < 0 {
			return None(), &ConfigurationError{Value: s, Reason: "size must be a non-negative integer"}
		}

		switch kind {
		case "head":
			return Head(n), nil
		case "tail":
			return Tail(n), nil
		default:
			return None(), &ConfigurationError{Value: s, Reason: "unknown kind " + kind}
		}
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return None(), &ConfigurationError{Value: s, Reason: "expected all, none, head:N, tail:N or an integer"}
	}

	return fromInt(s, int64(n))
}

func fromInt(v interface{}, n int64) (Decision, error) {
	switch {
	case n > math.MaxInt || n < -math.MaxInt:
		return None(), &ConfigurationError{Value: v, Reason: "size out of range"}
	case n > 0:
		return Head(int(n)), nil
	case n < 0:
		return Tail(int(-n)), nil
	default:
		return None(), nil
	}
}

func fromUint(v interface{}, n uint64) (Decision, error) {
	if n > math.MaxInt {
		return None(), &ConfigurationError{Value: v, Reason: "size out of range"}
	}

	return fromInt(v, int64(n))
}

// FromValue converts a loosely typed decision, as found in
// configuration documents, into a Decision. true means All, false, nil
// and 0 mean None, a positive integer n means Head(n) and a negative
// integer n means Tail(-n). Strings are parsed with ParseDecision. Any
// other value is a *ConfigurationError.
func FromValue(v interface{}) (Decision, error) {
	switch vv := v.(type) {
	case nil:
		return None(), nil
	case Decision:
		return vv, vv.validate()
	case *Decision:
		if vv == nil {
			return None(), nil
		}

		return *vv, vv.validate()
	case bool:
		if vv {
			return All(), nil
		}

		return None(), nil
	case int:
		return fromInt(v, int64(vv))
	case int8:
		return fromInt(v, int64(vv))
	case int16:
		return fromInt(v, int64(vv))
	case int32:
		return fromInt(v, int64(vv))
	case int64:
		return fromInt(v, vv)
	case uint:
		return fromUint(v, uint64(vv))
	case uint8:
		return fromUint(v, uint64(vv))
	case uint16:
		return fromUint(v, uint64(vv))
	case uint32:
		return fromUint(v, uint64(vv))
	case uint64:
		return fromUint(v, vv)
	case string:
		return ParseDecision(vv)
	default:
		return None(), &ConfigurationError{Value: v, Reason: fmt.Sprintf("unsupported type %T", v)}
	}
}

// Set implements flag.Value.
func (d *Decision) Set(s string) error {
	v, err := ParseDecision(s)
	if err != nil {
		return err
	}

	*d = v
	return nil
}

// UnmarshalYAML accepts booleans, integers and the textual form.
func (d *Decision) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}

	v, err := FromValue(raw)
	if err != nil {
		return err
	}

	*d = v
	return nil
}

func (d Decision) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}
