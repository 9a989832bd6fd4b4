package rest

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Query parameters are decoded field by field. Each codec states whether the
// parameter is required and which value an absent optional parameter takes.

var ErrMissingParam = errors.New("missing query parameter")

type ParamError struct {
	Name  string
	Value string
	Err   error
}

func (e *ParamError) Error() string {
	if errors.Is(e.Err, ErrMissingParam) {
		return fmt.Sprintf("query parameter %q is required", e.Name)
	}
	return fmt.Sprintf("invalid query parameter %q=%q: %v", e.Name, e.Value, e.Err)
}

func (e *ParamError) Unwrap() error {
	return e.Err
}

// TimeParam accepts epoch milliseconds or an RFC3339 timestamp.
type TimeParam struct {
	Name     string
	Required bool
	// Default is returned for an absent optional parameter.
	Default time.Time
}

func (p TimeParam) Decode(values url.Values) (time.Time, error) {
	raw := values.Get(p.Name)
	if raw == "" {
		if p.Required {
			return time.Time{}, &ParamError{Name: p.Name, Err: ErrMissingParam}
		}
		return p.Default, nil
	}
	if millis, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(millis).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, &ParamError{Name: p.Name, Value: raw, Err: errors.New("expected epoch milliseconds or RFC3339")}
	}
	return t, nil
}

// Encode always emits epoch milliseconds.
func (p TimeParam) Encode(values url.Values, t time.Time) {
	values.Set(p.Name, strconv.FormatInt(t.UnixMilli(), 10))
}

// BoolParam accepts the forms understood by strconv.ParseBool.
type BoolParam struct {
	Name    string
	Default bool
}

func (p BoolParam) Decode(values url.Values) (bool, error) {
	raw := values.Get(p.Name)
	if raw == "" {
		return p.Default, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &ParamError{Name: p.Name, Value: raw, Err: err}
	}
	return b, nil
}

func (p BoolParam) Encode(values url.Values, b bool) {
	values.Set(p.Name, strconv.FormatBool(b))
}

// IntParam accepts a base 10 integer within [Min, Max] when Max > Min.
type IntParam struct {
	Name     string
	Required bool
	Default  int
	Min, Max int
}

func (p IntParam) Decode(values url.Values) (int, error) {
	raw := values.Get(p.Name)
	if raw == "" {
		if p.Required {
			return 0, &ParamError{Name: p.Name, Err: ErrMissingParam}
		}
		return p.Default, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ParamError{Name: p.Name, Value: raw, Err: err}
	}
	if p.Max > p.Min && (n < p.Min || n > p.Max) {
		return 0, &ParamError{Name: p.Name, Value: raw, Err: fmt.Errorf("must be between %d and %d", p.Min, p.Max)}
	}
	return n, nil
}

func (p IntParam) Encode(values url.Values, n int) {
	values.Set(p.Name, strconv.Itoa(n))
}
