package prototxt

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is either a scalar (Text) or a nested message.
type Value struct {
	Text    string
	Quoted  bool // Text came from a string literal
	Message *Message
}

// IsMessage reports whether the value is a nested message.
func (v Value) IsMessage() bool {
	return v.Message != nil
}

// Field is one name/value occurrence. Line is where the name appeared.
type Field struct {
	Name  string
	Value Value
	Line  int
}

// Message is an ordered list of fields.
type Message struct {
	Fields []Field
}

// Has reports whether the field occurs at least once.
func (m *Message) Has(name string) bool {
	_, ok := m.Get(name)
	return ok
}

// Get returns the first occurrence of a field.
func (m *Message) Get(name string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	for _, f := range m.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// All returns every occurrence of a field in order.
func (m *Message) All(name string) []Value {
	if m == nil {
		return nil
	}
	var out []Value
	for _, f := range m.Fields {
		if f.Name == name {
			out = append(out, f.Value)
		}
	}
	return out
}

// Message returns the first nested message named name, or nil.
func (m *Message) Message(name string) *Message {
	for _, v := range m.All(name) {
		if v.IsMessage() {
			return v.Message
		}
	}
	return nil
}

// Messages returns every nested message named name.
func (m *Message) Messages(name string) []*Message {
	var out []*Message
	for _, v := range m.All(name) {
		if v.IsMessage() {
			out = append(out, v.Message)
		}
	}
	return out
}

func (m *Message) scalar(name string) (Value, bool, error) {
	v, ok := m.Get(name)
	if !ok {
		return Value{}, false, nil
	}
	if v.IsMessage() {
		return Value{}, true, fmt.Errorf("field %q: expected a scalar, found a message", name)
	}
	return v, true, nil
}

// String returns the first value of a scalar field, or def when absent.
func (m *Message) String(name, def string) (string, error) {
	v, ok, err := m.scalar(name)
	if err != nil || !ok {
		return def, err
	}
	return v.Text, nil
}

// Int returns the first value of an integer field, or def when absent.
func (m *Message) Int(name string, def int) (int, error) {
	v, ok, err := m.scalar(name)
	if err != nil || !ok {
		return def, err
	}
	n, err := parseInt(v.Text)
	if err != nil {
		return def, fmt.Errorf("field %q: %w", name, err)
	}
	return n, nil
}

// Float returns the first value of a floating point field, or def when
// absent.
func (m *Message) Float(name string, def float64) (float64, error) {
	v, ok, err := m.scalar(name)
	if err != nil || !ok {
		return def, err
	}
	f, err := parseFloat(v.Text)
	if err != nil {
		return def, fmt.Errorf("field %q: %w", name, err)
	}
	return f, nil
}

// Bool returns the first value of a boolean field, or def when absent.
// Accepts true/false in any case and 1/0.
func (m *Message) Bool(name string, def bool) (bool, error) {
	v, ok, err := m.scalar(name)
	if err != nil || !ok {
		return def, err
	}
	switch strings.ToLower(v.Text) {
	case "true", "t", "1":
		return true, nil
	case "false", "f", "0":
		return false, nil
	}
	return def, fmt.Errorf("field %q: invalid boolean %q", name, v.Text)
}

// Strings returns every scalar value of a repeated field.
func (m *Message) Strings(name string) ([]string, error) {
	var out []string
	for _, v := range m.All(name) {
		if v.IsMessage() {
			return nil, fmt.Errorf("field %q: expected a scalar, found a message", name)
		}
		out = append(out, v.Text)
	}
	return out, nil
}

// Ints returns every value of a repeated integer field.
func (m *Message) Ints(name string) ([]int, error) {
	texts, err := m.Strings(name)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(texts))
	for _, t := range texts {
		n, err := parseInt(t)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// Floats returns every value of a repeated floating point field.
func (m *Message) Floats(name string) ([]float64, error) {
	texts, err := m.Strings(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(texts))
	for _, t := range texts {
		f, err := parseFloat(t)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func parseInt(s string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimPrefix(s, "+"), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return int(n), nil
}

func parseFloat(s string) (float64, error) {
	t := strings.TrimPrefix(s, "+")
	// Float literals may carry a C-style f suffix, as in 1e-4f.
	if n := len(t); n > 1 && (t[n-1] == 'f' || t[n-1] == 'F') && (t[n-2] == '.' || (t[n-2] >= '0' && t[n-2] <= '9')) {
		if !strings.Contains(strings.ToLower(t), "0x") {
			t = t[:n-1]
		}
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}
