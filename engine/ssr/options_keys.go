package ssr

import (
	"encoding"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// OptionKeys returns every key Get and Set accept, in declaration order.
//
// Returns:
//   - []string: the keys
func OptionKeys() []string {
	t := reflect.TypeOf(Options{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		keys = append(keys, t.Field(i).Tag.Get("toml"))
	}
	return keys
}

// optionField returns the field of v tagged key.
func optionField(v reflect.Value, key string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("toml") == key {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// Get returns the value stored under key.
//
// Parameters:
//   - key: an option key such as "rayStep"
//
// Returns:
//   - any: the value with its field type (bool, int, float32, OutputMode or filter.KernelSize)
//   - error: ErrUnknownOption for keys outside the option set
func (o Options) Get(key string) (any, error) {
	f, ok := optionField(reflect.ValueOf(o), key)
	if !ok {
		return nil, fmt.Errorf("%q: %w", key, ErrUnknownOption)
	}
	return f.Interface(), nil
}

// Set stores value under key. Numbers convert between integer and float fields when exact,
// strings are parsed, and the result must pass Validate or o is left unchanged.
//
// Parameters:
//   - key: an option key such as "rayStep"
//   - value: the new value
//
// Returns:
//   - error: ErrUnknownOption or ErrInvalidOption
func (o *Options) Set(key string, value any) error {
	next := *o
	f, ok := optionField(reflect.ValueOf(&next).Elem(), key)
	if !ok {
		return fmt.Errorf("%q: %w", key, ErrUnknownOption)
	}
	if err := assignOption(f, value); err != nil {
		return fmt.Errorf("%q: %v: %w", key, err, ErrInvalidOption)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*o = next
	return nil
}

// assignOption converts value into the field's type.
func assignOption(f reflect.Value, value any) error {
	v := reflect.ValueOf(value)
	if !v.IsValid() {
		return fmt.Errorf("nil value")
	}
	if v.Type() == f.Type() {
		f.Set(v)
		return nil
	}

	if s, ok := value.(string); ok {
		if u, ok := f.Addr().Interface().(encoding.TextUnmarshaler); ok {
			return u.UnmarshalText([]byte(s))
		}
		switch f.Kind() {
		case reflect.Bool:
			b, err := strconv.ParseBool(s)
			if err != nil {
				return err
			}
			f.SetBool(b)
			return nil
		case reflect.Int:
			n, err := strconv.Atoi(s)
			if err != nil {
				return err
			}
			f.SetInt(int64(n))
			return nil
		case reflect.Float32:
			x, err := strconv.ParseFloat(s, 32)
			if err != nil {
				return err
			}
			f.SetFloat(x)
			return nil
		}
	}

	var x float64
	switch {
	case v.CanInt():
		x = float64(v.Int())
	case v.CanUint():
		x = float64(v.Uint())
	case v.CanFloat():
		x = v.Float()
	default:
		return fmt.Errorf("cannot assign %T to %s", value, f.Type())
	}
	switch f.Kind() {
	case reflect.Int:
		if x != math.Trunc(x) {
			return fmt.Errorf("%v is not an integer", value)
		}
		f.SetInt(int64(x))
	case reflect.Float32:
		f.SetFloat(x)
	default:
		return fmt.Errorf("cannot assign %T to %s", value, f.Type())
	}
	return nil
}
