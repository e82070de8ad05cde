package data

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-reflect"
)

// TagName is the struct tag read when converting structs.
const TagName = "nedb"

var (
	timeTyp  = reflect.TypeOf(time.Time{})
	valueTyp = reflect.TypeOf(Value{})
)

// FromAny converts a Go value into a [Value]. Maps with string keys and
// structs become objects, slices and arrays become arrays, every numeric kind
// becomes a number. Values and Objects are deep copied.
func FromAny(in any) (Value, error) {
	switch t := in.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t.Clone(), nil
	case Object:
		return t.Clone().Value(), nil
	case map[string]any:
		obj := make(Object, len(t))
		for k, v := range t {
			c, err := FromAny(v)
			if err != nil {
				return Value{}, err
			}
			obj[k] = c
		}
		return obj.Value(), nil
	case []any:
		arr := make([]Value, len(t))
		for i, v := range t {
			c, err := FromAny(v)
			if err != nil {
				return Value{}, err
			}
			arr[i] = c
		}
		return Array(arr...), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case int:
		return Int(t), nil
	case time.Time:
		return Date(t), nil
	case *regexp.Regexp:
		if t == nil {
			return Null(), nil
		}
		return Regex(t), nil
	case Predicate:
		return Where(t), nil
	case func(Object) (bool, error):
		return Where(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, ErrUnsupportedType{Type: "json.Number " + t.String()}
		}
		return Number(f), nil
	}
	return fromReflect(reflect.ValueNoEscapeOf(in))
}

// FromObject converts a Go value that must produce an object.
func FromObject(in any) (Object, error) {
	v, err := FromAny(in)
	if err != nil {
		return nil, err
	}
	obj, ok := v.AsObject()
	if !ok {
		return nil, ErrUnsupportedType{Type: fmt.Sprintf("%T (expected an object)", in)}
	}
	return obj, nil
}

func fromReflect(r reflect.Value) (Value, error) {
	for r.Kind() == reflect.Ptr || r.Kind() == reflect.Interface {
		if r.IsNil() {
			return Null(), nil
		}
		r = r.Elem()
	}
	switch r.Kind() {
	case reflect.Invalid:
		return Null(), nil
	case reflect.Bool:
		return Bool(r.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(float64(r.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Number(float64(r.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return Number(r.Float()), nil
	case reflect.String:
		return String(r.String()), nil
	case reflect.Slice:
		if r.IsNil() {
			return Null(), nil
		}
		fallthrough
	case reflect.Array:
		return fromList(r)
	case reflect.Map:
		if r.IsNil() {
			return Null(), nil
		}
		return fromMap(r)
	case reflect.Struct:
		switch r.Type() {
		case timeTyp:
			return Date(r.Interface().(time.Time)), nil
		case valueTyp:
			return r.Interface().(Value).Clone(), nil
		}
		return fromStruct(r)
	default:
		return Value{}, ErrUnsupportedType{Type: r.Type().String()}
	}
}

func fromList(r reflect.Value) (Value, error) {
	length := r.Len()
	arr := make([]Value, length)
	for i := range length {
		v, err := FromAny(r.Index(i).Interface())
		if err != nil {
			return Value{}, err
		}
		arr[i] = v
	}
	return Array(arr...), nil
}

func fromMap(r reflect.Value) (Value, error) {
	obj := make(Object, r.Len())
	for _, k := range r.MapKeys() {
		var key string
		if k.Kind() == reflect.String {
			key = k.String()
		} else {
			key = fmt.Sprint(k.Interface())
		}
		v, err := FromAny(r.MapIndex(k).Interface())
		if err != nil {
			return Value{}, err
		}
		obj[key] = v
	}
	return obj.Value(), nil
}

func fromStruct(r reflect.Value) (Value, error) {
	typ := r.Type()
	numField := r.NumField()
	obj := make(Object, numField)
	for n := range numField {
		field := typ.Field(n)
		if field.PkgPath != "" {
			continue
		}
		name := field.Name
		var opts []string
		if tag, ok := field.Tag.Lookup(TagName); ok {
			if tag == "-" {
				continue
			}
			opts = strings.Split(tag, ",")
			if opts[0] != "" {
				name = opts[0]
			}
			opts = opts[1:]
		}
		fv := r.Field(n)
		if slices.Contains(opts, "omitempty") && isEmpty(fv) {
			continue
		}
		if slices.Contains(opts, "omitzero") && fv.IsZero() {
			continue
		}
		v, err := FromAny(fv.Interface())
		if err != nil {
			return Value{}, err
		}
		obj[name] = v
	}
	return obj.Value(), nil
}

func isEmpty(r reflect.Value) bool {
	switch r.Kind() {
	case reflect.Ptr, reflect.Interface:
		return r.IsNil()
	case reflect.Slice, reflect.Map, reflect.String, reflect.Array:
		return r.Len() == 0
	default:
		return r.IsZero()
	}
}
