package data

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// IDField is the name of the identifier field every stored document carries.
const IDField = "_id"

// Object is a set of named values. Documents are objects.
type Object map[string]Value

// Value wraps o in a [Value].
func (o Object) Value() Value {
	if o == nil {
		o = Object{}
	}
	return Value{kind: KindObject, obj: o}
}

// ID returns the document identifier, or an empty string if unset.
func (o Object) ID() string {
	s, _ := o[IDField].AsString()
	return s
}

// Get returns the value at the given dotted path.
func (o Object) Get(path string) Value {
	return o.Value().Lookup(SplitPath(path))
}

// Keys returns the object keys in ascending order.
func (o Object) Keys() []string {
	return slices.Sorted(maps.Keys(o))
}

// Clone returns a deep copy of o.
func (o Object) Clone() Object {
	if o == nil {
		return nil
	}
	cp := make(Object, len(o))
	for k, v := range o {
		cp[k] = v.Clone()
	}
	return cp
}

// Native converts o into a map of plain Go values.
func (o Object) Native() map[string]any {
	res := make(map[string]any, len(o))
	for k, v := range o {
		res[k] = v.Native()
	}
	return res
}

// SplitPath splits a dotted field path.
func SplitPath(path string) []string {
	return strings.Split(path, ".")
}

// Lookup follows fields from v. Objects are descended by key. Arrays are
// indexed when the next field is numeric and otherwise distribute the rest
// of the path over their elements, producing an array of the defined results.
// Missing fields and primitives yield [Undefined].
func (v Value) Lookup(fields []string) Value {
	if len(fields) == 0 {
		return v
	}
	switch v.kind {
	case KindObject:
		child, ok := v.obj[fields[0]]
		if !ok {
			return Value{}
		}
		return child.Lookup(fields[1:])
	case KindArray:
		if i, err := strconv.Atoi(fields[0]); err == nil {
			if i < 0 || i >= len(v.arr) {
				return Value{}
			}
			return v.arr[i].Lookup(fields[1:])
		}
		res := make([]Value, 0, len(v.arr))
		for _, el := range v.arr {
			if found := el.Lookup(fields); found.Defined() {
				res = append(res, found)
			}
		}
		return Array(res...)
	default:
		return Value{}
	}
}

// Get follows a dotted path from v.
func (v Value) Get(path string) Value {
	return v.Lookup(SplitPath(path))
}

// Modify replaces the value found at fields with the result of fn. fn receives
// the current value, [Undefined] if absent, and returning [Undefined] removes
// the field. When create is true missing intermediate objects are created and
// reaching through a primitive is an error; otherwise a missing or primitive
// intermediate value makes Modify a no-op.
//
// o is changed in place, so callers must own it.
func (o Object) Modify(fields []string, create bool, fn func(Value) (Value, error)) error {
	head := fields[0]
	if len(fields) == 1 {
		res, err := fn(o[head])
		if err != nil {
			return err
		}
		if res.Defined() {
			o[head] = res
		} else {
			delete(o, head)
		}
		return nil
	}
	child, ok := o[head]
	if !ok {
		if !create {
			return nil
		}
		child = Object{}.Value()
	}
	res, err := modifyValue(child, fields[1:], create, fn)
	if err != nil {
		return err
	}
	if res.Defined() {
		o[head] = res
	}
	return nil
}

func modifyValue(v Value, fields []string, create bool, fn func(Value) (Value, error)) (Value, error) {
	switch v.kind {
	case KindObject:
		return v, v.obj.Modify(fields, create, fn)
	case KindArray:
		i, err := strconv.Atoi(fields[0])
		if err != nil || i < 0 {
			if !create {
				return v, nil
			}
			return v, ErrPathConflict{Field: fields[0], Kind: KindArray}
		}
		arr := v.arr
		if i >= len(arr) {
			if !create {
				return v, nil
			}
			for len(arr) <= i {
				arr = append(arr, Null())
			}
		}
		var res Value
		if len(fields) == 1 {
			if res, err = fn(arr[i]); err != nil {
				return v, err
			}
			if !res.Defined() {
				res = Null()
			}
		} else {
			child := arr[i]
			if child.kind == KindNull && create {
				child = Object{}.Value()
			}
			if res, err = modifyValue(child, fields[1:], create, fn); err != nil {
				return v, err
			}
		}
		arr[i] = res
		return Value{kind: KindArray, arr: arr}, nil
	default:
		if !create {
			return v, nil
		}
		return v, ErrPathConflict{Field: fields[0], Kind: v.kind}
	}
}

// Set assigns value at the dotted path, creating intermediate objects.
func (o Object) Set(path string, value Value) error {
	return o.Modify(SplitPath(path), true, func(Value) (Value, error) {
		return value, nil
	})
}

// Unset removes the dotted path, if present.
func (o Object) Unset(path string) {
	_ = o.Modify(SplitPath(path), false, func(Value) (Value, error) {
		return Value{}, nil
	})
}
