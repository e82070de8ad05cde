package data

import "strings"

// Equal reports whether a and b hold the same data. Primitives are compared
// strictly and dates by instant. Arrays and objects are compared deeply.
// Undefined is never equal to anything, itself included.
func Equal(a, b Value) bool {
	if a.kind == KindUndefined || b.kind == KindUndefined || a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindNumber:
		return a.num == b.num
	case KindString:
		return a.str == b.str
	case KindBool:
		return a.b == b.b
	case KindDate:
		return a.t.Equal(b.t)
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.obj) != len(b.obj) {
			return false
		}
		for k, av := range a.obj {
			bv, ok := b.obj[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case KindRegex:
		return a.re.String() == b.re.String()
	default:
		return false
	}
}

// CheckObject verifies that every key of o, recursively through nested
// objects and arrays, can be stored: keys must not start with '$' and must
// not contain '.'.
func CheckObject(o Object) error {
	for k, v := range o {
		if strings.HasPrefix(k, "$") {
			return ErrFieldName{Key: k, Reason: "field names cannot begin with the $ character"}
		}
		if strings.Contains(k, ".") {
			return ErrFieldName{Key: k, Reason: "field names cannot contain a ."}
		}
		if err := checkValue(v); err != nil {
			return err
		}
	}
	return nil
}

func checkValue(v Value) error {
	switch v.kind {
	case KindObject:
		return CheckObject(v.obj)
	case KindArray:
		for _, el := range v.arr {
			if err := checkValue(el); err != nil {
				return err
			}
		}
	case KindRegex, KindPredicate:
		return ErrUnsupportedType{Type: v.kind.String()}
	}
	return nil
}
