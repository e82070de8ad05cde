// Package modifier contains a [domain.Modifier] implementation to apply changes
// to a doc based on a mongo-like API.
package modifier

import (
	"fmt"
	"math"
	"strings"

	"github.com/ramiroaisen/nedb-types/adapter/comparer"
	"github.com/ramiroaisen/nedb-types/adapter/data"
	"github.com/ramiroaisen/nedb-types/adapter/matcher"
	"github.com/ramiroaisen/nedb-types/domain"
	"github.com/ramiroaisen/nedb-types/pkg/errs"
)

var (
	// ErrMixedOperators is returned when user provides an update query with
	// mixed use of normal fields and dollar fields.
	ErrMixedOperators = fmt.Errorf("%w: cannot mix modifiers and normal fields", errs.ErrValidation)
	// ErrInvalidPushField is returned when user passes some field other
	// than $slice and $each when using $push modifier.
	ErrInvalidPushField = fmt.Errorf("%w: can only use $slice in conjunction with $each", errs.ErrValidation)
	// ErrInvalidAddToSetField is returned when user passes some field other
	// than $each and $slice when using $addToSet modifier.
	ErrInvalidAddToSetField = fmt.Errorf("%w: cannot use another field in conjunction with $each", errs.ErrValidation)
	// ErrCannotModifyID is returned when an update would change the
	// identifier of a document.
	ErrCannotModifyID = fmt.Errorf("%w: cannot change a document's %s", errs.ErrValidation, data.IDField)
)

// ErrModFieldType is returned when a modification function runs on a document
// field of a type that is not accepted.
type ErrModFieldType struct {
	Mod    string
	Want   string
	Actual data.Kind
}

// Error implements [error].
func (e ErrModFieldType) Error() string {
	return fmt.Sprintf("%s expects %s field, got %s", e.Mod, e.Want, e.Actual)
}

// Unwrap implements the interface used by [errors.Is].
func (e ErrModFieldType) Unwrap() error { return errs.ErrValidation }

// ErrModArgType is returned when a modification function is called with an
// argument of a type that is not accepted.
type ErrModArgType struct {
	Mod    string
	Want   string
	Actual data.Kind
}

// Error implements [error].
func (e ErrModArgType) Error() string {
	return fmt.Sprintf("%s expects %s arg, got %s", e.Mod, e.Want, e.Actual)
}

// Unwrap implements the interface used by [errors.Is].
func (e ErrModArgType) Unwrap() error { return errs.ErrValidation }

// ErrUnknownModifier is returned when the user specifies a modification query
// with a modification procedure that is not known by the current implementation
// of [Modifier].
type ErrUnknownModifier struct {
	Name string
}

// Error implements [error].
func (e ErrUnknownModifier) Error() string {
	return fmt.Sprintf("unknown modifier %q", e.Name)
}

// Unwrap implements the interface used by [errors.Is].
func (e ErrUnknownModifier) Unwrap() error { return errs.ErrValidation }

type modFunc func(doc data.Object, path []string, arg data.Value) error

// Modifier implements [domain.Modifier].
type Modifier struct {
	comp       domain.Comparer
	matcher    domain.Matcher
	timeGetter domain.TimeGetter
	timestamps bool
	mods       map[string]modFunc
}

// NewModifier returns a new implementation of [domain.Modifier].
func NewModifier(options ...Option) domain.Modifier {
	m := &Modifier{}
	for _, option := range options {
		option(m)
	}
	if m.comp == nil {
		m.comp = comparer.NewComparer()
	}
	if m.matcher == nil {
		m.matcher = matcher.NewMatcher(matcher.WithComparer(m.comp))
	}

	m.mods = map[string]modFunc{
		"$set":      m.set,
		"$unset":    m.unset,
		"$inc":      m.inc,
		"$dec":      m.dec,
		"$push":     m.push,
		"$addToSet": m.addToSet,
		"$pop":      m.pop,
		"$pull":     m.pull,
		"$slice":    m.slice,
		"$max":      m.max,
		"$min":      m.min,
	}

	return m
}

// Modify implements [domain.Modifier].
func (m *Modifier) Modify(obj domain.Document, mod domain.Document) (domain.Document, error) {
	replace, err := m.isReplacement(mod)
	if err != nil {
		return nil, err
	}

	var res domain.Document
	if replace {
		res, err = m.replaceMod(obj, mod)
	} else {
		res, err = m.dollarMod(obj, mod)
	}
	if err != nil {
		return nil, err
	}

	if m.timestamps {
		if createdAt, ok := obj[domain.CreatedAtField]; ok {
			res[domain.CreatedAtField] = createdAt
		}
		res[domain.UpdatedAtField] = data.Date(m.timeGetter.GetTime())
	}

	if err := data.CheckObject(res); err != nil {
		return nil, err
	}
	return res, nil
}

func (m *Modifier) isReplacement(mod domain.Document) (bool, error) {
	dollarFields := 0
	for k := range mod {
		if strings.HasPrefix(k, "$") {
			dollarFields++
		}
	}
	if dollarFields != 0 && dollarFields != len(mod) {
		return false, ErrMixedOperators
	}
	return dollarFields == 0, nil
}

func (m *Modifier) replaceMod(obj domain.Document, qry domain.Document) (domain.Document, error) {
	if id, ok := qry[data.IDField]; ok && !data.Equal(id, obj[data.IDField]) {
		return nil, ErrCannotModifyID
	}

	newDoc := qry.Clone()
	newDoc[data.IDField] = obj[data.IDField]

	return newDoc, nil
}

func (m *Modifier) dollarMod(obj domain.Document, qry domain.Document) (domain.Document, error) {
	docCopy := obj.Clone()

	for _, modName := range qry.Keys() {
		mod, ok := m.mods[modName]
		if !ok {
			return nil, ErrUnknownModifier{Name: modName}
		}
		args, ok := qry[modName].AsObject()
		if !ok {
			return nil, ErrModArgType{Mod: modName, Want: "object", Actual: qry[modName].Kind()}
		}
		for _, key := range args.Keys() {
			path := data.SplitPath(key)
			if path[0] == data.IDField {
				return nil, ErrCannotModifyID
			}
			if err := mod(docCopy, path, args[key]); err != nil {
				return nil, fmt.Errorf("modifying field %q: %w", key, err)
			}
		}
	}

	return docCopy, nil
}

func (m *Modifier) set(obj data.Object, path []string, arg data.Value) error {
	return obj.Modify(path, true, func(data.Value) (data.Value, error) {
		return arg.Clone(), nil
	})
}

func (m *Modifier) unset(obj data.Object, path []string, _ data.Value) error {
	return obj.Modify(path, false, func(data.Value) (data.Value, error) {
		return data.Undefined(), nil
	})
}

func (m *Modifier) inc(obj data.Object, path []string, arg data.Value) error {
	return m.add(obj, path, arg, "$inc", 1)
}

func (m *Modifier) dec(obj data.Object, path []string, arg data.Value) error {
	return m.add(obj, path, arg, "$dec", -1)
}

func (m *Modifier) add(obj data.Object, path []string, arg data.Value, name string, sign float64) error {
	delta, ok := arg.AsNumber()
	if !ok {
		return ErrModArgType{Mod: name, Want: "number", Actual: arg.Kind()}
	}
	delta *= sign
	return obj.Modify(path, true, func(current data.Value) (data.Value, error) {
		if !current.Defined() {
			return data.Number(delta), nil
		}
		num, ok := current.AsNumber()
		if !ok {
			return current, ErrModFieldType{Mod: name, Want: "number", Actual: current.Kind()}
		}
		sum := num + delta
		if math.IsInf(sum, 0) || math.IsNaN(sum) {
			return current, fmt.Errorf("%w: %s result is not finite", errs.ErrValidation, name)
		}
		return data.Number(sum), nil
	})
}

// eachArgs reads the {$each, $slice} form accepted by $push and $addToSet.
// Any other argument is a single item.
func (m *Modifier) eachArgs(name string, arg data.Value) (items []data.Value, slice *int, err error) {
	obj, ok := arg.AsObject()
	if !ok {
		return []data.Value{arg}, nil, nil
	}
	each, hasEach := obj["$each"]
	sliceArg, hasSlice := obj["$slice"]
	if !hasEach {
		if hasSlice {
			return nil, nil, ErrInvalidPushField
		}
		return []data.Value{arg}, nil, nil
	}
	used := 1
	if items, ok = each.AsArray(); !ok {
		return nil, nil, ErrModArgType{Mod: "$each", Want: "array", Actual: each.Kind()}
	}
	if hasSlice {
		used++
		n, ok := sliceArg.AsInt()
		if !ok {
			return nil, nil, ErrModArgType{Mod: "$slice", Want: "integer", Actual: sliceArg.Kind()}
		}
		slice = &n
	}
	if len(obj) > used {
		if name == "$addToSet" {
			return nil, nil, ErrInvalidAddToSetField
		}
		return nil, nil, ErrInvalidPushField
	}
	return items, slice, nil
}

func (m *Modifier) arrayField(name string, current data.Value) ([]data.Value, error) {
	if !current.Defined() {
		return nil, nil
	}
	arr, ok := current.AsArray()
	if !ok {
		return nil, ErrModFieldType{Mod: name, Want: "array", Actual: current.Kind()}
	}
	return arr, nil
}

func (m *Modifier) push(obj data.Object, path []string, arg data.Value) error {
	items, slice, err := m.eachArgs("$push", arg)
	if err != nil {
		return err
	}
	return obj.Modify(path, true, func(current data.Value) (data.Value, error) {
		arr, err := m.arrayField("$push", current)
		if err != nil {
			return current, err
		}
		for _, item := range items {
			arr = append(arr, item.Clone())
		}
		return data.Array(trim(arr, slice)...), nil
	})
}

func (m *Modifier) addToSet(obj data.Object, path []string, arg data.Value) error {
	items, slice, err := m.eachArgs("$addToSet", arg)
	if err != nil {
		return err
	}
	return obj.Modify(path, true, func(current data.Value) (data.Value, error) {
		arr, err := m.arrayField("$addToSet", current)
		if err != nil {
			return current, err
		}
	items:
		for _, item := range items {
			for _, existing := range arr {
				if data.Equal(existing, item) {
					continue items
				}
			}
			arr = append(arr, item.Clone())
		}
		return data.Array(trim(arr, slice)...), nil
	})
}

// trim keeps the first n items when n >= 0 and the last -n items otherwise.
func trim(arr []data.Value, n *int) []data.Value {
	if n == nil {
		return arr
	}
	if *n >= 0 {
		return arr[:min(*n, len(arr))]
	}
	return arr[len(arr)-min(-*n, len(arr)):]
}

func (m *Modifier) slice(obj data.Object, path []string, arg data.Value) error {
	n, ok := arg.AsInt()
	if !ok {
		return ErrModArgType{Mod: "$slice", Want: "integer", Actual: arg.Kind()}
	}
	return obj.Modify(path, false, func(current data.Value) (data.Value, error) {
		arr, ok := current.AsArray()
		if !ok {
			return current, ErrModFieldType{Mod: "$slice", Want: "array", Actual: current.Kind()}
		}
		return data.Array(trim(arr, &n)...), nil
	})
}

func (m *Modifier) pop(obj data.Object, path []string, arg data.Value) error {
	n, ok := arg.AsInt()
	if !ok {
		return ErrModArgType{Mod: "$pop", Want: "integer", Actual: arg.Kind()}
	}
	return obj.Modify(path, false, func(current data.Value) (data.Value, error) {
		arr, ok := current.AsArray()
		if !ok {
			return current, ErrModFieldType{Mod: "$pop", Want: "array", Actual: current.Kind()}
		}
		switch {
		case n == 0 || len(arr) == 0:
			return current, nil
		case n > 0:
			return data.Array(arr[:len(arr)-1]...), nil
		default:
			return data.Array(arr[1:]...), nil
		}
	})
}

func (m *Modifier) pull(obj data.Object, path []string, arg data.Value) error {
	return obj.Modify(path, false, func(current data.Value) (data.Value, error) {
		arr, ok := current.AsArray()
		if !ok {
			return current, ErrModFieldType{Mod: "$pull", Want: "array", Actual: current.Kind()}
		}
		res := make([]data.Value, 0, len(arr))
		for _, item := range arr {
			matches, err := m.matcher.Match(item, arg)
			if err != nil {
				return current, err
			}
			if !matches {
				res = append(res, item)
			}
		}
		return data.Array(res...), nil
	})
}

func (m *Modifier) max(obj data.Object, path []string, arg data.Value) error {
	return m.extreme(obj, path, arg, 1)
}

func (m *Modifier) min(obj data.Object, path []string, arg data.Value) error {
	return m.extreme(obj, path, arg, -1)
}

// extreme replaces the field with arg when arg compares to it with the same
// sign as want.
func (m *Modifier) extreme(obj data.Object, path []string, arg data.Value, want int) error {
	return obj.Modify(path, true, func(current data.Value) (data.Value, error) {
		if !current.Defined() || m.comp.Compare(arg, current)*want > 0 {
			return arg.Clone(), nil
		}
		return current, nil
	})
}
