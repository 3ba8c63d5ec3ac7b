package expr

import (
	"strconv"
	"strings"

	"graphdb.evalgo.org/value"
)

// castTo implements TypeCast and backs the to_* conversion functions.
func castTo(v value.Value, target ValueType) (value.Value, error) {
	if v.IsNull() {
		return v, nil
	}
	switch target {
	case TypeString:
		return value.NewString(v.String()), nil
	case TypeInt:
		return convertToInt(v)
	case TypeFloat:
		return convertToFloat(v)
	case TypeBool:
		return convertToBool(v)
	}
	if TypeOf(v) == target {
		return v, nil
	}
	return value.Value{}, Errorf(TypeMismatch, "cannot cast %s to %s", v.Kind(), target)
}

func convertToInt(v value.Value) (value.Value, error) {
	switch v.Kind() {
	case value.KindInt:
		return v, nil
	case value.KindFloat:
		f, _ := v.Float()
		return value.NewInt(int64(f)), nil
	case value.KindBool:
		b, _ := v.Bool()
		if b {
			return value.NewInt(1), nil
		}
		return value.NewInt(0), nil
	case value.KindString:
		s, _ := v.Str()
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return value.NewNull(value.NullBadData), nil
		}
		return value.NewInt(i), nil
	}
	return value.Value{}, Errorf(TypeMismatch, "cannot convert %s to INT", v.Kind())
}

func convertToFloat(v value.Value) (value.Value, error) {
	switch v.Kind() {
	case value.KindFloat:
		return v, nil
	case value.KindInt:
		i, _ := v.Int()
		return value.NewFloat(float64(i)), nil
	case value.KindBool:
		b, _ := v.Bool()
		if b {
			return value.NewFloat(1), nil
		}
		return value.NewFloat(0), nil
	case value.KindString:
		s, _ := v.Str()
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return value.NewNull(value.NullBadData), nil
		}
		return value.NewFloat(f), nil
	}
	return value.Value{}, Errorf(TypeMismatch, "cannot convert %s to FLOAT", v.Kind())
}

func convertToBool(v value.Value) (value.Value, error) {
	switch v.Kind() {
	case value.KindBool:
		return v, nil
	case value.KindInt:
		i, _ := v.Int()
		return value.NewBool(i != 0), nil
	case value.KindFloat:
		f, _ := v.Float()
		return value.NewBool(f != 0), nil
	case value.KindString:
		s, _ := v.Str()
		return value.NewBool(s != ""), nil
	}
	return value.Value{}, Errorf(TypeMismatch, "cannot convert %s to BOOL", v.Kind())
}

func registerConversionFunctions(r *Registry) {
	conv := func(name, desc string, fn func(value.Value) (value.Value, error), ret ValueType) {
		r.Register(sig(name, []ValueType{TypeAny}, ret, true, desc), func(args []value.Value) (value.Value, error) {
			if n, isNull := argNull(args); isNull {
				return n, nil
			}
			return fn(args[0])
		})
	}
	conv("to_string", "render as a string", func(v value.Value) (value.Value, error) {
		return value.NewString(v.String()), nil
	}, TypeString)
	conv("to_int", "convert to an integer", convertToInt, TypeInt)
	conv("to_float", "convert to a float", convertToFloat, TypeFloat)
	conv("to_bool", "convert to a boolean", convertToBool, TypeBool)
}
