package expr

import (
	"encoding/json"
	"strconv"
	"strings"

	"graphdb.evalgo.org/value"
)

func registerUtilityFunctions(r *Registry) {
	r.Register(sigVariadic("coalesce", []ValueType{TypeAny}, TypeAny, 1, true, "first non-null argument"), func(args []value.Value) (value.Value, error) {
		for _, arg := range args {
			if !arg.IsNull() && !arg.IsEmpty() {
				return arg, nil
			}
		}
		return value.Null, nil
	})

	r.Register(sig("hash", []ValueType{TypeAny}, TypeInt, true, "stable 64-bit hash"), func(args []value.Value) (value.Value, error) {
		if args[0].IsNull() {
			return args[0], nil
		}
		return value.NewInt(int64(args[0].Hash())), nil
	})

	r.Register(sig("json_extract", []ValueType{TypeString, TypeString}, TypeAny, true, "extract a dotted path from a JSON document"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		doc, err := stringArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		path, err := stringArg(args, 1)
		if err != nil {
			return value.Value{}, err
		}
		var root interface{}
		if err := json.Unmarshal([]byte(doc), &root); err != nil {
			return value.Value{}, Errorf(InvalidOperation, "invalid JSON document: %v", err)
		}
		node := root
		if path != "" {
			for _, part := range strings.Split(path, ".") {
				switch typed := node.(type) {
				case map[string]interface{}:
					next, ok := typed[part]
					if !ok {
						return value.Null, nil
					}
					node = next
				case []interface{}:
					idx, err := strconv.Atoi(part)
					if err != nil || idx < 0 || idx >= len(typed) {
						return value.Null, nil
					}
					node = typed[idx]
				default:
					return value.Null, nil
				}
			}
		}
		return jsonToValue(node), nil
	})
}

func jsonToValue(node interface{}) value.Value {
	switch typed := node.(type) {
	case nil:
		return value.Null
	case bool:
		return value.NewBool(typed)
	case float64:
		if typed == float64(int64(typed)) {
			return value.NewInt(int64(typed))
		}
		return value.NewFloat(typed)
	case string:
		return value.NewString(typed)
	case []interface{}:
		items := make([]value.Value, len(typed))
		for i, item := range typed {
			items[i] = jsonToValue(item)
		}
		return value.NewList(items)
	case map[string]interface{}:
		m := make(map[string]value.Value, len(typed))
		for k, item := range typed {
			m[k] = jsonToValue(item)
		}
		return value.NewMap(m)
	}
	return value.Null
}
