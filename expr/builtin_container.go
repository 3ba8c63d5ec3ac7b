package expr

import (
	"sort"

	"graphdb.evalgo.org/value"
)

func registerContainerFunctions(r *Registry) {
	r.Register(sig("head", []ValueType{TypeList}, TypeAny, true, "first element"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		list, ok := args[0].List()
		if !ok {
			return value.Value{}, Errorf(TypeMismatch, "head requires a list, got %s", args[0].Kind())
		}
		if len(list) == 0 {
			return value.Null, nil
		}
		return list[0], nil
	})

	r.Register(sig("last", []ValueType{TypeList}, TypeAny, true, "last element"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		list, ok := args[0].List()
		if !ok {
			return value.Value{}, Errorf(TypeMismatch, "last requires a list, got %s", args[0].Kind())
		}
		if len(list) == 0 {
			return value.Null, nil
		}
		return list[len(list)-1], nil
	})

	r.Register(sig("tail", []ValueType{TypeList}, TypeList, true, "all elements but the first"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		list, ok := args[0].List()
		if !ok {
			return value.Value{}, Errorf(TypeMismatch, "tail requires a list, got %s", args[0].Kind())
		}
		if len(list) == 0 {
			return value.NewList(nil), nil
		}
		out := make([]value.Value, len(list)-1)
		copy(out, list[1:])
		return value.NewList(out), nil
	})

	r.Register(sig("size", []ValueType{TypeAny}, TypeInt, true, "number of elements or characters"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		switch args[0].Kind() {
		case value.KindList:
			list, _ := args[0].List()
			return value.NewInt(int64(len(list))), nil
		case value.KindMap:
			m, _ := args[0].Map()
			return value.NewInt(int64(len(m))), nil
		case value.KindSet:
			s, _ := args[0].Set()
			return value.NewInt(int64(s.Len())), nil
		case value.KindString:
			s, _ := args[0].Str()
			return value.NewInt(int64(len([]rune(s)))), nil
		}
		return value.Value{}, Errorf(TypeMismatch, "size requires a container or string, got %s", args[0].Kind())
	})

	// range(start, end[, step]) builds an inclusive integer sequence
	r.Register(sigRange("range", []ValueType{TypeInt, TypeInt, TypeInt}, TypeList, 2, 3, true, "inclusive integer sequence"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		start, err := intArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		end, err := intArg(args, 1)
		if err != nil {
			return value.Value{}, err
		}
		step := int64(1)
		if len(args) == 3 {
			if step, err = intArg(args, 2); err != nil {
				return value.Value{}, err
			}
		}
		if step == 0 {
			return value.Value{}, Errorf(InvalidOperation, "range step must not be zero")
		}
		var out []value.Value
		if step > 0 {
			for i := start; i <= end; i += step {
				out = append(out, value.NewInt(i))
			}
		} else {
			for i := start; i >= end; i += step {
				out = append(out, value.NewInt(i))
			}
		}
		return value.NewList(out), nil
	})

	r.Register(sig("keys", []ValueType{TypeMap}, TypeList, true, "sorted map keys"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		m, ok := args[0].Map()
		if !ok {
			return value.Value{}, Errorf(TypeMismatch, "keys requires a map, got %s", args[0].Kind())
		}
		names := make([]string, 0, len(m))
		for k := range m {
			names = append(names, k)
		}
		sort.Strings(names)
		items := make([]value.Value, len(names))
		for i, k := range names {
			items[i] = value.NewString(k)
		}
		return value.NewList(items), nil
	})

	r.Register(sig("reverse", []ValueType{TypeList}, TypeList, true, "reverse element order"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		list, ok := args[0].List()
		if !ok {
			return value.Value{}, Errorf(TypeMismatch, "reverse requires a list, got %s", args[0].Kind())
		}
		out := make([]value.Value, len(list))
		for i, item := range list {
			out[len(list)-1-i] = item
		}
		return value.NewList(out), nil
	})

	r.Register(sig("toset", []ValueType{TypeList}, TypeSet, true, "deduplicate a list into a set"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		list, ok := args[0].List()
		if !ok {
			return value.Value{}, Errorf(TypeMismatch, "toset requires a list, got %s", args[0].Kind())
		}
		return value.NewSet(value.NewSetOf(list...)), nil
	})
}
