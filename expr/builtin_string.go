package expr

import (
	"strings"

	"graphdb.evalgo.org/value"
)

func registerStringFunctions(r *Registry) {
	r.Register(sig("length", []ValueType{TypeString}, TypeInt, true, "number of unicode characters"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		s, err := stringArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewInt(int64(len([]rune(s)))), nil
	})

	str1 := func(name, desc string, fn func(string) string) {
		r.Register(sig(name, []ValueType{TypeString}, TypeString, true, desc), func(args []value.Value) (value.Value, error) {
			if n, isNull := argNull(args); isNull {
				return n, nil
			}
			s, err := stringArg(args, 0)
			if err != nil {
				return value.Value{}, err
			}
			return value.NewString(fn(s)), nil
		})
	}
	str1("upper", "upper-case", strings.ToUpper)
	str1("lower", "lower-case", strings.ToLower)
	str1("trim", "strip surrounding whitespace", strings.TrimSpace)
	str1("ltrim", "strip leading whitespace", func(s string) string { return strings.TrimLeft(s, " \t\n\r") })
	str1("rtrim", "strip trailing whitespace", func(s string) string { return strings.TrimRight(s, " \t\n\r") })
	str1("reverse", "reverse characters", reverseString)

	r.Register(sigVariadic("concat", []ValueType{TypeString}, TypeString, 1, true, "concatenate all arguments"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		var b strings.Builder
		for i := range args {
			s, err := stringArg(args, i)
			if err != nil {
				return value.Value{}, err
			}
			b.WriteString(s)
		}
		return value.NewString(b.String()), nil
	})

	r.Register(sig("replace", []ValueType{TypeString, TypeString, TypeString}, TypeString, true, "replace every occurrence"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		s, err := stringArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		old, err := stringArg(args, 1)
		if err != nil {
			return value.Value{}, err
		}
		repl, err := stringArg(args, 2)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewString(strings.ReplaceAll(s, old, repl)), nil
	})

	// substring(s, start[, length]); indices are zero-based and negative
	// values are rejected. Range slicing carries the negative semantics.
	substringBody := func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		s, err := stringArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		start, err := intArg(args, 1)
		if err != nil {
			return value.Value{}, err
		}
		runes := []rune(s)
		n := int64(len(runes))
		if start < 0 || start > n {
			return value.Value{}, Errorf(IndexOutOfBounds, "substring start %d out of bounds for length %d", start, n)
		}
		end := n
		if len(args) == 3 {
			length, err := intArg(args, 2)
			if err != nil {
				return value.Value{}, err
			}
			if length < 0 {
				return value.Value{}, Errorf(IndexOutOfBounds, "substring length %d is negative", length)
			}
			end = start + length
			if end > n {
				end = n
			}
		}
		return value.NewString(string(runes[start:end])), nil
	}
	for _, name := range []string{"substring", "substr"} {
		r.Register(sigRange(name, []ValueType{TypeString, TypeInt, TypeInt}, TypeString, 2, 3, true, "substring by start and length"), substringBody)
	}

	strPred := func(name, desc string, fn func(s, sub string) bool) {
		r.Register(sig(name, []ValueType{TypeString, TypeString}, TypeBool, true, desc), func(args []value.Value) (value.Value, error) {
			if n, isNull := argNull(args); isNull {
				return n, nil
			}
			s, err := stringArg(args, 0)
			if err != nil {
				return value.Value{}, err
			}
			sub, err := stringArg(args, 1)
			if err != nil {
				return value.Value{}, err
			}
			return value.NewBool(fn(s, sub)), nil
		})
	}
	strPred("contains", "substring containment", strings.Contains)
	strPred("starts_with", "prefix test", strings.HasPrefix)
	strPred("ends_with", "suffix test", strings.HasSuffix)

	sideTake := func(name, desc string, fn func(runes []rune, n int64) string) {
		r.Register(sig(name, []ValueType{TypeString, TypeInt}, TypeString, true, desc), func(args []value.Value) (value.Value, error) {
			if nv, isNull := argNull(args); isNull {
				return nv, nil
			}
			s, err := stringArg(args, 0)
			if err != nil {
				return value.Value{}, err
			}
			count, err := intArg(args, 1)
			if err != nil {
				return value.Value{}, err
			}
			if count < 0 {
				return value.Value{}, Errorf(IndexOutOfBounds, "%s count %d is negative", name, count)
			}
			runes := []rune(s)
			if count > int64(len(runes)) {
				count = int64(len(runes))
			}
			return value.NewString(fn(runes, count)), nil
		})
	}
	sideTake("left", "first n characters", func(runes []rune, n int64) string { return string(runes[:n]) })
	sideTake("right", "last n characters", func(runes []rune, n int64) string { return string(runes[int64(len(runes))-n:]) })

	r.Register(sig("split", []ValueType{TypeString, TypeString}, TypeList, true, "split on a separator"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		s, err := stringArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		sep, err := stringArg(args, 1)
		if err != nil {
			return value.Value{}, err
		}
		parts := strings.Split(s, sep)
		items := make([]value.Value, len(parts))
		for i, part := range parts {
			items[i] = value.NewString(part)
		}
		return value.NewList(items), nil
	})
}

func reverseString(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
