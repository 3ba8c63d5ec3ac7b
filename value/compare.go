package value

// Compare orders two non-null values of the same family. It returns -1, 0
// or 1, or a TypeError for cross-kind comparison outside the numeric
// family. Null operands are the caller's concern: comparison operators
// propagate them before ordering.
func Compare(a, b Value) (int, error) {
	if isNumericKind(a.kind) && isNumericKind(b.kind) {
		if a.kind == KindInt && b.kind == KindInt {
			return cmpInt64(a.i, b.i), nil
		}
		af, _ := a.AsFloat()
		bf, _ := b.AsFloat()
		return cmpFloat(af, bf), nil
	}
	if a.kind != b.kind {
		return 0, typeErr("compare", a.kind, b.kind)
	}
	switch a.kind {
	case KindBool:
		return cmpInt64(a.i, b.i), nil
	case KindString:
		switch {
		case a.s < b.s:
			return -1, nil
		case a.s > b.s:
			return 1, nil
		default:
			return 0, nil
		}
	case KindDate:
		return a.ref.(Date).Compare(b.ref.(Date)), nil
	case KindTime:
		return a.ref.(Time).Compare(b.ref.(Time)), nil
	case KindDateTime:
		return a.ref.(DateTime).Compare(b.ref.(DateTime)), nil
	case KindDuration:
		return a.ref.(Duration).Compare(b.ref.(Duration)), nil
	case KindList:
		al := a.ref.([]Value)
		bl := b.ref.([]Value)
		for i := 0; i < len(al) && i < len(bl); i++ {
			c, err := Compare(al[i], bl[i])
			if err != nil {
				return 0, err
			}
			if c != 0 {
				return c, nil
			}
		}
		return cmpInt(len(al), len(bl)), nil
	}
	return 0, typeErr("compare", a.kind, b.kind)
}

// Less is a convenience over Compare for sorting contexts; incomparable
// pairs order by kind so sorts stay total.
func Less(a, b Value) bool {
	if a.kind != b.kind && !(isNumericKind(a.kind) && isNumericKind(b.kind)) {
		return a.kind < b.kind
	}
	c, err := Compare(a, b)
	if err != nil {
		return false
	}
	return c < 0
}

// CompareOp evaluates a comparison predicate with null propagation: any
// null operand yields a null result rather than a boolean.
func CompareOp(op string, a, b Value) (Value, error) {
	if n, ok := propagateNull(a, b); ok {
		return n, nil
	}
	switch op {
	case "==":
		return NewBool(a.Equal(b)), nil
	case "!=":
		return NewBool(!a.Equal(b)), nil
	}
	c, err := Compare(a, b)
	if err != nil {
		return Value{}, err
	}
	switch op {
	case "<":
		return NewBool(c < 0), nil
	case "<=":
		return NewBool(c <= 0), nil
	case ">":
		return NewBool(c > 0), nil
	case ">=":
		return NewBool(c >= 0), nil
	}
	return Value{}, typeErr(op, a.kind, b.kind)
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		// covers -0.0 against +0.0 as well
		return 0
	}
}
