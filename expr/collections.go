package expr

import (
	"graphdb.evalgo.org/value"
)

// subscriptValue implements collection[index]: integer indexing on lists
// and strings (negative means from the end), key lookup on maps. A null
// collection or index yields null.
func subscriptValue(collection, index value.Value) (value.Value, error) {
	if collection.IsNull() || index.IsNull() {
		return value.Null, nil
	}
	switch collection.Kind() {
	case value.KindList:
		idx, ok := index.Int()
		if !ok {
			return value.Value{}, Errorf(TypeMismatch, "list index must be an integer, got %s", index.Kind())
		}
		list, _ := collection.List()
		return listIndex(list, idx)
	case value.KindString:
		idx, ok := index.Int()
		if !ok {
			return value.Value{}, Errorf(TypeMismatch, "string index must be an integer, got %s", index.Kind())
		}
		s, _ := collection.Str()
		runes := []rune(s)
		n := int64(len(runes))
		if idx < 0 {
			idx += n
		}
		if idx < 0 || idx >= n {
			return value.Value{}, Errorf(IndexOutOfBounds, "string index %d out of bounds for length %d", idx, n)
		}
		return value.NewString(string(runes[idx])), nil
	case value.KindMap:
		key, ok := index.Str()
		if !ok {
			return value.Value{}, Errorf(TypeMismatch, "map key must be a string, got %s", index.Kind())
		}
		m, _ := collection.Map()
		if v, found := m[key]; found {
			return v, nil
		}
		return value.Value{}, Errorf(RuntimeError, "map key not found: %s", key)
	}
	return value.Value{}, Errorf(TypeMismatch, "cannot subscript %s", collection.Kind())
}

func listIndex(list []value.Value, idx int64) (value.Value, error) {
	n := int64(len(list))
	if idx < 0 {
		idx += n
	}
	if idx < 0 || idx >= n {
		return value.Value{}, Errorf(IndexOutOfBounds, "list index %d out of bounds for length %d", idx, n)
	}
	return list[idx], nil
}

// attributeValue implements the attribute operator: the right operand
// names a property of the left operand.
func attributeValue(left, right value.Value) (value.Value, error) {
	if left.IsNull() || right.IsNull() {
		return value.Null, nil
	}
	name, ok := right.Str()
	if !ok {
		return value.Value{}, Errorf(TypeMismatch, "attribute name must be a string, got %s", right.Kind())
	}
	switch left.Kind() {
	case value.KindVertex:
		v, _ := left.Vertex()
		if pv, found := v.Property(name); found {
			return pv, nil
		}
		return value.Value{}, Errorf(PropertyNotFound, "property %s not found on vertex %s", name, v.VID)
	case value.KindEdge:
		e, _ := left.Edge()
		if pv, found := e.Property(name); found {
			return pv, nil
		}
		return value.Value{}, Errorf(PropertyNotFound, "property %s not found on edge %s", name, e.Type)
	case value.KindMap:
		m, _ := left.Map()
		if pv, found := m[name]; found {
			return pv, nil
		}
		return value.Value{}, Errorf(PropertyNotFound, "key %s not found in map", name)
	}
	return value.Value{}, Errorf(TypeMismatch, "cannot read attribute %s of %s", name, left.Kind())
}

// sliceValue implements Python-style slicing over lists and strings.
// Negative bounds count from the end; bounds beyond either end fail with
// IndexOutOfBounds.
func sliceValue(collection value.Value, start, end *int64) (value.Value, error) {
	if collection.IsNull() {
		return collection, nil
	}
	switch collection.Kind() {
	case value.KindList:
		list, _ := collection.List()
		lo, hi, err := sliceBounds(int64(len(list)), start, end)
		if err != nil {
			return value.Value{}, err
		}
		out := make([]value.Value, hi-lo)
		copy(out, list[lo:hi])
		return value.NewList(out), nil
	case value.KindString:
		s, _ := collection.Str()
		runes := []rune(s)
		lo, hi, err := sliceBounds(int64(len(runes)), start, end)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewString(string(runes[lo:hi])), nil
	}
	return value.Value{}, Errorf(TypeMismatch, "cannot slice %s", collection.Kind())
}

func sliceBounds(n int64, start, end *int64) (int64, int64, error) {
	lo := int64(0)
	hi := n
	if start != nil {
		lo = *start
		if lo < 0 {
			lo += n
		}
	}
	if end != nil {
		hi = *end
		if hi < 0 {
			hi += n
		}
	}
	if lo < 0 || lo > n || hi < 0 || hi > n {
		return 0, 0, Errorf(IndexOutOfBounds, "slice bounds out of range for length %d", n)
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi, nil
}

// collectionUnion merges two lists or sets, removing duplicates. Set
// operands produce a set result.
func collectionUnion(left, right value.Value) (value.Value, error) {
	lItems, lSet, err := collectionItems("UNION", left)
	if err != nil {
		return value.Value{}, err
	}
	rItems, rSet, err := collectionItems("UNION", right)
	if err != nil {
		return value.Value{}, err
	}
	merged := value.NewSetOf(append(lItems, rItems...)...)
	if lSet || rSet {
		return value.NewSet(merged), nil
	}
	return value.NewList(merged.Values()), nil
}

// collectionIntersect keeps the left elements also present on the right.
func collectionIntersect(left, right value.Value) (value.Value, error) {
	lItems, lSet, err := collectionItems("INTERSECT", left)
	if err != nil {
		return value.Value{}, err
	}
	rItems, rSet, err := collectionItems("INTERSECT", right)
	if err != nil {
		return value.Value{}, err
	}
	rightSet := value.NewSetOf(rItems...)
	kept := value.NewSetOf()
	for _, item := range lItems {
		if rightSet.Contains(item) {
			kept.Add(item)
		}
	}
	if lSet || rSet {
		return value.NewSet(kept), nil
	}
	return value.NewList(kept.Values()), nil
}

// collectionExcept keeps the left elements absent from the right.
func collectionExcept(left, right value.Value) (value.Value, error) {
	lItems, lSet, err := collectionItems("EXCEPT", left)
	if err != nil {
		return value.Value{}, err
	}
	rItems, rSet, err := collectionItems("EXCEPT", right)
	if err != nil {
		return value.Value{}, err
	}
	rightSet := value.NewSetOf(rItems...)
	kept := value.NewSetOf()
	for _, item := range lItems {
		if !rightSet.Contains(item) {
			kept.Add(item)
		}
	}
	if lSet || rSet {
		return value.NewSet(kept), nil
	}
	return value.NewList(kept.Values()), nil
}

func collectionItems(op string, v value.Value) ([]value.Value, bool, error) {
	switch v.Kind() {
	case value.KindList:
		items, _ := v.List()
		return items, false, nil
	case value.KindSet:
		set, _ := v.Set()
		return set.Values(), true, nil
	}
	return nil, false, Errorf(TypeMismatch, "%s requires lists or sets, got %s", op, v.Kind())
}
