package expr

import (
	"strconv"

	"graphdb.evalgo.org/value"
)

// Evaluate reduces an expression tree to a value under a context. It is a
// single recursive switch over the node variants.
func Evaluate(e Expr, ctx *Context) (value.Value, error) {
	switch n := e.(type) {
	case *Literal:
		return n.Value, nil

	case *Variable:
		if v, ok := ctx.GetVariable(n.Name); ok {
			return v, nil
		}
		return value.Value{}, Errorf(UndefinedVariable, "undefined variable: %s", n.Name)

	case *Parameter:
		if v, ok := ctx.Parameter(n.Name); ok {
			return v, nil
		}
		return value.Value{}, Errorf(UndefinedParameter, "undefined parameter: %s", n.Name)

	case *Label:
		return evalLabel(n, ctx)

	case *Property:
		return evalProperty(n, ctx)

	case *Binary:
		return evalBinary(n, ctx)

	case *Unary:
		return evalUnary(n, ctx)

	case *FunctionCall:
		return evalFunctionCall(n, ctx)

	case *Aggregate:
		return evalAggregate(n, ctx)

	case *ListExpr:
		items := make([]value.Value, len(n.Items))
		for i, item := range n.Items {
			v, err := Evaluate(item, ctx)
			if err != nil {
				return value.Value{}, err
			}
			items[i] = v
		}
		return value.NewList(items), nil

	case *MapExpr:
		m := make(map[string]value.Value, len(n.Items))
		for _, item := range n.Items {
			v, err := Evaluate(item.Value, ctx)
			if err != nil {
				return value.Value{}, err
			}
			m[item.Key] = v
		}
		return value.NewMap(m), nil

	case *Case:
		return evalCase(n, ctx)

	case *TypeCast:
		v, err := Evaluate(n.Expr, ctx)
		if err != nil {
			return value.Value{}, err
		}
		return castTo(v, n.Target)

	case *Subscript:
		return evalSubscript(n, ctx)

	case *RangeExpr:
		return evalRange(n, ctx)

	case *PathExpr:
		return evalPath(n, ctx)

	case *ListComprehension:
		return evalComprehension(n, ctx)
	}
	return value.Value{}, Errorf(RuntimeError, "unknown expression node %T", e)
}

func evalLabel(n *Label, ctx *Context) (value.Value, error) {
	v, ok := ctx.GetVertex()
	if !ok {
		return value.Value{}, Errorf(LabelNotFound, "label %s evaluated outside a vertex context", n.Name)
	}
	names := v.TagNames()
	items := make([]value.Value, len(names))
	for i, name := range names {
		items[i] = value.NewString(name)
	}
	return value.NewList(items), nil
}

func evalProperty(n *Property, ctx *Context) (value.Value, error) {
	obj, err := Evaluate(n.Object, ctx)
	if err != nil {
		return value.Value{}, err
	}
	if obj.IsNull() {
		return obj, nil
	}
	switch obj.Kind() {
	case value.KindVertex:
		vertex, _ := obj.Vertex()
		if pv, ok := vertex.Property(n.Name); ok {
			return pv, nil
		}
		return value.Value{}, Errorf(PropertyNotFound, "property %s not found on vertex %s", n.Name, vertex.VID)
	case value.KindEdge:
		edge, _ := obj.Edge()
		if pv, ok := edge.Property(n.Name); ok {
			return pv, nil
		}
		return value.Value{}, Errorf(PropertyNotFound, "property %s not found on edge %s", n.Name, edge.Type)
	case value.KindMap:
		m, _ := obj.Map()
		if pv, ok := m[n.Name]; ok {
			return pv, nil
		}
		return value.Value{}, Errorf(PropertyNotFound, "key %s not found in map", n.Name)
	case value.KindList:
		idx, err := strconv.ParseInt(n.Name, 10, 64)
		if err != nil {
			return value.Value{}, Errorf(TypeMismatch, "list attribute %q is not an index", n.Name)
		}
		list, _ := obj.List()
		return listIndex(list, idx)
	}
	return value.Value{}, Errorf(TypeMismatch, "cannot read property %s of %s", n.Name, obj.Kind())
}

func evalBinary(n *Binary, ctx *Context) (value.Value, error) {
	left, err := Evaluate(n.Left, ctx)
	if err != nil {
		return value.Value{}, err
	}
	right, err := Evaluate(n.Right, ctx)
	if err != nil {
		return value.Value{}, err
	}
	return applyBinary(n.Op, left, right, ctx)
}

func applyBinary(op BinaryOp, left, right value.Value, ctx *Context) (value.Value, error) {
	switch op {
	case OpAdd:
		return wrapValueErr(value.Add(left, right))
	case OpSub:
		return wrapValueErr(value.Sub(left, right))
	case OpMul:
		return wrapValueErr(value.Mul(left, right))
	case OpDiv:
		return wrapValueErr(value.Div(left, right))
	case OpMod:
		return wrapValueErr(value.Rem(left, right))
	case OpPow:
		return wrapValueErr(value.Pow(left, right))
	case OpEq:
		return wrapValueErr(value.CompareOp("==", left, right))
	case OpNeq:
		return wrapValueErr(value.CompareOp("!=", left, right))
	case OpLt:
		return wrapValueErr(value.CompareOp("<", left, right))
	case OpLe:
		return wrapValueErr(value.CompareOp("<=", left, right))
	case OpGt:
		return wrapValueErr(value.CompareOp(">", left, right))
	case OpGe:
		return wrapValueErr(value.CompareOp(">=", left, right))
	case OpAnd:
		return wrapValueErr(value.And(left, right))
	case OpOr:
		return wrapValueErr(value.Or(left, right))
	case OpXor:
		return wrapValueErr(value.Xor(left, right))
	case OpStringConcat:
		return stringConcat(left, right)
	case OpLike:
		return evalLike(left, right, ctx)
	case OpIn:
		return membership(left, right, false)
	case OpNotIn:
		return membership(left, right, true)
	case OpContains:
		return stringPredicate("contains", left, right)
	case OpStartsWith:
		return stringPredicate("starts_with", left, right)
	case OpEndsWith:
		return stringPredicate("ends_with", left, right)
	case OpSubscript:
		return subscriptValue(left, right)
	case OpAttribute:
		return attributeValue(left, right)
	case OpUnion:
		return collectionUnion(left, right)
	case OpIntersect:
		return collectionIntersect(left, right)
	case OpExcept:
		return collectionExcept(left, right)
	}
	return value.Value{}, Errorf(RuntimeError, "unknown binary operator %d", int(op))
}

// wrapValueErr converts value-level type errors into expression errors.
func wrapValueErr(v value.Value, err error) (value.Value, error) {
	if err != nil {
		return value.Value{}, NewError(TypeMismatch, err.Error())
	}
	return v, nil
}

func stringConcat(left, right value.Value) (value.Value, error) {
	if left.IsNull() {
		return left, nil
	}
	if right.IsNull() {
		return right, nil
	}
	ls, lok := left.Str()
	rs, rok := right.Str()
	if !lok || !rok {
		return value.Value{}, Errorf(TypeMismatch, "cannot concatenate %s and %s", left.Kind(), right.Kind())
	}
	return value.NewString(ls + rs), nil
}

// evalLike compiles a glob-style pattern: % matches any run, _ any single
// character, backslash escapes. The compiled program is cached on the
// context.
func evalLike(left, right value.Value, ctx *Context) (value.Value, error) {
	if left.IsNull() {
		return left, nil
	}
	if right.IsNull() {
		return right, nil
	}
	text, lok := left.Str()
	pattern, rok := right.Str()
	if !lok || !rok {
		return value.Value{}, Errorf(TypeMismatch, "LIKE requires strings, got %s and %s", left.Kind(), right.Kind())
	}
	re, err := ctx.GetRegex(globToRegex(pattern))
	if err != nil {
		return value.Value{}, err
	}
	return value.NewBool(re.MatchString(text)), nil
}

func globToRegex(pattern string) string {
	var b []byte
	b = append(b, '^')
	escaped := false
	for _, r := range pattern {
		if escaped {
			b = append(b, []byte(regexpQuoteRune(r))...)
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case '%':
			b = append(b, '.', '*')
		case '_':
			b = append(b, '.')
		default:
			b = append(b, []byte(regexpQuoteRune(r))...)
		}
	}
	b = append(b, '$')
	return string(b)
}

func regexpQuoteRune(r rune) string {
	switch r {
	case '.', '+', '*', '?', '(', ')', '[', ']', '{', '}', '^', '$', '|', '\\':
		return "\\" + string(r)
	}
	return string(r)
}

func membership(left, right value.Value, negate bool) (value.Value, error) {
	if left.IsNull() {
		return left, nil
	}
	if right.IsNull() {
		return right, nil
	}
	var found bool
	switch right.Kind() {
	case value.KindList:
		list, _ := right.List()
		for _, item := range list {
			if item.Equal(left) {
				found = true
				break
			}
		}
	case value.KindSet:
		set, _ := right.Set()
		found = set.Contains(left)
	default:
		return value.Value{}, Errorf(TypeMismatch, "IN requires a list or set, got %s", right.Kind())
	}
	return value.NewBool(found != negate), nil
}

func stringPredicate(op string, left, right value.Value) (value.Value, error) {
	if left.IsNull() {
		return left, nil
	}
	if right.IsNull() {
		return right, nil
	}
	ls, lok := left.Str()
	rs, rok := right.Str()
	if !lok || !rok {
		return value.Value{}, Errorf(TypeMismatch, "%s requires strings, got %s and %s", op, left.Kind(), right.Kind())
	}
	switch op {
	case "contains":
		return value.NewBool(containsString(ls, rs)), nil
	case "starts_with":
		return value.NewBool(len(ls) >= len(rs) && ls[:len(rs)] == rs), nil
	default:
		return value.NewBool(len(ls) >= len(rs) && ls[len(ls)-len(rs):] == rs), nil
	}
}

func containsString(haystack, needle string) bool {
	if len(needle) == 0 {
		return true
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

func evalUnary(n *Unary, ctx *Context) (value.Value, error) {
	operand, err := Evaluate(n.Operand, ctx)
	if err != nil {
		return value.Value{}, err
	}
	switch n.Op {
	case OpIsNull:
		// the one operator that must not short-circuit on null
		return value.NewBool(operand.IsNull()), nil
	case OpIsNotNull:
		return value.NewBool(!operand.IsNull()), nil
	case OpIsEmpty:
		return value.NewBool(operand.IsEmpty()), nil
	case OpIsNotEmpty:
		return value.NewBool(!operand.IsEmpty()), nil
	}
	if operand.IsNull() {
		return operand, nil
	}
	switch n.Op {
	case OpPlus:
		if _, ok := operand.AsFloat(); !ok {
			return value.Value{}, Errorf(TypeMismatch, "unary + requires a number, got %s", operand.Kind())
		}
		return operand, nil
	case OpMinus:
		return wrapValueErr(value.Neg(operand))
	case OpNot:
		return wrapValueErr(value.Not(operand))
	}
	return value.Value{}, Errorf(RuntimeError, "unknown unary operator %d", int(n.Op))
}

// contextual functions receive the evaluation context so their compiled
// patterns go through the shared regex cache.
type contextualFunction struct {
	arity int
	fn    func(ctx *Context, args []value.Value) (value.Value, error)
}

var contextualFunctions = map[string]contextualFunction{
	"regex_match":   {arity: 2, fn: regexMatchCtx},
	"regex_replace": {arity: 3, fn: regexReplaceCtx},
	"regex_find":    {arity: 2, fn: regexFindCtx},
}

func evalFunctionCall(n *FunctionCall, ctx *Context) (value.Value, error) {
	if ctx.Cancelled() {
		return value.Value{}, NewError(RuntimeError, "query cancelled")
	}
	args := make([]value.Value, len(n.Args))
	for i, arg := range n.Args {
		v, err := Evaluate(arg, ctx)
		if err != nil {
			return value.Value{}, err
		}
		args[i] = v
	}
	if cf, ok := contextualFunctions[n.Name]; ok {
		if len(args) != cf.arity {
			return value.Value{}, Errorf(ArgumentCountError, "function %s does not accept %d arguments", n.Name, len(args))
		}
		return cf.fn(ctx, args)
	}
	return ctx.Registry().Execute(n.Name, args)
}

func evalAggregate(n *Aggregate, ctx *Context) (value.Value, error) {
	arg, err := Evaluate(n.Arg, ctx)
	if err != nil {
		return value.Value{}, err
	}
	if arg.IsNull() {
		return arg, nil
	}
	items, ok := arg.List()
	if !ok {
		return value.Value{}, Errorf(TypeMismatch, "aggregate input must be a list, got %s", arg.Kind())
	}
	if n.Distinct {
		items = distinctValues(items)
	}
	return applyAggregate(n.Func, items)
}

func distinctValues(items []value.Value) []value.Value {
	set := value.NewSetOf(items...)
	return set.Values()
}

func evalCase(n *Case, ctx *Context) (value.Value, error) {
	var test value.Value
	hasTest := n.Test != nil
	if hasTest {
		v, err := Evaluate(n.Test, ctx)
		if err != nil {
			return value.Value{}, err
		}
		test = v
	}
	for _, arm := range n.Arms {
		when, err := Evaluate(arm.When, ctx)
		if err != nil {
			return value.Value{}, err
		}
		var matched bool
		if hasTest {
			eq, err := value.CompareOp("==", test, when)
			if err != nil {
				return value.Value{}, NewError(TypeMismatch, err.Error())
			}
			matched = eq.IsTruthy()
		} else {
			matched = when.IsTruthy()
		}
		if matched {
			return Evaluate(arm.Then, ctx)
		}
	}
	if n.Default != nil {
		return Evaluate(n.Default, ctx)
	}
	return value.Null, nil
}

func evalSubscript(n *Subscript, ctx *Context) (value.Value, error) {
	collection, err := Evaluate(n.Collection, ctx)
	if err != nil {
		return value.Value{}, err
	}
	index, err := Evaluate(n.Index, ctx)
	if err != nil {
		return value.Value{}, err
	}
	return subscriptValue(collection, index)
}

func evalRange(n *RangeExpr, ctx *Context) (value.Value, error) {
	collection, err := Evaluate(n.Collection, ctx)
	if err != nil {
		return value.Value{}, err
	}
	var start, end *int64
	if n.Start != nil {
		v, err := Evaluate(n.Start, ctx)
		if err != nil {
			return value.Value{}, err
		}
		if v.IsNull() {
			return v, nil
		}
		i, ok := v.Int()
		if !ok {
			return value.Value{}, Errorf(TypeMismatch, "range bound must be an integer, got %s", v.Kind())
		}
		start = &i
	}
	if n.End != nil {
		v, err := Evaluate(n.End, ctx)
		if err != nil {
			return value.Value{}, err
		}
		if v.IsNull() {
			return v, nil
		}
		i, ok := v.Int()
		if !ok {
			return value.Value{}, Errorf(TypeMismatch, "range bound must be an integer, got %s", v.Kind())
		}
		end = &i
	}
	return sliceValue(collection, start, end)
}

func evalPath(n *PathExpr, ctx *Context) (value.Value, error) {
	if len(n.Items) == 0 {
		return value.Value{}, Errorf(InvalidOperation, "path expression needs at least a head vertex")
	}
	head, err := Evaluate(n.Items[0], ctx)
	if err != nil {
		return value.Value{}, err
	}
	src, ok := head.Vertex()
	if !ok {
		return value.Value{}, Errorf(TypeMismatch, "path head must be a vertex, got %s", head.Kind())
	}
	path := &value.Path{Src: *src}
	for i := 1; i < len(n.Items); i += 2 {
		edgeVal, err := Evaluate(n.Items[i], ctx)
		if err != nil {
			return value.Value{}, err
		}
		edge, ok := edgeVal.Edge()
		if !ok {
			return value.Value{}, Errorf(TypeMismatch, "path position %d must be an edge, got %s", i, edgeVal.Kind())
		}
		if i+1 >= len(n.Items) {
			return value.Value{}, Errorf(InvalidOperation, "path edge at position %d has no destination vertex", i)
		}
		dstVal, err := Evaluate(n.Items[i+1], ctx)
		if err != nil {
			return value.Value{}, err
		}
		dst, ok := dstVal.Vertex()
		if !ok {
			return value.Value{}, Errorf(TypeMismatch, "path position %d must be a vertex, got %s", i+1, dstVal.Kind())
		}
		path.Steps = append(path.Steps, value.Step{Edge: *edge, Dst: *dst})
	}
	return value.NewPath(path), nil
}

func evalComprehension(n *ListComprehension, ctx *Context) (value.Value, error) {
	source, err := Evaluate(n.Source, ctx)
	if err != nil {
		return value.Value{}, err
	}
	if source.IsNull() {
		return source, nil
	}
	items, ok := source.List()
	if !ok {
		return value.Value{}, Errorf(TypeMismatch, "comprehension source must be a list, got %s", source.Kind())
	}
	child := ctx.ChildContext()
	out := make([]value.Value, 0, len(items))
	for _, item := range items {
		child.SetInnerVar(n.Variable, item)
		if n.Filter != nil {
			keep, err := Evaluate(n.Filter, child)
			if err != nil {
				return value.Value{}, err
			}
			if !keep.IsTruthy() {
				continue
			}
		}
		if n.Map != nil {
			mapped, err := Evaluate(n.Map, child)
			if err != nil {
				return value.Value{}, err
			}
			out = append(out, mapped)
		} else {
			out = append(out, item)
		}
	}
	return value.NewList(out), nil
}
