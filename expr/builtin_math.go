package expr

import (
	"math"
	"math/rand"

	"graphdb.evalgo.org/value"
)

// sig builds a fixed-arity signature.
func sig(name string, args []ValueType, ret ValueType, pure bool, desc string) Signature {
	return Signature{
		Name: name, ArgTypes: args, ReturnType: ret,
		MinArity: len(args), MaxArity: len(args),
		Pure: pure, Description: desc,
	}
}

// sigRange builds a signature with a min/max arity window.
func sigRange(name string, args []ValueType, ret ValueType, minArity, maxArity int, pure bool, desc string) Signature {
	return Signature{
		Name: name, ArgTypes: args, ReturnType: ret,
		MinArity: minArity, MaxArity: maxArity,
		Pure: pure, Description: desc,
	}
}

// sigVariadic builds an unbounded-arity signature.
func sigVariadic(name string, args []ValueType, ret ValueType, minArity int, pure bool, desc string) Signature {
	return Signature{
		Name: name, ArgTypes: args, ReturnType: ret,
		MinArity: minArity, MaxArity: Variadic,
		Pure: pure, Description: desc,
	}
}

func argNull(args []value.Value) (value.Value, bool) {
	for _, a := range args {
		if a.IsNull() {
			return a, true
		}
	}
	return value.Value{}, false
}

func floatArg(args []value.Value, i int) (float64, error) {
	f, ok := args[i].AsFloat()
	if !ok {
		return 0, Errorf(TypeMismatch, "argument %d must be a number, got %s", i+1, args[i].Kind())
	}
	return f, nil
}

func intArg(args []value.Value, i int) (int64, error) {
	n, ok := args[i].Int()
	if !ok {
		return 0, Errorf(TypeMismatch, "argument %d must be an integer, got %s", i+1, args[i].Kind())
	}
	return n, nil
}

func stringArg(args []value.Value, i int) (string, error) {
	s, ok := args[i].Str()
	if !ok {
		return "", Errorf(TypeMismatch, "argument %d must be a string, got %s", i+1, args[i].Kind())
	}
	return s, nil
}

// float1 registers a single-float-argument function.
func float1(r *Registry, name string, pure bool, desc string, fn func(float64) float64) {
	r.Register(sig(name, []ValueType{TypeFloat}, TypeFloat, pure, desc), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		f, err := floatArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewFloat(fn(f)), nil
	})
}

func registerMathFunctions(r *Registry) {
	r.Register(sig("abs", []ValueType{TypeInt}, TypeInt, true, "absolute value"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		i, err := intArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		if i == math.MinInt64 {
			return value.NewNull(value.NullOverflow), nil
		}
		if i < 0 {
			i = -i
		}
		return value.NewInt(i), nil
	})
	float1(r, "abs", true, "absolute value", math.Abs)

	float1(r, "ceil", true, "round up", math.Ceil)
	float1(r, "floor", true, "round down", math.Floor)
	float1(r, "round", true, "round half away from zero", math.Round)
	float1(r, "exp", true, "e raised to the argument", math.Exp)
	float1(r, "exp2", true, "2 raised to the argument", math.Exp2)
	float1(r, "sin", true, "sine", math.Sin)
	float1(r, "cos", true, "cosine", math.Cos)
	float1(r, "tan", true, "tangent", math.Tan)
	float1(r, "asin", true, "arc sine", math.Asin)
	float1(r, "acos", true, "arc cosine", math.Acos)
	float1(r, "atan", true, "arc tangent", math.Atan)
	float1(r, "cbrt", true, "cube root", math.Cbrt)
	float1(r, "radians", true, "degrees to radians", func(f float64) float64 { return f * math.Pi / 180 })

	// sqrt and the logarithms map non-positive input to the NaN null
	nanGuard := func(name, desc string, domain func(float64) bool, fn func(float64) float64) {
		r.Register(sig(name, []ValueType{TypeFloat}, TypeFloat, true, desc), func(args []value.Value) (value.Value, error) {
			if n, isNull := argNull(args); isNull {
				return n, nil
			}
			f, err := floatArg(args, 0)
			if err != nil {
				return value.Value{}, err
			}
			if !domain(f) {
				return value.NewNull(value.NullNaN), nil
			}
			return value.NewFloat(fn(f)), nil
		})
	}
	positive := func(f float64) bool { return f > 0 }
	nanGuard("sqrt", "square root", positive, math.Sqrt)
	nanGuard("log", "natural logarithm", positive, math.Log)
	nanGuard("log10", "base-10 logarithm", positive, math.Log10)
	nanGuard("log2", "base-2 logarithm", positive, math.Log2)

	r.Register(sig("pow", []ValueType{TypeInt, TypeInt}, TypeInt, true, "integer power"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		return wrapValueErr(value.Pow(args[0], args[1]))
	})
	r.Register(sig("pow", []ValueType{TypeFloat, TypeFloat}, TypeFloat, true, "power"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		a, err := floatArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		b, err := floatArg(args, 1)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewFloat(math.Pow(a, b)), nil
	})

	r.Register(sig("hypot", []ValueType{TypeFloat, TypeFloat}, TypeFloat, true, "euclidean hypotenuse"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		a, err := floatArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		b, err := floatArg(args, 1)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewFloat(math.Hypot(a, b)), nil
	})

	r.Register(sig("sign", []ValueType{TypeFloat}, TypeInt, true, "sign of the argument"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		f, err := floatArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		switch {
		case f > 0:
			return value.NewInt(1), nil
		case f < 0:
			return value.NewInt(-1), nil
		default:
			return value.NewInt(0), nil
		}
	})

	bitOp := func(name, desc string, fn func(a, b int64) int64) {
		r.Register(sig(name, []ValueType{TypeInt, TypeInt}, TypeInt, true, desc), func(args []value.Value) (value.Value, error) {
			if n, isNull := argNull(args); isNull {
				return n, nil
			}
			a, err := intArg(args, 0)
			if err != nil {
				return value.Value{}, err
			}
			b, err := intArg(args, 1)
			if err != nil {
				return value.Value{}, err
			}
			return value.NewInt(fn(a, b)), nil
		})
	}
	bitOp("bit_and", "bitwise and", func(a, b int64) int64 { return a & b })
	bitOp("bit_or", "bitwise or", func(a, b int64) int64 { return a | b })
	bitOp("bit_xor", "bitwise xor", func(a, b int64) int64 { return a ^ b })

	r.Register(sig("rand", nil, TypeFloat, false, "uniform random float in [0, 1)"), func(_ []value.Value) (value.Value, error) {
		return value.NewFloat(rand.Float64()), nil
	})
	r.Register(sig("rand32", nil, TypeInt, false, "random 32-bit integer"), func(_ []value.Value) (value.Value, error) {
		return value.NewInt(int64(rand.Int31())), nil
	})
	r.Register(sig("rand64", nil, TypeInt, false, "random 63-bit integer"), func(_ []value.Value) (value.Value, error) {
		return value.NewInt(rand.Int63()), nil
	})

	r.Register(sig("e", nil, TypeFloat, true, "Euler's number"), func(_ []value.Value) (value.Value, error) {
		return value.NewFloat(math.E), nil
	})
	r.Register(sig("pi", nil, TypeFloat, true, "pi"), func(_ []value.Value) (value.Value, error) {
		return value.NewFloat(math.Pi), nil
	})
}
