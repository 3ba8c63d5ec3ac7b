package expr

import (
	"regexp"

	"graphdb.evalgo.org/value"
)

// The registry bodies compile their pattern directly so the functions
// resolve like any other overload; evaluation through a context routes to
// the *Ctx variants below, which reuse the context's compiled-regex cache.

func registerRegexFunctions(r *Registry) {
	r.Register(sig("regex_match", []ValueType{TypeString, TypeString}, TypeBool, true, "full regex match"), func(args []value.Value) (value.Value, error) {
		return regexMatch(args, regexp.Compile)
	})
	r.Register(sig("regex_replace", []ValueType{TypeString, TypeString, TypeString}, TypeString, true, "replace regex matches"), func(args []value.Value) (value.Value, error) {
		return regexReplace(args, regexp.Compile)
	})
	r.Register(sig("regex_find", []ValueType{TypeString, TypeString}, TypeList, true, "all regex matches"), func(args []value.Value) (value.Value, error) {
		return regexFind(args, regexp.Compile)
	})
}

type regexCompiler func(pattern string) (*regexp.Regexp, error)

func compileThrough(compile regexCompiler, pattern string) (*regexp.Regexp, error) {
	re, err := compile(pattern)
	if err != nil {
		if _, ok := err.(*Error); ok {
			return nil, err
		}
		return nil, Errorf(InvalidOperation, "invalid regex pattern %q: %v", pattern, err)
	}
	return re, nil
}

func regexMatch(args []value.Value, compile regexCompiler) (value.Value, error) {
	if n, isNull := argNull(args); isNull {
		return n, nil
	}
	text, err := stringArg(args, 0)
	if err != nil {
		return value.Value{}, err
	}
	pattern, err := stringArg(args, 1)
	if err != nil {
		return value.Value{}, err
	}
	re, err := compileThrough(compile, pattern)
	if err != nil {
		return value.Value{}, err
	}
	return value.NewBool(re.MatchString(text)), nil
}

func regexReplace(args []value.Value, compile regexCompiler) (value.Value, error) {
	if n, isNull := argNull(args); isNull {
		return n, nil
	}
	text, err := stringArg(args, 0)
	if err != nil {
		return value.Value{}, err
	}
	pattern, err := stringArg(args, 1)
	if err != nil {
		return value.Value{}, err
	}
	replacement, err := stringArg(args, 2)
	if err != nil {
		return value.Value{}, err
	}
	re, err := compileThrough(compile, pattern)
	if err != nil {
		return value.Value{}, err
	}
	return value.NewString(re.ReplaceAllString(text, replacement)), nil
}

func regexFind(args []value.Value, compile regexCompiler) (value.Value, error) {
	if n, isNull := argNull(args); isNull {
		return n, nil
	}
	text, err := stringArg(args, 0)
	if err != nil {
		return value.Value{}, err
	}
	pattern, err := stringArg(args, 1)
	if err != nil {
		return value.Value{}, err
	}
	re, err := compileThrough(compile, pattern)
	if err != nil {
		return value.Value{}, err
	}
	matches := re.FindAllString(text, -1)
	items := make([]value.Value, len(matches))
	for i, m := range matches {
		items[i] = value.NewString(m)
	}
	return value.NewList(items), nil
}

func regexMatchCtx(ctx *Context, args []value.Value) (value.Value, error) {
	return regexMatch(args, ctx.GetRegex)
}

func regexReplaceCtx(ctx *Context, args []value.Value) (value.Value, error) {
	return regexReplace(args, ctx.GetRegex)
}

func regexFindCtx(ctx *Context, args []value.Value) (value.Value, error) {
	return regexFind(args, ctx.GetRegex)
}
