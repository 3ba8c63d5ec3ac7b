package expr

import (
	"math"
	"sort"
	"strings"

	"graphdb.evalgo.org/value"
)

// applyAggregate folds a pre-collected group. Null elements are skipped
// for the numeric aggregates. Empty input: count is 0, collect family is
// empty, the numeric aggregates yield null (NaN for avg/std, plain null
// for the rest).
func applyAggregate(fn AggFunc, items []value.Value) (value.Value, error) {
	switch fn.Kind {
	case AggCount:
		n := int64(0)
		for _, item := range items {
			if !item.IsNull() && !item.IsEmpty() {
				n++
			}
		}
		return value.NewInt(n), nil

	case AggSum:
		return aggSum(items)

	case AggAvg:
		nums := numericItems(items)
		if len(nums) == 0 {
			return value.NewNull(value.NullNaN), nil
		}
		total := 0.0
		for _, f := range nums {
			total += f
		}
		return value.NewFloat(total / float64(len(nums))), nil

	case AggMin, AggMax:
		wantMax := fn.Kind == AggMax
		var best value.Value
		for _, item := range items {
			if item.IsNull() || item.IsEmpty() {
				continue
			}
			if best.IsEmpty() {
				best = item
				continue
			}
			c, err := value.Compare(item, best)
			if err != nil {
				return value.Value{}, NewError(TypeMismatch, err.Error())
			}
			if (wantMax && c > 0) || (!wantMax && c < 0) {
				best = item
			}
		}
		if best.IsEmpty() {
			return value.Null, nil
		}
		return best, nil

	case AggCollect:
		out := make([]value.Value, 0, len(items))
		for _, item := range items {
			if !item.IsNull() && !item.IsEmpty() {
				out = append(out, item)
			}
		}
		return value.NewList(out), nil

	case AggCollectSet:
		set := value.NewSetOf()
		for _, item := range items {
			if !item.IsNull() && !item.IsEmpty() {
				set.Add(item)
			}
		}
		return value.NewSet(set), nil

	case AggDistinct:
		out := value.NewSetOf()
		for _, item := range items {
			if !item.IsNull() && !item.IsEmpty() {
				out.Add(item)
			}
		}
		return value.NewList(out.Values()), nil

	case AggPercentile:
		p := fn.Percentile
		if p < 0 || p > 100 {
			return value.Value{}, Errorf(InvalidOperation, "percentile %v out of range", p)
		}
		nums := numericItems(items)
		if len(nums) == 0 {
			return value.Null, nil
		}
		sort.Float64s(nums)
		rank := p / 100 * float64(len(nums)-1)
		lo := int(math.Floor(rank))
		hi := int(math.Ceil(rank))
		if lo == hi {
			return value.NewFloat(nums[lo]), nil
		}
		frac := rank - float64(lo)
		return value.NewFloat(nums[lo]*(1-frac) + nums[hi]*frac), nil

	case AggStd:
		nums := numericItems(items)
		if len(nums) == 0 {
			return value.NewNull(value.NullNaN), nil
		}
		mean := 0.0
		for _, f := range nums {
			mean += f
		}
		mean /= float64(len(nums))
		variance := 0.0
		for _, f := range nums {
			variance += (f - mean) * (f - mean)
		}
		variance /= float64(len(nums))
		return value.NewFloat(math.Sqrt(variance)), nil

	case AggBitAnd, AggBitOr:
		var acc int64
		seeded := false
		for _, item := range items {
			if item.IsNull() || item.IsEmpty() {
				continue
			}
			i, ok := item.Int()
			if !ok {
				return value.Value{}, Errorf(TypeMismatch, "bit aggregate requires integers, got %s", item.Kind())
			}
			if !seeded {
				acc = i
				seeded = true
			} else if fn.Kind == AggBitAnd {
				acc &= i
			} else {
				acc |= i
			}
		}
		if !seeded {
			return value.Null, nil
		}
		return value.NewInt(acc), nil

	case AggGroupConcat:
		var parts []string
		for _, item := range items {
			if item.IsNull() || item.IsEmpty() {
				continue
			}
			parts = append(parts, item.String())
		}
		if parts == nil {
			return value.Null, nil
		}
		return value.NewString(strings.Join(parts, fn.Separator)), nil
	}
	return value.Value{}, Errorf(RuntimeError, "unknown aggregate %d", int(fn.Kind))
}

// aggSum keeps integer sums integral, widening to float only when a float
// element appears.
func aggSum(items []value.Value) (value.Value, error) {
	intSum := int64(0)
	floatSum := 0.0
	sawFloat := false
	sawAny := false
	for _, item := range items {
		if item.IsNull() || item.IsEmpty() {
			continue
		}
		if i, ok := item.Int(); ok {
			intSum += i
			floatSum += float64(i)
			sawAny = true
			continue
		}
		if f, ok := item.Float(); ok {
			floatSum += f
			sawFloat = true
			sawAny = true
			continue
		}
		return value.Value{}, Errorf(TypeMismatch, "sum requires numbers, got %s", item.Kind())
	}
	if !sawAny {
		return value.Null, nil
	}
	if sawFloat {
		return value.NewFloat(floatSum), nil
	}
	return value.NewInt(intSum), nil
}

func numericItems(items []value.Value) []float64 {
	out := make([]float64, 0, len(items))
	for _, item := range items {
		if f, ok := item.AsFloat(); ok {
			out = append(out, f)
		}
	}
	return out
}

func listArgItems(args []value.Value) ([]value.Value, error) {
	items, ok := args[0].List()
	if !ok {
		return nil, Errorf(TypeMismatch, "aggregate input must be a list, got %s", args[0].Kind())
	}
	return items, nil
}

func registerAggregateFunctions(r *Registry) {
	simple := func(name, desc string, kind AggKind) {
		r.Register(sig(name, []ValueType{TypeList}, TypeAny, true, desc), func(args []value.Value) (value.Value, error) {
			if n, isNull := argNull(args); isNull {
				return n, nil
			}
			items, err := listArgItems(args)
			if err != nil {
				return value.Value{}, err
			}
			return applyAggregate(AggFunc{Kind: kind}, items)
		})
	}
	simple("count", "non-null element count", AggCount)
	simple("sum", "numeric sum", AggSum)
	simple("avg", "numeric mean", AggAvg)
	simple("min", "minimum element", AggMin)
	simple("max", "maximum element", AggMax)
	simple("collect", "non-null elements as a list", AggCollect)
	simple("collect_set", "non-null elements as a set", AggCollectSet)
	simple("distinct", "deduplicated elements", AggDistinct)
	simple("std", "population standard deviation", AggStd)
	simple("bit_and", "bitwise and over a group", AggBitAnd)
	simple("bit_or", "bitwise or over a group", AggBitOr)

	r.Register(sig("percentile", []ValueType{TypeList, TypeFloat}, TypeFloat, true, "interpolated percentile"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		items, err := listArgItems(args)
		if err != nil {
			return value.Value{}, err
		}
		p, err := floatArg(args, 1)
		if err != nil {
			return value.Value{}, err
		}
		return applyAggregate(AggFunc{Kind: AggPercentile, Percentile: p}, items)
	})

	r.Register(sig("group_concat", []ValueType{TypeList, TypeString}, TypeString, true, "join elements with a separator"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		items, err := listArgItems(args)
		if err != nil {
			return value.Value{}, err
		}
		sep, err := stringArg(args, 1)
		if err != nil {
			return value.Value{}, err
		}
		return applyAggregate(AggFunc{Kind: AggGroupConcat, Separator: sep}, items)
	})
}
