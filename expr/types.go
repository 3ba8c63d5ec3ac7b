package expr

import (
	"math"
	"strings"

	"graphdb.evalgo.org/value"
)

// ValueType names a value kind for function signatures and overload
// resolution.
type ValueType int

const (
	TypeNull ValueType = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeString
	TypeDate
	TypeTime
	TypeDateTime
	TypeDuration
	TypeVertex
	TypeEdge
	TypePath
	TypeList
	TypeMap
	TypeSet
	TypeGeography
	TypeDataSet
	TypeAny
)

func (t ValueType) String() string {
	switch t {
	case TypeNull:
		return "NULL"
	case TypeBool:
		return "BOOL"
	case TypeInt:
		return "INT"
	case TypeFloat:
		return "FLOAT"
	case TypeString:
		return "STRING"
	case TypeDate:
		return "DATE"
	case TypeTime:
		return "TIME"
	case TypeDateTime:
		return "DATETIME"
	case TypeDuration:
		return "DURATION"
	case TypeVertex:
		return "VERTEX"
	case TypeEdge:
		return "EDGE"
	case TypePath:
		return "PATH"
	case TypeList:
		return "LIST"
	case TypeMap:
		return "MAP"
	case TypeSet:
		return "SET"
	case TypeGeography:
		return "GEOGRAPHY"
	case TypeDataSet:
		return "DATASET"
	default:
		return "ANY"
	}
}

// TypeOf maps a runtime value to its signature type. The Empty sentinel
// matches anything.
func TypeOf(v value.Value) ValueType {
	switch v.Kind() {
	case value.KindNull:
		return TypeNull
	case value.KindBool:
		return TypeBool
	case value.KindInt:
		return TypeInt
	case value.KindFloat:
		return TypeFloat
	case value.KindString:
		return TypeString
	case value.KindDate:
		return TypeDate
	case value.KindTime:
		return TypeTime
	case value.KindDateTime:
		return TypeDateTime
	case value.KindDuration:
		return TypeDuration
	case value.KindVertex:
		return TypeVertex
	case value.KindEdge:
		return TypeEdge
	case value.KindPath:
		return TypePath
	case value.KindList:
		return TypeList
	case value.KindMap:
		return TypeMap
	case value.KindSet:
		return TypeSet
	case value.KindGeography:
		return TypeGeography
	case value.KindDataSet:
		return TypeDataSet
	default:
		return TypeAny
	}
}

// Variadic marks a signature as accepting any arity at or above MinArity.
const Variadic = math.MaxInt

// Signature describes one function overload.
type Signature struct {
	Name        string
	ArgTypes    []ValueType
	ReturnType  ValueType
	MinArity    int
	MaxArity    int
	Pure        bool
	Description string
}

// IsVariadic reports whether the overload accepts unbounded arity.
func (s Signature) IsVariadic() bool { return s.MaxArity == Variadic }

// CheckArity reports whether an argument count is acceptable.
func (s Signature) CheckArity(arity int) bool {
	return arity >= s.MinArity && (s.IsVariadic() || arity <= s.MaxArity)
}

// expectedType returns the declared type for argument position i; variadic
// signatures repeat their last declared type.
func (s Signature) expectedType(i int) ValueType {
	if len(s.ArgTypes) == 0 {
		return TypeAny
	}
	if i >= len(s.ArgTypes) {
		return s.ArgTypes[len(s.ArgTypes)-1]
	}
	return s.ArgTypes[i]
}

const noMatch = math.MinInt32

// Score ranks the overload against actual argument values: per argument
// +10 for an exact type match, +1 when the expected type is Any, +5 for a
// compatible pair (numeric widening, string from any scalar), and
// disqualification otherwise. Null and Empty arguments match anything.
func (s Signature) Score(args []value.Value) int {
	if !s.CheckArity(len(args)) {
		return noMatch
	}
	score := 0
	for i, arg := range args {
		expected := s.expectedType(i)
		actual := TypeOf(arg)
		switch {
		case actual == TypeNull || arg.IsEmpty():
			score++
		case expected == actual:
			score += 10
		case expected == TypeAny:
			score++
		case compatible(expected, actual):
			score += 5
		default:
			return noMatch
		}
	}
	return score
}

func compatible(expected, actual ValueType) bool {
	if expected == TypeFloat && actual == TypeInt {
		return true
	}
	if expected == TypeString {
		switch actual {
		case TypeBool, TypeInt, TypeFloat, TypeDate, TypeTime, TypeDateTime:
			return true
		}
	}
	return false
}

// Display renders the signature for error messages.
func (s Signature) Display() string {
	parts := make([]string, len(s.ArgTypes))
	for i, t := range s.ArgTypes {
		parts[i] = t.String()
	}
	args := strings.Join(parts, ", ")
	if s.IsVariadic() {
		args += "..."
	}
	return s.Name + "(" + args + ") -> " + s.ReturnType.String()
}
