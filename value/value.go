// Package value implements the runtime value model of the graph engine:
// a tagged union over scalars, temporal values, graph entities, containers,
// geography and tabular datasets, together with the arithmetic, comparison
// and null-propagation rules shared by the storage and expression layers.
package value

import (
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the variants of Value.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindNull
	KindBool
	KindInt
	KindFloat
	KindString
	KindDate
	KindTime
	KindDateTime
	KindDuration
	KindVertex
	KindEdge
	KindPath
	KindList
	KindMap
	KindSet
	KindGeography
	KindDataSet
)

// String returns the stable upper-case name used in error messages and
// function signatures.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "EMPTY"
	case KindNull:
		return "NULL"
	case KindBool:
		return "BOOL"
	case KindInt:
		return "INT"
	case KindFloat:
		return "FLOAT"
	case KindString:
		return "STRING"
	case KindDate:
		return "DATE"
	case KindTime:
		return "TIME"
	case KindDateTime:
		return "DATETIME"
	case KindDuration:
		return "DURATION"
	case KindVertex:
		return "VERTEX"
	case KindEdge:
		return "EDGE"
	case KindPath:
		return "PATH"
	case KindList:
		return "LIST"
	case KindMap:
		return "MAP"
	case KindSet:
		return "SET"
	case KindGeography:
		return "GEOGRAPHY"
	case KindDataSet:
		return "DATASET"
	default:
		return fmt.Sprintf("KIND(%d)", int(k))
	}
}

// NullKind refines KindNull. NaN is a null kind so that failed float
// operations propagate like any other null.
type NullKind uint8

const (
	NullPlain NullKind = iota
	NullNaN
	NullBadData
	NullOutOfRange
	NullDivByZero
	NullOverflow
)

func (n NullKind) String() string {
	switch n {
	case NullPlain:
		return "NULL"
	case NullNaN:
		return "NaN"
	case NullBadData:
		return "BAD_DATA"
	case NullOutOfRange:
		return "OUT_OF_RANGE"
	case NullDivByZero:
		return "DIV_BY_ZERO"
	case NullOverflow:
		return "OVERFLOW"
	default:
		return fmt.Sprintf("NULL(%d)", int(n))
	}
}

// Value is the engine's runtime value. The zero Value is the Empty
// (not-yet-bound) sentinel.
type Value struct {
	kind Kind
	i    int64 // Int payload; Bool as 0/1; NullKind for nulls
	f    float64
	s    string
	ref  interface{} // composite payloads
}

// Empty is the not-yet-bound sentinel.
var Empty = Value{}

// Null is the plain NULL value.
var Null = Value{kind: KindNull, i: int64(NullPlain)}

// NewNull constructs a typed null.
func NewNull(kind NullKind) Value {
	return Value{kind: KindNull, i: int64(kind)}
}

// NewBool constructs a boolean value.
func NewBool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.i = 1
	}
	return v
}

// NewInt constructs a signed 64-bit integer value.
func NewInt(i int64) Value { return Value{kind: KindInt, i: i} }

// NewFloat constructs an IEEE-754 64-bit float value. NaN inputs collapse
// to the NaN null kind so they propagate like nulls.
func NewFloat(f float64) Value {
	if math.IsNaN(f) {
		return NewNull(NullNaN)
	}
	return Value{kind: KindFloat, f: f}
}

// NewString constructs a UTF-8 string value.
func NewString(s string) Value { return Value{kind: KindString, s: s} }

// NewDate constructs a calendar-date value.
func NewDate(d Date) Value { return Value{kind: KindDate, ref: d} }

// NewTime constructs a time-of-day value.
func NewTime(t Time) Value { return Value{kind: KindTime, ref: t} }

// NewDateTime constructs a date-time value.
func NewDateTime(dt DateTime) Value { return Value{kind: KindDateTime, ref: dt} }

// NewDuration constructs a calendar duration value.
func NewDuration(d Duration) Value { return Value{kind: KindDuration, ref: d} }

// NewVertex wraps a vertex.
func NewVertex(v *Vertex) Value { return Value{kind: KindVertex, ref: v} }

// NewEdge wraps an edge.
func NewEdge(e *Edge) Value { return Value{kind: KindEdge, ref: e} }

// NewPath wraps a path.
func NewPath(p *Path) Value { return Value{kind: KindPath, ref: p} }

// NewList wraps an ordered sequence.
func NewList(items []Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, ref: items}
}

// NewMap wraps a string-keyed mapping.
func NewMap(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindMap, ref: m}
}

// NewSet wraps a hashed unique set.
func NewSet(s *Set) Value {
	if s == nil {
		s = NewSetOf()
	}
	return Value{kind: KindSet, ref: s}
}

// NewGeography wraps a geography value.
func NewGeography(g Geography) Value { return Value{kind: KindGeography, ref: g} }

// NewDataSet wraps a tabular result.
func NewDataSet(ds *DataSet) Value { return Value{kind: KindDataSet, ref: ds} }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is any null kind.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsEmpty reports whether the value is the not-yet-bound sentinel.
func (v Value) IsEmpty() bool { return v.kind == KindEmpty }

// NullKind returns the null refinement; ok is false for non-null values.
func (v Value) NullKind() (NullKind, bool) {
	if v.kind != KindNull {
		return 0, false
	}
	return NullKind(v.i), true
}

// IsNaN reports whether the value is the NaN null kind.
func (v Value) IsNaN() bool {
	return v.kind == KindNull && NullKind(v.i) == NullNaN
}

// Bool returns the boolean payload.
func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.i != 0, true
}

// Int returns the integer payload.
func (v Value) Int() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// Float returns the float payload.
func (v Value) Float() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.f, true
}

// AsFloat returns the numeric payload widened to float64.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// Str returns the string payload.
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// Date returns the date payload.
func (v Value) Date() (Date, bool) {
	if v.kind != KindDate {
		return Date{}, false
	}
	return v.ref.(Date), true
}

// Time returns the time-of-day payload.
func (v Value) Time() (Time, bool) {
	if v.kind != KindTime {
		return Time{}, false
	}
	return v.ref.(Time), true
}

// DateTime returns the date-time payload.
func (v Value) DateTime() (DateTime, bool) {
	if v.kind != KindDateTime {
		return DateTime{}, false
	}
	return v.ref.(DateTime), true
}

// Duration returns the duration payload.
func (v Value) Duration() (Duration, bool) {
	if v.kind != KindDuration {
		return Duration{}, false
	}
	return v.ref.(Duration), true
}

// Vertex returns the vertex payload.
func (v Value) Vertex() (*Vertex, bool) {
	if v.kind != KindVertex {
		return nil, false
	}
	return v.ref.(*Vertex), true
}

// Edge returns the edge payload.
func (v Value) Edge() (*Edge, bool) {
	if v.kind != KindEdge {
		return nil, false
	}
	return v.ref.(*Edge), true
}

// Path returns the path payload.
func (v Value) Path() (*Path, bool) {
	if v.kind != KindPath {
		return nil, false
	}
	return v.ref.(*Path), true
}

// List returns the list payload.
func (v Value) List() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.ref.([]Value), true
}

// Map returns the map payload.
func (v Value) Map() (map[string]Value, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.ref.(map[string]Value), true
}

// Set returns the set payload.
func (v Value) Set() (*Set, bool) {
	if v.kind != KindSet {
		return nil, false
	}
	return v.ref.(*Set), true
}

// Geography returns the geography payload.
func (v Value) Geography() (Geography, bool) {
	if v.kind != KindGeography {
		return Geography{}, false
	}
	return v.ref.(Geography), true
}

// DataSet returns the dataset payload.
func (v Value) DataSet() (*DataSet, bool) {
	if v.kind != KindDataSet {
		return nil, false
	}
	return v.ref.(*DataSet), true
}

// IsTruthy reports whether the value counts as true in predicate position.
// Only booleans are truthy-capable; everything else is false.
func (v Value) IsTruthy() bool {
	b, ok := v.Bool()
	return ok && b
}

// Equal implements explicit equality: total within like kinds, numeric
// across int/float, false across other distinct non-null kinds. Any null
// operand (including NaN) is never equal to anything, itself included.
func (v Value) Equal(other Value) bool {
	if v.IsNull() || other.IsNull() {
		return false
	}
	if v.kind != other.kind {
		if isNumericKind(v.kind) && isNumericKind(other.kind) {
			a, _ := v.AsFloat()
			b, _ := other.AsFloat()
			return a == b
		}
		return false
	}
	switch v.kind {
	case KindEmpty:
		return true
	case KindBool, KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindString:
		return v.s == other.s
	case KindDate:
		return v.ref.(Date) == other.ref.(Date)
	case KindTime:
		return v.ref.(Time) == other.ref.(Time)
	case KindDateTime:
		return v.ref.(DateTime) == other.ref.(DateTime)
	case KindDuration:
		return v.ref.(Duration) == other.ref.(Duration)
	case KindVertex:
		return v.ref.(*Vertex).Equal(other.ref.(*Vertex))
	case KindEdge:
		return v.ref.(*Edge).Equal(other.ref.(*Edge))
	case KindPath:
		return v.ref.(*Path).Equal(other.ref.(*Path))
	case KindList:
		a := v.ref.([]Value)
		b := other.ref.([]Value)
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !a[i].Equal(b[i]) {
				return false
			}
		}
		return true
	case KindMap:
		a := v.ref.(map[string]Value)
		b := other.ref.(map[string]Value)
		if len(a) != len(b) {
			return false
		}
		for k, av := range a {
			bv, ok := b[k]
			if !ok || !av.Equal(bv) {
				return false
			}
		}
		return true
	case KindSet:
		return v.ref.(*Set).Equal(other.ref.(*Set))
	case KindGeography:
		return v.ref.(Geography).Equal(other.ref.(Geography))
	case KindDataSet:
		return v.ref.(*DataSet).Equal(other.ref.(*DataSet))
	}
	return false
}

func isNumericKind(k Kind) bool { return k == KindInt || k == KindFloat }

// hashKey renders a canonical byte form used for set membership and map
// deduplication. Floats hash by bit pattern so they are usable as set and
// map components.
func (v Value) hashKey() string {
	var b strings.Builder
	v.appendHashKey(&b)
	return b.String()
}

func (v Value) appendHashKey(b *strings.Builder) {
	b.WriteByte(byte(v.kind))
	switch v.kind {
	case KindNull:
		b.WriteByte(byte(v.i))
	case KindBool, KindInt:
		fmt.Fprintf(b, "%d", v.i)
	case KindFloat:
		fmt.Fprintf(b, "%016x", math.Float64bits(v.f))
	case KindString:
		b.WriteString(v.s)
	case KindDate:
		b.WriteString(v.ref.(Date).String())
	case KindTime:
		b.WriteString(v.ref.(Time).String())
	case KindDateTime:
		b.WriteString(v.ref.(DateTime).String())
	case KindDuration:
		b.WriteString(v.ref.(Duration).String())
	case KindVertex:
		v.ref.(*Vertex).VID.appendHashKey(b)
	case KindEdge:
		e := v.ref.(*Edge)
		e.Src.appendHashKey(b)
		e.Dst.appendHashKey(b)
		b.WriteString(e.Type)
		fmt.Fprintf(b, "@%d", e.Version)
	case KindPath:
		p := v.ref.(*Path)
		p.Src.VID.appendHashKey(b)
		for _, s := range p.Steps {
			s.Edge.Src.appendHashKey(b)
			s.Edge.Dst.appendHashKey(b)
			b.WriteString(s.Edge.Type)
		}
	case KindList:
		for _, item := range v.ref.([]Value) {
			item.appendHashKey(b)
			b.WriteByte(0x1f)
		}
	case KindMap:
		m := v.ref.(map[string]Value)
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(k)
			b.WriteByte('=')
			m[k].appendHashKey(b)
			b.WriteByte(0x1f)
		}
	case KindSet:
		s := v.ref.(*Set)
		keys := make([]string, 0, len(s.items))
		for k := range s.items {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(k)
			b.WriteByte(0x1f)
		}
	case KindGeography:
		b.WriteString(v.ref.(Geography).WKT())
	}
}

// Hash returns a stable 64-bit hash of the value.
func (v Value) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte(v.hashKey()))
	return h.Sum64()
}

// EstimatedSize returns a rough in-memory footprint in bytes, used for
// memory accounting by the caches.
func (v Value) EstimatedSize() int {
	const base = 40 // Value struct itself
	switch v.kind {
	case KindString:
		return base + len(v.s)
	case KindList:
		size := base
		for _, item := range v.ref.([]Value) {
			size += item.EstimatedSize()
		}
		return size
	case KindMap:
		size := base
		for k, item := range v.ref.(map[string]Value) {
			size += len(k) + item.EstimatedSize()
		}
		return size
	case KindSet:
		size := base
		for _, item := range v.ref.(*Set).Values() {
			size += item.EstimatedSize()
		}
		return size
	case KindVertex:
		return base + v.ref.(*Vertex).estimatedSize()
	case KindEdge:
		return base + v.ref.(*Edge).estimatedSize()
	case KindPath:
		p := v.ref.(*Path)
		size := base + p.Src.estimatedSize()
		for _, s := range p.Steps {
			size += s.Edge.estimatedSize() + s.Dst.estimatedSize()
		}
		return size
	case KindDataSet:
		ds := v.ref.(*DataSet)
		size := base
		for _, c := range ds.ColumnNames {
			size += len(c)
		}
		for _, row := range ds.Rows {
			for _, cell := range row {
				size += cell.EstimatedSize()
			}
		}
		return size
	default:
		return base
	}
}

// String renders the value for display and logging.
func (v Value) String() string {
	switch v.kind {
	case KindEmpty:
		return "__EMPTY__"
	case KindNull:
		return NullKind(v.i).String()
	case KindBool:
		if v.i != 0 {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindDate:
		return v.ref.(Date).String()
	case KindTime:
		return v.ref.(Time).String()
	case KindDateTime:
		return v.ref.(DateTime).String()
	case KindDuration:
		return v.ref.(Duration).String()
	case KindVertex:
		return v.ref.(*Vertex).String()
	case KindEdge:
		return v.ref.(*Edge).String()
	case KindPath:
		return v.ref.(*Path).String()
	case KindList:
		items := v.ref.([]Value)
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = item.displayString()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		m := v.ref.(map[string]Value)
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + m[k].displayString()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindSet:
		items := v.ref.(*Set).Values()
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = item.displayString()
		}
		sort.Strings(parts)
		return "{" + strings.Join(parts, ", ") + "}"
	case KindGeography:
		return v.ref.(Geography).WKT()
	case KindDataSet:
		return v.ref.(*DataSet).String()
	default:
		return fmt.Sprintf("VALUE(%d)", int(v.kind))
	}
}

// displayString quotes strings inside containers so list/map renderings are
// unambiguous.
func (v Value) displayString() string {
	if v.kind == KindString {
		return strconv.Quote(v.s)
	}
	return v.String()
}

// Set is a hashed unique collection of values. Membership is decided by the
// canonical hash key, so floats participate by bit pattern.
type Set struct {
	items map[string]Value
	order []string // insertion order, for stable iteration
}

// NewSetOf builds a set from the given values, dropping duplicates.
func NewSetOf(items ...Value) *Set {
	s := &Set{items: make(map[string]Value, len(items))}
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// Add inserts a value; duplicates are ignored.
func (s *Set) Add(v Value) {
	k := v.hashKey()
	if _, ok := s.items[k]; ok {
		return
	}
	s.items[k] = v
	s.order = append(s.order, k)
}

// Contains reports membership.
func (s *Set) Contains(v Value) bool {
	_, ok := s.items[v.hashKey()]
	return ok
}

// Remove deletes a value, reporting whether it was present.
func (s *Set) Remove(v Value) bool {
	k := v.hashKey()
	if _, ok := s.items[k]; !ok {
		return false
	}
	delete(s.items, k)
	for i, ord := range s.order {
		if ord == k {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of members.
func (s *Set) Len() int { return len(s.items) }

// Values returns the members in insertion order.
func (s *Set) Values() []Value {
	out := make([]Value, 0, len(s.items))
	for _, k := range s.order {
		out = append(out, s.items[k])
	}
	return out
}

// Equal reports set equality irrespective of insertion order.
func (s *Set) Equal(other *Set) bool {
	if len(s.items) != len(other.items) {
		return false
	}
	for k := range s.items {
		if _, ok := other.items[k]; !ok {
			return false
		}
	}
	return true
}
