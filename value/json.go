package value

import (
	"encoding/json"
	"fmt"
)

// The JSON envelope is the persisted row format: a kind discriminator plus
// a kind-specific payload. It is a compatibility boundary; changing it
// requires a numbered on-disk schema version and an offline migration.

type jsonEnvelope struct {
	K string          `json:"k"`
	V json.RawMessage `json:"v,omitempty"`
}

type jsonDuration struct {
	Months int64 `json:"months"`
	Days   int64 `json:"days"`
	Nanos  int64 `json:"nanos"`
}

type jsonTag struct {
	Name  string           `json:"name"`
	Props map[string]Value `json:"props"`
}

type jsonVertex struct {
	VID   Value            `json:"vid"`
	Tags  []jsonTag        `json:"tags,omitempty"`
	Props map[string]Value `json:"props,omitempty"`
}

type jsonEdge struct {
	Src     Value            `json:"src"`
	Dst     Value            `json:"dst"`
	Type    string           `json:"type"`
	Version int64            `json:"version"`
	Props   map[string]Value `json:"props,omitempty"`
}

type jsonStep struct {
	Edge Edge   `json:"edge"`
	Dst  Vertex `json:"dst"`
}

type jsonPath struct {
	Src   Vertex     `json:"src"`
	Steps []jsonStep `json:"steps,omitempty"`
}

type jsonDataSet struct {
	Columns []string  `json:"columns"`
	Rows    [][]Value `json:"rows"`
}

// MarshalJSON implements the persisted envelope format.
func (v Value) MarshalJSON() ([]byte, error) {
	env := jsonEnvelope{K: v.kind.String()}
	var payload interface{}
	switch v.kind {
	case KindEmpty:
		payload = nil
	case KindNull:
		payload = NullKind(v.i).String()
	case KindBool:
		payload = v.i != 0
	case KindInt:
		payload = v.i
	case KindFloat:
		payload = v.f
	case KindString:
		payload = v.s
	case KindDate:
		payload = v.ref.(Date)
	case KindTime:
		payload = v.ref.(Time)
	case KindDateTime:
		payload = v.ref.(DateTime)
	case KindDuration:
		d := v.ref.(Duration)
		payload = jsonDuration{Months: d.Months, Days: d.Days, Nanos: d.Nanos}
	case KindVertex:
		payload = v.ref.(*Vertex)
	case KindEdge:
		payload = v.ref.(*Edge)
	case KindPath:
		payload = v.ref.(*Path)
	case KindList:
		payload = v.ref.([]Value)
	case KindMap:
		payload = v.ref.(map[string]Value)
	case KindSet:
		payload = v.ref.(*Set).Values()
	case KindGeography:
		payload = v.ref.(Geography).WKT()
	case KindDataSet:
		ds := v.ref.(*DataSet)
		payload = jsonDataSet{Columns: ds.ColumnNames, Rows: ds.Rows}
	default:
		return nil, fmt.Errorf("cannot marshal value kind %s", v.kind)
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.V = raw
	}
	return json.Marshal(env)
}

// UnmarshalJSON is the inverse of MarshalJSON. A corrupted byte run fails
// with a serialization error.
func (v *Value) UnmarshalJSON(data []byte) error {
	var env jsonEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	switch env.K {
	case "EMPTY":
		*v = Empty
	case "NULL":
		var name string
		if err := json.Unmarshal(env.V, &name); err != nil {
			return err
		}
		*v = NewNull(nullKindFromName(name))
	case "BOOL":
		var b bool
		if err := json.Unmarshal(env.V, &b); err != nil {
			return err
		}
		*v = NewBool(b)
	case "INT":
		var i int64
		if err := json.Unmarshal(env.V, &i); err != nil {
			return err
		}
		*v = NewInt(i)
	case "FLOAT":
		var f float64
		if err := json.Unmarshal(env.V, &f); err != nil {
			return err
		}
		*v = NewFloat(f)
	case "STRING":
		var s string
		if err := json.Unmarshal(env.V, &s); err != nil {
			return err
		}
		*v = NewString(s)
	case "DATE":
		var d Date
		if err := json.Unmarshal(env.V, &d); err != nil {
			return err
		}
		*v = NewDate(d)
	case "TIME":
		var t Time
		if err := json.Unmarshal(env.V, &t); err != nil {
			return err
		}
		*v = NewTime(t)
	case "DATETIME":
		var dt DateTime
		if err := json.Unmarshal(env.V, &dt); err != nil {
			return err
		}
		*v = NewDateTime(dt)
	case "DURATION":
		var d jsonDuration
		if err := json.Unmarshal(env.V, &d); err != nil {
			return err
		}
		*v = NewDuration(Duration{Months: d.Months, Days: d.Days, Nanos: d.Nanos})
	case "VERTEX":
		vertex := &Vertex{}
		if err := json.Unmarshal(env.V, vertex); err != nil {
			return err
		}
		*v = NewVertex(vertex)
	case "EDGE":
		edge := &Edge{}
		if err := json.Unmarshal(env.V, edge); err != nil {
			return err
		}
		*v = NewEdge(edge)
	case "PATH":
		path := &Path{}
		if err := json.Unmarshal(env.V, path); err != nil {
			return err
		}
		*v = NewPath(path)
	case "LIST":
		var items []Value
		if err := json.Unmarshal(env.V, &items); err != nil {
			return err
		}
		*v = NewList(items)
	case "MAP":
		var m map[string]Value
		if err := json.Unmarshal(env.V, &m); err != nil {
			return err
		}
		*v = NewMap(m)
	case "SET":
		var items []Value
		if err := json.Unmarshal(env.V, &items); err != nil {
			return err
		}
		*v = NewSet(NewSetOf(items...))
	case "GEOGRAPHY":
		var wkt string
		if err := json.Unmarshal(env.V, &wkt); err != nil {
			return err
		}
		g, err := ParseWKT(wkt)
		if err != nil {
			return err
		}
		*v = NewGeography(g)
	case "DATASET":
		var ds jsonDataSet
		if err := json.Unmarshal(env.V, &ds); err != nil {
			return err
		}
		*v = NewDataSet(&DataSet{ColumnNames: ds.Columns, Rows: ds.Rows})
	default:
		return fmt.Errorf("unknown value kind %q", env.K)
	}
	return nil
}

func nullKindFromName(name string) NullKind {
	switch name {
	case "NaN":
		return NullNaN
	case "BAD_DATA":
		return NullBadData
	case "OUT_OF_RANGE":
		return NullOutOfRange
	case "DIV_BY_ZERO":
		return NullDivByZero
	case "OVERFLOW":
		return NullOverflow
	default:
		return NullPlain
	}
}

// MarshalJSON persists the vertex row format.
func (v Vertex) MarshalJSON() ([]byte, error) {
	tags := make([]jsonTag, len(v.Tags))
	for i, t := range v.Tags {
		tags[i] = jsonTag{Name: t.Name, Props: t.Props}
	}
	return json.Marshal(jsonVertex{VID: v.VID, Tags: tags, Props: v.Props})
}

// UnmarshalJSON restores a vertex row.
func (v *Vertex) UnmarshalJSON(data []byte) error {
	var jv jsonVertex
	if err := json.Unmarshal(data, &jv); err != nil {
		return err
	}
	v.VID = jv.VID
	v.Tags = make([]Tag, len(jv.Tags))
	for i, t := range jv.Tags {
		props := t.Props
		if props == nil {
			props = map[string]Value{}
		}
		v.Tags[i] = Tag{Name: t.Name, Props: props}
	}
	if jv.Props == nil {
		jv.Props = map[string]Value{}
	}
	v.Props = jv.Props
	return nil
}

// MarshalJSON persists the edge row format.
func (e Edge) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonEdge{Src: e.Src, Dst: e.Dst, Type: e.Type, Version: e.Version, Props: e.Props})
}

// UnmarshalJSON restores an edge row.
func (e *Edge) UnmarshalJSON(data []byte) error {
	var je jsonEdge
	if err := json.Unmarshal(data, &je); err != nil {
		return err
	}
	e.Src = je.Src
	e.Dst = je.Dst
	e.Type = je.Type
	e.Version = je.Version
	if je.Props == nil {
		je.Props = map[string]Value{}
	}
	e.Props = je.Props
	return nil
}

// MarshalJSON persists a path.
func (p Path) MarshalJSON() ([]byte, error) {
	steps := make([]jsonStep, len(p.Steps))
	for i, s := range p.Steps {
		steps[i] = jsonStep{Edge: s.Edge, Dst: s.Dst}
	}
	return json.Marshal(jsonPath{Src: p.Src, Steps: steps})
}

// UnmarshalJSON restores a path.
func (p *Path) UnmarshalJSON(data []byte) error {
	var jp jsonPath
	if err := json.Unmarshal(data, &jp); err != nil {
		return err
	}
	p.Src = jp.Src
	p.Steps = make([]Step, len(jp.Steps))
	for i, s := range jp.Steps {
		p.Steps[i] = Step{Edge: s.Edge, Dst: s.Dst}
	}
	return nil
}
