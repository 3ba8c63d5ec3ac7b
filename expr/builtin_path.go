package expr

import "graphdb.evalgo.org/value"

func registerPathFunctions(r *Registry) {
	r.Register(sig("nodes", []ValueType{TypePath}, TypeList, true, "vertices along a path"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		p, ok := args[0].Path()
		if !ok {
			return value.Value{}, Errorf(TypeMismatch, "nodes requires a path, got %s", args[0].Kind())
		}
		vertices := p.Vertices()
		items := make([]value.Value, len(vertices))
		for i := range vertices {
			v := vertices[i]
			items[i] = value.NewVertex(&v)
		}
		return value.NewList(items), nil
	})

	r.Register(sig("relationships", []ValueType{TypePath}, TypeList, true, "edges along a path"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		p, ok := args[0].Path()
		if !ok {
			return value.Value{}, Errorf(TypeMismatch, "relationships requires a path, got %s", args[0].Kind())
		}
		edges := p.Edges()
		items := make([]value.Value, len(edges))
		for i := range edges {
			e := edges[i]
			items[i] = value.NewEdge(&e)
		}
		return value.NewList(items), nil
	})
}
