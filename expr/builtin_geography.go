package expr

import "graphdb.evalgo.org/value"

func geoArg(args []value.Value, i int) (value.Geography, error) {
	g, ok := args[i].Geography()
	if !ok {
		return value.Geography{}, Errorf(TypeMismatch, "argument %d must be a geography, got %s", i+1, args[i].Kind())
	}
	return g, nil
}

// pointOf insists on a point shape; lines and polygons are carried but
// only points are first-class in the distance predicates.
func pointOf(g value.Geography) (value.GeoPoint, error) {
	if g.Shape != value.GeoPointShape {
		return value.GeoPoint{}, NewError(InvalidOperation, "operation requires point geographies")
	}
	return g.Point, nil
}

func registerGeographyFunctions(r *Registry) {
	r.Register(sig("st_point", []ValueType{TypeFloat, TypeFloat}, TypeGeography, true, "point from longitude and latitude"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		lng, err := floatArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		lat, err := floatArg(args, 1)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewGeography(value.NewPoint(lng, lat)), nil
	})

	r.Register(sig("st_geogfromtext", []ValueType{TypeString}, TypeGeography, true, "parse well-known text"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		wkt, err := stringArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		g, err := value.ParseWKT(wkt)
		if err != nil {
			return value.Value{}, Errorf(InvalidOperation, "invalid WKT: %v", err)
		}
		return value.NewGeography(g), nil
	})

	r.Register(sig("st_astext", []ValueType{TypeGeography}, TypeString, true, "well-known text form"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		g, err := geoArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewString(g.WKT()), nil
	})

	r.Register(sig("st_centroid", []ValueType{TypeGeography}, TypeGeography, true, "centroid point"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		g, err := geoArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		c := g.Centroid()
		return value.NewGeography(value.NewPoint(c.Lng, c.Lat)), nil
	})

	r.Register(sig("st_isvalid", []ValueType{TypeGeography}, TypeBool, true, "coordinate-range validity"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		g, err := geoArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewBool(g.IsValid()), nil
	})

	pointPair := func(args []value.Value) (value.GeoPoint, value.GeoPoint, error) {
		a, err := geoArg(args, 0)
		if err != nil {
			return value.GeoPoint{}, value.GeoPoint{}, err
		}
		b, err := geoArg(args, 1)
		if err != nil {
			return value.GeoPoint{}, value.GeoPoint{}, err
		}
		pa, err := pointOf(a)
		if err != nil {
			return value.GeoPoint{}, value.GeoPoint{}, err
		}
		pb, err := pointOf(b)
		if err != nil {
			return value.GeoPoint{}, value.GeoPoint{}, err
		}
		return pa, pb, nil
	}

	coincide := func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		pa, pb, err := pointPair(args)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewBool(pa == pb), nil
	}
	// point semantics: two points intersect/cover exactly when they coincide
	r.Register(sig("st_intersects", []ValueType{TypeGeography, TypeGeography}, TypeBool, true, "point intersection"), coincide)
	r.Register(sig("st_covers", []ValueType{TypeGeography, TypeGeography}, TypeBool, true, "point coverage"), coincide)
	r.Register(sig("st_coveredby", []ValueType{TypeGeography, TypeGeography}, TypeBool, true, "inverse point coverage"), coincide)

	r.Register(sig("st_dwithin", []ValueType{TypeGeography, TypeGeography, TypeFloat}, TypeBool, true, "within distance in kilometres"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		pa, pb, err := pointPair(args)
		if err != nil {
			return value.Value{}, err
		}
		limit, err := floatArg(args, 2)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewBool(value.HaversineKm(pa, pb) <= limit), nil
	})

	r.Register(sig("st_distance", []ValueType{TypeGeography, TypeGeography}, TypeFloat, true, "haversine distance in kilometres"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		pa, pb, err := pointPair(args)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewFloat(value.HaversineKm(pa, pb)), nil
	})
}
