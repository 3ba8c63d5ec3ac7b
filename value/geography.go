package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// GeoShape discriminates geography variants. Points are first-class; lines
// and polygons are carried and printed but only points participate in the
// full function library.
type GeoShape uint8

const (
	GeoPointShape GeoShape = iota
	GeoLineShape
	GeoPolygonShape
)

// GeoPoint is a WGS84 coordinate. Longitude first, matching WKT.
type GeoPoint struct {
	Lng float64
	Lat float64
}

// Geography is a point, line string or polygon.
type Geography struct {
	Shape   GeoShape
	Point   GeoPoint
	Line    []GeoPoint
	Polygon [][]GeoPoint
}

// NewPoint builds a point geography.
func NewPoint(lng, lat float64) Geography {
	return Geography{Shape: GeoPointShape, Point: GeoPoint{Lng: lng, Lat: lat}}
}

// IsValid checks coordinate ranges on every position.
func (g Geography) IsValid() bool {
	check := func(p GeoPoint) bool {
		return p.Lng >= -180 && p.Lng <= 180 && p.Lat >= -90 && p.Lat <= 90
	}
	switch g.Shape {
	case GeoPointShape:
		return check(g.Point)
	case GeoLineShape:
		if len(g.Line) < 2 {
			return false
		}
		for _, p := range g.Line {
			if !check(p) {
				return false
			}
		}
		return true
	case GeoPolygonShape:
		if len(g.Polygon) == 0 {
			return false
		}
		for _, ring := range g.Polygon {
			if len(ring) < 4 || ring[0] != ring[len(ring)-1] {
				return false
			}
			for _, p := range ring {
				if !check(p) {
					return false
				}
			}
		}
		return true
	}
	return false
}

// Equal compares geographies structurally.
func (g Geography) Equal(other Geography) bool {
	return g.WKT() == other.WKT()
}

// Centroid returns the arithmetic centroid of the shape's positions.
func (g Geography) Centroid() GeoPoint {
	switch g.Shape {
	case GeoPointShape:
		return g.Point
	case GeoLineShape:
		return centroidOf(g.Line)
	case GeoPolygonShape:
		if len(g.Polygon) == 0 {
			return GeoPoint{}
		}
		return centroidOf(g.Polygon[0])
	}
	return GeoPoint{}
}

func centroidOf(points []GeoPoint) GeoPoint {
	if len(points) == 0 {
		return GeoPoint{}
	}
	var lng, lat float64
	for _, p := range points {
		lng += p.Lng
		lat += p.Lat
	}
	n := float64(len(points))
	return GeoPoint{Lng: lng / n, Lat: lat / n}
}

// WKT renders the well-known-text form.
func (g Geography) WKT() string {
	switch g.Shape {
	case GeoPointShape:
		return fmt.Sprintf("POINT(%s %s)", fmtCoord(g.Point.Lng), fmtCoord(g.Point.Lat))
	case GeoLineShape:
		return "LINESTRING(" + joinPoints(g.Line) + ")"
	case GeoPolygonShape:
		rings := make([]string, len(g.Polygon))
		for i, ring := range g.Polygon {
			rings[i] = "(" + joinPoints(ring) + ")"
		}
		return "POLYGON(" + strings.Join(rings, ", ") + ")"
	}
	return ""
}

func fmtCoord(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func joinPoints(points []GeoPoint) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = fmtCoord(p.Lng) + " " + fmtCoord(p.Lat)
	}
	return strings.Join(parts, ", ")
}

// ParseWKT parses POINT, LINESTRING and POLYGON well-known text.
func ParseWKT(s string) (Geography, error) {
	text := strings.TrimSpace(s)
	upper := strings.ToUpper(text)
	switch {
	case strings.HasPrefix(upper, "POINT"):
		body, err := wktBody(text, "POINT")
		if err != nil {
			return Geography{}, err
		}
		p, err := parsePoint(body)
		if err != nil {
			return Geography{}, err
		}
		return Geography{Shape: GeoPointShape, Point: p}, nil
	case strings.HasPrefix(upper, "LINESTRING"):
		body, err := wktBody(text, "LINESTRING")
		if err != nil {
			return Geography{}, err
		}
		points, err := parsePointList(body)
		if err != nil {
			return Geography{}, err
		}
		return Geography{Shape: GeoLineShape, Line: points}, nil
	case strings.HasPrefix(upper, "POLYGON"):
		body, err := wktBody(text, "POLYGON")
		if err != nil {
			return Geography{}, err
		}
		var rings [][]GeoPoint
		for _, part := range splitRings(body) {
			inner := strings.TrimSpace(part)
			if !strings.HasPrefix(inner, "(") || !strings.HasSuffix(inner, ")") {
				return Geography{}, fmt.Errorf("malformed polygon ring: %s", part)
			}
			ring, err := parsePointList(inner[1 : len(inner)-1])
			if err != nil {
				return Geography{}, err
			}
			rings = append(rings, ring)
		}
		return Geography{Shape: GeoPolygonShape, Polygon: rings}, nil
	}
	return Geography{}, fmt.Errorf("unsupported WKT: %s", s)
}

func wktBody(text, keyword string) (string, error) {
	rest := strings.TrimSpace(text[len(keyword):])
	if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
		return "", fmt.Errorf("malformed WKT: %s", text)
	}
	return rest[1 : len(rest)-1], nil
}

func parsePoint(body string) (GeoPoint, error) {
	fields := strings.Fields(strings.TrimSpace(body))
	if len(fields) != 2 {
		return GeoPoint{}, fmt.Errorf("malformed point: %s", body)
	}
	lng, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return GeoPoint{}, fmt.Errorf("malformed longitude: %s", fields[0])
	}
	lat, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return GeoPoint{}, fmt.Errorf("malformed latitude: %s", fields[1])
	}
	return GeoPoint{Lng: lng, Lat: lat}, nil
}

func parsePointList(body string) ([]GeoPoint, error) {
	parts := strings.Split(body, ",")
	points := make([]GeoPoint, 0, len(parts))
	for _, part := range parts {
		p, err := parsePoint(part)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

// splitRings splits a polygon body on top-level commas only.
func splitRings(body string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range body {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, body[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, body[start:])
	return parts
}

const earthRadiusKm = 6371.0088

// HaversineKm returns the great-circle distance between two points in
// kilometres.
func HaversineKm(a, b GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
