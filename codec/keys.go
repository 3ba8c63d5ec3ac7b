package codec

import (
	"bytes"

	"graphdb.evalgo.org/value"
)

// Composite keys join encoded components with a separator. Components are
// escaped so the separator cannot occur inside them, keeping the composite
// injective.
//
//	0x00 inside a component  -> 0x00 0xff
//	separator                -> 0x00 0x01

var keySeparator = []byte{0x00, 0x01}

func escapeComponent(data []byte) []byte {
	if !bytes.ContainsRune(data, 0) {
		return data
	}
	out := make([]byte, 0, len(data)+4)
	for _, b := range data {
		if b == 0 {
			out = append(out, 0x00, 0xff)
		} else {
			out = append(out, b)
		}
	}
	return out
}

// NodeKey is the primary key of a vertex row.
func NodeKey(vid value.Value) ([]byte, error) {
	return EncodeValue(vid)
}

// EdgeKey is the composite primary key of an edge row:
// ser(src) ++ ser(dst) ++ edge-type bytes.
func EdgeKey(src, dst value.Value, edgeType string) ([]byte, error) {
	srcBytes, err := EncodeValue(src)
	if err != nil {
		return nil, err
	}
	dstBytes, err := EncodeValue(dst)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Write(escapeComponent(srcBytes))
	buf.Write(keySeparator)
	buf.Write(escapeComponent(dstBytes))
	buf.Write(keySeparator)
	buf.WriteString(edgeType)
	return buf.Bytes(), nil
}

// Index key prefixes. These are part of the on-disk format.
const (
	NodeEdgeIndexPrefix = "node_edge_index:"
	EdgeTypeIndexPrefix = "edge_type_index:"
	TagIndexPrefix      = "tag_index:"
	PropIndexPrefix     = "prop_index:"
)

// NodeEdgeIndexKey addresses the adjacency list of a vertex.
func NodeEdgeIndexKey(vid value.Value) ([]byte, error) {
	vidBytes, err := EncodeValue(vid)
	if err != nil {
		return nil, err
	}
	return append([]byte(NodeEdgeIndexPrefix), vidBytes...), nil
}

// EdgeTypeIndexKey addresses the list of edge keys of one edge type.
func EdgeTypeIndexKey(edgeType string) []byte {
	return append([]byte(EdgeTypeIndexPrefix), edgeType...)
}

// TagIndexKey addresses the list of vids carrying a tag.
func TagIndexKey(tag string) []byte {
	return append([]byte(TagIndexPrefix), tag...)
}

// PropIndexKey addresses the list of vids whose (tag, prop) equals the
// encoded value. The value component uses the byte-exact codec, never a
// display rendering.
func PropIndexKey(tag, prop string, v value.Value) ([]byte, error) {
	valueBytes, err := EncodeValue(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(PropIndexPrefix)
	buf.WriteString(tag)
	buf.WriteByte(':')
	buf.WriteString(prop)
	buf.WriteByte(':')
	buf.Write(valueBytes)
	return buf.Bytes(), nil
}
