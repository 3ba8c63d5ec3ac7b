package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphdb.evalgo.org/value"
)

func TestRoundTrip(t *testing.T) {
	vertex := value.NewVertexEntity(value.NewInt(1))
	vertex.AddTag("user", map[string]value.Value{"name": value.NewString("Ann")})

	values := []value.Value{
		value.Empty,
		value.Null,
		value.NewNull(value.NullOverflow),
		value.NewBool(false),
		value.NewBool(true),
		value.NewInt(0),
		value.NewInt(-1),
		value.NewInt(1 << 40),
		value.NewFloat(-2.5),
		value.NewFloat(0),
		value.NewFloat(3.14159),
		value.NewString(""),
		value.NewString("hello"),
		value.NewDate(value.Date{Year: 1999, Month: 12, Day: 31}),
		value.NewTime(value.Time{Hour: 23, Minute: 59, Second: 59, Microsec: 999999}),
		value.NewDateTime(value.DateTime{
			Date: value.Date{Year: 2024, Month: 6, Day: 1},
			Time: value.Time{Hour: 12},
		}),
		value.NewDuration(value.Duration{Months: -1, Days: 400, Nanos: 5}),
		value.NewList([]value.Value{value.NewInt(1), value.NewString("x")}),
		value.NewMap(map[string]value.Value{"a": value.NewBool(true)}),
		value.NewVertex(vertex),
	}
	for _, v := range values {
		t.Run(v.Kind().String()+"/"+v.String(), func(t *testing.T) {
			encoded, err := EncodeValue(v)
			require.NoError(t, err)
			decoded, err := DecodeValue(encoded)
			require.NoError(t, err)
			if v.IsNull() {
				vk, _ := v.NullKind()
				dk, ok := decoded.NullKind()
				require.True(t, ok)
				assert.Equal(t, vk, dk)
			} else if v.IsEmpty() {
				assert.True(t, decoded.IsEmpty())
			} else {
				assert.True(t, v.Equal(decoded), "expected %s, got %s", v, decoded)
			}
		})
	}
}

func TestScalarOrderPreserved(t *testing.T) {
	tests := []struct {
		name string
		less value.Value
		more value.Value
	}{
		{"IntNegPos", value.NewInt(-5), value.NewInt(3)},
		{"IntLarge", value.NewInt(100), value.NewInt(1 << 50)},
		{"IntMinMax", value.NewInt(-1 << 62), value.NewInt(1 << 62)},
		{"FloatNegPos", value.NewFloat(-1.5), value.NewFloat(0.5)},
		{"FloatBothNeg", value.NewFloat(-10.5), value.NewFloat(-0.25)},
		{"FloatBothPos", value.NewFloat(0.25), value.NewFloat(1e9)},
		{"String", value.NewString("abc"), value.NewString("abd")},
		{"StringPrefix", value.NewString("ab"), value.NewString("abc")},
		{"Bool", value.NewBool(false), value.NewBool(true)},
		{"Date", value.NewDate(value.Date{Year: 2023, Month: 12, Day: 31}), value.NewDate(value.Date{Year: 2024, Month: 1, Day: 1})},
		{"Time", value.NewTime(value.Time{Hour: 1}), value.NewTime(value.Time{Hour: 2})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lessBytes, err := EncodeValue(tt.less)
			require.NoError(t, err)
			moreBytes, err := EncodeValue(tt.more)
			require.NoError(t, err)
			assert.Negative(t, bytes.Compare(lessBytes, moreBytes),
				"encoding of %s should sort before %s", tt.less, tt.more)
		})
	}
}

func TestDecodeCorrupted(t *testing.T) {
	_, err := DecodeValue(nil)
	assert.ErrorIs(t, err, ErrCorrupted)

	_, err = DecodeValue([]byte{0xfe, 0x01})
	assert.ErrorIs(t, err, ErrCorrupted)

	// truncated int payload
	_, err = DecodeValue([]byte{tagInt, 0x01, 0x02})
	assert.ErrorIs(t, err, ErrCorrupted)

	// garbage complex payload
	_, err = DecodeValue([]byte{tagComplex, 'n', 'o'})
	assert.ErrorIs(t, err, ErrCorrupted)
}

func TestEdgeKeyInjective(t *testing.T) {
	k1, err := EdgeKey(value.NewString("a"), value.NewString("bc"), "knows")
	require.NoError(t, err)
	k2, err := EdgeKey(value.NewString("ab"), value.NewString("c"), "knows")
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)

	k3, err := EdgeKey(value.NewString("a"), value.NewString("bc"), "likes")
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)

	same, err := EdgeKey(value.NewString("a"), value.NewString("bc"), "knows")
	require.NoError(t, err)
	assert.Equal(t, k1, same)
}

func TestIndexKeys(t *testing.T) {
	tagKey := TagIndexKey("user")
	assert.Equal(t, []byte("tag_index:user"), tagKey)

	typeKey := EdgeTypeIndexKey("knows")
	assert.Equal(t, []byte("edge_type_index:knows"), typeKey)

	adjKey, err := NodeEdgeIndexKey(value.NewInt(5))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(adjKey, []byte(NodeEdgeIndexPrefix)))

	// the value component uses the byte-exact codec, so equal values give
	// equal keys and different values give different keys
	p1, err := PropIndexKey("user", "age", value.NewInt(30))
	require.NoError(t, err)
	p2, err := PropIndexKey("user", "age", value.NewInt(30))
	require.NoError(t, err)
	p3, err := PropIndexKey("user", "age", value.NewInt(31))
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	assert.NotEqual(t, p1, p3)
}
