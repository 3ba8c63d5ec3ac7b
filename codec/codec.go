// Package codec implements the byte-exact key serialisation of runtime
// values. The encoding is injective within a kind and preserves sort order
// for scalar kinds, so encoded keys can back ordered key/value tables
// directly. The format is a compatibility boundary: changing it requires an
// offline migration.
package codec

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"graphdb.evalgo.org/value"
)

// ErrCorrupted reports a byte run that is not a valid encoding.
var ErrCorrupted = errors.New("corrupted value encoding")

// Kind tags. The tag order fixes the cross-kind sort order of encoded keys.
const (
	tagEmpty    = 0x01
	tagNull     = 0x02
	tagBool     = 0x03
	tagInt      = 0x04
	tagFloat    = 0x05
	tagString   = 0x06
	tagDate     = 0x07
	tagTime     = 0x08
	tagDateTime = 0x09
	tagDuration = 0x0a
	tagComplex  = 0x10 // composite kinds, JSON payload
)

// EncodeValue serialises a value. Scalar kinds use fixed-layout
// order-preserving encodings; composite kinds fall back to the JSON row
// format behind a kind tag (injective, not ordered).
func EncodeValue(v value.Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeTo(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeTo(buf *bytes.Buffer, v value.Value) error {
	switch v.Kind() {
	case value.KindEmpty:
		buf.WriteByte(tagEmpty)
	case value.KindNull:
		nk, _ := v.NullKind()
		buf.WriteByte(tagNull)
		buf.WriteByte(byte(nk))
	case value.KindBool:
		b, _ := v.Bool()
		buf.WriteByte(tagBool)
		if b {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case value.KindInt:
		i, _ := v.Int()
		buf.WriteByte(tagInt)
		var raw [8]byte
		binary.BigEndian.PutUint64(raw[:], uint64(i)^(1<<63))
		buf.Write(raw[:])
	case value.KindFloat:
		f, _ := v.Float()
		buf.WriteByte(tagFloat)
		var raw [8]byte
		binary.BigEndian.PutUint64(raw[:], orderedFloatBits(f))
		buf.Write(raw[:])
	case value.KindString:
		s, _ := v.Str()
		buf.WriteByte(tagString)
		buf.WriteString(s)
	case value.KindDate:
		d, _ := v.Date()
		buf.WriteByte(tagDate)
		writeDate(buf, d)
	case value.KindTime:
		t, _ := v.Time()
		buf.WriteByte(tagTime)
		writeTime(buf, t)
	case value.KindDateTime:
		dt, _ := v.DateTime()
		buf.WriteByte(tagDateTime)
		writeDate(buf, dt.Date)
		writeTime(buf, dt.Time)
	case value.KindDuration:
		d, _ := v.Duration()
		buf.WriteByte(tagDuration)
		var raw [24]byte
		binary.BigEndian.PutUint64(raw[0:8], uint64(d.Months)^(1<<63))
		binary.BigEndian.PutUint64(raw[8:16], uint64(d.Days)^(1<<63))
		binary.BigEndian.PutUint64(raw[16:24], uint64(d.Nanos)^(1<<63))
		buf.Write(raw[:])
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", v.Kind(), err)
		}
		buf.WriteByte(tagComplex)
		buf.Write(raw)
	}
	return nil
}

// DecodeValue is the inverse of EncodeValue.
func DecodeValue(data []byte) (value.Value, error) {
	if len(data) == 0 {
		return value.Value{}, fmt.Errorf("%w: empty input", ErrCorrupted)
	}
	rest := data[1:]
	switch data[0] {
	case tagEmpty:
		return value.Empty, nil
	case tagNull:
		if len(rest) != 1 {
			return value.Value{}, fmt.Errorf("%w: null payload", ErrCorrupted)
		}
		return value.NewNull(value.NullKind(rest[0])), nil
	case tagBool:
		if len(rest) != 1 {
			return value.Value{}, fmt.Errorf("%w: bool payload", ErrCorrupted)
		}
		return value.NewBool(rest[0] != 0), nil
	case tagInt:
		if len(rest) != 8 {
			return value.Value{}, fmt.Errorf("%w: int payload", ErrCorrupted)
		}
		return value.NewInt(int64(binary.BigEndian.Uint64(rest) ^ (1 << 63))), nil
	case tagFloat:
		if len(rest) != 8 {
			return value.Value{}, fmt.Errorf("%w: float payload", ErrCorrupted)
		}
		return value.NewFloat(floatFromOrderedBits(binary.BigEndian.Uint64(rest))), nil
	case tagString:
		return value.NewString(string(rest)), nil
	case tagDate:
		d, rem, err := readDate(rest)
		if err != nil || len(rem) != 0 {
			return value.Value{}, fmt.Errorf("%w: date payload", ErrCorrupted)
		}
		return value.NewDate(d), nil
	case tagTime:
		t, rem, err := readTime(rest)
		if err != nil || len(rem) != 0 {
			return value.Value{}, fmt.Errorf("%w: time payload", ErrCorrupted)
		}
		return value.NewTime(t), nil
	case tagDateTime:
		d, rem, err := readDate(rest)
		if err != nil {
			return value.Value{}, fmt.Errorf("%w: datetime payload", ErrCorrupted)
		}
		t, rem, err := readTime(rem)
		if err != nil || len(rem) != 0 {
			return value.Value{}, fmt.Errorf("%w: datetime payload", ErrCorrupted)
		}
		return value.NewDateTime(value.DateTime{Date: d, Time: t}), nil
	case tagDuration:
		if len(rest) != 24 {
			return value.Value{}, fmt.Errorf("%w: duration payload", ErrCorrupted)
		}
		return value.NewDuration(value.Duration{
			Months: int64(binary.BigEndian.Uint64(rest[0:8]) ^ (1 << 63)),
			Days:   int64(binary.BigEndian.Uint64(rest[8:16]) ^ (1 << 63)),
			Nanos:  int64(binary.BigEndian.Uint64(rest[16:24]) ^ (1 << 63)),
		}), nil
	case tagComplex:
		var v value.Value
		if err := json.Unmarshal(rest, &v); err != nil {
			return value.Value{}, fmt.Errorf("%w: %v", ErrCorrupted, err)
		}
		return v, nil
	}
	return value.Value{}, fmt.Errorf("%w: unknown tag 0x%02x", ErrCorrupted, data[0])
}

// orderedFloatBits maps a float to bits whose unsigned order matches the
// numeric order: positive floats get the sign bit set, negative floats are
// inverted wholesale.
func orderedFloatBits(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits | (1 << 63)
}

func floatFromOrderedBits(bits uint64) float64 {
	if bits&(1<<63) != 0 {
		return math.Float64frombits(bits &^ (1 << 63))
	}
	return math.Float64frombits(^bits)
}

func writeDate(buf *bytes.Buffer, d value.Date) {
	var raw [8]byte
	binary.BigEndian.PutUint32(raw[0:4], uint32(int32(d.Year))^(1<<31))
	raw[4] = byte(d.Month)
	raw[5] = byte(d.Day)
	buf.Write(raw[:6])
}

func readDate(data []byte) (value.Date, []byte, error) {
	if len(data) < 6 {
		return value.Date{}, nil, ErrCorrupted
	}
	return value.Date{
		Year:  int(int32(binary.BigEndian.Uint32(data[0:4]) ^ (1 << 31))),
		Month: int(data[4]),
		Day:   int(data[5]),
	}, data[6:], nil
}

func writeTime(buf *bytes.Buffer, t value.Time) {
	var raw [8]byte
	raw[0] = byte(t.Hour)
	raw[1] = byte(t.Minute)
	raw[2] = byte(t.Second)
	binary.BigEndian.PutUint32(raw[3:7], uint32(t.Microsec))
	buf.Write(raw[:7])
}

func readTime(data []byte) (value.Time, []byte, error) {
	if len(data) < 7 {
		return value.Time{}, nil, ErrCorrupted
	}
	return value.Time{
		Hour:     int(data[0]),
		Minute:   int(data[1]),
		Second:   int(data[2]),
		Microsec: int(binary.BigEndian.Uint32(data[3:7])),
	}, data[7:], nil
}
