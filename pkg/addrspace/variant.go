package addrspace

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// DataType is the built-in type tag of a variable value.
type DataType int

const (
	DataTypeNone DataType = iota
	DataTypeBoolean
	DataTypeInt32
	DataTypeUInt16
	DataTypeUInt32
	DataTypeDouble
	DataTypeString
	DataTypeDateTime
	DataTypeLocalizedText
)

var dataTypeInfo = map[DataType]struct {
	name string
	id   uint32
}{
	DataTypeBoolean:       {"Boolean", 1},
	DataTypeInt32:         {"Int32", 6},
	DataTypeUInt16:        {"UInt16", 5},
	DataTypeUInt32:        {"UInt32", 7},
	DataTypeDouble:        {"Double", 11},
	DataTypeString:        {"String", 12},
	DataTypeDateTime:      {"DateTime", 13},
	DataTypeLocalizedText: {"LocalizedText", 21},
}

func (t DataType) String() string {
	if info, ok := dataTypeInfo[t]; ok {
		return info.name
	}
	if t == DataTypeNone {
		return "None"
	}
	return fmt.Sprintf("DataType(%d)", int(t))
}

// NodeID returns the standard DataType node (namespace 0) for t.
func (t DataType) NodeID() NodeID {
	return NewNumericNodeID(0, dataTypeInfo[t].id)
}

// ParseDataType maps a name such as "UInt16" to its tag.
func ParseDataType(name string) (DataType, error) {
	for t, info := range dataTypeInfo {
		if strings.EqualFold(info.name, name) {
			return t, nil
		}
	}
	if name == "" || strings.EqualFold(name, "None") {
		return DataTypeNone, nil
	}
	return DataTypeNone, invalidArgument("unknown data type %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (t DataType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *DataType) UnmarshalText(text []byte) error {
	parsed, err := ParseDataType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Variant is a single, strongly typed value. Value holds the Go type matching
// Type: bool, int32, uint16, uint32, float64, string, time.Time or LocalizedText.
type Variant struct {
	Type  DataType
	Value any
}

func NewBoolean(v bool) Variant { return Variant{DataTypeBoolean, v} }

func NewInt32(v int32) Variant { return Variant{DataTypeInt32, v} }

func NewUInt16(v uint16) Variant { return Variant{DataTypeUInt16, v} }

func NewUInt32(v uint32) Variant { return Variant{DataTypeUInt32, v} }

func NewDouble(v float64) Variant { return Variant{DataTypeDouble, v} }

func NewString(v string) Variant { return Variant{DataTypeString, v} }

// NewDateTime normalizes to UTC.
func NewDateTime(v time.Time) Variant { return Variant{DataTypeDateTime, v.UTC()} }

func NewLocalizedTextVariant(v LocalizedText) Variant {
	return Variant{DataTypeLocalizedText, v}
}

// Validate checks that Value carries the Go type Type promises.
func (v Variant) Validate() error {
	ok := false
	switch v.Type {
	case DataTypeBoolean:
		_, ok = v.Value.(bool)
	case DataTypeInt32:
		_, ok = v.Value.(int32)
	case DataTypeUInt16:
		_, ok = v.Value.(uint16)
	case DataTypeUInt32:
		_, ok = v.Value.(uint32)
	case DataTypeDouble:
		_, ok = v.Value.(float64)
	case DataTypeString:
		_, ok = v.Value.(string)
	case DataTypeDateTime:
		_, ok = v.Value.(time.Time)
	case DataTypeLocalizedText:
		_, ok = v.Value.(LocalizedText)
	}
	if !ok {
		return &Error{
			Code:    ErrTypeMismatch,
			Message: fmt.Sprintf("value of Go type %T does not carry data type %s", v.Value, v.Type),
		}
	}
	return nil
}

func (v Variant) String() string {
	return fmt.Sprintf("%s(%v)", v.Type, v.Value)
}

type variantJSON struct {
	Type  DataType        `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON keeps the type tag next to the value so numbers survive a round trip.
func (v Variant) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(v.Value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(variantJSON{Type: v.Type, Value: raw})
}

// UnmarshalJSON restores the Go type matching the tag.
func (v *Variant) UnmarshalJSON(data []byte) error {
	var wire variantJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	decoded, err := decodeValue(wire.Type, wire.Value)
	if err != nil {
		return err
	}
	v.Type = wire.Type
	v.Value = decoded
	return nil
}

// DecodeValue converts a JSON value into the Go type for t. Service adapters
// use it to decode client writes.
func DecodeValue(t DataType, raw json.RawMessage) (any, error) {
	return decodeValue(t, raw)
}

func decodeValue(t DataType, raw json.RawMessage) (any, error) {
	mismatch := func(err error) error {
		return &Error{Code: ErrTypeMismatch, Message: fmt.Sprintf("cannot decode %s value: %v", t, err)}
	}

	switch t {
	case DataTypeBoolean:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, mismatch(err)
		}
		return b, nil
	case DataTypeInt32, DataTypeUInt16, DataTypeUInt32:
		var n int64
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, mismatch(err)
		}
		return narrowInteger(t, n)
	case DataTypeDouble:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, mismatch(err)
		}
		return f, nil
	case DataTypeString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, mismatch(err)
		}
		return s, nil
	case DataTypeDateTime:
		var ts time.Time
		if err := json.Unmarshal(raw, &ts); err != nil {
			return nil, mismatch(err)
		}
		return ts, nil
	case DataTypeLocalizedText:
		var lt LocalizedText
		if err := json.Unmarshal(raw, &lt); err != nil {
			return nil, mismatch(err)
		}
		return lt, nil
	default:
		return nil, invalidArgument("cannot decode value of data type %s", t)
	}
}

func narrowInteger(t DataType, n int64) (any, error) {
	outOfRange := &Error{Code: ErrTypeMismatch, Message: fmt.Sprintf("value %d out of range for %s", n, t)}
	switch t {
	case DataTypeInt32:
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, outOfRange
		}
		return int32(n), nil
	case DataTypeUInt16:
		if n < 0 || n > math.MaxUint16 {
			return nil, outOfRange
		}
		return uint16(n), nil
	default:
		if n < 0 || n > math.MaxUint32 {
			return nil, outOfRange
		}
		return uint32(n), nil
	}
}
