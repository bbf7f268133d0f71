package wire

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ContentType is the media type of an encoded message.
const ContentType = "application/cbor"

// encMode uses Core Deterministic Encoding so equal messages encode to
// identical bytes.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("wire: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		// Field numbers are the only map keys at message level.
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("wire: CBOR decoder initialization failed: " + err.Error())
	}
}

// MarshalCBOR encodes the set fields as a map keyed by field number.
func (m *Message) MarshalCBOR() ([]byte, error) {
	out := make(map[uint32]any, len(m.values))
	for num, v := range m.values {
		out[num] = v
	}
	return encMode.Marshal(out)
}

// Marshal encodes m.
func Marshal(m *Message) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("wire: marshal nil message")
	}
	return encMode.Marshal(m)
}

// Unmarshal decodes data as a message of schema s. Unknown field numbers are
// skipped.
func Unmarshal(s *Schema, data []byte) (*Message, error) {
	var raw map[uint32]cbor.RawMessage
	if err := decMode.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("wire: decode %s: %w", s.Name, err)
	}
	m := NewMessage(s)
	for num, r := range raw {
		f, ok := s.FieldByNumber(num)
		if !ok {
			continue
		}
		v, err := decodeField(f, r)
		if err != nil {
			return nil, fmt.Errorf("wire: decode %s.%s: %w", s.Name, f.Name, err)
		}
		m.values[num] = v
	}
	return m, nil
}

func decodeField(f *Field, r cbor.RawMessage) (any, error) {
	switch f.Label {
	case Repeated:
		var items []cbor.RawMessage
		if err := decMode.Unmarshal(r, &items); err != nil {
			return nil, err
		}
		out := make([]any, 0, len(items))
		for _, item := range items {
			v, err := decodeValue(f, item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case Keyed:
		mp := map[string]string{}
		if err := decMode.Unmarshal(r, &mp); err != nil {
			return nil, err
		}
		return mp, nil
	default:
		return decodeValue(f, r)
	}
}

func decodeValue(f *Field, r cbor.RawMessage) (any, error) {
	switch f.Kind {
	case KindString:
		var v string
		err := decMode.Unmarshal(r, &v)
		return v, err
	case KindInt64:
		var v int64
		err := decMode.Unmarshal(r, &v)
		return v, err
	case KindInt32, KindEnum:
		var v int32
		err := decMode.Unmarshal(r, &v)
		return v, err
	case KindBool:
		var v bool
		err := decMode.Unmarshal(r, &v)
		return v, err
	case KindBytes:
		var v []byte
		err := decMode.Unmarshal(r, &v)
		if v == nil {
			v = []byte{}
		}
		return v, err
	case KindMessage:
		return Unmarshal(f.Schema, r)
	default:
		return nil, fmt.Errorf("unsupported kind %s", f.Kind)
	}
}

// Equal reports whether a and b carry the same schema and encode identically.
func Equal(a, b *Message) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.schema != b.schema {
		return false
	}
	ab, err := Marshal(a)
	if err != nil {
		return false
	}
	bb, err := Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

// Diagnose renders encoded data in CBOR diagnostic notation.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
