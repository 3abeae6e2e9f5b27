// Package codec encodes cached metadata snapshots for storage.
//
// The codec name is stored next to each snapshot; changing the default codec
// does not invalidate snapshots written by another built-in codec.
package codec

import (
	"bytes"

	gojson "github.com/goccy/go-json"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default is the codec used when none is configured
var Default Codec = GoJSON{}

// ByName returns a built-in codec by its stable name
func ByName(name string) (Codec, bool) {
	switch name {
	case "", "json", "go-json":
		return GoJSON{}, true
	case "msgpack":
		return MsgPack{}, true
	default:
		return nil, false
	}
}

// GoJSON is a JSON codec backed by github.com/goccy/go-json
type GoJSON struct{}

func (GoJSON) Marshal(v any) ([]byte, error) { return gojson.Marshal(v) }

func (GoJSON) Unmarshal(data []byte, v any) error { return gojson.Unmarshal(data, v) }

func (GoJSON) Name() string { return "go-json" }

// MsgPack is a compact binary codec backed by github.com/vmihailenco/msgpack/v5.
// Struct fields use their json tags as msgpack keys.
type MsgPack struct{}

func (MsgPack) Marshal(v any) ([]byte, error) {
	enc := msgpack.GetEncoder()
	defer msgpack.PutEncoder(enc)
	var buf bytes.Buffer
	enc.Reset(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (MsgPack) Unmarshal(data []byte, v any) error {
	dec := msgpack.GetDecoder()
	defer msgpack.PutDecoder(dec)
	dec.Reset(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

func (MsgPack) Name() string { return "msgpack" }
