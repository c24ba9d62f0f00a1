// Package codec converts entities to and from the byte payloads kept by
// the persistent stores.
package codec

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"

	"github.com/jbweber/homelab/dao"
)

// Codec encodes and decodes values of type T
type Codec[T any] interface {
	Encode(value T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// JSON returns a Codec backed by encoding/json. Strings that are not valid
// UTF-8 do not survive it; the stores default to Gob.
func JSON[T any]() Codec[T] {
	return jsonCodec[T]{}
}

// Gob returns a Codec backed by encoding/gob
func Gob[T any]() Codec[T] {
	return gobCodec[T]{}
}

type jsonCodec[T any] struct{}

func (jsonCodec[T]) Encode(value T) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: json encode: %v", dao.ErrInvalidEntity, err)
	}
	return data, nil
}

func (jsonCodec[T]) Decode(data []byte) (T, error) {
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return value, fmt.Errorf("%w: json decode: %v", dao.ErrInvalidEntity, err)
	}
	return value, nil
}

type gobCodec[T any] struct{}

func (gobCodec[T]) Encode(value T) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return nil, fmt.Errorf("%w: gob encode: %v", dao.ErrInvalidEntity, err)
	}
	return buf.Bytes(), nil
}

func (gobCodec[T]) Decode(data []byte) (T, error) {
	var value T
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&value); err != nil {
		return value, fmt.Errorf("%w: gob decode: %v", dao.ErrInvalidEntity, err)
	}
	return value, nil
}
