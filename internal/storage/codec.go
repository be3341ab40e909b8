package storage

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec serializes records for backends that store opaque blobs.
type Codec interface {
	Name() string
	Marshal(p *ContextPayload) ([]byte, error)
	Unmarshal(data []byte, p *ContextPayload) error
}

const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

// CodecByName returns the codec registered under name. An empty name selects
// JSON.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", CodecJSON:
		return jsonCodec{}, nil
	case CodecMsgpack:
		return msgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q: must be one of json, msgpack", name)
	}
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return CodecJSON }

func (jsonCodec) Marshal(p *ContextPayload) ([]byte, error) { return json.Marshal(p) }

func (jsonCodec) Unmarshal(data []byte, p *ContextPayload) error { return json.Unmarshal(data, p) }

type msgpackCodec struct{}

func (msgpackCodec) Name() string { return CodecMsgpack }

func (msgpackCodec) Marshal(p *ContextPayload) ([]byte, error) { return msgpack.Marshal(p) }

// Unmarshal decodes data into p. msgpack restores timestamps in the local
// zone; they are normalized to UTC to match the JSON codec.
func (msgpackCodec) Unmarshal(data []byte, p *ContextPayload) error {
	if err := msgpack.Unmarshal(data, p); err != nil {
		return err
	}
	p.Metadata.CreatedAt = p.Metadata.CreatedAt.UTC()
	p.Metadata.UpdatedAt = p.Metadata.UpdatedAt.UTC()
	return nil
}
