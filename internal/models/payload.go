package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// PayloadVersion текущая версия формата сериализованного снимка сущности
const PayloadVersion = 1

// ErrUnsupportedPayloadVersion returned for payloads written by a newer format.
var ErrUnsupportedPayloadVersion = errors.New("unsupported payload version")

type payloadEnvelope struct {
	Entity  *Entity `json:"entity"`
	Version int     `json:"v"`
}

// EncodePayload сериализует снимок сущности в версионированный конверт
func EncodePayload(e *Entity) ([]byte, error) {
	if e == nil {
		return nil, errors.New("entity is nil")
	}
	data, err := json.Marshal(payloadEnvelope{Version: PayloadVersion, Entity: e})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return data, nil
}

// DecodePayload восстанавливает снимок сущности из конверта
func DecodePayload(data []byte) (*Entity, error) {
	var env payloadEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if env.Version != PayloadVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedPayloadVersion, env.Version)
	}
	if env.Entity == nil {
		return nil, errors.New("payload has no entity")
	}
	return env.Entity, nil
}
