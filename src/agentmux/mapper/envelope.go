package mapper

import (
	"encoding/json"

	"github.com/agentmux/agentmux/src/agentmux/entity"
)

// SerializationFailed is written in place of an envelope that could not be encoded.
const SerializationFailed = `{"id":0,"error":{"message":"serialization failed"}}`

type wireError struct {
	Message string `json:"message"`
}

type resultEnvelope struct {
	ID     uint64 `json:"id"`
	Result any    `json:"result"`
}

type errorEnvelope struct {
	ID    uint64    `json:"id"`
	Error wireError `json:"error"`
}

type notificationEnvelope struct {
	Method string `json:"method"`
	Params any    `json:"params"`
}

// ResultEnvelope encodes {"id","result"}.
func ResultEnvelope(id uint64, result any) []byte {
	return marshalOr(resultEnvelope{ID: id, Result: result})
}

// ErrorEnvelope encodes {"id","error":{"message"}}.
func ErrorEnvelope(id uint64, message string) []byte {
	return marshalOr(errorEnvelope{ID: id, Error: wireError{Message: message}})
}

// EventToNotification encodes a daemon event as a {"method","params"} line.
func EventToNotification(event entity.DaemonEvent) ([]byte, error) {
	return json.Marshal(notificationEnvelope{Method: event.EventMethod(), Params: event})
}

func marshalOr(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte(SerializationFailed)
	}
	return b
}
