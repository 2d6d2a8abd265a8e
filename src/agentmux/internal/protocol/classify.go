// Package protocol classifies the newline-delimited JSON lines written by an agent process.
package protocol

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/tidwall/gjson"
)

// Kind is the outcome of classifying one inbound line.
type Kind int

const (
	// KindIgnored is valid JSON that is neither a response nor carries a method.
	KindIgnored Kind = iota
	// KindResponse resolves the pending request with the same numeric id.
	KindResponse
	// KindNotification carries a method and no id.
	KindNotification
	// KindServerRequest carries a method and an id; the agent expects a response.
	KindServerRequest
	// KindInvalid is a line that is not valid JSON.
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindResponse:
		return "response"
	case KindNotification:
		return "notification"
	case KindServerRequest:
		return "server_request"
	case KindInvalid:
		return "invalid"
	default:
		return "ignored"
	}
}

// Routable reports whether messages of this kind go to a background consumer or the event sink.
func (k Kind) Routable() bool {
	return k == KindNotification || k == KindServerRequest
}

// threadIDPaths are checked in order; the first string value wins.
var threadIDPaths = []string{
	"params.threadId",
	"params.thread_id",
	"params.turn.threadId",
	"params.turn.thread_id",
}

// Message is a classified inbound line.
type Message struct {
	Kind Kind
	// ID is the numeric request id; valid when HasID is set.
	ID    uint64
	HasID bool
	// RawID is the id exactly as written, including non-numeric ids.
	RawID  json.RawMessage
	Method string
	// ThreadID is the heuristic routing key, empty when none was found.
	ThreadID string
	Raw      json.RawMessage
	// ParseError describes why a KindInvalid line failed to parse.
	ParseError string
}

// Classify decodes one line. It never fails: malformed input yields KindInvalid.
func Classify(line []byte) Message {
	line = bytes.TrimSpace(line)
	msg := Message{Raw: json.RawMessage(line)}

	if !gjson.ValidBytes(line) {
		msg.Kind = KindInvalid
		msg.ParseError = parseError(line)
		return msg
	}

	fields := gjson.GetManyBytes(line, "id", "method", "result", "error")
	id, method, result, rpcErr := fields[0], fields[1], fields[2], fields[3]

	if id.Exists() {
		msg.RawID = json.RawMessage(id.Raw)
		msg.ID, msg.HasID = numericID(id)
	}
	if method.Exists() {
		msg.Method = method.String()
	}

	switch {
	case msg.HasID && (result.Exists() || rpcErr.Exists()):
		msg.Kind = KindResponse
	case method.Exists() && id.Exists():
		msg.Kind = KindServerRequest
	case method.Exists():
		msg.Kind = KindNotification
	case msg.HasID:
		msg.Kind = KindResponse
	default:
		msg.Kind = KindIgnored
	}

	if msg.Kind.Routable() {
		msg.ThreadID = ExtractThreadID(line)
	}
	return msg
}

// ExtractThreadID looks for a thread identifier under params, then under params.turn,
// accepting both camelCase and snake_case spellings.
func ExtractThreadID(raw []byte) string {
	for _, r := range gjson.GetManyBytes(raw, threadIDPaths...) {
		if r.Type == gjson.String {
			return r.Str
		}
	}
	return ""
}

// ResponseError returns the message of a response's error object, if it has one.
func ResponseError(raw []byte) (string, bool) {
	e := gjson.GetBytes(raw, "error")
	if !e.Exists() || e.Type == gjson.Null {
		return "", false
	}
	if m := e.Get("message"); m.Exists() {
		return m.String(), true
	}
	return e.Raw, true
}

func numericID(id gjson.Result) (uint64, bool) {
	if id.Type != gjson.Number {
		return 0, false
	}
	n, err := strconv.ParseUint(id.Raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseError(line []byte) string {
	var v any
	if err := json.Unmarshal(line, &v); err != nil {
		return err.Error()
	}
	return "invalid JSON"
}
