// Package payload encodes session continuations into opaque button payloads
// and decodes them when the platform echoes them back.
package payload

import (
	"encoding/json"
	"strings"

	"funky-quizbot/internal/domain"
)

// MaxBytes is the platform's limit on a postback/quick-reply payload.
const MaxBytes = 1000

const delimiter = "___"

// Encode serializes data as JSON and prefixes it with tag. It fails with
// domain.ErrPayloadTooLarge when the token would exceed MaxBytes; callers
// should shrink data (e.g. truncate the history) rather than send anyway.
func Encode(tag string, data any) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	token := tag + delimiter + string(raw)
	if len(token) > MaxBytes {
		return "", domain.ErrPayloadTooLarge
	}
	return token, nil
}

// Decode splits a token produced by Encode into its tag and raw JSON part.
// It fails with domain.ErrMalformedPayload when the delimiter is missing or
// the JSON part does not parse.
func Decode(token string) (string, json.RawMessage, error) {
	tag, raw, ok := strings.Cut(token, delimiter)
	if !ok {
		return "", nil, domain.ErrMalformedPayload
	}
	if !json.Valid([]byte(raw)) {
		return "", nil, domain.ErrMalformedPayload
	}
	return tag, json.RawMessage(raw), nil
}

// DecodeContinuation decodes a token and unmarshals its data part into a
// session continuation.
func DecodeContinuation(token string) (string, domain.Continuation, error) {
	tag, raw, err := Decode(token)
	if err != nil {
		return "", domain.Continuation{}, err
	}
	var cont domain.Continuation
	if err := json.Unmarshal(raw, &cont); err != nil {
		return "", domain.Continuation{}, domain.ErrMalformedPayload
	}
	return tag, cont, nil
}

// Tag extracts just the routing tag from a token, without validating the data
// part. Used by the dispatcher for prefix matching.
func Tag(token string) (string, bool) {
	tag, _, ok := strings.Cut(token, delimiter)
	return tag, ok
}
