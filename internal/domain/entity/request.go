package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// ExtractionRequest asks for one frame every SampleIntervalSeconds of the
// video identified by SourceID in OwnerID's namespace.
type ExtractionRequest struct {
	SourceID              string `json:"sourceId"`
	OwnerID               string `json:"ownerId"`
	NotifyTarget          string `json:"notifyTarget"`
	SampleIntervalSeconds int    `json:"sampleIntervalSeconds"`
}

// requestField lists the canonical name of a required field followed by the
// names older producers used for it.
type requestField struct {
	name    string
	aliases []string
}

var requiredFields = []requestField{
	{name: "sourceId", aliases: []string{"video_id", "object_key"}},
	{name: "ownerId", aliases: []string{"user_name"}},
	{name: "notifyTarget", aliases: []string{"email", "to_address"}},
	{name: "sampleIntervalSeconds", aliases: []string{"frame_rate"}},
}

// maxBodyNesting bounds how many envelope or string-encoding layers are
// peeled off before the payload is considered malformed.
const maxBodyNesting = 3

// DecodeExtractionRequest normalizes an inbound payload into an
// ExtractionRequest. The payload may be a JSON object, a JSON string holding
// an encoded object, or an event envelope carrying either form under "body".
// The positivity of the sample interval is not checked here.
func DecodeExtractionRequest(raw []byte) (ExtractionRequest, error) {
	body, err := decodeBody(raw, 0)
	if err != nil {
		return ExtractionRequest{}, err
	}

	values := make(map[string]json.RawMessage, len(requiredFields))
	var missing []string
	for _, f := range requiredFields {
		v, ok := lookupField(body, f)
		if !ok {
			missing = append(missing, f.name)
			continue
		}
		values[f.name] = v
	}
	if len(missing) > 0 {
		return ExtractionRequest{}, MissingFieldsError(missing)
	}

	var req ExtractionRequest
	for _, target := range []struct {
		name string
		dst  *string
	}{
		{"sourceId", &req.SourceID},
		{"ownerId", &req.OwnerID},
		{"notifyTarget", &req.NotifyTarget},
	} {
		if err := json.Unmarshal(values[target.name], target.dst); err != nil {
			return ExtractionRequest{}, NewError(KindMalformedRequest,
				fmt.Sprintf("field %s must be a string", target.name), err)
		}
	}
	if err := json.Unmarshal(values["sampleIntervalSeconds"], &req.SampleIntervalSeconds); err != nil {
		return ExtractionRequest{}, NewError(KindMalformedRequest,
			"field sampleIntervalSeconds must be an integer", err)
	}

	// Whitespace-only strings decode fine but are as good as absent.
	missing = missing[:0]
	for _, f := range []struct {
		name  string
		value string
	}{
		{"sourceId", req.SourceID},
		{"ownerId", req.OwnerID},
		{"notifyTarget", req.NotifyTarget},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return ExtractionRequest{}, MissingFieldsError(missing)
	}

	return req, nil
}

func decodeBody(raw []byte, depth int) (map[string]json.RawMessage, error) {
	if depth > maxBodyNesting {
		return nil, NewError(KindMalformedRequest, "request body is nested too deeply", nil)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, NewError(KindMalformedRequest, "request body is missing or invalid", nil)
	}

	switch trimmed[0] {
	case '"':
		var encoded string
		if err := json.Unmarshal(trimmed, &encoded); err != nil {
			return nil, NewError(KindMalformedRequest, "request body is missing or invalid", err)
		}
		return decodeBody([]byte(encoded), depth+1)
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, NewError(KindMalformedRequest, "request body is missing or invalid", err)
		}
		if inner, ok := obj["body"]; ok && !hasRequestField(obj) {
			return decodeBody(inner, depth+1)
		}
		return obj, nil
	default:
		return nil, NewError(KindMalformedRequest, "request body is missing or invalid", nil)
	}
}

func lookupField(body map[string]json.RawMessage, f requestField) (json.RawMessage, bool) {
	for _, key := range append([]string{f.name}, f.aliases...) {
		v, ok := body[key]
		if !ok || isNull(v) {
			continue
		}
		return v, true
	}
	return nil, false
}

func hasRequestField(body map[string]json.RawMessage) bool {
	for _, f := range requiredFields {
		if _, ok := lookupField(body, f); ok {
			return true
		}
	}
	return false
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// CheckParameters rejects values that are structurally present but unusable:
// a non-positive interval, identifiers that would escape their namespace
// when joined into a path or object key, and control characters in any
// value that ends up in a path or a mail header.
func (r ExtractionRequest) CheckParameters() error {
	if r.SampleIntervalSeconds <= 0 {
		return NewError(KindInvalidParameter,
			"invalid sampleIntervalSeconds, must be an integer greater than 0", nil)
	}
	for _, id := range []struct {
		name  string
		value string
	}{
		{"sourceId", r.SourceID},
		{"ownerId", r.OwnerID},
	} {
		if id.value == "." || id.value == ".." || strings.ContainsAny(id.value, `/\`) {
			return NewError(KindInvalidParameter,
				fmt.Sprintf("invalid %s, must not contain path separators", id.name), nil)
		}
		if hasControl(id.value) {
			return NewError(KindInvalidParameter,
				fmt.Sprintf("invalid %s, must not contain control characters", id.name), nil)
		}
	}
	if hasControl(r.NotifyTarget) {
		return NewError(KindInvalidParameter,
			"invalid notifyTarget, must not contain control characters", nil)
	}
	return nil
}

func hasControl(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}
