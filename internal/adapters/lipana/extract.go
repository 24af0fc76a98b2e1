package lipana

import (
	"bytes"
	"encoding/json"
	"strings"
)

// TrackingIDRules lists, in priority order, the response fields that may
// carry the tracking id of an accepted push. The checkout request id names
// are legacy fallbacks.
var TrackingIDRules = []string{
	"transactionId",
	"transaction_id",
	"checkoutRequestID",
	"checkout_request_id",
}

// ExtractTrackingID reads the tracking id from a push response body. Fields
// are looked up in the "data" object, or the root object when "data" is not
// an object. It returns the id and the field it came from; ok is false when
// no rule matches a non-empty value.
func ExtractTrackingID(body []byte) (id, key string, ok bool) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(body, &root); err != nil {
		return "", "", false
	}

	fields := root
	if raw, found := root["data"]; found {
		var data map[string]json.RawMessage
		if err := json.Unmarshal(raw, &data); err == nil && data != nil {
			fields = data
		}
	}

	for _, rule := range TrackingIDRules {
		if v := scalarString(fields[rule]); v != "" {
			return v, rule, true
		}
	}
	return "", "", false
}

// scalarString returns a JSON string or number as text, anything else as ""
func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err == nil && n != "0" {
		return n.String()
	}
	return ""
}

// providerMessage returns the "message" field of an error body, if any
func providerMessage(body []byte) string {
	var errBody struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &errBody); err != nil {
		return ""
	}
	return strings.TrimSpace(errBody.Message)
}
