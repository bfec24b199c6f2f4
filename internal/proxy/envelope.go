package proxy

import (
	"strings"

	"sdproxy/internal/schema"
)

// Operation identifies the backend call a request targets.
type Operation struct {
	Method   string
	Endpoint string
}

// Request is the parsed and envelope-validated form of an inbound body.
// Storage fields are request-scoped overrides; empty values fall back to
// process configuration.
type Request struct {
	Op                    Operation
	Payload               map[string]any
	BucketEndpointURL     string
	BucketAccessKeyID     string
	BucketSecretAccessKey string
}

// ParseEnvelope checks the envelope structure against the API schema and
// extracts the operation, payload and optional storage overrides. The
// endpoint is normalized by stripping leading slashes, so "/txt2img" and
// "txt2img" behave identically downstream.
func ParseEnvelope(raw map[string]any) (*Request, *ValidationError) {
	apiValue, ok := raw["api"]
	if !ok {
		return nil, &ValidationError{Message: `"api" is a required field in the request`}
	}
	api, ok := apiValue.(map[string]any)
	if !ok {
		return nil, &ValidationError{Message: `"api" must be an object containing "method" and "endpoint"`}
	}

	res := schema.Validate(api, schema.API)
	if !res.OK() {
		return nil, &ValidationError{Message: res.ErrorText()}
	}

	req := &Request{
		Op: Operation{
			Method:   res.Payload["method"].(string),
			Endpoint: strings.TrimLeft(res.Payload["endpoint"].(string), "/"),
		},
	}
	if payload, ok := raw["payload"].(map[string]any); ok {
		req.Payload = payload
	} else {
		req.Payload = map[string]any{}
	}
	if v, ok := raw["bucket_endpoint_url"].(string); ok {
		req.BucketEndpointURL = v
	}
	if v, ok := raw["bucket_access_key_id"].(string); ok {
		req.BucketAccessKeyID = v
	}
	if v, ok := raw["bucket_secret_access_key"].(string); ok {
		req.BucketSecretAccessKey = v
	}
	return req, nil
}

// ValidatePayload runs the schema registered for the operation, if any.
// Operations without a registered schema are proxied unvalidated; that is a
// deliberate escape hatch so arbitrary backend endpoints stay reachable.
func ValidatePayload(op Operation, payload map[string]any) (map[string]any, *ValidationError) {
	s, ok := schema.ForEndpoint(op.Endpoint, op.Method)
	if !ok {
		return payload, nil
	}
	res := schema.Validate(payload, s)
	if !res.OK() {
		return nil, &ValidationError{Message: res.ErrorText()}
	}
	return res.Payload, nil
}
