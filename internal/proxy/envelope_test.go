package proxy

import (
	"strings"
	"testing"
)

func TestParseEnvelopeMissingAPI(t *testing.T) {
	_, verr := ParseEnvelope(map[string]any{"payload": map[string]any{}})
	if verr == nil {
		t.Fatalf("expected a validation error")
	}
	if !strings.Contains(verr.Message, `"api" is a required field`) {
		t.Fatalf("unexpected message: %q", verr.Message)
	}
}

func TestParseEnvelopeAPIWrongType(t *testing.T) {
	_, verr := ParseEnvelope(map[string]any{"api": "txt2img"})
	if verr == nil {
		t.Fatalf("expected a validation error")
	}
	if !strings.Contains(verr.Message, `"api" must be an object`) {
		t.Fatalf("unexpected message: %q", verr.Message)
	}
}

func TestParseEnvelopeRejectsUnknownMethod(t *testing.T) {
	_, verr := ParseEnvelope(map[string]any{
		"api": map[string]any{"method": "DELETE", "endpoint": "txt2img"},
	})
	if verr == nil {
		t.Fatalf("expected a validation error")
	}
}

func TestParseEnvelopeNormalizesEndpoint(t *testing.T) {
	for _, endpoint := range []string{"txt2img", "/txt2img", "//txt2img"} {
		req, verr := ParseEnvelope(map[string]any{
			"api":     map[string]any{"method": "POST", "endpoint": endpoint},
			"payload": map[string]any{"prompt": "a cat"},
		})
		if verr != nil {
			t.Fatalf("unexpected error for %q: %v", endpoint, verr)
		}
		if req.Op.Endpoint != "txt2img" {
			t.Fatalf("endpoint %q normalized to %q, want txt2img", endpoint, req.Op.Endpoint)
		}
	}
}

func TestParseEnvelopeExtractsStorageOverrides(t *testing.T) {
	req, verr := ParseEnvelope(map[string]any{
		"api":                 map[string]any{"method": "POST", "endpoint": "txt2img"},
		"payload":             map[string]any{"prompt": "a cat"},
		"bucket_endpoint_url": "https://bucket.nyc3.digitaloceanspaces.com",
	})
	if verr != nil {
		t.Fatalf("unexpected error: %v", verr)
	}
	if req.BucketEndpointURL != "https://bucket.nyc3.digitaloceanspaces.com" {
		t.Fatalf("bucket endpoint not extracted: %q", req.BucketEndpointURL)
	}
}

func TestValidatePayloadUnknownEndpointPassesThrough(t *testing.T) {
	payload := map[string]any{"anything": "goes", "even": []any{1, 2}}
	out, verr := ValidatePayload(Operation{Method: "POST", Endpoint: "some/custom/endpoint"}, payload)
	if verr != nil {
		t.Fatalf("unexpected error: %v", verr)
	}
	if len(out) != 2 || out["anything"] != "goes" {
		t.Fatalf("payload was not passed through unchanged: %#v", out)
	}
}

func TestValidatePayloadRejectsBadTxt2Img(t *testing.T) {
	_, verr := ValidatePayload(Operation{Method: "POST", Endpoint: "txt2img"}, map[string]any{"steps": 20})
	if verr == nil {
		t.Fatalf("txt2img without prompt must fail validation")
	}
}
