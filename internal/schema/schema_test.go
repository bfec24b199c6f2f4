package schema

import (
	"reflect"
	"strings"
	"testing"
)

var testSchema = Schema{
	"prompt": {Type: String, Required: true},
	"steps":  {Type: Int, Default: 50},
	"scale":  {Type: Float, Default: float64(7)},
	"tiled":  {Type: Bool, Default: false},
	"styles": {Type: List, Default: nil},
	"extra":  {Type: Dict, Default: nil},
	"method": {Type: String, Default: "GET", Constraint: func(v any) bool {
		s, _ := v.(string)
		return s == "GET" || s == "POST"
	}},
}

func TestValidateSubstitutesDefaults(t *testing.T) {
	res := Validate(map[string]any{"prompt": "a cat"}, testSchema)
	if !res.OK() {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if res.Payload["steps"] != 50 {
		t.Fatalf("steps default not applied: %#v", res.Payload["steps"])
	}
	if res.Payload["scale"] != float64(7) {
		t.Fatalf("scale default not applied: %#v", res.Payload["scale"])
	}
	if res.Payload["styles"] != nil {
		t.Fatalf("styles default should be nil: %#v", res.Payload["styles"])
	}
}

func TestValidateRequiredField(t *testing.T) {
	res := Validate(map[string]any{}, testSchema)
	if res.OK() {
		t.Fatalf("expected a validation failure")
	}
	if !strings.Contains(res.ErrorText(), `"prompt" is a required field`) {
		t.Fatalf("unexpected error text: %q", res.ErrorText())
	}
}

func TestValidateTypeMismatch(t *testing.T) {
	res := Validate(map[string]any{"prompt": "x", "steps": "many"}, testSchema)
	if res.OK() {
		t.Fatalf("expected a validation failure")
	}
	if !strings.Contains(res.ErrorText(), `"steps" must be of type integer`) {
		t.Fatalf("unexpected error text: %q", res.ErrorText())
	}
}

func TestValidateRejectsUnknownField(t *testing.T) {
	res := Validate(map[string]any{"prompt": "x", "bogus": 1}, testSchema)
	if res.OK() {
		t.Fatalf("expected a validation failure")
	}
	if !strings.Contains(res.ErrorText(), `"bogus"`) {
		t.Fatalf("unexpected error text: %q", res.ErrorText())
	}
}

func TestValidateConstraint(t *testing.T) {
	res := Validate(map[string]any{"prompt": "x", "method": "PATCH"}, testSchema)
	if res.OK() {
		t.Fatalf("expected a constraint failure")
	}
	if !strings.Contains(res.ErrorText(), `"method" failed its constraint`) {
		t.Fatalf("unexpected error text: %q", res.ErrorText())
	}
}

func TestValidateCoercesIntegralFloats(t *testing.T) {
	// JSON decoding always produces float64; integer fields normalize it.
	res := Validate(map[string]any{"prompt": "x", "steps": float64(20), "scale": 3}, testSchema)
	if !res.OK() {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if res.Payload["steps"] != 20 {
		t.Fatalf("steps not normalized to int: %#v", res.Payload["steps"])
	}
	if res.Payload["scale"] != float64(3) {
		t.Fatalf("scale not normalized to float64: %#v", res.Payload["scale"])
	}
	res = Validate(map[string]any{"prompt": "x", "steps": 20.5}, testSchema)
	if res.OK() {
		t.Fatalf("fractional value must not pass an integer field")
	}
}

func TestValidateIdempotent(t *testing.T) {
	first := Validate(map[string]any{"prompt": "x", "steps": float64(20)}, testSchema)
	if !first.OK() {
		t.Fatalf("unexpected errors: %v", first.Errors)
	}
	second := Validate(first.Payload, testSchema)
	if !second.OK() {
		t.Fatalf("revalidation failed: %v", second.Errors)
	}
	if !reflect.DeepEqual(first.Payload, second.Payload) {
		t.Fatalf("revalidation changed the payload:\nfirst:  %#v\nsecond: %#v", first.Payload, second.Payload)
	}
}

func TestValidateDoesNotMutateInput(t *testing.T) {
	in := map[string]any{"prompt": "x"}
	Validate(in, testSchema)
	if len(in) != 1 {
		t.Fatalf("input map was mutated: %#v", in)
	}
}

func TestForEndpointSelection(t *testing.T) {
	cases := []struct {
		endpoint, method string
		want             any
		registered       bool
	}{
		{"txt2img", "POST", nil, true},
		{"txt2img", "GET", nil, true},
		{"img2img", "POST", nil, true},
		{"options", "POST", nil, true},
		{"options", "GET", nil, false},
		{"sd-models", "GET", nil, false},
		{"progress", "POST", nil, false},
	}
	for _, tc := range cases {
		_, ok := ForEndpoint(tc.endpoint, tc.method)
		if ok != tc.registered {
			t.Fatalf("ForEndpoint(%q, %q) registered = %v, want %v", tc.endpoint, tc.method, ok, tc.registered)
		}
	}
}

func TestTxt2ImgSchemaAcceptsMinimalPayload(t *testing.T) {
	res := Validate(map[string]any{"prompt": "a cat"}, Txt2Img)
	if !res.OK() {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if res.Payload["steps"] != 50 || res.Payload["width"] != 512 || res.Payload["sampler_index"] != "Euler" {
		t.Fatalf("txt2img defaults not applied: %#v", res.Payload)
	}
}

func TestImg2ImgSchemaRequiresInitImages(t *testing.T) {
	res := Validate(map[string]any{"prompt": "a cat"}, Img2Img)
	if res.OK() {
		t.Fatalf("img2img without init_images must fail")
	}
	res = Validate(map[string]any{"init_images": []any{"aGVsbG8="}}, Img2Img)
	if !res.OK() {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
}
