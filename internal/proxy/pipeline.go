package proxy

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"sdproxy/internal/upload"

	"github.com/rs/zerolog"
)

// Publisher uploads a generated image and returns its retrieval URL.
type Publisher interface {
	Publish(ctx context.Context, creds upload.Credentials, data []byte) (string, error)
}

// StorageDefaults are the process-wide credentials used when the envelope
// does not override them.
type StorageDefaults struct {
	EndpointURL     string
	AccessKeyID     string
	SecretAccessKey string
}

// Outcome is what the pipeline hands back to the HTTP layer: the status and
// body to relay to the caller.
type Outcome struct {
	Status int
	Body   []byte
}

// Pipeline composes the four request stages: envelope/payload validation,
// image resolution, backend dispatch and result publication. One Pipeline is
// shared by all requests; per-request state stays on the stack.
type Pipeline struct {
	resolver   *ImageResolver
	dispatcher *Dispatcher
	publisher  Publisher
	storage    StorageDefaults
	logger     zerolog.Logger
}

func NewPipeline(resolver *ImageResolver, dispatcher *Dispatcher, publisher Publisher, storage StorageDefaults, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		resolver:   resolver,
		dispatcher: dispatcher,
		publisher:  publisher,
		storage:    storage,
		logger:     logger,
	}
}

// Handle runs one envelope through the full pipeline, stopping at the first
// failure. Validation failures come back as *ValidationError; everything
// else that goes wrong is a server-side failure. Backend responses,
// including non-2xx ones, pass through with their original status.
func (p *Pipeline) Handle(ctx context.Context, raw map[string]any) (*Outcome, error) {
	req, verr := ParseEnvelope(raw)
	if verr != nil {
		return nil, verr
	}
	payload, verr := ValidatePayload(req.Op, req.Payload)
	if verr != nil {
		return nil, verr
	}

	if err := p.resolver.Resolve(ctx, payload); err != nil {
		p.fail(req.Op, err, "image resolution failed")
		return nil, err
	}

	p.logger.Info().Str("method", req.Op.Method).Str("endpoint", req.Op.Endpoint).Msg("dispatching to backend")
	resp, err := p.dispatcher.Dispatch(ctx, req.Op, payload)
	if err != nil {
		p.fail(req.Op, err, "dispatch failed")
		return nil, err
	}

	if p.storageEndpoint(req) == "" || !resp.OK() {
		return &Outcome{Status: resp.StatusCode, Body: resp.Body}, nil
	}

	url, err := p.publish(ctx, req, resp)
	if err != nil {
		p.fail(req.Op, err, "result publication failed")
		return nil, err
	}
	body, err := json.Marshal(map[string]string{"image_url": url})
	if err != nil {
		return nil, err
	}
	return &Outcome{Status: http.StatusOK, Body: body}, nil
}

// storageEndpoint applies the credential precedence: envelope first,
// process configuration as fallback. An empty result disables publication
// and the backend body passes through untouched.
func (p *Pipeline) storageEndpoint(req *Request) string {
	if req.BucketEndpointURL != "" {
		return req.BucketEndpointURL
	}
	return p.storage.EndpointURL
}

func (p *Pipeline) fail(op Operation, err error, msg string) {
	p.logger.Error().Err(err).Str("method", op.Method).Str("endpoint", op.Endpoint).Msg(msg)
}

// publish decodes the first generated image and hands it to the publisher
// with request-scoped credentials, falling back to process configuration for
// anything the envelope left out.
func (p *Pipeline) publish(ctx context.Context, req *Request, resp *BackendResponse) (string, error) {
	decoded, err := resp.JSON()
	if err != nil {
		return "", &UploadError{Err: err}
	}
	images, ok := decoded["images"].([]any)
	if !ok || len(images) == 0 {
		return "", &UploadError{Err: errors.New("backend response carries no images")}
	}
	first, ok := images[0].(string)
	if !ok {
		return "", &UploadError{Err: errors.New("backend image is not a base64 string")}
	}
	data, err := base64.StdEncoding.DecodeString(first)
	if err != nil {
		return "", &UploadError{Err: fmt.Errorf("decoding image: %w", err)}
	}

	creds := upload.Credentials{
		EndpointURL:     p.storageEndpoint(req),
		AccessKeyID:     req.BucketAccessKeyID,
		SecretAccessKey: req.BucketSecretAccessKey,
	}
	if creds.AccessKeyID == "" {
		creds.AccessKeyID = p.storage.AccessKeyID
	}
	if creds.SecretAccessKey == "" {
		creds.SecretAccessKey = p.storage.SecretAccessKey
	}

	url, err := p.publisher.Publish(ctx, creds, data)
	if err != nil {
		return "", &UploadError{Err: err}
	}
	return url, nil
}
