package proxy

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"time"
)

// imageSlot is one replaceable image reference inside a payload: the current
// value plus a setter that writes the fetched encoding back in place.
type imageSlot struct {
	value string
	set   func(encoded string)
}

// imageField locates the slots for one image-bearing payload key. The
// resolver walks these descriptors in a fixed order; adding a new
// image-bearing field is a new entry here, not new traversal code.
type imageField struct {
	name  string
	slots func(payload map[string]any) []imageSlot
}

var imageFields = []imageField{
	{
		name: "init_images",
		slots: func(payload map[string]any) []imageSlot {
			list, ok := payload["init_images"].([]any)
			if !ok {
				return nil
			}
			var out []imageSlot
			for i, el := range list {
				i := i
				s, ok := el.(string)
				if !ok {
					continue
				}
				out = append(out, imageSlot{value: s, set: func(encoded string) { list[i] = encoded }})
			}
			return out
		},
	},
	{
		name: "mask",
		slots: func(payload map[string]any) []imageSlot {
			s, ok := payload["mask"].(string)
			if !ok {
				return nil
			}
			return []imageSlot{{value: s, set: func(encoded string) { payload["mask"] = encoded }}}
		},
	},
	{
		name: "alwayson_scripts.reactor.args[0]",
		slots: func(payload map[string]any) []imageSlot {
			args, ok := scriptArgs(payload, "reactor")
			if !ok || len(args) == 0 {
				return nil
			}
			s, ok := args[0].(string)
			if !ok {
				return nil
			}
			return []imageSlot{{value: s, set: func(encoded string) { args[0] = encoded }}}
		},
	},
	{
		name: "alwayson_scripts.controlnet.args[0].input_image",
		slots: func(payload map[string]any) []imageSlot {
			args, ok := scriptArgs(payload, "controlnet")
			if !ok || len(args) == 0 {
				return nil
			}
			unit, ok := args[0].(map[string]any)
			if !ok {
				return nil
			}
			s, ok := unit["input_image"].(string)
			if !ok {
				return nil
			}
			return []imageSlot{{value: s, set: func(encoded string) { unit["input_image"] = encoded }}}
		},
	},
}

func scriptArgs(payload map[string]any, script string) ([]any, bool) {
	scripts, ok := payload["alwayson_scripts"].(map[string]any)
	if !ok {
		return nil, false
	}
	entry, ok := scripts[script].(map[string]any)
	if !ok {
		return nil, false
	}
	args, ok := entry["args"].([]any)
	return args, ok
}

func isRemoteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// ImageResolver replaces remote image references in a payload with the
// base64 encoding of the fetched bytes. Values that are not remote URLs are
// assumed to be inline already and left untouched.
type ImageResolver struct {
	client *http.Client
}

// NewImageResolver wraps client for image fetches. A nil client gets a
// default with a 60 second timeout.
func NewImageResolver(client *http.Client) *ImageResolver {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &ImageResolver{client: client}
}

// Resolve mutates payload in place, fetching every remote image reference in
// descriptor order. The first failed fetch aborts the whole resolution; no
// partial substitution is reported as success.
func (r *ImageResolver) Resolve(ctx context.Context, payload map[string]any) error {
	for _, field := range imageFields {
		for _, slot := range field.slots(payload) {
			if !isRemoteURL(slot.value) {
				continue
			}
			encoded, err := r.fetch(ctx, slot.value)
			if err != nil {
				return err
			}
			slot.set(encoded)
		}
	}
	return nil
}

func (r *ImageResolver) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &ImageFetchError{URL: url, Err: err}
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", &ImageFetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ImageFetchError{URL: url, Status: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ImageFetchError{URL: url, Err: err}
	}
	return base64.StdEncoding.EncodeToString(body), nil
}
