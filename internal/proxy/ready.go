package proxy

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// WaitForBackend blocks until the backend answers a GET on url, polling
// every 200ms. Any response counts as ready, even an error status; only
// connection failures keep the wait going. Progress is logged every 15th
// attempt to keep startup logs quiet.
func WaitForBackend(ctx context.Context, client *http.Client, url string, logger zerolog.Logger) error {
	attempts := 0
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		attempts++
		if attempts%15 == 0 {
			logger.Info().Int("attempts", attempts).Msg("backend not ready yet, retrying")
		}
		if err := sleepCtx(ctx, 200*time.Millisecond); err != nil {
			return err
		}
	}
}
