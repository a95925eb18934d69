package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var (
	ErrInvalidURL = errors.New("invalid media url")
	ErrFetch      = errors.New("media download failed")
)

type FetchOptions struct {
	Limit      int64
	MaxElapsed time.Duration
	// InitialInterval overrides the first backoff delay. Zero keeps the
	// library default.
	InitialInterval time.Duration
}

// Fetch downloads media from a URL. Transport errors and 5xx responses are
// retried with exponential backoff; 4xx and oversize bodies are not.
func Fetch(ctx context.Context, client *http.Client, rawURL string, opts FetchOptions) (Blob, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return Blob{}, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	if client == nil {
		client = http.DefaultClient
	}

	var blob Blob
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("media server error: %s", resp.Status)
		}
		if resp.StatusCode >= 300 {
			return backoff.Permanent(fmt.Errorf("download failed: %s", resp.Status))
		}
		if err := CheckSize(resp.ContentLength, opts.Limit); err != nil {
			return backoff.Permanent(err)
		}
		data, err := readLimited(resp.Body, opts.Limit)
		if err != nil {
			var tooLarge *TooLargeError
			if errors.As(err, &tooLarge) {
				return backoff.Permanent(err)
			}
			return err
		}
		blob = New(fileName(u), resp.Header.Get("Content-Type"), data)
		return nil
	}

	b := backoff.NewExponentialBackOff()
	if opts.MaxElapsed > 0 {
		b.MaxElapsedTime = opts.MaxElapsed
	}
	if opts.InitialInterval > 0 {
		b.InitialInterval = opts.InitialInterval
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if errors.Is(err, ErrPayloadTooLarge) {
			return Blob{}, err
		}
		return Blob{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if err := CheckFormat(blob.Name, blob.MIMEType); err != nil {
		return Blob{}, err
	}
	return blob, nil
}

func fileName(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return "media"
	}
	return name
}
