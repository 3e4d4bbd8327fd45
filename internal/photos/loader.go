package photos

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// MaxPhotoBytes caps a single download.
const MaxPhotoBytes = 20 << 20

// HTTPLoader fetches photos and checks that the body decodes as an image.
// The session's bearer token goes only to the backend's own origin; photos
// on other hosts (object storage, links added by operators) are fetched
// anonymously.
type HTTPLoader struct {
	client  *http.Client
	baseURL *url.URL
	token   string
}

// NewHTTPLoader resolves relative photo URLs against server (scheme and
// host of the backend). A nil client uses http.DefaultClient.
func NewHTTPLoader(client *http.Client, server, token string) (*HTTPLoader, error) {
	if client == nil {
		client = http.DefaultClient
	}
	base, err := url.Parse(strings.TrimRight(server, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("photos: invalid server url %q: %w", server, err)
	}
	return &HTTPLoader{client: client, baseURL: base, token: token}, nil
}

// Load implements Loader.
func (l *HTTPLoader) Load(ctx context.Context, raw string) (*Image, error) {
	u, err := l.resolve(raw)
	if err != nil {
		return nil, err
	}
	target := u.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("photos: build request: %w", err)
	}
	if l.token != "" && l.sameOrigin(u) {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("photos: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("photos: %s returned %d", target, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxPhotoBytes+1))
	if err != nil {
		return nil, fmt.Errorf("photos: read body: %w", err)
	}
	if len(data) > MaxPhotoBytes {
		return nil, fmt.Errorf("photos: %s is larger than %d bytes", target, MaxPhotoBytes)
	}
	return Decode(data)
}

func (l *HTTPLoader) resolve(raw string) (*url.URL, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("photos: invalid photo url %q: %w", raw, err)
	}
	return l.baseURL.ResolveReference(ref), nil
}

func (l *HTTPLoader) sameOrigin(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, l.baseURL.Scheme) && strings.EqualFold(u.Host, l.baseURL.Host)
}

// Decode reads the image header of data.
func Decode(data []byte) (*Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("photos: not an image: %w", err)
	}
	return &Image{Format: format, Width: cfg.Width, Height: cfg.Height, Data: data}, nil
}
