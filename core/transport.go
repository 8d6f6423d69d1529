package core

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Response is the transport-level answer to a single probe.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Transport executes a single authorized probe. Implementations own
// connection pooling, TLS and redirects; the engine only calls Execute
// after the evasion controller clears the dispatch.
type Transport interface {
	Execute(ctx context.Context, method, rawURL string, headers map[string]string) (*Response, error)
}

const maxBodyBytes = 2 << 20 // oversized bodies only slow analysis down

type httpTransport struct {
	client *http.Client
}

// NewHTTPTransport builds the default transport. An empty proxy means
// direct connections; redirects within the target host are followed.
func NewHTTPTransport(timeout time.Duration, proxy string, followRedirects bool) (Transport, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	inner := http.DefaultTransport.(*http.Transport).Clone()
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, err
		}
		inner.Proxy = http.ProxyURL(proxyURL)
	}

	client := &http.Client{
		Timeout:   timeout,
		Transport: inner,
	}
	if !followRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return &httpTransport{client: client}, nil
}

func (t *httpTransport) Execute(ctx context.Context, method, rawURL string, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	body = decodeBody(body, resp.Header.Get("Content-Encoding"))

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}

// decodeBody undoes the content coding the persona's explicit
// Accept-Encoding header negotiated. Setting that header yourself turns
// off net/http's transparent gzip handling, so downstream parsers would
// otherwise see compressed bytes. Undecodable bodies pass through raw.
func decodeBody(raw []byte, encoding string) []byte {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip":
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return raw
		}
		defer zr.Close()
		decoded, err := io.ReadAll(io.LimitReader(zr, maxBodyBytes))
		if err != nil && len(decoded) == 0 {
			return raw
		}
		return decoded
	case "deflate":
		// Servers send either the zlib wrapping the RFC asks for or a
		// bare flate stream; accept both.
		if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			decoded, err := io.ReadAll(io.LimitReader(zr, maxBodyBytes))
			zr.Close()
			if err == nil || len(decoded) > 0 {
				return decoded
			}
		}
		fr := flate.NewReader(bytes.NewReader(raw))
		defer fr.Close()
		if decoded, err := io.ReadAll(io.LimitReader(fr, maxBodyBytes)); err == nil || len(decoded) > 0 {
			return decoded
		}
		return raw
	}
	return raw
}
