package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/tidwall/sjson"
)

type ctxKey int

const (
	extraHeadersKey ctxKey = iota
	extraBodyKey
)

// WithExtraHeaders attaches headers to every request issued with ctx.
// They are applied last and may override backend defaults.
func WithExtraHeaders(ctx context.Context, headers map[string]string) context.Context {
	if len(headers) == 0 {
		return ctx
	}
	return context.WithValue(ctx, extraHeadersKey, headers)
}

// WithExtraBody attaches top-level JSON fields (e.g. "guided_choice") that are
// merged into the body of every request issued with ctx.
func WithExtraBody(ctx context.Context, body map[string]any) context.Context {
	if len(body) == 0 {
		return ctx
	}
	return context.WithValue(ctx, extraBodyKey, body)
}

// transport rewrites outgoing requests: authorization for the gateway and
// per-call extras for every backend.
type transport struct {
	base http.RoundTripper

	// overrideAuth makes authorization authoritative: it replaces whatever the
	// SDK set, and an empty value removes the header altogether.
	overrideAuth  bool
	authorization string
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	req = req.Clone(ctx)

	if t.overrideAuth {
		req.Header.Del("Authorization")
		if t.authorization != "" {
			req.Header.Set("Authorization", t.authorization)
		}
	}

	if body, ok := ctx.Value(extraBodyKey).(map[string]any); ok && req.Body != nil {
		if err := mergeBody(req, body); err != nil {
			return nil, err
		}
	}

	if headers, ok := ctx.Value(extraHeadersKey).(map[string]string); ok {
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}

	return t.base.RoundTrip(req)
}

func mergeBody(req *http.Request, extra map[string]any) error {
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	_ = req.Body.Close()

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		raw, err = sjson.SetBytes(raw, sjsonKey(k), extra[k])
		if err != nil {
			return fmt.Errorf("merge body field %q: %w", k, err)
		}
	}

	req.Body = io.NopCloser(bytes.NewReader(raw))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(raw)), nil
	}
	req.ContentLength = int64(len(raw))
	return nil
}

// sjsonKey escapes path syntax so extra keys are always top-level fields.
func sjsonKey(k string) string {
	var buf bytes.Buffer
	for _, r := range k {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', ':':
			buf.WriteByte('\\')
		}
		buf.WriteRune(r)
	}
	return buf.String()
}
