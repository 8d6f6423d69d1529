package core

import (
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"time"
)

// Observation records the outcome of probing a single candidate. It is
// created exactly once per dispatched candidate (or terminal failure)
// and never mutated afterwards.
type Observation struct {
	Fingerprint string        `json:"fingerprint"`
	URL         string        `json:"url"`
	Origin      Origin        `json:"origin"`
	Depth       int           `json:"depth"`
	StatusCode  int           `json:"status"`
	Latency     time.Duration `json:"latency_ns"`
	ContentType string        `json:"content_type,omitempty"`
	Signature   string        `json:"signature,omitempty"`
	Length      int           `json:"length"`
	Timestamp   time.Time     `json:"timestamp"`
	Failure     string        `json:"failure,omitempty"`

	// Body and Headers are carried for downstream consumers (extractor,
	// analysis sinks); they are read-only by convention.
	Body    []byte      `json:"-"`
	Headers http.Header `json:"-"`
}

// Hit reports whether the probe produced a positive existence signal.
func (o Observation) Hit() bool {
	return o.StatusCode >= 200 && o.StatusCode < 400
}

// StatusClass buckets the status code: "2xx", "3xx", ... , or "err" for
// transport failures.
func (o Observation) StatusClass() string {
	switch {
	case o.Failure != "" || o.StatusCode <= 0:
		return "err"
	case o.StatusCode < 200:
		return "1xx"
	case o.StatusCode < 300:
		return "2xx"
	case o.StatusCode < 400:
		return "3xx"
	case o.StatusCode < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// ContentSignature hashes a response body for duplicate-content checks.
func ContentSignature(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	sum := sha1.Sum(body)
	return hex.EncodeToString(sum[:])
}

// ObservationSink is a one-way consumer of the observation stream.
// Sinks never feed candidates back into the store.
type ObservationSink interface {
	Consume(Observation)
}
