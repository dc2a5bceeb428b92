package circuitbreaker

import (
	"net/http"
)

// Transport is an http.RoundTripper that routes requests through a circuit breaker.
// Transport errors and 5xx responses count as failures; 4xx do not trip the breaker.
type Transport struct {
	base http.RoundTripper
	cb   *CircuitBreaker
}

// NewTransport wraps base (http.DefaultTransport when nil) with cb.
func NewTransport(base http.RoundTripper, cb *CircuitBreaker) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base, cb: cb}
}

// NewHTTPClient returns a client whose transport is guarded by cb.
// Per-call deadlines are expected to come from the request context.
func NewHTTPClient(cb *CircuitBreaker) *http.Client {
	return &http.Client{Transport: NewTransport(nil, cb)}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	err := t.cb.Execute(req.Context(), func() error {
		var err2 error
		resp, err2 = t.base.RoundTrip(req)
		if err2 != nil {
			return err2
		}
		if resp.StatusCode >= 500 {
			return &httpStatusError{code: resp.StatusCode}
		}
		return nil
	})

	recordRequest(t.cb.name, t.cb.State(), err == nil)

	// 5xx still hands the response to the caller so it can read the error body
	if _, ok := err.(*httpStatusError); ok {
		return resp, nil
	}
	if err != nil && resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// httpStatusError marks 5xx responses for breaker accounting
type httpStatusError struct{ code int }

func (e *httpStatusError) Error() string { return http.StatusText(e.code) }
