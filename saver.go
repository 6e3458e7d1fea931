package etagcache

import "net/http"

// responseTap is a wrapper around http.ResponseWriter that remembers the
// response status code for the recorder.
//
// One tap is allocated per request and discarded at request end: the
// middleware instance is shared by all in-flight requests, so captured
// response state must never live on it.
type responseTap struct {
	rw          http.ResponseWriter
	status      int
	wroteHeader bool
}

func newResponseTap(w http.ResponseWriter) *responseTap {
	return &responseTap{rw: w}
}

// Implementation of http.ResponseWriter
func (t *responseTap) Header() http.Header {
	return t.rw.Header()
}

// Implementation of http.ResponseWriter
func (t *responseTap) WriteHeader(statusCode int) {
	if !t.wroteHeader {
		t.wroteHeader = true
		t.status = statusCode
	}
	t.rw.WriteHeader(statusCode)
}

// Implementation of http.ResponseWriter
func (t *responseTap) Write(b []byte) (int, error) {
	// writing implies a 200 if no header was written
	if !t.wroteHeader {
		t.WriteHeader(http.StatusOK)
	}
	return t.rw.Write(b)
}

// StatusCode returns the status code of the response.
func (t *responseTap) StatusCode() int {
	return t.status
}
