package middleware

import "net/http"

// hookWriter runs a hook once, right before the response header is written.
type hookWriter struct {
	http.ResponseWriter
	before func(http.ResponseWriter)
	wrote  bool
}

func newHookWriter(w http.ResponseWriter, before func(http.ResponseWriter)) *hookWriter {
	return &hookWriter{ResponseWriter: w, before: before}
}

func (hw *hookWriter) fire() {
	if hw.wrote {
		return
	}
	hw.wrote = true
	if hw.before != nil {
		hw.before(hw.ResponseWriter)
	}
}

func (hw *hookWriter) WriteHeader(status int) {
	hw.fire()
	hw.ResponseWriter.WriteHeader(status)
}

func (hw *hookWriter) Write(b []byte) (int, error) {
	hw.fire()
	return hw.ResponseWriter.Write(b)
}

func (hw *hookWriter) Flush() {
	hw.fire()
	if f, ok := hw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (hw *hookWriter) Unwrap() http.ResponseWriter { return hw.ResponseWriter }
