package router

import (
	"encoding/json"
	"net/http"
)

// Result is what a controller handler returns: a status code plus a body
// shaped one of a few ways (spec.md §4.6 step 10 "result normalization").
type Result struct {
	status   int
	data     any
	message  string
	metadata map[string]any
	raw      []byte
	noBody   bool
}

// OK wraps data in the generated-CRUD success envelope
// {success, message, data, metadata} at 200.
func OK(data any) Result {
	return Result{status: http.StatusOK, data: data, message: "ok"}
}

// Created is OK at 201, for successful create operations.
func Created(data any) Result {
	return Result{status: http.StatusCreated, data: data, message: "created"}
}

// NoContent returns an empty 204 body. The generated delete operation does
// not use it; it answers 200 through OK.
func NoContent() Result {
	return Result{status: http.StatusNoContent, noBody: true}
}

// WithMetadata attaches pagination/batch metadata to the envelope.
func (res Result) WithMetadata(metadata map[string]any) Result {
	res.metadata = metadata
	return res
}

// WithMessage overrides the envelope's message field.
func (res Result) WithMessage(message string) Result {
	res.message = message
	return res
}

// Status sets an arbitrary status code for the result.
func Status(status int, data any) Result {
	return Result{status: status, data: data, message: "ok"}
}

// Raw writes body verbatim with the given content type, bypassing the JSON
// envelope entirely — for handlers that need to stream something other
// than the generated CRUD shape.
func Raw(status int, contentType string, body []byte) Result {
	return Result{status: status, raw: body, message: contentType}
}

func (res Result) writeTo(w http.ResponseWriter) {
	if res.raw != nil {
		w.Header().Set("Content-Type", res.message)
		w.WriteHeader(res.status)
		_, _ = w.Write(res.raw)
		return
	}
	if res.noBody {
		w.WriteHeader(res.status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":  res.status < 400,
		"message":  res.message,
		"data":     res.data,
		"metadata": res.metadata,
	})
}
