package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrStreamingUnsupported is returned when the ResponseWriter cannot flush.
var ErrStreamingUnsupported = errors.New("sse: streaming unsupported")

// Encode renders event in SSE wire format.
func Encode(event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, fmt.Errorf("sse: encode %s: %w", event.Type, err)
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)), nil
}

// Writer streams events on a single HTTP response.
type Writer struct {
	w http.ResponseWriter
	f http.Flusher
}

// NewWriter sends the SSE headers and returns a Writer.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	f.Flush()
	return &Writer{w: w, f: f}, nil
}

// Send writes one event and flushes it.
func (sw *Writer) Send(eventType string, data any) error {
	raw, err := Encode(Event{Type: eventType, Data: data})
	if err != nil {
		return err
	}
	return sw.WriteRaw(raw)
}

// WriteRaw writes an already encoded event and flushes it.
func (sw *Writer) WriteRaw(raw []byte) error {
	if _, err := sw.w.Write(raw); err != nil {
		return err
	}
	sw.f.Flush()
	return nil
}

// ServeHTTP is the broadcast endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sw, err := NewWriter(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := sw.WriteRaw(msg); err != nil {
				return
			}
		}
	}
}
