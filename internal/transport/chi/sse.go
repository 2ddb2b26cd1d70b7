package chi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tytac116/PropMatch/internal/domain"
)

// doneMarker terminates every explanation stream, cached or generated.
const doneMarker = "data: [DONE]\n\n"

// streamWriter frames explanation events as data-only Server-Sent
// Events. Headers go out with the first frame, so request validation
// and lookup failures before that can still answer with plain JSON.
type streamWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newStreamWriter(w http.ResponseWriter, flusher http.Flusher) *streamWriter {
	return &streamWriter{w: w, flusher: flusher}
}

// Send writes one event as a `data: {json}` frame and flushes it, so
// chunks reach the client while the model is still talking.
func (sw *streamWriter) Send(ev domain.StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal stream event: %w", err)
	}

	sw.start()
	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write stream event: %w", err)
	}
	sw.flusher.Flush()
	return nil
}

// Done writes the [DONE] marker that tells the client the stream ended
// cleanly.
func (sw *streamWriter) Done() {
	sw.start()
	_, _ = io.WriteString(sw.w, doneMarker)
	sw.flusher.Flush()
}

func (sw *streamWriter) start() {
	if sw.started {
		return
	}
	h := sw.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	// Disables proxy buffering; without it nginx batches the chunks.
	h.Set("X-Accel-Buffering", "no")
	sw.w.WriteHeader(http.StatusOK)
	sw.started = true
}
