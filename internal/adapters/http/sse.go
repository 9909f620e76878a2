package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// importStream pushes the site's import board every time it changes. Each
// connection holds one cache subscription, released when the client leaves.
func (rt *Router) importStream(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathID(r, "site_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming is not supported by response writer"})
		return
	}

	watch, err := rt.monitor.Watch(r.Context(), siteID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	defer watch.Close()
	if rt.metrics != nil {
		defer rt.metrics.StreamOpened(serviceName, "imports")()
	}

	streamEvents(w, r, flusher, rt.opts.StreamKeepAlive, "board", watch.Boards(), func(err error) {
		rt.logger.Debug("import_stream_write_failed", "site_id", siteID, "error", err)
	})
}

// mapStream pushes the site's establishments map while the client is
// connected. Establishments are polled at the map interval and refetched as
// soon as an import completes.
func (rt *Router) mapStream(w http.ResponseWriter, r *http.Request) {
	siteID, err := pathID(r, "site_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming is not supported by response writer"})
		return
	}

	watch, err := rt.views.WatchMap(r.Context(), siteID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	defer watch.Close()
	if rt.metrics != nil {
		defer rt.metrics.StreamOpened(serviceName, "map")()
	}

	streamEvents(w, r, flusher, rt.opts.StreamKeepAlive, "map", watch.Views(), func(err error) {
		rt.logger.Debug("map_stream_write_failed", "site_id", siteID, "error", err)
	})
}

// streamEvents writes every value of updates as an event until the client
// leaves or updates is closed.
func streamEvents[T any](w http.ResponseWriter, r *http.Request, flusher http.Flusher, keepAlivePeriod time.Duration, event string, updates <-chan T, onWriteErr func(error)) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(keepAlivePeriod)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case payload, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEvent(w, event, payload); err != nil {
				onWriteErr(err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
