package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/redalert-watch/warningd/internal/presenter"
	"github.com/redalert-watch/warningd/internal/store"
)

// storageChange is one key transition as delivered on the event stream.
// Values are the stored bytes rendered as strings; a missing field means
// the key was absent on that side of the write.
type storageChange struct {
	Key      string `json:"key"`
	OldValue string `json:"oldValue,omitempty"`
	NewValue string `json:"newValue,omitempty"`
}

// getEvents streams surface events and store change batches to the popup
// UI as server-sent events. The stream stays open until the client
// disconnects.
func (h *Handler) getEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	surfaceEvents, cancelSurface := h.surface.Subscribe()
	defer cancelSurface()

	storeChanges, cancelStore := h.store.Watch()
	defer cancelStore()

	// Seed the session with the current icon so a freshly opened popup
	// renders the right state before the next transition.
	h.writeFrame(w, flusher, "surface", presenter.Event{
		Kind: presenter.EventIcon,
		Icon: h.surface.Icon().String(),
	})

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-surfaceEvents:
			if !open {
				return
			}
			h.writeFrame(w, flusher, "surface", ev)
		case batch, open := <-storeChanges:
			if !open {
				return
			}
			h.writeFrame(w, flusher, "storage", toStorageChanges(batch))
		}
	}
}

func toStorageChanges(batch []store.Change) []storageChange {
	out := make([]storageChange, 0, len(batch))
	for _, c := range batch {
		out = append(out, storageChange{
			Key:      c.Key,
			OldValue: string(c.OldValue),
			NewValue: string(c.NewValue),
		})
	}
	return out
}

func (h *Handler) writeFrame(w http.ResponseWriter, flusher http.Flusher, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("Failed to encode event frame", zap.Error(err))
		return
	}

	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}
