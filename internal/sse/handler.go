package sse

import (
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// writeTimeout bounds each frame write so a stalled reader cannot pin the
// stream goroutine.
const writeTimeout = 60 * time.Second

// OwnerResolver returns the authenticated owner of a request, or "" when
// the request carries no valid credentials.
type OwnerResolver func(r *http.Request) string

// Handler streams one owner's favorites events.
type Handler struct {
	manager *Manager
	logger  *slog.Logger
	ownerOf OwnerResolver
}

// NewHandler creates a Handler that serves streams registered with manager.
func NewHandler(manager *Manager, logger *slog.Logger, ownerOf OwnerResolver) *Handler {
	return &Handler{manager: manager, logger: logger, ownerOf: ownerOf}
}

// ServeHTTP opens a stream and forwards the owner's events until the
// client goes away or the manager closes the stream.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ownerID := h.ownerOf(r)
	if ownerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx := r.Context()
	if ctx.Err() != nil {
		return
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		h.logger.Error("streaming unsupported by response writer", slog.String("error", err.Error()))
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	client, err := h.manager.Connect(ownerID)
	if err != nil {
		h.logger.Error("failed to open event stream", slog.String("error", err.Error()))
		http.Error(w, "Failed to establish connection", http.StatusInternalServerError)
		return
	}
	defer h.manager.Disconnect(client.ID)

	log := h.logger.With(slog.String("client_id", client.ID), slog.String("owner_id", ownerID))

	if err := h.writeFrame(w, rc, "connected", map[string]string{"client_id": client.ID}); err != nil {
		log.Warn("failed to send connected frame", slog.String("error", err.Error()))
		return
	}

	for {
		select {
		case event, ok := <-client.EventChan:
			if !ok {
				return
			}
			if err := h.writeFrame(w, rc, string(event.Type), event); err != nil {
				log.Info("client went away mid-write")
				return
			}

		case <-client.Done:
			return

		case <-ctx.Done():
			return
		}
	}
}

// writeFrame writes one "event:/data:" frame and flushes it.
func (h *Handler) writeFrame(w http.ResponseWriter, rc *http.ResponseController, name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", name, err)
	}

	// Not every ResponseWriter supports deadlines.
	if err := rc.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.Debug("write deadline not set", slog.String("error", err.Error()))
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
		return err
	}
	return rc.Flush()
}
