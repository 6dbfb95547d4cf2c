package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/zatekoja/roadsideassist/internal/domain/providers"
	"github.com/zatekoja/roadsideassist/internal/infrastructure/observability"
)

// PartnerStreamHandler streams partner events to the partner app over
// Server-Sent Events, so a shop sees its approval or location change live.
type PartnerStreamHandler struct {
	eventBus  providers.EventBus
	heartbeat time.Duration
}

// NewPartnerStreamHandler creates a new stream handler
func NewPartnerStreamHandler(eventBus providers.EventBus) *PartnerStreamHandler {
	return &PartnerStreamHandler{
		eventBus:  eventBus,
		heartbeat: 30 * time.Second,
	}
}

// StreamPartnerEvents handles GET /api/partners/{id}/events
func (h *PartnerStreamHandler) StreamPartnerEvents(w http.ResponseWriter, r *http.Request) {
	partnerID := r.PathValue("id")
	if partnerID == "" {
		respondWithError(w, http.StatusBadRequest, "partner ID is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	logger := observability.LoggerFromContext(r.Context())
	channel := providers.GetPartnerChannel(partnerID)

	events, err := h.eventBus.Subscribe(r.Context(), channel)
	if err != nil {
		logger.Error().Err(err).Str("channel", channel).Msg("Failed to subscribe to partner channel")
		respondWithError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}

	// streams outlive the server write timeout
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		logger.Debug().Err(err).Str("channel", channel).Msg("Could not clear write deadline for event stream")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	writeSSE(w, "connected", map[string]interface{}{
		"partner_id": partnerID,
		"timestamp":  time.Now().UTC(),
	})
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Debug().Str("partner_id", partnerID).Msg("Partner stream closed")
			return
		case <-ticker.C:
			writeSSE(w, "heartbeat", map[string]interface{}{"timestamp": time.Now().UTC()})
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			writeSSE(w, string(event.EventType), event)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, eventType string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
}
