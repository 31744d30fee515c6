package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/facturave/receipt-ingest/internal/pipeline"
)

// Event Grid event types handled by this endpoint.
const (
	eventTypeSubscriptionValidation = "Microsoft.EventGrid.SubscriptionValidationEvent"
	eventTypeBlobCreated            = "Microsoft.Storage.BlobCreated"
)

// EventGridEvent is the delivery envelope posted by Event Grid.
type EventGridEvent struct {
	ID        string          `json:"id"`
	Topic     string          `json:"topic"`
	Subject   string          `json:"subject"`
	EventType string          `json:"eventType"`
	EventTime time.Time       `json:"eventTime"`
	Data      json.RawMessage `json:"data"`
}

type subscriptionValidationData struct {
	ValidationCode string `json:"validationCode"`
}

type blobCreatedData struct {
	API           string `json:"api"`
	URL           string `json:"url"`
	ContentLength int64  `json:"contentLength"`
}

// Invoker runs one pipeline invocation for a created blob.
type Invoker interface {
	Process(ctx context.Context, ev pipeline.Event) error
}

// EventHandler receives Event Grid deliveries for the configured container.
type EventHandler struct {
	logger    *slog.Logger
	processor Invoker
	container string
}

func NewEventHandler(logger *slog.Logger, processor Invoker, container string) *EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHandler{logger: logger, processor: processor, container: container}
}

// HandleEvents processes one Event Grid delivery. Blob events are handled
// synchronously; an invocation failure is logged and dropped, and the
// delivery is acknowledged either way so the event source does not retry.
func (h *EventHandler) HandleEvents(c *gin.Context) {
	var events []EventGridEvent
	if err := c.ShouldBindJSON(&events); err != nil {
		h.logger.Warn("events.decode_failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event payload"})
		return
	}

	for _, ev := range events {
		switch ev.EventType {
		case eventTypeSubscriptionValidation:
			var data subscriptionValidationData
			if err := json.Unmarshal(ev.Data, &data); err != nil {
				h.logger.Warn("events.validation_decode_failed", "error", err)
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid validation event"})
				return
			}
			h.logger.Info("events.subscription_validated", "event_id", ev.ID)
			c.JSON(http.StatusOK, gin.H{"validationResponse": data.ValidationCode})
			return

		case eventTypeBlobCreated:
			h.handleBlobCreated(c.Request.Context(), ev)

		default:
			h.logger.Debug("events.unhandled_type_ignored", "event_type", ev.EventType)
		}
	}

	c.Status(http.StatusOK)
}

func (h *EventHandler) handleBlobCreated(ctx context.Context, ev EventGridEvent) {
	path, ok := blobPathFromSubject(ev.Subject)
	if !ok {
		h.logger.Warn("events.bad_subject", "subject", ev.Subject)
		return
	}
	if container, _, _ := strings.Cut(path, "/"); container != h.container {
		h.logger.Debug("events.other_container_ignored", "path", path)
		return
	}

	var data blobCreatedData
	if err := json.Unmarshal(ev.Data, &data); err != nil {
		h.logger.Warn("events.blob_data_decode_failed", "event_id", ev.ID, "error", err)
		return
	}

	// Errors are already logged by the processor; the delivery is acked
	// regardless because failed invocations are abandoned, not retried.
	_ = h.processor.Process(ctx, pipeline.Event{Path: path, URL: data.URL})
}

// blobPathFromSubject turns an Event Grid storage subject, e.g.
// /blobServices/default/containers/receipts/blobs/u1/ab/r.png,
// into a container-prefixed blob path: receipts/u1/ab/r.png.
func blobPathFromSubject(subject string) (string, bool) {
	const (
		containersMarker = "/containers/"
		blobsMarker      = "/blobs/"
	)
	_, rest, ok := strings.Cut(subject, containersMarker)
	if !ok {
		return "", false
	}
	container, blobPath, ok := strings.Cut(rest, blobsMarker)
	if !ok || container == "" || blobPath == "" {
		return "", false
	}
	return container + "/" + blobPath, true
}
