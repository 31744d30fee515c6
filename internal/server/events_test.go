package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturave/receipt-ingest/internal/pipeline"
)

type stubInvoker struct {
	events []pipeline.Event
	err    error
}

func (s *stubInvoker) Process(_ context.Context, ev pipeline.Event) error {
	s.events = append(s.events, ev)
	return s.err
}

func postEvents(t *testing.T, invoker *stubInvoker, body string) *httptest.ResponseRecorder {
	t.Helper()
	handler := NewEventHandler(nil, invoker, "receipts")
	router := NewRouter(nil, handler, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestHandleEventsSubscriptionValidation(t *testing.T) {
	invoker := &stubInvoker{}
	w := postEvents(t, invoker, `[{
		"id": "ev-1",
		"eventType": "Microsoft.EventGrid.SubscriptionValidationEvent",
		"data": {"validationCode": "code-123"}
	}]`)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "code-123", resp["validationResponse"])
	assert.Empty(t, invoker.events)
}

func TestHandleEventsBlobCreated(t *testing.T) {
	invoker := &stubInvoker{}
	w := postEvents(t, invoker, `[{
		"id": "ev-2",
		"eventType": "Microsoft.Storage.BlobCreated",
		"subject": "/blobServices/default/containers/receipts/blobs/u123/abcXY/receipt.png",
		"data": {"api": "PutBlob", "url": "https://acct.blob.core.windows.net/receipts/u123/abcXY/receipt.png"}
	}]`)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, invoker.events, 1)
	assert.Equal(t, "receipts/u123/abcXY/receipt.png", invoker.events[0].Path)
	assert.Equal(t, "https://acct.blob.core.windows.net/receipts/u123/abcXY/receipt.png", invoker.events[0].URL)
}

func TestHandleEventsOtherContainerIgnored(t *testing.T) {
	invoker := &stubInvoker{}
	w := postEvents(t, invoker, `[{
		"id": "ev-3",
		"eventType": "Microsoft.Storage.BlobCreated",
		"subject": "/blobServices/default/containers/exports/blobs/report.csv",
		"data": {"url": "https://acct.blob.core.windows.net/exports/report.csv"}
	}]`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, invoker.events)
}

func TestHandleEventsUnhandledTypeIgnored(t *testing.T) {
	invoker := &stubInvoker{}
	w := postEvents(t, invoker, `[{
		"id": "ev-4",
		"eventType": "Microsoft.Storage.BlobDeleted",
		"subject": "/blobServices/default/containers/receipts/blobs/u123/abcXY/receipt.png",
		"data": {}
	}]`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, invoker.events)
}

func TestHandleEventsInvocationFailureStillAcked(t *testing.T) {
	invoker := &stubInvoker{err: errors.New("analysis unavailable")}
	w := postEvents(t, invoker, `[{
		"id": "ev-5",
		"eventType": "Microsoft.Storage.BlobCreated",
		"subject": "/blobServices/default/containers/receipts/blobs/u123/abcXY/receipt.png",
		"data": {"url": "https://acct.blob.core.windows.net/receipts/u123/abcXY/receipt.png"}
	}]`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, invoker.events, 1)
}

func TestHandleEventsBadJSON(t *testing.T) {
	invoker := &stubInvoker{}
	w := postEvents(t, invoker, `{"not": "an array"`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, invoker.events)
}

func TestBlobPathFromSubject(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		want    string
		ok      bool
	}{
		{
			name:    "standard subject",
			subject: "/blobServices/default/containers/receipts/blobs/u1/ab/r.png",
			want:    "receipts/u1/ab/r.png",
			ok:      true,
		},
		{
			name:    "no blobs segment",
			subject: "/blobServices/default/containers/receipts",
			ok:      false,
		},
		{
			name:    "empty subject",
			subject: "",
			ok:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := blobPathFromSubject(tt.subject)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHealthzWithoutDatabase(t *testing.T) {
	router := NewRouter(nil, NewEventHandler(nil, &stubInvoker{}, "receipts"), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	router := NewRouter(nil, NewEventHandler(nil, &stubInvoker{}, "receipts"), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}
