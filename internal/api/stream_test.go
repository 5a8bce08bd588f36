package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drug-repurposing-engine/internal/service"
)

func dialProgress(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/progress"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) progressFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var frame progressFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestProgressSocketBroadcast(t *testing.T) {
	hub := NewProgressHub(testLogger())
	s := newTestServer(t, parkinsonGateway(), func(d *Deps) {
		d.Hub = hub
	})
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	conn := dialProgress(t, ts)
	defer conn.Close()

	hub.Publish(service.ProgressEvent{
		Stage:   service.StageScoring,
		Message: "Scoring 57 candidates",
		Disease: "Parkinson disease",
		Count:   57,
		At:      time.Now().UTC(),
	})

	frame := readFrame(t, conn)
	assert.Equal(t, "progress", frame.Type)
	assert.Equal(t, service.StageScoring, frame.Stage)
	assert.Equal(t, "Parkinson disease", frame.Disease)
	assert.Equal(t, 57, frame.Processed)
	assert.False(t, frame.Timestamp.IsZero())
}

func TestProgressSocketReplaysLastFrame(t *testing.T) {
	hub := NewProgressHub(testLogger())
	s := newTestServer(t, parkinsonGateway(), func(d *Deps) {
		d.Hub = hub
	})
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	hub.Publish(service.ProgressEvent{
		Stage:   service.StageComplete,
		Message: "Analysis complete",
		Disease: "Parkinson disease",
		Done:    true,
	})

	// A client connecting after the run still sees where things ended.
	conn := dialProgress(t, ts)
	defer conn.Close()

	frame := readFrame(t, conn)
	assert.Equal(t, "complete", frame.Type)
	assert.Equal(t, service.StageComplete, frame.Stage)
}

func TestProgressHubFrameTypes(t *testing.T) {
	hub := NewProgressHub(testLogger())

	hub.Publish(service.ProgressEvent{Stage: service.StageResolving})
	assert.Equal(t, "progress", hub.LastStatus().Type)

	hub.Publish(service.ProgressEvent{Stage: service.StageFailed, Done: true})
	assert.Equal(t, "failed", hub.LastStatus().Type)

	hub.Publish(service.ProgressEvent{Stage: service.StageValidated, Done: true})
	assert.Equal(t, "complete", hub.LastStatus().Type)
}

func TestProgressSocketDisabled(t *testing.T) {
	s := newTestServer(t, parkinsonGateway(), nil)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/ws/progress")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
