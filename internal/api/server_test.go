package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"captionsync/internal/pipeline"
	"captionsync/internal/transcript"
	"captionsync/internal/transcriptcache"
)

type fakePipeline struct {
	requests []pipeline.Request
	result   pipeline.Result
	cleared  bool
	cache    *transcriptcache.Cache
}

func (f *fakePipeline) Run(_ context.Context, req pipeline.Request) pipeline.Result {
	f.requests = append(f.requests, req)
	return f.result
}

func (f *fakePipeline) CacheStats() transcriptcache.Stats {
	return f.cache.Stats()
}

func (f *fakePipeline) ClearCache() pipeline.ClearResult {
	f.cleared = true
	return pipeline.ClearResult{Success: true}
}

var sampleTranscript = transcript.Transcript{
	Text:     "a b",
	Language: "en",
	Segments: []transcript.Segment{
		{ID: 0, Start: 0, End: 2, Text: "a"},
		{ID: 1, Start: 3, End: 5, Text: "b"},
	},
}

func newTestServer(t *testing.T) (*Server, *fakePipeline, string) {
	t.Helper()
	cache := transcriptcache.New(transcriptcache.NewMemoryStore(), nil)
	fp := transcriptcache.Fingerprint([]byte("video"))
	require.NoError(t, cache.Put(fp, "clip.mp4", sampleTranscript, transcript.NewMetadata(5, 100, 10, false)))

	fake := &fakePipeline{cache: cache}
	srv, err := NewServer(fake, cache, Options{AllowedOrigins: []string{"http://player.local"}}, nil)
	require.NoError(t, err)
	return srv, fake, fp
}

func TestTranscribeUpload(t *testing.T) {
	srv, fake, _ := newTestServer(t)
	fake.result = pipeline.Result{Success: true, Transcript: &sampleTranscript}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "talk.mp4")
	require.NoError(t, err)
	_, _ = part.Write([]byte("video bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/transcriptions", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, fake.requests, 1)
	assert.Equal(t, "talk.mp4", fake.requests[0].Filename)
	assert.Equal(t, []byte("video bytes"), fake.requests[0].Data)

	var got pipeline.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Success)
	assert.Len(t, got.Transcript.Segments, 2)
}

func TestTranscribeFailureKeepsPipelineShape(t *testing.T) {
	srv, fake, _ := newTestServer(t)
	fake.result = pipeline.Result{Error: "probe error: unreadable"}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "bad.mp4")
	_, _ = part.Write([]byte("x"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/transcriptions", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"probe error: unreadable"}`, rec.Body.String())
}

func TestTranscribeRequiresFile(t *testing.T) {
	srv, fake, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/transcriptions", strings.NewReader("nope"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, fake.requests)
}

func TestCacheEndpoints(t *testing.T) {
	srv, fake, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cache", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats transcriptcache.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalEntries)
	assert.Equal(t, "clip.mp4", stats.Entries[0].Filename)
	assert.Equal(t, 2, stats.Entries[0].SegmentCount)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/cache", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, fake.cleared)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
}

func TestTranscriptLookup(t *testing.T) {
	srv, _, fp := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transcripts/"+fp[:10], nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var entry transcriptcache.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, fp, entry.Fingerprint)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transcripts/ffffffffff", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transcripts/xyz", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubtitlesDownload(t *testing.T) {
	srv, _, fp := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transcripts/"+fp+"/subtitles?format=vtt&speakers=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/vtt")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `clip.vtt`)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "WEBVTT"))
	assert.Contains(t, rec.Body.String(), "Speaker 1: a")

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transcripts/"+fp+"/subtitles?format=ass", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCaptionStreamEmitsTransitionsOnly(t *testing.T) {
	srv, _, fp := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/captions/" + fp
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	send := func(msg ClientMessage) {
		require.NoError(t, conn.WriteJSON(msg))
	}
	read := func() map[string]any {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var out map[string]any
		require.NoError(t, conn.ReadJSON(&out))
		return out
	}

	send(ClientMessage{Type: MessageTime, Time: 1})
	send(ClientMessage{Type: MessageTime, Time: 1.5})
	send(ClientMessage{Type: MessageTime, Time: 2.5})
	send(ClientMessage{Type: MessageTime, Time: 3})
	send(ClientMessage{Type: MessageEnded})

	first := read()
	assert.Equal(t, "show", first["type"])
	assert.Equal(t, "a", first["text"])
	assert.Equal(t, "#00ff00", first["color"])

	assert.Equal(t, "hide", read()["type"])

	second := read()
	assert.Equal(t, "show", second["type"])
	assert.Equal(t, "b", second["text"])
	assert.Equal(t, float64(1), second["index"])

	assert.Equal(t, "hide", read()["type"])
}

func TestCaptionStreamRejectsForeignOrigin(t *testing.T) {
	srv, _, fp := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/captions/" + fp
	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCheckOriginAllowsConfiguredOrigin(t *testing.T) {
	srv, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/ws/captions/abc", nil)
	req.Header.Set("Origin", "http://player.local")
	assert.True(t, srv.checkOrigin(req))
}

func TestCorsOptionsWildcardDisablesCredentials(t *testing.T) {
	assert.False(t, corsOptions(nil).AllowCredentials)
	assert.True(t, corsOptions([]string{"http://player.local"}).AllowCredentials)
}
