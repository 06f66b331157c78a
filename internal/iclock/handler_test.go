package iclock

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIngestor struct {
	accepted int
	err      error
	gotMeta  BatchMeta
	gotRaw   []byte
}

func (s *stubIngestor) ProcessBatch(_ context.Context, raw []byte, meta BatchMeta) (int, error) {
	s.gotRaw = raw
	s.gotMeta = meta
	return s.accepted, s.err
}

func newRouter(ing Ingestor, hs Handshake) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, ing, hs)
	return r
}

func TestHandshakeEndpoint(t *testing.T) {
	r := newRouter(&stubIngestor{}, Handshake{Now: fixedClock})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/iclock/cdata?SN=DEV001", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "GET OPTION FROM: DEV001\r\n"))
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

func TestIngestEndpointOK(t *testing.T) {
	ing := &stubIngestor{accepted: 2}
	r := newRouter(ing, Handshake{})

	body := "6\t2024-10-30 08:30:00\t0\t0\t0\t0\t0"
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/iclock/cdata?SN=DEV001&table=ATTLOG&Stamp=9999", strings.NewReader(body))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK: 2", w.Body.String())
	assert.Equal(t, BatchMeta{SN: "DEV001", Table: "ATTLOG", Stamp: "9999"}, ing.gotMeta)
	assert.Equal(t, []byte(body), ing.gotRaw)
}

func TestIngestEndpointZeroCountIsStillOK(t *testing.T) {
	r := newRouter(&stubIngestor{accepted: 0}, Handshake{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/iclock/cdata?SN=DEV001&table=ATTLOG", strings.NewReader(""))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK: 0", w.Body.String())
}

func TestIngestEndpointBatchAbort(t *testing.T) {
	r := newRouter(&stubIngestor{err: errors.New("storage down")}, Handshake{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/iclock/cdata?SN=DEV001&table=ATTLOG", strings.NewReader("x"))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "ERROR: 0", w.Body.String())
}
