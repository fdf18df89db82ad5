package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerBase_MalformedForm(t *testing.T) {
	t.Parallel()

	clients := &fakeClientService{}
	handler := NewClientHandler(clients, newTestPages(t), discardLogger())
	req := httptest.NewRequest(http.MethodPost, "/clients/new", strings.NewReader("name=%zz"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), statusMessage(http.StatusBadRequest))
	assert.Empty(t, clients.clients)
}

func TestRenderErrorPage_API(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	rec := httptest.NewRecorder()

	renderErrorPage(rec, req, newTestPages(t), discardLogger(), http.StatusNotFound, statusMessage(http.StatusNotFound))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"The requested resource was not found."}`, rec.Body.String())
}
