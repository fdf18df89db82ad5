package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestHandlerExposesObservations(t *testing.T) {
	ObserveLogin("failure")
	ObserveReport("event", errors.New("boom"), time.Millisecond)
	ObserveHTTPRequest(http.MethodGet, "/clients/{id}", http.StatusNotFound, 5*time.Millisecond)
	ObserveDenial("manage_users")
	ObservePanic()

	body := scrape(t)

	assert.Contains(t, body, `eventmanager_login_attempts_total{result="failure"}`)
	assert.Contains(t, body, `eventmanager_reports_generated_total{kind="event",result="error"}`)
	assert.Contains(t, body, `eventmanager_http_requests_total{method="GET",route="/clients/{id}",status="404"}`)
	assert.Contains(t, body, `eventmanager_authorization_denials_total{capability="manage_users"}`)
	assert.Contains(t, body, "eventmanager_panics_recovered_total")
	assert.Contains(t, body, "eventmanager_report_duration_seconds_bucket")
}
