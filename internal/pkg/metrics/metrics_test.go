package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCollectors(t *testing.T) {
	CommandsTotal.WithLabelValues("camera.getStatus", "done").Inc()
	SlotOccupied.WithLabelValues("TakePicture").Set(1)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "blurcam_commands_total")
	assert.Contains(t, rec.Body.String(), "blurcam_slot_occupied")
	assert.Equal(t, float64(1), testutil.ToFloat64(SlotOccupied.WithLabelValues("TakePicture")))
}
