package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppMetrics_Exposed(t *testing.T) {
	reg := NewRegistry()
	m := NewAppMetrics(reg)

	m.CommandsTotal.WithLabelValues("true").Inc()
	m.RepliesTotal.WithLabelValues("protocol").Inc()
	m.LinkConnected.Set(1)

	rr := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, `ev3_commands_total{reply="true"} 1`))
	assert.True(t, strings.Contains(body, "ev3_link_connected 1"))
}
