package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCollectors(t *testing.T) {
	LinkMatchedTotal.WithLabelValues("1").Inc()
	SnapshotReloadsTotal.WithLabelValues("ok").Inc()

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "jiuyu_link_matched_total")
	assert.Contains(t, string(body), "jiuyu_snapshot_reloads_total")
}

func TestCounterVecLabels(t *testing.T) {
	before := testutil.ToFloat64(ParseNodesTotal.WithLabelValues("2"))
	ParseNodesTotal.WithLabelValues("2").Add(3)
	assert.Equal(t, before+3, testutil.ToFloat64(ParseNodesTotal.WithLabelValues("2")))
}
