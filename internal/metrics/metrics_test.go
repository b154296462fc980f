package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordHelpers(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(ResolutionsTotal.WithLabelValues("lastprice", OutcomeCache))
	RecordResolution("lastprice", OutcomeCache)
	assert.Equal(t, before+1, testutil.ToFloat64(ResolutionsTotal.WithLabelValues("lastprice", OutcomeCache)))

	RecordCacheAge("other:USDC", 120)
	assert.Equal(t, float64(120), testutil.ToFloat64(CacheAgeSeconds.WithLabelValues("other:USDC")))

	trips := testutil.ToFloat64(BreakerTripsTotal.WithLabelValues("other:wETH"))
	RecordBreakerTrip("other:wETH")
	assert.Equal(t, trips+1, testutil.ToFloat64(BreakerTripsTotal.WithLabelValues("other:wETH")))

	RecordUpstreamRequest("oracle-1", "200", 15*time.Millisecond)
	RecordHTTPRequest("/v1/lastprice/:asset", "200", time.Millisecond)
	RecordCacheWarm("ok")
}

func TestHandlerExposesMetrics(t *testing.T) {
	Init()
	RecordResolution("price", OutcomeLive)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "oracle_resolutions_total"))
}
