package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"oracle-aggregator/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOracleServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/lastprice/other:wETH", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"price":"1010000000","timestamp":1441065000}`))
	})
	mux.HandleFunc("/lastprice/other:BIG", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"price":170141183460469231731687303715884105727,"timestamp":1}`))
	})
	mux.HandleFunc("/lastprice/other:NULL", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"price":null}`))
	})
	mux.HandleFunc("/lastprice/other:BROKEN", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"price":`))
	})
	mux.HandleFunc("/lastprice/other:DOWN", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/price/other:wETH/1441064400", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"price":"1000000000","timestamp":1441064400}`))
	})
	mux.HandleFunc("/price/other:LATEST/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotImplemented)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPSourceLastPrice(t *testing.T) {
	srv := newOracleServer(t)
	src := NewHTTPSource(testTracer, "remote", srv.URL+"/", 0, 0)

	p, err := src.LastPrice(context.Background(), domain.OtherAsset("wETH"))
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "1010000000", p.Price.String())
	assert.EqualValues(t, 1441065000, p.Timestamp)
}

func TestHTTPSourceKeepsWideIntegers(t *testing.T) {
	srv := newOracleServer(t)
	src := NewHTTPSource(testTracer, "remote", srv.URL, 0, 0)

	p, err := src.LastPrice(context.Background(), domain.OtherAsset("BIG"))
	require.NoError(t, err)
	assert.Equal(t, "170141183460469231731687303715884105727", p.Price.String())
}

func TestHTTPSourceEmptyAnswers(t *testing.T) {
	srv := newOracleServer(t)
	src := NewHTTPSource(testTracer, "remote", srv.URL, 0, 0)
	ctx := context.Background()

	p, err := src.LastPrice(ctx, domain.OtherAsset("NULL"))
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = src.LastPrice(ctx, domain.OtherAsset("UNKNOWN"))
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestHTTPSourceFailures(t *testing.T) {
	srv := newOracleServer(t)
	src := NewHTTPSource(testTracer, "remote", srv.URL, 0, 0)
	ctx := context.Background()

	_, err := src.LastPrice(ctx, domain.OtherAsset("BROKEN"))
	assert.Error(t, err)

	_, err = src.LastPrice(ctx, domain.OtherAsset("DOWN"))
	assert.ErrorContains(t, err, "503")
}

func TestHTTPSourcePriceAt(t *testing.T) {
	srv := newOracleServer(t)
	src := NewHTTPSource(testTracer, "remote", srv.URL, 100, 10)
	ctx := context.Background()

	p, err := src.PriceAt(ctx, domain.OtherAsset("wETH"), 1441064400)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "1000000000", p.Price.String())

	_, err = src.PriceAt(ctx, domain.OtherAsset("LATEST"), 5)
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
}

func TestHTTPSourceHonoursContext(t *testing.T) {
	srv := newOracleServer(t)
	src := NewHTTPSource(testTracer, "remote", srv.URL, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.LastPrice(ctx, domain.OtherAsset("wETH"))
	assert.Error(t, err)
}
