package stooq

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/helios/internal/contracts"
	"github.com/wonny/helios/pkg/httputil"
	"github.com/wonny/helios/pkg/logger"
)

const dailyCSV = `Date,Open,High,Low,Close,Volume
2026-02-24,498.10,501.30,497.20,500.50,61234567
2026-02-25,500.80,503.10,499.90,502.25,58321000
2026-02-26,502.00,502.90,498.40,499.10,64110200
2026-02-27,499.50,505.00,499.00,504.75,70221900
`

func TestParseDailyCSV(t *testing.T) {
	bars, err := parseDailyCSV(dailyCSV)
	require.NoError(t, err)
	require.Len(t, bars, 4)

	first := bars[0]
	assert.Equal(t, "2026-02-24", first.Date.Format("2006-01-02"))
	assert.InDelta(t, 498.10, first.Open, 1e-9)
	assert.InDelta(t, 500.50, first.Close, 1e-9)
	assert.Equal(t, int64(61234567), first.Volume)

	assert.InDelta(t, 504.75, bars[3].Close, 1e-9)
}

func TestParseDailyCSVSkipsBadRows(t *testing.T) {
	mixed := `Date,Open,High,Low,Close,Volume
2026-02-24,498.10,501.30,497.20,500.50,61234567
2026-02-25,N/D,N/D,N/D,N/D,0
not-a-date,1,2,3,4,5
2026-02-27,499.50,505.00,499.00,504.75,70221900
`
	bars, err := parseDailyCSV(mixed)
	require.NoError(t, err)
	assert.Len(t, bars, 2)
}

func TestParseDailyCSVNoData(t *testing.T) {
	for _, body := range []string{"", "No data", "Date,Open,High,Low,Close,Volume\n"} {
		_, err := parseDailyCSV(body)
		assert.ErrorIs(t, err, contracts.ErrInsufficientData, "body %q", body)
	}
}

func TestFetchDaily(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/q/d/l/", r.URL.Path)
		assert.Equal(t, "spy.us", r.URL.Query().Get("s"))
		w.Write([]byte(dailyCSV))
	}))
	defer server.Close()

	client := NewClient(httputil.New(logger.NewNop()).DisableRetry(), logger.NewNop(), server.URL)

	bars, err := client.FetchDaily(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Len(t, bars, 4)
}

func TestFetchDailyUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(httputil.New(logger.NewNop()).DisableRetry(), logger.NewNop(), server.URL)

	_, err := client.FetchDaily(context.Background(), "SPY")
	assert.ErrorIs(t, err, contracts.ErrUpstream)
}

const finvizHTML = `<html><body>
<table class="snapshot-table2">
<tr><td>Index</td><td>S&amp;P 500</td><td>P/E</td><td>24.1</td></tr>
<tr><td>Price</td><td>501.23</td><td>EPS</td><td>20.8</td></tr>
</table>
</body></html>`

func TestExtractPrice(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(finvizHTML))
	require.NoError(t, err)

	price, err := extractPrice(doc)
	require.NoError(t, err)
	assert.InDelta(t, 501.23, price, 1e-9)
}

func TestExtractPriceMissing(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body><p>maintenance</p></body></html>"))
	require.NoError(t, err)

	_, err = extractPrice(doc)
	assert.ErrorIs(t, err, contracts.ErrUpstream)
}

func TestProviderSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(dailyCSV))
	}))
	defer server.Close()

	httpClient := httputil.New(logger.NewNop()).DisableRetry()
	provider := NewProvider(NewClient(httpClient, logger.NewNop(), server.URL), nil, nil, logger.NewNop())

	snapshot, err := provider.Snapshot(context.Background(), "SPY")
	require.NoError(t, err)

	assert.Equal(t, "SPY", snapshot.Symbol)
	assert.Len(t, snapshot.HistoricalCloses, 4)
	assert.InDelta(t, 504.75, snapshot.CurrentPrice, 1e-9)
	assert.GreaterOrEqual(t, snapshot.RealizedVolatility, 0.0)
}

type stubLive struct {
	price float64
	ok    bool
}

func (s stubLive) FreshPrice(string, time.Duration) (float64, bool) {
	return s.price, s.ok
}

func TestProviderSnapshotPrefersLivePrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(dailyCSV))
	}))
	defer server.Close()

	httpClient := httputil.New(logger.NewNop()).DisableRetry()
	provider := NewProvider(NewClient(httpClient, logger.NewNop(), server.URL), nil, nil, logger.NewNop()).
		WithLiveSource(stubLive{price: 506.10, ok: true})

	snapshot, err := provider.Snapshot(context.Background(), "SPY")
	require.NoError(t, err)
	assert.InDelta(t, 506.10, snapshot.CurrentPrice, 1e-9)
}

func TestProviderSnapshotStaleLiveUsesClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(dailyCSV))
	}))
	defer server.Close()

	httpClient := httputil.New(logger.NewNop()).DisableRetry()
	provider := NewProvider(NewClient(httpClient, logger.NewNop(), server.URL), nil, nil, logger.NewNop()).
		WithLiveSource(stubLive{ok: false})

	snapshot, err := provider.Snapshot(context.Background(), "SPY")
	require.NoError(t, err)
	assert.InDelta(t, 504.75, snapshot.CurrentPrice, 1e-9)
}

func TestProviderSnapshotEmptySymbol(t *testing.T) {
	provider := NewProvider(NewClient(httputil.New(logger.NewNop()), logger.NewNop(), ""), nil, nil, logger.NewNop())

	_, err := provider.Snapshot(context.Background(), "")
	assert.True(t, errors.Is(err, contracts.ErrInvalidInput))
}
