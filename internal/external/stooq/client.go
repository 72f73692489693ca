package stooq

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/helios/internal/contracts"
	"github.com/wonny/helios/pkg/httputil"
	"github.com/wonny/helios/pkg/logger"
)

// Client handles communication with the Stooq CSV endpoint
// ⭐ SSOT: all Stooq calls go through this client
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Stooq client
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://stooq.com"
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    baseURL,
	}
}

// Bar is one daily OHLCV row
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// FetchDaily fetches the daily bar history for a US symbol. Stooq
// serves full history; callers slice what they need.
func (c *Client) FetchDaily(ctx context.Context, symbol string) ([]Bar, error) {
	fullURL := fmt.Sprintf("%s/q/d/l/?s=%s.us&i=d", c.baseURL, strings.ToLower(symbol))

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("%w: stooq daily %s: %v", contracts.ErrUpstream, symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: stooq daily %s: status %d", contracts.ErrUpstream, symbol, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: stooq daily %s: read body: %v", contracts.ErrUpstream, symbol, err)
	}

	bars, err := parseDailyCSV(string(body))
	if err != nil {
		return nil, fmt.Errorf("stooq daily %s: %w", symbol, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"bars":   len(bars),
	}).Debug("Fetched Stooq daily history")
	return bars, nil
}

// parseDailyCSV parses the Stooq export format:
// Date,Open,High,Low,Close,Volume with ISO dates. Rows with "N/D"
// placeholders or unparseable numbers are skipped, not fatal.
func parseDailyCSV(body string) ([]Bar, error) {
	body = strings.TrimSpace(body)
	if body == "" || strings.HasPrefix(body, "No data") {
		return nil, fmt.Errorf("%w: empty stooq response", contracts.ErrInsufficientData)
	}

	reader := csv.NewReader(strings.NewReader(body))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: malformed csv: %v", contracts.ErrUpstream, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: csv has no data rows", contracts.ErrInsufficientData)
	}

	bars := make([]Bar, 0, len(records)-1)
	for i, row := range records {
		if i == 0 || len(row) < 6 {
			continue // header or short row
		}

		date, err := time.Parse("2006-01-02", row[0])
		if err != nil {
			continue
		}

		open, err1 := strconv.ParseFloat(row[1], 64)
		high, err2 := strconv.ParseFloat(row[2], 64)
		low, err3 := strconv.ParseFloat(row[3], 64)
		closePrice, err4 := strconv.ParseFloat(row[4], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		if closePrice <= 0 {
			continue
		}

		volume, _ := strconv.ParseInt(row[5], 10, 64)

		bars = append(bars, Bar{
			Date:   date,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no parseable bars", contracts.ErrInsufficientData)
	}
	return bars, nil
}
