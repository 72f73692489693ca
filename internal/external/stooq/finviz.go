package stooq

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/helios/internal/contracts"
	"github.com/wonny/helios/pkg/httputil"
	"github.com/wonny/helios/pkg/logger"
)

// FinvizClient scrapes the Finviz quote page as a last-price fallback
// when the Stooq history is stale or unavailable
// ⭐ SSOT: all Finviz scraping goes through this client
type FinvizClient struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewFinvizClient creates a new Finviz scraper
func NewFinvizClient(httpClient *httputil.Client, log *logger.Logger, baseURL string) *FinvizClient {
	if baseURL == "" {
		baseURL = "https://finviz.com"
	}
	return &FinvizClient{
		httpClient: httpClient,
		logger:     log,
		baseURL:    baseURL,
	}
}

// FetchPrice scrapes the current price from the quote page snapshot
// table
func (c *FinvizClient) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	fullURL := fmt.Sprintf("%s/quote.ashx?t=%s", c.baseURL, strings.ToUpper(symbol))

	headers := map[string]string{
		"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
	}
	resp, err := c.httpClient.GetWithHeaders(ctx, fullURL, headers)
	if err != nil {
		return 0, fmt.Errorf("%w: finviz quote %s: %v", contracts.ErrUpstream, symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: finviz quote %s: status %d", contracts.ErrUpstream, symbol, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("%w: finviz quote %s: parse html: %v", contracts.ErrUpstream, symbol, err)
	}

	price, err := extractPrice(doc)
	if err != nil {
		return 0, fmt.Errorf("finviz quote %s: %w", symbol, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"price":  price,
	}).Debug("Scraped Finviz price")
	return price, nil
}

// extractPrice walks the snapshot table for the cell following the
// "Price" label
func extractPrice(doc *goquery.Document) (float64, error) {
	var price float64
	var found bool

	doc.Find("table.snapshot-table2 td, table.js-snapshot-table td").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if found {
			return false
		}
		if strings.TrimSpace(s.Text()) != "Price" {
			return true
		}

		value := strings.TrimSpace(s.Next().Text())
		value = strings.TrimPrefix(value, "$")
		p, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64)
		if err != nil || p <= 0 {
			return true
		}

		price = p
		found = true
		return false
	})

	if !found {
		return 0, fmt.Errorf("%w: price cell not found in snapshot table", contracts.ErrUpstream)
	}
	return price, nil
}
