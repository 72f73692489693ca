package redis

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// TicketLog enforces the one-alert-per-symbol-per-calendar-day rule.
// Backed by Redis SETNX when available; falls back to an in-process map
// so a single scanner instance still dedups correctly without Redis.
type TicketLog struct {
	client *Client
	prefix string
	now    func() time.Time

	mu      sync.Mutex
	sent    map[string]string // fallback: dedup key -> ticket hash
	sentDay string            // calendar day the fallback map belongs to
}

// NewTicketLog creates a new daily ticket log
func NewTicketLog(client *Client, prefix string) *TicketLog {
	return &TicketLog{
		client: client,
		prefix: prefix,
		now:    time.Now,
		sent:   make(map[string]string),
	}
}

// TicketHash builds a short identifying hash for an alert, matching the
// (symbol, option type, strike, expiry) identity of a recommendation.
func TicketHash(symbol, optionType string, strike float64, expiry string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%s_%.2f_%s", symbol, optionType, strike, expiry)))
	return hex.EncodeToString(sum[:])[:8]
}

// MarkIfNew records the symbol for today and reports whether it was the
// first alert for that symbol this calendar day (UTC). The entry expires
// at the next midnight so no cleanup pass is needed.
func (t *TicketLog) MarkIfNew(ctx context.Context, symbol, ticketHash string) (bool, error) {
	day := t.now().UTC().Format("2006-01-02")
	key := fmt.Sprintf("%s:ticket:%s:%s", t.prefix, day, symbol)

	if !t.client.Enabled() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.rolloverLocked(day)
		if _, exists := t.sent[key]; exists {
			return false, nil
		}
		t.sent[key] = ticketHash
		return true, nil
	}

	ttl := t.untilMidnight()
	ok, err := t.client.Redis().SetNX(ctx, key, ticketHash, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("ticket dedup failed: %w", err)
	}
	return ok, nil
}

// Release frees a symbol's ticket for today. Called when delivery
// failed after the ticket was claimed, so nothing was actually emitted
// and the next attempt must be allowed through.
func (t *TicketLog) Release(ctx context.Context, symbol string) error {
	day := t.now().UTC().Format("2006-01-02")
	key := fmt.Sprintf("%s:ticket:%s:%s", t.prefix, day, symbol)

	if !t.client.Enabled() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.sent, key)
		return nil
	}

	if err := t.client.Redis().Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("ticket release failed: %w", err)
	}
	return nil
}

// rolloverLocked drops prior-day fallback entries so a long-running
// Redis-less process does not accumulate one entry per symbol per day.
// Caller holds mu.
func (t *TicketLog) rolloverLocked(day string) {
	if t.sentDay != day {
		t.sent = make(map[string]string)
		t.sentDay = day
	}
}

// SentToday returns how many symbols were alerted today. Redis-backed
// counting scans the day's key space; the fallback counts the map.
func (t *TicketLog) SentToday(ctx context.Context) (int, error) {
	day := t.now().UTC().Format("2006-01-02")
	pattern := fmt.Sprintf("%s:ticket:%s:*", t.prefix, day)

	if !t.client.Enabled() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.rolloverLocked(day)
		return len(t.sent), nil
	}

	var cursor uint64
	count := 0
	for {
		keys, next, err := t.client.Redis().Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return 0, fmt.Errorf("ticket scan failed: %w", err)
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			return count, nil
		}
	}
}

func (t *TicketLog) untilMidnight() time.Duration {
	now := t.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	return midnight.Sub(now)
}
