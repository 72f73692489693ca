package notify

import (
	"context"
	"fmt"
	"os"
)

// ConsoleSender writes alerts to stdout. Used when Telegram is
// disabled so a scan still shows its signals.
type ConsoleSender struct{}

func (ConsoleSender) Send(_ context.Context, text string) error {
	_, err := fmt.Fprintln(os.Stdout, text)
	return err
}
