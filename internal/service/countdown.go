package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"vcard-service/internal/model"
)

const (
	CountdownSeconds = 600
	criticalSeconds  = 60
	refundDelay      = 3500 * time.Millisecond
)

// countdown is the timer state of one presented active card. It is only
// touched under the owning SessionService mutex, except stop which the ticker
// goroutine selects on.
type countdown struct {
	tx          model.CardTransaction
	generation  uint64
	remaining   int
	expired     bool
	refundPhase model.RefundPhase

	stop        chan struct{}
	stopOnce    sync.Once
	refundTimer clockwork.Timer
}

func newCountdown(tx model.CardTransaction, generation uint64) *countdown {
	return &countdown{
		tx:          tx,
		generation:  generation,
		remaining:   CountdownSeconds,
		refundPhase: model.RefundNone,
		stop:        make(chan struct{}),
	}
}

func (c *countdown) stopTicker() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// cancel stops the ticker and any pending refund timer.
func (c *countdown) cancel() {
	c.stopTicker()
	if c.refundTimer != nil {
		c.refundTimer.Stop()
	}
}

func (c *countdown) view() model.CountdownView {
	return model.CountdownView{
		TransactionID:    c.tx.ID,
		SecondsRemaining: c.remaining,
		Display:          formatClock(c.remaining),
		ProgressPercent:  float64(c.remaining) / CountdownSeconds * 100,
		Critical:         c.remaining < criticalSeconds,
		Expired:          c.expired,
		RefundPhase:      c.refundPhase,
	}
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
