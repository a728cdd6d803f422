package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go-marketplace-api/logger"
)

type purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Housekeeper periodically deletes expired revocation records.
type Housekeeper struct {
	ledger   purger
	interval time.Duration

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
}

func NewHousekeeper(ledger purger, interval time.Duration) *Housekeeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Housekeeper{
		ledger:   ledger,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs one purge immediately, then one per interval until Stop.
func (h *Housekeeper) Start() {
	if h.started.CompareAndSwap(false, true) {
		go h.loop()
	}
}

// Stop ends the loop and waits for an in-flight purge to finish.
func (h *Housekeeper) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	if h.started.Load() {
		<-h.done
	}
}

func (h *Housekeeper) loop() {
	defer close(h.done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.runOnce()
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			h.runOnce()
		}
	}
}

func (h *Housekeeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := h.ledger.PurgeExpired(ctx); err != nil {
		logger.Log.WithError(err).Error("Housekeeping failed")
	}
}
