package sheet

import (
	"context"
	"log"
	"sync"
	"time"
)

// Poller refreshes a sheet in the background and keeps the last good
// snapshot in memory, so request handlers never wait on the spreadsheet
// backend and a transient fetch failure does not blank the dashboard.
type Poller struct {
	fetcher  Fetcher
	sheetURL string
	interval time.Duration

	mu        sync.RWMutex
	rows      []Row
	fetchedAt time.Time

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewPoller creates a poller for one sheet URL.
func NewPoller(fetcher Fetcher, sheetURL string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Poller{
		fetcher:  fetcher,
		sheetURL: sheetURL,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins the refresh loop with one immediate fetch.
func (p *Poller) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		p.refresh()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.refresh()
			case <-p.stop:
				return
			}
		}
	}()
}

// Stop stops the refresh loop and waits for it to exit.
func (p *Poller) Stop() {
	close(p.stop)
	p.wg.Wait()
}

// Rows returns the last good snapshot and its fetch time. The snapshot is
// shared; callers must not mutate the returned rows.
func (p *Poller) Rows() ([]Row, time.Time) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rows, p.fetchedAt
}

func (p *Poller) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rows, err := p.fetcher.FetchRows(ctx, p.sheetURL)
	if err != nil {
		log.Printf("sheet poll failed, keeping previous snapshot: %v", err)
		return
	}

	p.mu.Lock()
	p.rows = rows
	p.fetchedAt = time.Now()
	p.mu.Unlock()
}
