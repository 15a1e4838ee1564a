package boards

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Poller calls a board's heartbeat hook on a fixed interval.
type Poller struct {
	name     string
	interval time.Duration
	beat     func() error
	logger   *zap.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup

	mu       sync.Mutex
	running  bool
	lastPoll time.Time
	lastErr  error
}

func NewPoller(name string, interval time.Duration, beat func() error, logger *zap.Logger) *Poller {
	return &Poller{
		name:     name,
		interval: interval,
		beat:     beat,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins polling. Calling it twice has no effect.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	p.running = true
	p.wg.Add(1)

	go p.pollLoop()

	p.logger.Info("Poller started",
		zap.String("board", p.name),
		zap.Duration("interval", p.interval))
}

// Stop ends polling and waits for a running heartbeat. A stopped poller
// cannot be restarted.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	close(p.stopChan)
	p.wg.Wait()

	p.logger.Info("Poller stopped", zap.String("board", p.name))
}

func (p *Poller) pollLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

func (p *Poller) poll() {
	err := p.beat()
	if err != nil {
		p.logger.Error("Heartbeat failed",
			zap.String("board", p.name),
			zap.Error(err))
	}

	p.mu.Lock()
	p.lastPoll = time.Now()
	p.lastErr = err
	p.mu.Unlock()
}

// IsRunning reports whether the poll loop is active.
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// LastResult returns the time and error of the latest heartbeat.
func (p *Poller) LastResult() (time.Time, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastPoll, p.lastErr
}
