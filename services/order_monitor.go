package services

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// OrderMonitor expires orders stuck in PENDING once the checkout window has
// passed, and keeps simple counters for diagnosis. One instance runs per
// process.
type OrderMonitor struct {
	status   *StatusService
	log      *logrus.Logger
	interval time.Duration
	maxAge   time.Duration
	stop     chan struct{}
	stopOnce sync.Once

	mu           sync.Mutex
	totalExpired int64
	lastRun      time.Time
}

func NewOrderMonitor(status *StatusService, log *logrus.Logger) *OrderMonitor {
	return &OrderMonitor{
		status:   status,
		log:      log,
		interval: time.Minute,
		maxAge:   30 * time.Minute,
		stop:     make(chan struct{}),
	}
}

// SetInterval overrides the sweep interval. Call before Start.
func (om *OrderMonitor) SetInterval(d time.Duration) {
	om.interval = d
}

// SetMaxAge overrides how long an order may sit in PENDING. Call before
// Start.
func (om *OrderMonitor) SetMaxAge(d time.Duration) {
	om.maxAge = d
}

func (om *OrderMonitor) Start() {
	go om.run()
	om.log.Info("order monitor started")
}

func (om *OrderMonitor) Stop() {
	om.stopOnce.Do(func() {
		close(om.stop)
	})
}

func (om *OrderMonitor) run() {
	ticker := time.NewTicker(om.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			om.sweep()
		case <-om.stop:
			return
		}
	}
}

func (om *OrderMonitor) sweep() {
	expired := om.status.ExpirePending(om.maxAge)

	om.mu.Lock()
	om.totalExpired += int64(expired)
	om.lastRun = time.Now()
	om.mu.Unlock()
}

// TotalExpired returns how many orders this process has expired since start.
func (om *OrderMonitor) TotalExpired() int64 {
	om.mu.Lock()
	defer om.mu.Unlock()
	return om.totalExpired
}
