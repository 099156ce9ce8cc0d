// Package caller draws numbers on a timer for operators who switch on
// automatic calling.
package caller

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/avvvet/tombola-service/internal/comm"
	"github.com/avvvet/tombola-service/internal/roomsvc/room"
)

const (
	DefaultInterval = 3 * time.Second
	MinInterval     = time.Second
	MaxInterval     = 60 * time.Second
)

type Drawer interface {
	Draw(connID, code string) (room.Drawn, error)
}

type job struct {
	connID   string
	interval time.Duration
	stop     chan struct{}
}

type Caller struct {
	dir    Drawer
	notify room.Notifier

	mu   sync.Mutex
	jobs map[string]*job
}

func New(dir Drawer, notify room.Notifier) *Caller {
	return &Caller{dir: dir, notify: notify, jobs: make(map[string]*job)}
}

// Interval turns a client supplied millisecond value into a tick period.
func Interval(ms int) time.Duration {
	if ms <= 0 {
		return DefaultInterval
	}
	d := time.Duration(ms) * time.Millisecond
	if d < MinInterval {
		return MinInterval
	}
	if d > MaxInterval {
		return MaxInterval
	}
	return d
}

// Start (re)arms the caller for code. Draws run as connID, so they stop
// being authorized as soon as that connection loses the room.
func (c *Caller) Start(code, connID string, interval time.Duration) {
	j := &job{connID: connID, interval: interval, stop: make(chan struct{})}

	c.mu.Lock()
	if old, ok := c.jobs[code]; ok {
		close(old.stop)
	}
	c.jobs[code] = j
	c.mu.Unlock()

	log.Infof("auto caller on for room %s every %s", code, interval)
	go c.run(code, j)
}

// Stop is safe to call from inside a room lock.
func (c *Caller) Stop(code string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	j, ok := c.jobs[code]
	if !ok {
		return false
	}
	close(j.stop)
	delete(c.jobs, code)
	log.Infof("auto caller off for room %s", code)
	return true
}

func (c *Caller) Running(code string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.jobs[code]
	return ok
}

func (c *Caller) run(code string, j *job) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stop:
			return
		case <-ticker.C:
		}

		res, err := c.dir.Draw(j.connID, code)
		if err != nil {
			log.Infof("auto caller for room %s stopped: %v", code, err)
			c.finish(code, j)
			return
		}
		if res.Over {
			c.finish(code, j)
			return
		}
	}
}

// finish drops j unless a newer job already replaced it.
func (c *Caller) finish(code string, j *job) {
	c.mu.Lock()
	cur, ok := c.jobs[code]
	if !ok || cur != j {
		c.mu.Unlock()
		return
	}
	delete(c.jobs, code)
	c.mu.Unlock()

	if c.notify != nil {
		c.notify.ToRoom(code, comm.AutoDrawUpdated, comm.AutoDrawData{Enabled: false})
	}
}
