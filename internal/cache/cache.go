// Package cache keeps recently touched log rows in memory to avoid
// database reads on the hot recording path.
package cache

import (
	"sync"

	"github.com/geopaparazzi/tracklog/internal/model"
)

// LogCache caches GpsLog rows by id and remembers the most recently
// created log. Latency on these lookups matters while a session is
// appending points.
type LogCache struct {
	m      sync.Mutex
	logs   map[int64]model.GpsLog
	lastID int64
}

func NewLogCache() *LogCache {
	return &LogCache{
		logs: make(map[int64]model.GpsLog),
	}
}

func (c *LogCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.logs = make(map[int64]model.GpsLog)
	c.lastID = 0
}

func (c *LogCache) GetLog(id int64) (model.GpsLog, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if l, ok := c.logs[id]; ok {
		return l, true
	}
	return model.GpsLog{}, false
}

func (c *LogCache) SetLog(l model.GpsLog) {
	c.m.Lock()
	defer c.m.Unlock()
	c.logs[l.ID] = l
	if l.ID > c.lastID {
		c.lastID = l.ID
	}
}

func (c *LogCache) DeleteLog(id int64) {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.logs, id)
	if id == c.lastID {
		c.lastID = 0
	}
}

// LastID returns the id of the most recently created log, 0 when it is
// unknown and must be looked up.
func (c *LogCache) LastID() int64 {
	c.m.Lock()
	defer c.m.Unlock()
	return c.lastID
}

func (c *LogCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.logs)
}
