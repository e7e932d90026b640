// Package batch groups images that arrive as one album so they can be
// classified with a single batch request.
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/dskvich/classifier-bot/pkg/domain"
)

const DefaultWait = 1500 * time.Millisecond

// FlushFunc receives the files of one group in arrival order.
type FlushFunc func(ctx context.Context, files []domain.ImageFile)

type group struct {
	files []domain.ImageFile
	timer *time.Timer
	flush FlushFunc
}

type Collector struct {
	ctx     context.Context
	wait    time.Duration
	maxSize int

	mu     sync.Mutex
	groups map[string]*group
}

// NewCollector flushes a group once no file arrived for wait, or as soon as
// it holds maxSize files.
func NewCollector(ctx context.Context, wait time.Duration, maxSize int) *Collector {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Collector{
		ctx:     ctx,
		wait:    wait,
		maxSize: maxSize,
		groups:  make(map[string]*group),
	}
}

// Add appends file to the group identified by id. The flush function of the
// first file of a group is the one used for the whole group.
func (c *Collector) Add(id string, file domain.ImageFile, flush FlushFunc) {
	c.mu.Lock()

	g, ok := c.groups[id]
	if !ok {
		g = &group{flush: flush}
		c.groups[id] = g
		g.timer = time.AfterFunc(c.wait, func() { c.fire(id, g) })
	} else {
		g.timer.Reset(c.wait)
	}
	g.files = append(g.files, file)

	full := c.maxSize > 0 && len(g.files) >= c.maxSize
	if full {
		g.timer.Stop()
		delete(c.groups, id)
	}
	c.mu.Unlock()

	if full {
		g.flush(c.ctx, g.files)
	}
}

func (c *Collector) fire(id string, g *group) {
	c.mu.Lock()
	if c.groups[id] != g {
		c.mu.Unlock()
		return
	}
	delete(c.groups, id)
	files := g.files
	c.mu.Unlock()

	if c.ctx.Err() != nil {
		return
	}
	g.flush(c.ctx, files)
}

func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.groups)
}
