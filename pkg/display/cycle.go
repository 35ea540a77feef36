package display

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/textframe/pkg/pipeline"
	"github.com/lehigh-university-libraries/textframe/pkg/providers"
	"github.com/lehigh-university-libraries/textframe/pkg/textinfo"
)

// Snapshot is the state of one display cycle
type Snapshot struct {
	Path       string
	Image      image.Image
	Result     textinfo.Result
	Provider   string
	SelectedAt time.Time
}

// Cycle holds the records for the most recently selected image. Each
// selection runs one recognition and replaces whatever was held before.
type Cycle struct {
	provider providers.Provider
	config   providers.Config
	opts     []textinfo.Option

	// run serializes recognitions; mu guards current
	run     sync.Mutex
	mu      sync.RWMutex
	current *Snapshot
}

// NewCycle creates an empty cycle bound to a provider
func NewCycle(provider providers.Provider, config providers.Config, opts ...textinfo.Option) *Cycle {
	return &Cycle{
		provider: provider,
		config:   config,
		opts:     opts,
	}
}

// Select recognizes a newly chosen image. A call made while another
// recognition is in flight waits for it. On failure the previous
// collection has already been discarded and the cycle is left empty.
func (c *Cycle) Select(ctx context.Context, img providers.Image, decoded image.Image) (Snapshot, error) {
	c.run.Lock()
	defer c.run.Unlock()

	c.Clear()

	result, err := pipeline.Run(ctx, c.provider, c.config, img, c.opts...)
	if err != nil {
		return Snapshot{}, err
	}

	snap := &Snapshot{
		Path:       img.Path,
		Image:      decoded,
		Result:     result,
		Provider:   c.provider.Name(),
		SelectedAt: time.Now(),
	}

	c.mu.Lock()
	c.current = snap
	c.mu.Unlock()

	return *snap, nil
}

// Current returns the held snapshot, if any
func (c *Cycle) Current() (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return Snapshot{}, false
	}
	return *c.current, true
}

// Clear discards the held collection
func (c *Cycle) Clear() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}
