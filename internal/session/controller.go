// Package session owns the state of one lookup session and routes every
// mutation through the Controller.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/thomhuang/CepLookup/internal/address"
	"github.com/thomhuang/CepLookup/internal/lookup"
	"github.com/thomhuang/CepLookup/internal/postalcode"
)

// ErrNoResult is returned by Save when there is no lookup result to persist.
var ErrNoResult = errors.New("no lookup result to save")

// Lookuper resolves a canonical postal code.
type Lookuper interface {
	Lookup(ctx context.Context, code string) (address.Record, error)
}

// Recorder persists saved records on a best-effort basis.
type Recorder interface {
	Save(ctx context.Context, rec address.Record) (key string, ok bool)
	Load(ctx context.Context) []address.Record
}

// Options selects the behaviour of one iteration of the screen.
type Options struct {
	// AutoSave persists every successful lookup.
	AutoSave bool
	// AutoLoad opens the saved list at mount when saved records exist.
	AutoLoad bool
	// Capacity bounds the saved set, zero when unbounded.
	Capacity int
}

type Controller struct {
	lookup  Lookuper
	records Recorder
	log     logrus.FieldLogger
	opts    Options

	mu    sync.Mutex
	state State
	saved *address.SavedSet

	mountOnce sync.Once
	mounting  atomic.Bool
	mounted   chan struct{}
}

// New returns a controller in SEARCH_IDLE. records may be nil, in which case
// saved addresses live only in memory.
func New(lookuper Lookuper, records Recorder, log logrus.FieldLogger, opts Options) *Controller {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Controller{
		lookup:  lookuper,
		records: records,
		log:     log,
		opts:    opts,
		saved:   address.NewSavedSet(opts.Capacity),
		mounted: make(chan struct{}),
	}
}

// State returns a copy of the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state
	if st.Result != nil {
		rec := *st.Result
		st.Result = &rec
	}
	st.Saved = c.saved.Records()
	return st
}

func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	c.state.Input = text
	c.mu.Unlock()
}

// Submit validates the input and performs one lookup. Invalid input returns
// postalcode.ErrInvalidFormat and leaves the state untouched; the caller must
// alert the user. Lookup failures are reported through State, not the return value.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	input := c.state.Input
	code, err := postalcode.Validate(input)
	if err != nil {
		c.mu.Unlock()
		c.log.WithField("input", input).Debug("rejected postal code")
		return err
	}
	c.state.View = ViewSearch
	c.state.Loading = true
	c.mu.Unlock()

	// loading must clear on every exit path, including a failing or panicking save
	defer func() {
		c.mu.Lock()
		c.state.Loading = false
		c.mu.Unlock()
	}()

	log := c.log.WithField("postal_code", code)
	rec, err := c.lookup.Lookup(ctx, code)

	c.mu.Lock()
	switch {
	case err == nil:
		c.state.Result = &rec
		c.state.ErrorMessage = ""
	case errors.Is(err, lookup.ErrNotFound):
		c.state.Result = nil
		c.state.ErrorMessage = MsgNotFound
	default:
		c.state.Result = nil
		c.state.ErrorMessage = MsgNetwork
	}
	c.mu.Unlock()

	if err != nil {
		log.WithError(err).Info("lookup failed")
		return nil
	}
	log.Info("lookup succeeded")
	if c.opts.AutoSave {
		c.persist(ctx, rec)
	}
	return nil
}

// Save persists the current result unless its postal code is already saved,
// then shows the saved list.
func (c *Controller) Save(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Result == nil {
		c.mu.Unlock()
		return ErrNoResult
	}
	rec := *c.state.Result
	c.mu.Unlock()

	c.persist(ctx, rec)

	c.mu.Lock()
	c.state.View = ViewSaved
	c.mu.Unlock()
	return nil
}

func (c *Controller) ShowSaved() {
	c.mu.Lock()
	c.state.View = ViewSaved
	c.mu.Unlock()
}

// NewSearch returns to an empty search form.
func (c *Controller) NewSearch() {
	c.mu.Lock()
	c.state = State{View: ViewSearch}
	c.mu.Unlock()
}

// Load reads persisted records into the saved set and returns how many are
// saved afterwards. Records saved earlier in this session are kept after the
// loaded ones.
func (c *Controller) Load(ctx context.Context) int {
	var loaded []address.Record
	if c.records != nil {
		loaded = c.records.Load(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	merged := address.NewSavedSet(c.opts.Capacity)
	for _, rec := range loaded {
		merged.Add(rec)
	}
	for _, rec := range c.saved.Records() {
		merged.Add(rec)
	}
	c.saved = merged
	c.log.WithField("count", merged.Len()).Debug("loaded saved addresses")
	return merged.Len()
}

// Mount starts the one-time startup load in the background and returns a
// channel closed when it finishes. With AutoLoad the saved list is opened,
// but only if the user has not started a search meanwhile.
func (c *Controller) Mount(ctx context.Context) <-chan struct{} {
	c.mountOnce.Do(func() {
		c.mounting.Store(true)
		go func() {
			defer close(c.mounted)
			n := c.Load(ctx)
			if !c.opts.AutoLoad || n == 0 {
				return
			}
			c.mu.Lock()
			if c.state.View == ViewSearch && !c.state.Loading && c.state.Result == nil && c.state.ErrorMessage == "" {
				c.state.View = ViewSaved
			}
			c.mu.Unlock()
		}()
	})
	return c.mounted
}

func (c *Controller) persist(ctx context.Context, rec address.Record) {
	log := c.log.WithField("postal_code", rec.PostalCode)

	// the startup load must land in the saved set before the duplicate check
	if c.mounting.Load() {
		select {
		case <-c.mounted:
		case <-ctx.Done():
			log.WithError(ctx.Err()).Warn("address not saved")
			return
		}
	}

	c.mu.Lock()
	dup := c.saved.Contains(rec.PostalCode)
	c.mu.Unlock()
	if dup {
		log.Debug("address already saved")
		return
	}

	if c.records != nil {
		if _, ok := c.records.Save(ctx, rec); !ok {
			log.Warn("address kept for this session only")
		}
	}

	c.mu.Lock()
	c.saved.Add(rec)
	c.mu.Unlock()
}
