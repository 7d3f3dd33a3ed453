package favsync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// State is the controller's synchronization state.
type State int

const (
	// StateUnauthenticated means no session; the mirrored set is empty.
	StateUnauthenticated State = iota
	// StateLoading means the initial list fetch is in flight.
	StateLoading
	// StateSynced means the mirrored set reflects the last known server
	// state plus any optimistic mutations still awaiting confirmation.
	StateSynced
)

// ErrPending is returned when an item already has an operation in flight.
// Callers should disable the affected control until the first call resolves.
var ErrPending = errors.New("favsync: operation already in flight for this item")

// ErrNotSynced is returned when a toggle is attempted before a successful
// Load (or after Logout).
var ErrNotSynced = errors.New("favsync: favorites not loaded")

// Controller mirrors the server's favorite set locally and applies mutations
// optimistically: the set changes before the network call resolves, and is
// rolled back exactly if the call fails. Operations are serialized per item;
// a second toggle while one is pending returns ErrPending. Results that
// arrive after Logout or a subsequent Load are discarded via an epoch guard,
// never applied to the reset state.
type Controller struct {
	mu       sync.Mutex
	svc      Service
	state    State
	set      map[string]struct{}
	inflight map[string]struct{}
	epoch    uint64
}

func NewController(svc Service) *Controller {
	return &Controller{
		svc:      svc,
		state:    StateUnauthenticated,
		set:      map[string]struct{}{},
		inflight: map[string]struct{}{},
	}
}

// Load fetches the authoritative list and replaces the mirrored set. On
// failure the controller behaves as unauthenticated (empty set); the caller
// may retry by calling Load again.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	c.state = StateLoading
	c.set = map[string]struct{}{}
	c.inflight = map[string]struct{}{}
	c.mu.Unlock()

	favs, err := c.svc.List(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		// Superseded by another Load or a Logout; drop the result.
		return nil
	}
	if err != nil {
		c.state = StateUnauthenticated
		return fmt.Errorf("favsync: load failed: %w", err)
	}

	set := make(map[string]struct{}, len(favs))
	for _, f := range favs {
		set[f.ItemID] = struct{}{}
	}
	c.set = set
	c.state = StateSynced
	return nil
}

// Toggle flips the favorite state of itemID, optimistically. The mirrored
// set reflects the new state immediately; if the server call fails, the
// mutation is rolled back and the error returned so the caller can surface
// it (distinct from "not logged in" — that is ErrNotSynced).
func (c *Controller) Toggle(ctx context.Context, itemID, itemName string) error {
	c.mu.Lock()
	if c.state != StateSynced {
		c.mu.Unlock()
		return ErrNotSynced
	}
	if _, busy := c.inflight[itemID]; busy {
		c.mu.Unlock()
		return ErrPending
	}

	_, wasFav := c.set[itemID]
	if wasFav {
		delete(c.set, itemID)
	} else {
		c.set[itemID] = struct{}{}
	}
	c.inflight[itemID] = struct{}{}
	epoch := c.epoch
	c.mu.Unlock()

	var err error
	if wasFav {
		err = c.svc.Remove(ctx, itemID)
	} else {
		err = c.svc.Add(ctx, itemID, itemName)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		// The session was reset while the call was in flight; the local
		// state was already cleared, so the result must not be applied.
		return nil
	}
	delete(c.inflight, itemID)

	if err != nil {
		// Roll back exactly the optimistic mutation; the rest of the set is
		// untouched. A later Load reconciles against the server.
		if wasFav {
			c.set[itemID] = struct{}{}
		} else {
			delete(c.set, itemID)
		}
		return fmt.Errorf("favsync: toggle %q failed: %w", itemID, err)
	}
	return nil
}

// Logout clears the mirrored set unconditionally. In-flight results are
// discarded when they arrive.
func (c *Controller) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.state = StateUnauthenticated
	c.set = map[string]struct{}{}
	c.inflight = map[string]struct{}{}
}

// State reports the current synchronization state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Contains reports whether itemID is in the mirrored set.
func (c *Controller) Contains(itemID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.set[itemID]
	return ok
}

// Pending reports whether itemID has an operation awaiting confirmation,
// for rendering a busy/disabled control.
func (c *Controller) Pending(itemID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[itemID]
	return ok
}

// Items returns the mirrored set as a sorted slice.
func (c *Controller) Items() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]string, 0, len(c.set))
	for id := range c.set {
		items = append(items, id)
	}
	sort.Strings(items)
	return items
}
