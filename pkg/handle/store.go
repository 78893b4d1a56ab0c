package handle

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/adomcp/bridge/pkg/adoerrors"
	"github.com/adomcp/bridge/pkg/collab"
)

// DefaultTTL is the handle lifetime applied when NewQueryHandle's caller
// does not override it (spec §6 "fixed default of 3600 s").
const DefaultTTL = time.Hour

// handleTokenBytes gives >=128 bits of entropy once base32-encoded (spec
// §4.4): 20 raw bytes = 160 bits, comfortably above the floor.
const handleTokenBytes = 20

// Store is the Query Handle Service (C4): an in-memory handleId->QueryHandle
// map with TTL eviction via a background sweeper. The handle map uses a
// read-many/write-rare lock per spec §5: resolve/get/describe take the
// shared lock, store/evict take the exclusive lock.
type Store struct {
	mu      sync.RWMutex
	handles map[string]*QueryHandle

	clock         collab.Clock
	logger        collab.Logger
	sweepInterval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewStore constructs a Store. The sweeper is not started until Start is
// called, keeping construction side-effect-free and the sweeper's
// lifecycle under the caller's control.
func NewStore(clock collab.Clock, logger collab.Logger, sweepInterval time.Duration) *Store {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	return &Store{
		handles:       make(map[string]*QueryHandle),
		clock:         clock,
		logger:        logger,
		sweepInterval: sweepInterval,
	}
}

// Start launches the background sweeper. Calling Start on an already
// running Store is a no-op.
func (s *Store) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.sweepLoop(ctx)
}

// StopCleanup stops the sweeper. Test affordance named to match spec
// §4.4's `stopCleanup()` operation.
func (s *Store) StopCleanup() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Store) sweepLoop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Store) sweep() {
	now := s.clock.Now()

	s.mu.Lock()
	var evicted int
	for id, h := range s.handles {
		if !now.Before(h.ExpiresAt) {
			delete(s.handles, id)
			evicted++
		}
	}
	s.mu.Unlock()

	if evicted > 0 {
		s.logger.Debug("swept expired query handles", "count", evicted)
	}
}

// Store allocates a handle id, stamps createdAt/expiresAt, computes
// SelectionMetadata, and stores h (spec §4.4 `store(snapshot) → handleId`).
// The caller constructs h with every field except HandleID/CreatedAt/
// ExpiresAt/SelectionMetadata already populated.
func (s *Store) StoreHandle(h *QueryHandle, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	id, err := newHandleID()
	if err != nil {
		return "", adoerrors.Wrap(adoerrors.Upstream, "generating handle id", err)
	}

	now := s.clock.Now()
	h.HandleID = id
	h.CreatedAt = now
	h.ExpiresAt = now.Add(ttl)
	h.SelectionMetadata = buildSelectionMetadata(h.ItemContext)

	if h.WorkItemContextByID == nil {
		h.WorkItemContextByID = make(map[int]ItemContext, len(h.ItemContext))
	}
	for i, ctx := range h.ItemContext {
		h.WorkItemContextByID[h.WorkItemIDs[i]] = ctx
	}

	s.mu.Lock()
	s.handles[id] = h
	s.mu.Unlock()

	return id, nil
}

// Get returns the handle iff present and not expired (spec §4.4 `get`).
func (s *Store) Get(handleID string) (*QueryHandle, error) {
	s.mu.RLock()
	h, ok := s.handles[handleID]
	s.mu.RUnlock()

	if !ok {
		return nil, adoerrors.Newf(adoerrors.NotFound, "query handle %q not found", handleID)
	}
	if !s.clock.Now().Before(h.ExpiresAt) {
		return nil, adoerrors.Newf(adoerrors.NotFound, "query handle %q expired at %s", handleID, h.ExpiresAt.Format(time.RFC3339))
	}
	return h, nil
}

// Resolve looks up handleID and resolves sel against it.
func (s *Store) Resolve(handleID string, sel ItemSelector) ([]IndexID, error) {
	h, err := s.Get(handleID)
	if err != nil {
		return nil, err
	}
	return Resolve(h, sel)
}

// ClearAll drops every handle (spec §4.4 `clearAll()`, test affordance).
func (s *Store) ClearAll() {
	s.mu.Lock()
	s.handles = make(map[string]*QueryHandle)
	s.mu.Unlock()
}

// Count returns the number of live (not necessarily unexpired) handles.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handles)
}

func buildSelectionMetadata(items []ItemContext) SelectionMetadata {
	meta := SelectionMetadata{
		SelectableIndices: make([]int, len(items)),
		CriteriaTags:      make(map[string]struct{}),
		StateHistogram:    make(map[string]int),
		TypeHistogram:     make(map[string]int),
	}
	for i, ctx := range items {
		meta.SelectableIndices[i] = i
		meta.StateHistogram[ctx.State]++
		meta.TypeHistogram[ctx.Type]++
		for _, tag := range ctx.Tags {
			meta.CriteriaTags[tag] = struct{}{}
		}
	}
	return meta
}

func newHandleID() (string, error) {
	buf := make([]byte, handleTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := strings.ToLower(strings.TrimRight(base32.StdEncoding.EncodeToString(buf), "="))
	return fmt.Sprintf("qh_%s", token), nil
}
