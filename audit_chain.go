package authcore

import (
	"context"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// ChainStore is the append-only backing sequence of one chain. Entries are
// indexed by Seq starting at zero; implementations must never reorder or
// rewrite stored entries.
type ChainStore interface {
	Len() uint64
	Get(index uint64) (AuditEntry, error)
	Append(entry AuditEntry) error
}

// memoryChainStore is the default in-memory arena. The slice only ever grows.
type memoryChainStore struct {
	mu      sync.RWMutex
	entries []AuditEntry
}

// NewMemoryChainStore returns an in-memory [ChainStore].
func NewMemoryChainStore() ChainStore {
	return &memoryChainStore{}
}

func (s *memoryChainStore) Len() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.entries))
}

func (s *memoryChainStore) Get(index uint64) (AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index >= uint64(len(s.entries)) {
		return AuditEntry{}, fmt.Errorf("audit entry index %d out of range", index)
	}
	return s.entries[index], nil
}

func (s *memoryChainStore) Append(entry AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.Seq != uint64(len(s.entries)) {
		return fmt.Errorf("audit entry seq %d does not extend chain of length %d", entry.Seq, len(s.entries))
	}
	s.entries = append(s.entries, entry)
	return nil
}

// Chain is one hash-chained, append-only audit sequence. Appends are strictly
// serialized by the chain mutex; concurrent chains are independent.
//
// A chain that has observed corruption is fail-stop: every later append
// returns [ErrAuditChainHalted].
type Chain struct {
	name  string
	store ChainStore
	clock clock.Clock

	mu       sync.Mutex
	lastHash Hash
	nextSeq  uint64
	halted   bool
}

// NewChain wraps a [ChainStore] as an appendable chain. The store may already
// hold entries; the chain resumes from its tail.
func NewChain(name string, store ChainStore, clk clock.Clock) (*Chain, error) {
	if store == nil {
		store = NewMemoryChainStore()
	}
	if clk == nil {
		clk = clock.New()
	}

	c := &Chain{
		name:     name,
		store:    store,
		clock:    clk,
		lastHash: auditGenesisHash,
	}

	n := store.Len()
	if n > 0 {
		tail, err := store.Get(n - 1)
		if err != nil {
			return nil, err
		}
		c.lastHash = tail.Hash
		c.nextSeq = n
	}

	return c, nil
}

// Name returns the chain identifier.
func (c *Chain) Name() string { return c.name }

// Len returns the number of committed entries.
func (c *Chain) Len() uint64 { return c.store.Len() }

// Entry returns the committed entry at index.
func (c *Chain) Entry(index uint64) (AuditEntry, error) {
	return c.store.Get(index)
}

// Append commits one entry to the chain and returns it. Appends to the same
// chain are totally ordered; the hash computation never interleaves.
func (c *Chain) Append(actor, action, resource string, severity Severity, category Category, detail map[string]string) (AuditEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.halted {
		return AuditEntry{}, ErrAuditChainHalted
	}

	entry := AuditEntry{
		Seq:       c.nextSeq,
		ID:        uuid.NewString(),
		Timestamp: c.clock.Now().UTC(),
		Actor:     actor,
		Action:    action,
		Resource:  resource,
		Severity:  severity,
		Category:  category,
		Detail:    cloneDetail(detail),
		PrevHash:  c.lastHash,
	}
	entry.Hash = computeEntryHash(&entry)

	if err := c.store.Append(entry); err != nil {
		return AuditEntry{}, err
	}

	c.lastHash = entry.Hash
	c.nextSeq++
	return entry, nil
}

// Verify recomputes hashes across the inclusive range [from, to] and returns
// a [ChainCorruptionError] naming the first index where the stored state
// disagrees with the recomputation. A corrupt result halts the chain.
func (c *Chain) Verify(from, to uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.store.Len()
	if n == 0 {
		return nil
	}
	if to >= n {
		to = n - 1
	}
	if from > to {
		return fmt.Errorf("invalid verify range [%d, %d]", from, to)
	}

	prev := auditGenesisHash
	if from > 0 {
		before, err := c.store.Get(from - 1)
		if err != nil {
			return err
		}
		prev = before.Hash
	}

	for i := from; i <= to; i++ {
		entry, err := c.store.Get(i)
		if err != nil {
			return err
		}
		if entry.Seq != i || entry.PrevHash != prev || computeEntryHash(&entry) != entry.Hash {
			c.halted = true
			return &ChainCorruptionError{Chain: c.name, Index: i}
		}
		prev = entry.Hash
	}

	return nil
}

// Halted reports whether the chain has refused further appends.
func (c *Chain) Halted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.halted
}

func cloneDetail(detail map[string]string) map[string]string {
	if len(detail) == 0 {
		return nil
	}
	out := make(map[string]string, len(detail))
	for k, v := range detail {
		out[k] = v
	}
	return out
}

// AuditLog manages independent chains, one per tenant, plus asynchronous
// fan-out of committed entries to sinks. Appends to different chains proceed
// in parallel.
type AuditLog struct {
	clock      clock.Clock
	dispatcher *auditDispatcher
	newStore   func(chain string) ChainStore

	mu     sync.Mutex
	chains map[string]*Chain
}

// AuditLogOptions configures an [AuditLog].
type AuditLogOptions struct {
	Config   AuditConfig
	Sink     AuditSink
	Clock    clock.Clock
	NewStore func(chain string) ChainStore
}

// NewAuditLog creates an audit log. A nil NewStore uses in-memory arenas.
func NewAuditLog(opts AuditLogOptions) *AuditLog {
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	newStore := opts.NewStore
	if newStore == nil {
		newStore = func(string) ChainStore { return NewMemoryChainStore() }
	}

	return &AuditLog{
		clock:      clk,
		dispatcher: newAuditDispatcher(opts.Config, opts.Sink),
		newStore:   newStore,
		chains:     map[string]*Chain{},
	}
}

// Chain returns the chain for the given tenant, creating it on first use.
func (l *AuditLog) Chain(tenant string) *Chain {
	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.chains[tenant]; ok {
		return c
	}
	c, err := NewChain(tenant, l.newStore(tenant), l.clock)
	if err != nil {
		// A fresh store that cannot seed a chain is a programming error in
		// the store implementation; fall back to an in-memory arena.
		c, _ = NewChain(tenant, NewMemoryChainStore(), l.clock)
	}
	l.chains[tenant] = c
	return c
}

// Append commits an entry to the tenant's chain and hands it to the sinks.
func (l *AuditLog) Append(ctx context.Context, tenant, actor, action, resource string, severity Severity, category Category, detail map[string]string) (AuditEntry, error) {
	entry, err := l.Chain(tenant).Append(actor, action, resource, severity, category, detail)
	if err != nil {
		return AuditEntry{}, err
	}
	l.dispatcher.Emit(ctx, entry)
	return entry, nil
}

// Verify checks the tenant's chain across [from, to].
func (l *AuditLog) Verify(tenant string, from, to uint64) error {
	return l.Chain(tenant).Verify(from, to)
}

// Dropped reports how many entries the sink dispatcher discarded.
func (l *AuditLog) Dropped() uint64 {
	return l.dispatcher.Dropped()
}

// Close drains the sink dispatcher. Committed chain entries are unaffected.
func (l *AuditLog) Close() {
	l.dispatcher.Close()
}

// VerifyExported replays a detached sequence of entries (for example a JSONL
// export) against the hash-chain rules without touching any live chain.
// Seq values must start at from and be contiguous.
func VerifyExported(entries []AuditEntry, from uint64, prev Hash) error {
	for i := range entries {
		e := &entries[i]
		idx := from + uint64(i)
		if e.Seq != idx || e.PrevHash != prev || computeEntryHash(e) != e.Hash {
			return &ChainCorruptionError{Index: idx}
		}
		prev = e.Hash
	}
	return nil
}
