package authcore

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"
)

// stubProvider is an in-memory IdentityProvider that counts lookups so tests
// can assert which flows touch the identity store.
type stubProvider struct {
	mu          sync.Mutex
	byID        map[string]*Identity
	byKey       map[string]*Identity
	findCalls   int
	lookupCalls int
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		byID:  map[string]*Identity{},
		byKey: map[string]*Identity{},
	}
}

func (s *stubProvider) put(identity *Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[identity.ID] = identity
	if identity.Identifier != "" {
		s.byKey[identity.Identifier] = identity
	}
}

func (s *stubProvider) FindByID(_ context.Context, id string) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	identity, ok := s.byID[id]
	if !ok {
		return nil, ErrIdentityNotFound
	}
	clone := *identity
	return &clone, nil
}

func (s *stubProvider) FindByCredentialLookup(_ context.Context, key string) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookupCalls++
	identity, ok := s.byKey[key]
	if !ok {
		return nil, ErrIdentityNotFound
	}
	clone := *identity
	return &clone, nil
}

func (s *stubProvider) storeQueries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findCalls + s.lookupCalls
}

// stubNotifier records delivered one-time codes instead of sending them.
type stubNotifier struct {
	mu    sync.Mutex
	codes []string
	last  NotificationChannel
}

func (n *stubNotifier) SendCode(_ context.Context, channel NotificationChannel, _, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes = append(n.codes, code)
	n.last = channel
	return nil
}

func (n *stubNotifier) lastCode(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.codes) == 0 {
		t.Fatal("no code delivered")
	}
	return n.codes[len(n.codes)-1]
}

func testConfig(t *testing.T) Config {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate keys: %v", err)
	}

	cfg := DefaultConfig()
	cfg.Token.PrivateKey = priv
	cfg.Token.PublicKey = pub
	cfg.Token.Issuer = "authcore-test"
	// Cheap parameters keep password tests fast.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

type testEnv struct {
	engine   *Engine
	clock    *clock.Mock
	provider *stubProvider
	notifier *stubNotifier
	redis    *miniredis.Miniredis
}

// newTestEngine wires an engine against miniredis, a mock clock pinned near
// wall time so issued timestamps look realistic, and the stub collaborators.
func newTestEngine(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	mock := clock.NewMock()
	mock.Set(time.Now().Truncate(time.Second))

	provider := newStubProvider()
	notifier := &stubNotifier{}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithIdentityProvider(provider).
		WithNotifier(notifier).
		WithClock(mock).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{
		engine:   engine,
		clock:    mock,
		provider: provider,
		notifier: notifier,
		redis:    mr,
	}
}

func (env *testEnv) seedIdentity(t *testing.T, id, identifier string) *Identity {
	t.Helper()
	identity := &Identity{
		ID:         id,
		Identifier: identifier,
		Status:     IdentityActive,
		Role:       "user",
	}
	env.provider.put(identity)
	return identity
}

func (env *testEnv) bearerFor(t *testing.T, identity *Identity, fingerprint string) string {
	t.Helper()
	token, err := env.engine.IssueToken(identity, fingerprint)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + token
}
