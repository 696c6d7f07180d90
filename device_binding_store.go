package authcore

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	deviceKeyPrefix        = "adb"
	deviceRecordVersion1   = 1
	deviceRecordencodedLen = 1 + 8 + 8 + 8
)

var errDeviceBackend = errors.New("device binding backend unavailable")

// memoryDeviceStore is the default store when no Redis client is supplied.
type memoryDeviceStore struct {
	mu       sync.RWMutex
	bindings map[string]map[[32]byte]DeviceBinding
}

// NewMemoryDeviceStore returns an in-memory [DeviceBindingStore].
func NewMemoryDeviceStore() DeviceBindingStore {
	return &memoryDeviceStore{bindings: map[string]map[[32]byte]DeviceBinding{}}
}

func (s *memoryDeviceStore) Get(_ context.Context, identityID string, fpHash [32]byte) (*DeviceBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bindings[identityID][fpHash]
	if !ok {
		return nil, nil
	}
	out := b
	return &out, nil
}

func (s *memoryDeviceStore) Put(_ context.Context, binding *DeviceBinding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.bindings[binding.IdentityID]
	if !ok {
		m = map[[32]byte]DeviceBinding{}
		s.bindings[binding.IdentityID] = m
	}
	m[binding.FingerprintHash] = *binding
	return nil
}

func (s *memoryDeviceStore) Delete(_ context.Context, identityID string, fpHash [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bindings[identityID], fpHash)
	return nil
}

func (s *memoryDeviceStore) List(_ context.Context, identityID string) ([]DeviceBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]DeviceBinding, 0, len(s.bindings[identityID]))
	for _, b := range s.bindings[identityID] {
		out = append(out, b)
	}
	return out, nil
}

// redisDeviceStore keeps one hash per identity, one field per fingerprint.
type redisDeviceStore struct {
	redis *redis.Client
}

func newRedisDeviceStore(client *redis.Client) *redisDeviceStore {
	return &redisDeviceStore{redis: client}
}

func (s *redisDeviceStore) key(identityID string) string {
	return deviceKeyPrefix + ":" + identityID
}

func (s *redisDeviceStore) Get(ctx context.Context, identityID string, fpHash [32]byte) (*DeviceBinding, error) {
	data, err := s.redis.HGet(ctx, s.key(identityID), hex.EncodeToString(fpHash[:])).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", errDeviceBackend, err)
	}
	binding, err := decodeDeviceBinding(data)
	if err != nil {
		return nil, err
	}
	binding.IdentityID = identityID
	binding.FingerprintHash = fpHash
	return binding, nil
}

func (s *redisDeviceStore) Put(ctx context.Context, binding *DeviceBinding) error {
	encoded := encodeDeviceBinding(binding)
	field := hex.EncodeToString(binding.FingerprintHash[:])
	if err := s.redis.HSet(ctx, s.key(binding.IdentityID), field, encoded).Err(); err != nil {
		return fmt.Errorf("%w: %v", errDeviceBackend, err)
	}
	return nil
}

func (s *redisDeviceStore) Delete(ctx context.Context, identityID string, fpHash [32]byte) error {
	field := hex.EncodeToString(fpHash[:])
	if err := s.redis.HDel(ctx, s.key(identityID), field).Err(); err != nil {
		return fmt.Errorf("%w: %v", errDeviceBackend, err)
	}
	return nil
}

func (s *redisDeviceStore) List(ctx context.Context, identityID string) ([]DeviceBinding, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(identityID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errDeviceBackend, err)
	}

	out := make([]DeviceBinding, 0, len(fields))
	for field, data := range fields {
		raw, err := hex.DecodeString(field)
		if err != nil || len(raw) != 32 {
			continue
		}
		binding, err := decodeDeviceBinding([]byte(data))
		if err != nil {
			continue
		}
		binding.IdentityID = identityID
		copy(binding.FingerprintHash[:], raw)
		out = append(out, *binding)
	}
	return out, nil
}

func encodeDeviceBinding(b *DeviceBinding) []byte {
	buf := make([]byte, deviceRecordencodedLen)
	buf[0] = deviceRecordVersion1
	binary.BigEndian.PutUint64(buf[1:], uint64(b.FirstSeen.Unix()))
	binary.BigEndian.PutUint64(buf[9:], uint64(b.LastSeen.Unix()))
	binary.BigEndian.PutUint64(buf[17:], b.UseCount)
	return buf
}

func decodeDeviceBinding(data []byte) (*DeviceBinding, error) {
	if len(data) != deviceRecordencodedLen || data[0] != deviceRecordVersion1 {
		return nil, errors.New("invalid device binding record")
	}
	return &DeviceBinding{
		FirstSeen: time.Unix(int64(binary.BigEndian.Uint64(data[1:])), 0).UTC(),
		LastSeen:  time.Unix(int64(binary.BigEndian.Uint64(data[9:])), 0).UTC(),
		UseCount:  binary.BigEndian.Uint64(data[17:]),
	}, nil
}
