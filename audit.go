package authcore

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"sync"
	"time"
)

// Severity classifies how urgently an audit entry should be reviewed.
type Severity uint8

const (
	// SeverityInfo is an exported constant or variable used by the authentication core.
	SeverityInfo Severity = iota
	// SeverityWarning is an exported constant or variable used by the authentication core.
	SeverityWarning
	// SeverityCritical is an exported constant or variable used by the authentication core.
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "info"
	}
}

// Category groups audit entries by decision point.
type Category string

const (
	// CategoryAuthentication is an exported constant or variable used by the authentication core.
	CategoryAuthentication Category = "AUTHENTICATION"
	// CategoryAuthorization is an exported constant or variable used by the authentication core.
	CategoryAuthorization Category = "AUTHORIZATION"
	// CategorySecurity is an exported constant or variable used by the authentication core.
	CategorySecurity Category = "SECURITY"
	// CategorySystem is an exported constant or variable used by the authentication core.
	CategorySystem Category = "SYSTEM"
)

// Hash is a SHA-256 digest rendered as lowercase hex in JSON.
type Hash [32]byte

// String returns the lowercase hex rendering.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// UnmarshalText decodes a bare hex string into the hash.
func (h *Hash) UnmarshalText(text []byte) error {
	raw, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}
	if len(raw) != len(h) {
		return errors.New("invalid hash length")
	}
	copy(h[:], raw)
	return nil
}

// MarshalJSON encodes the hash as a hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(h[:]))
}

// UnmarshalJSON decodes a hex string into the hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(raw) != len(h) {
		return errors.New("invalid hash length")
	}
	copy(h[:], raw)
	return nil
}

// AuditEntry is one immutable record in a hash chain. PrevHash is the hash of
// the preceding entry (or the genesis value for Seq 0); Hash covers the
// canonical serialization of every other field, PrevHash included.
type AuditEntry struct {
	Seq       uint64            `json:"seq"`
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Actor     string            `json:"actor,omitempty"`
	Action    string            `json:"action"`
	Resource  string            `json:"resource,omitempty"`
	Severity  Severity          `json:"severity"`
	Category  Category          `json:"category"`
	Detail    map[string]string `json:"detail,omitempty"`
	PrevHash  Hash              `json:"prev_hash"`
	Hash      Hash              `json:"hash"`
}

var auditGenesisHash = Hash(sha256.Sum256([]byte("authcore:audit:genesis")))

// GenesisHash returns the fixed PrevHash value of every chain's first entry.
func GenesisHash() Hash {
	return auditGenesisHash
}

// computeEntryHash hashes the canonical serialization of the entry minus its
// own Hash field. Every field is length-prefixed so no two distinct entries
// share an encoding; detail keys are written in sorted order.
func computeEntryHash(e *AuditEntry) Hash {
	h := sha256.New()

	var scratch [8]byte
	writeUint := func(v uint64) {
		binary.BigEndian.PutUint64(scratch[:], v)
		h.Write(scratch[:])
	}
	writeString := func(s string) {
		writeUint(uint64(len(s)))
		io.WriteString(h, s)
	}

	writeUint(e.Seq)
	writeString(e.ID)
	writeUint(uint64(e.Timestamp.UnixNano()))
	writeString(e.Actor)
	writeString(e.Action)
	writeString(e.Resource)
	writeUint(uint64(e.Severity))
	writeString(string(e.Category))

	keys := make([]string, 0, len(e.Detail))
	for k := range e.Detail {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	writeUint(uint64(len(keys)))
	for _, k := range keys {
		writeString(k)
		writeString(e.Detail[k])
	}

	h.Write(e.PrevHash[:])

	var out Hash
	h.Sum(out[:0])
	return out
}

// VerifyEntry recomputes a single entry's hash against its stored value.
func VerifyEntry(e *AuditEntry) bool {
	return computeEntryHash(e) == e.Hash
}

// AuditSink receives entries after they are committed to a chain. Delivery is
// asynchronous and best-effort; the chain itself is the durable record.
type AuditSink interface {
	Emit(ctx context.Context, entry AuditEntry)
}

// NoOpSink drops audit entries.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEntry) {}

// ChannelSink writes audit entries into a buffered channel.
type ChannelSink struct {
	entries chan AuditEntry
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		entries: make(chan AuditEntry, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, entry AuditEntry) {
	select {
	case s.entries <- entry:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Entries() <-chan AuditEntry {
	return s.entries
}

// JSONWriterSink writes one JSON object per line. Output produced here is
// accepted by the authcore-auditverify tool.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, entry AuditEntry) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
