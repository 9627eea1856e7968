package registry

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// ErrInvalidDescriptor is an exported constant or variable used by the authentication orchestration engine.
var ErrInvalidDescriptor = errors.New("invalid provider descriptor")

// ErrNilProvider is an exported constant or variable used by the authentication orchestration engine.
var ErrNilProvider = errors.New("nil provider plugin")

// ErrNotRegistered is an exported constant or variable used by the authentication orchestration engine.
var ErrNotRegistered = errors.New("provider not registered")

// Category defines a public type used by goAuthFlow APIs.
//
// Category instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Category string

const (
	// CategoryKnowledge is an exported constant or variable used by the authentication orchestration engine.
	CategoryKnowledge Category = "knowledge"
	// CategoryPossession is an exported constant or variable used by the authentication orchestration engine.
	CategoryPossession Category = "possession"
	// CategoryBiometric is an exported constant or variable used by the authentication orchestration engine.
	CategoryBiometric Category = "biometric"
	// CategoryFederation is an exported constant or variable used by the authentication orchestration engine.
	CategoryFederation Category = "federation"
	// CategoryContextual is an exported constant or variable used by the authentication orchestration engine.
	CategoryContextual Category = "contextual"
)

func validCategory(c Category) bool {
	switch c {
	case CategoryKnowledge, CategoryPossession, CategoryBiometric, CategoryFederation, CategoryContextual:
		return true
	}
	return false
}

// Capabilities defines a public type used by goAuthFlow APIs.
//
// Capabilities instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Capabilities struct {
	Passwordless        bool
	PhishingResistant   bool
	SupportsStepUp      bool
	RequiresInteraction bool
}

// Descriptor defines a public type used by goAuthFlow APIs.
//
// Descriptor instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Descriptor struct {
	ID             string
	Version        string
	Category       Category
	AssuranceLevel int
	Capabilities   Capabilities
}

// Key returns the unique (id, version) catalog key for the descriptor.
func (d Descriptor) Key() string {
	return d.ID + "@" + d.Version
}

// AuthRequest carries the session context handed to a provider when a
// challenge is started.
type AuthRequest struct {
	SessionID   string
	TenantID    string
	PrincipalID string
	RequestID   string
}

// IssuedChallenge is a provider's answer to StartAuthentication. ExpiresAt is
// advisory; the orchestrator bounds it by its own challenge TTL.
type IssuedChallenge struct {
	OpaquePayload []byte
	ExpiresAt     time.Time
}

// ValidationInput carries a principal's response to an outstanding challenge.
type ValidationInput struct {
	SessionID     string
	ChallengeID   string
	Response      []byte
	OpaquePayload []byte
}

// ValidationResult is the provider's verdict on a response. Valid=false is a
// definitive rejection; transient backend trouble is reported as an error
// instead so the orchestrator can retry.
type ValidationResult struct {
	Valid       bool
	PrincipalID string
	Reason      string
}

// Provider defines a public type used by goAuthFlow APIs.
//
// Provider is the capability interface every pluggable authentication method
// implements. Implementations must be safe for concurrent use.
type Provider interface {
	StartAuthentication(ctx context.Context, req AuthRequest) (IssuedChallenge, error)
	ValidateResponse(ctx context.Context, in ValidationInput) (ValidationResult, error)
	CancelAuthentication(ctx context.Context, sessionID string) error
	AssuranceLevel() int
	SupportsStepUp(current, target int) bool
}

// Filter selects descriptors from a snapshot. Zero values match everything.
type Filter struct {
	Category          Category
	MinAssurance      int
	PhishingResistant bool
	StepUpCapable     bool
}

type entry struct {
	desc       Descriptor
	provider   Provider
	tombstoned bool
	seq        uint64
}

type snapshot struct {
	byKey  map[string]entry
	latest map[string]string // provider id -> key of most recently registered live version
}

// Registry defines a public type used by goAuthFlow APIs.
//
// Registry instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Registry struct {
	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
	seq  uint64
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Registry {
	r := &Registry{}
	r.snap.Store(&snapshot{
		byKey:  map[string]entry{},
		latest: map[string]string{},
	})
	return r
}

// Register adds or replaces a descriptor keyed by (id, version) together with
// its plugin. Re-registering an identical descriptor is a no-op; registering a
// new version supersedes lookup-by-id but keeps the old version resolvable.
//
// Register may return an error when input validation fails.
func (r *Registry) Register(desc Descriptor, provider Provider) error {
	if desc.ID == "" || desc.Version == "" || !validCategory(desc.Category) ||
		desc.AssuranceLevel < 1 || desc.AssuranceLevel > 4 {
		return ErrInvalidDescriptor
	}
	if provider == nil {
		return ErrNilProvider
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	key := desc.Key()
	if existing, ok := cur.byKey[key]; ok && !existing.tombstoned && existing.desc == desc {
		// Idempotent: visible state is unchanged, skip the snapshot swap.
		return nil
	}

	next := cur.clone()
	r.seq++
	next.byKey[key] = entry{desc: desc, provider: provider, seq: r.seq}
	next.latest[desc.ID] = key
	r.snap.Store(next)
	return nil
}

// Unregister tombstones a descriptor. In-flight sessions referencing it can
// still resolve it for validation; it no longer appears in Query results.
func (r *Registry) Unregister(id, version string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	key := Descriptor{ID: id, Version: version}.Key()
	e, ok := cur.byKey[key]
	if !ok {
		return ErrNotRegistered
	}
	if e.tombstoned {
		return nil
	}

	next := cur.clone()
	e.tombstoned = true
	next.byKey[key] = e

	if next.latest[id] == key {
		delete(next.latest, id)
		// Fall back to the most recently registered live version, if any.
		var bestSeq uint64
		for k, cand := range next.byKey {
			if cand.desc.ID == id && !cand.tombstoned && cand.seq >= bestSeq {
				bestSeq = cand.seq
				next.latest[id] = k
			}
		}
	}

	r.snap.Store(next)
	return nil
}

// Resolve returns the provider and descriptor for an exact (id, version) pair,
// including tombstoned entries. Used by the orchestrator to complete in-flight
// challenges after an administrative unregister.
func (r *Registry) Resolve(id, version string) (Descriptor, Provider, bool) {
	s := r.snap.Load()
	e, ok := s.byKey[Descriptor{ID: id, Version: version}.Key()]
	if !ok {
		return Descriptor{}, nil, false
	}
	return e.desc, e.provider, true
}

// Lookup returns the latest live descriptor registered under id.
func (r *Registry) Lookup(id string) (Descriptor, Provider, bool) {
	s := r.snap.Load()
	key, ok := s.latest[id]
	if !ok {
		return Descriptor{}, nil, false
	}
	e := s.byKey[key]
	return e.desc, e.provider, true
}

// Query returns live latest-version descriptors matching the filter, ordered
// by descending assurance level then ascending id for determinism.
func (r *Registry) Query(f Filter) []Descriptor {
	s := r.snap.Load()

	out := make([]Descriptor, 0, len(s.latest))
	for _, key := range s.latest {
		e := s.byKey[key]
		if e.tombstoned {
			continue
		}
		d := e.desc
		if f.Category != "" && d.Category != f.Category {
			continue
		}
		if f.MinAssurance > 0 && d.AssuranceLevel < f.MinAssurance {
			continue
		}
		if f.PhishingResistant && !d.Capabilities.PhishingResistant {
			continue
		}
		if f.StepUpCapable && !d.Capabilities.SupportsStepUp {
			continue
		}
		out = append(out, d)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].AssuranceLevel != out[j].AssuranceLevel {
			return out[i].AssuranceLevel > out[j].AssuranceLevel
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of live latest-version descriptors.
func (r *Registry) Len() int {
	return len(r.snap.Load().latest)
}

func (s *snapshot) clone() *snapshot {
	next := &snapshot{
		byKey:  make(map[string]entry, len(s.byKey)+1),
		latest: make(map[string]string, len(s.latest)+1),
	}
	for k, v := range s.byKey {
		next.byKey[k] = v
	}
	for k, v := range s.latest {
		next.latest[k] = v
	}
	return next
}
