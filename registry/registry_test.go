package registry

import (
	"context"
	"sync"
	"testing"
)

type fakeProvider struct {
	level int
}

func (p fakeProvider) StartAuthentication(context.Context, AuthRequest) (IssuedChallenge, error) {
	return IssuedChallenge{}, nil
}

func (p fakeProvider) ValidateResponse(context.Context, ValidationInput) (ValidationResult, error) {
	return ValidationResult{Valid: true}, nil
}

func (p fakeProvider) CancelAuthentication(context.Context, string) error { return nil }
func (p fakeProvider) AssuranceLevel() int                                { return p.level }
func (p fakeProvider) SupportsStepUp(current, target int) bool            { return true }

func desc(id, version string, level int, category Category) Descriptor {
	return Descriptor{
		ID:             id,
		Version:        version,
		Category:       category,
		AssuranceLevel: level,
		Capabilities:   Capabilities{SupportsStepUp: true},
	}
}

func TestRegisterRejectsInvalidDescriptor(t *testing.T) {
	r := New()

	cases := []Descriptor{
		{Version: "v1", Category: CategoryKnowledge, AssuranceLevel: 1},
		{ID: "x", Category: CategoryKnowledge, AssuranceLevel: 1},
		{ID: "x", Version: "v1", Category: "bogus", AssuranceLevel: 1},
		{ID: "x", Version: "v1", Category: CategoryKnowledge, AssuranceLevel: 0},
		{ID: "x", Version: "v1", Category: CategoryKnowledge, AssuranceLevel: 5},
	}
	for i, d := range cases {
		if err := r.Register(d, fakeProvider{level: 1}); err == nil {
			t.Fatalf("case %d: expected ErrInvalidDescriptor", i)
		}
	}

	if err := r.Register(desc("x", "v1", 1, CategoryKnowledge), nil); err == nil {
		t.Fatal("expected ErrNilProvider")
	}
}

func TestRegisterIdempotent(t *testing.T) {
	r := New()
	d := desc("totp", "v1", 2, CategoryPossession)

	if err := r.Register(d, fakeProvider{level: 2}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := r.Register(d, fakeProvider{level: 2}); err != nil {
		t.Fatalf("re-register of identical descriptor failed: %v", err)
	}
	if got := r.Len(); got != 1 {
		t.Fatalf("expected 1 live descriptor, got %d", got)
	}
}

func TestNewVersionSupersedesLookup(t *testing.T) {
	r := New()

	if err := r.Register(desc("totp", "v1", 2, CategoryPossession), fakeProvider{level: 2}); err != nil {
		t.Fatalf("register v1 failed: %v", err)
	}
	if err := r.Register(desc("totp", "v2", 2, CategoryPossession), fakeProvider{level: 2}); err != nil {
		t.Fatalf("register v2 failed: %v", err)
	}

	d, _, ok := r.Lookup("totp")
	if !ok || d.Version != "v2" {
		t.Fatalf("expected lookup to return v2, got %+v ok=%v", d, ok)
	}

	// The superseded version stays resolvable for in-flight sessions.
	if _, _, ok := r.Resolve("totp", "v1"); !ok {
		t.Fatal("expected v1 to remain resolvable")
	}
}

func TestUnregisterTombstonesButKeepsResolve(t *testing.T) {
	r := New()

	if err := r.Register(desc("totp", "v1", 2, CategoryPossession), fakeProvider{level: 2}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := r.Unregister("totp", "v1"); err != nil {
		t.Fatalf("unregister failed: %v", err)
	}

	if got := len(r.Query(Filter{})); got != 0 {
		t.Fatalf("tombstoned entry must not appear in Query, got %d", got)
	}
	if _, _, ok := r.Resolve("totp", "v1"); !ok {
		t.Fatal("tombstoned entry must remain resolvable")
	}
	if _, _, ok := r.Lookup("totp"); ok {
		t.Fatal("tombstoned entry must not be returned by Lookup")
	}

	if err := r.Unregister("totp", "v1"); err != nil {
		t.Fatalf("repeated unregister must be a no-op, got %v", err)
	}
	if err := r.Unregister("missing", "v1"); err != ErrNotRegistered {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
}

func TestUnregisterLatestFallsBackToPreviousLiveVersion(t *testing.T) {
	r := New()

	if err := r.Register(desc("totp", "v1", 2, CategoryPossession), fakeProvider{level: 2}); err != nil {
		t.Fatalf("register v1 failed: %v", err)
	}
	if err := r.Register(desc("totp", "v2", 2, CategoryPossession), fakeProvider{level: 2}); err != nil {
		t.Fatalf("register v2 failed: %v", err)
	}
	if err := r.Unregister("totp", "v2"); err != nil {
		t.Fatalf("unregister v2 failed: %v", err)
	}

	d, _, ok := r.Lookup("totp")
	if !ok || d.Version != "v1" {
		t.Fatalf("expected fallback to v1, got %+v ok=%v", d, ok)
	}
}

func TestQueryOrderingAndFilters(t *testing.T) {
	r := New()

	for _, d := range []Descriptor{
		desc("password", "v1", 1, CategoryKnowledge),
		desc("webauthn", "v1", 4, CategoryPossession),
		desc("totp", "v1", 2, CategoryPossession),
		desc("face", "v1", 2, CategoryBiometric),
	} {
		if err := r.Register(d, fakeProvider{level: d.AssuranceLevel}); err != nil {
			t.Fatalf("register %s failed: %v", d.ID, err)
		}
	}

	all := r.Query(Filter{})
	wantOrder := []string{"webauthn", "face", "totp", "password"}
	if len(all) != len(wantOrder) {
		t.Fatalf("expected %d descriptors, got %d", len(wantOrder), len(all))
	}
	for i, id := range wantOrder {
		if all[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, all[i].ID)
		}
	}

	strong := r.Query(Filter{MinAssurance: 2})
	if len(strong) != 3 {
		t.Fatalf("expected 3 descriptors at assurance >= 2, got %d", len(strong))
	}

	possession := r.Query(Filter{Category: CategoryPossession})
	if len(possession) != 2 {
		t.Fatalf("expected 2 possession descriptors, got %d", len(possession))
	}
}

func TestConcurrentRegisterAndQuery(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			versions := []string{"v1", "v2", "v3"}
			d := desc("totp", versions[n%len(versions)], 2, CategoryPossession)
			_ = r.Register(d, fakeProvider{level: 2})
			_ = r.Query(Filter{})
			_, _, _ = r.Lookup("totp")
		}(i)
	}
	wg.Wait()

	if _, _, ok := r.Lookup("totp"); !ok {
		t.Fatal("expected totp to be registered after concurrent writes")
	}
}
