package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"trend-hunter/internal/domain"
)

// staticSource is a minimal Source used for registry tests.
type staticSource struct {
	id string
}

func (s *staticSource) ID() string { return s.id }

func (s *staticSource) Hunt(_ context.Context) ([]RawRecord, error) {
	return nil, nil
}

func (s *staticSource) Transform(_ RawRecord) (*domain.Discovery, error) {
	return nil, ErrMalformedRecord
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&staticSource{id: "a"}, time.Minute); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	e, err := r.Get("a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if e.Source.ID() != "a" {
		t.Errorf("wrong source returned: %s", e.Source.ID())
	}
	if e.Cadence != time.Minute {
		t.Errorf("cadence mismatch: got %v", e.Cadence)
	}
}

func TestRegistry_DuplicateID(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&staticSource{id: "a"}, time.Minute); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	err := r.Register(&staticSource{id: "a"}, time.Minute)
	if !errors.Is(err, ErrDuplicateSource) {
		t.Errorf("expected ErrDuplicateSource, got %v", err)
	}
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&staticSource{id: "a"}, time.Minute); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Unregister("a"); err != nil {
		t.Fatalf("Unregister failed: %v", err)
	}

	if _, err := r.Get("a"); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("expected ErrUnknownSource after Unregister, got %v", err)
	}
	if err := r.Unregister("a"); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("expected ErrUnknownSource on double Unregister, got %v", err)
	}
}

func TestRegistry_IDsSorted(t *testing.T) {
	r := NewRegistry()

	for _, id := range []string{"charlie", "alpha", "bravo"} {
		if err := r.Register(&staticSource{id: id}, 0); err != nil {
			t.Fatalf("Register %s failed: %v", id, err)
		}
	}

	ids := r.IDs()
	want := []string{"alpha", "bravo", "charlie"}
	if len(ids) != len(want) {
		t.Fatalf("expected %d ids, got %d", len(want), len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %s, want %s", i, ids[i], want[i])
		}
	}
}

func TestRegistry_DefaultCadence(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&staticSource{id: "a"}, 0); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	e, err := r.Get("a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if e.Cadence != DefaultCadence {
		t.Errorf("expected DefaultCadence, got %v", e.Cadence)
	}
}
