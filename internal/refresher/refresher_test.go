package refresher

import (
	"context"
	"errors"
	"testing"
	"time"

	"docconsole/internal/core/domain"
	"docconsole/internal/core/usecase"
)

type catalogFake struct {
	models []domain.Model
	err    error
}

func (f *catalogFake) List(context.Context) ([]domain.Model, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.models, nil
}

type snapshotterFake struct {
	calls  int
	failOn map[string]error
}

func (f *snapshotterFake) Snapshot(_ context.Context, modelName string) (usecase.PipelineSnapshot, error) {
	f.calls++
	if err := f.failOn[modelName]; err != nil {
		return usecase.PipelineSnapshot{}, err
	}
	return usecase.PipelineSnapshot{
		Model:       modelName,
		GeneratedAt: time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC).Add(time.Duration(f.calls) * time.Minute),
	}, nil
}

func twoModels() *catalogFake {
	return &catalogFake{models: []domain.Model{
		{Name: "orderform"},
		{Name: "invoice"},
	}}
}

func TestRefreshAllSnapshotsEveryModel(t *testing.T) {
	status := &snapshotterFake{}
	r := New(twoModels(), status, time.Minute, nil)

	r.RefreshAll(context.Background())

	for _, name := range []string{"orderform", "invoice"} {
		if _, ok := r.Latest(name); !ok {
			t.Fatalf("expected snapshot for %s", name)
		}
	}
}

func TestRefreshAllKeepsPreviousSnapshotOnFailure(t *testing.T) {
	status := &snapshotterFake{}
	r := New(twoModels(), status, time.Minute, nil)

	r.RefreshAll(context.Background())
	first, _ := r.Latest("orderform")

	status.failOn = map[string]error{"orderform": errors.New("warehouse down")}
	r.RefreshAll(context.Background())

	kept, ok := r.Latest("orderform")
	if !ok || !kept.GeneratedAt.Equal(first.GeneratedAt) {
		t.Fatalf("failing model should retain its previous snapshot")
	}
	fresh, _ := r.Latest("invoice")
	if !fresh.GeneratedAt.After(first.GeneratedAt) {
		t.Fatalf("healthy model should have refreshed")
	}
}

func TestRefreshAllCatalogFailureKeepsState(t *testing.T) {
	catalog := twoModels()
	status := &snapshotterFake{}
	r := New(catalog, status, time.Minute, nil)

	r.RefreshAll(context.Background())
	catalog.err = errors.New("catalog unavailable")
	r.RefreshAll(context.Background())

	if _, ok := r.Latest("orderform"); !ok {
		t.Fatalf("snapshots must survive a catalog outage")
	}
}

func TestLatestUnknownModel(t *testing.T) {
	r := New(twoModels(), &snapshotterFake{}, time.Minute, nil)
	if _, ok := r.Latest("nope"); ok {
		t.Fatalf("expected no snapshot before any refresh")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	r := New(twoModels(), &snapshotterFake{}, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop after cancel")
	}

	if _, ok := r.Latest("orderform"); !ok {
		t.Fatalf("Run should have refreshed at least once")
	}
}
