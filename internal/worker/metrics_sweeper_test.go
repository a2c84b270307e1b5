package worker

import (
	"context"
	"errors"
	"testing"

	"inline/internal/model"
)

type fakeCloser struct {
	scopes     []*string
	scopesErr  error
	perScope   map[string]int // remaining closable batches per scope key
	closeCalls int
}

func scopeKey(dishID *string) string {
	if dishID == nil {
		return "<nil>"
	}
	return *dishID
}

func (f *fakeCloser) ReadyScopes(ctx context.Context) ([]*string, error) {
	return f.scopes, f.scopesErr
}

func (f *fakeCloser) CloseBatch(ctx context.Context, dishID *string) (*model.TMAMetric, error) {
	f.closeCalls++
	key := scopeKey(dishID)
	if f.perScope[key] == 0 {
		return nil, nil
	}
	f.perScope[key]--
	return &model.TMAMetric{ID: "m-" + key, DishID: dishID, AvgSeconds: 12}, nil
}

func TestSweepDrainsBackloggedScopes(t *testing.T) {
	dishA := "dish-a"
	f := &fakeCloser{
		scopes:   []*string{&dishA, nil},
		perScope: map[string]int{"dish-a": 2, "<nil>": 1},
	}

	w := NewMetricsSweeper(f, 0)
	if err := w.sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	// 2 closes + exhaustion probe for dish-a, 1 close + probe for nil scope.
	if f.closeCalls != 5 {
		t.Errorf("close calls = %d, want 5", f.closeCalls)
	}
	if f.perScope["dish-a"] != 0 || f.perScope["<nil>"] != 0 {
		t.Errorf("scopes not drained: %v", f.perScope)
	}
}

func TestSweepPropagatesScopeListError(t *testing.T) {
	f := &fakeCloser{scopesErr: errors.New("db down")}
	w := NewMetricsSweeper(f, 0)
	if err := w.sweep(context.Background()); err == nil {
		t.Fatal("expected error when scope listing fails")
	}
	if f.closeCalls != 0 {
		t.Errorf("close calls = %d, want 0", f.closeCalls)
	}
}

func TestSweepWithNoReadyScopes(t *testing.T) {
	f := &fakeCloser{}
	w := NewMetricsSweeper(f, 0)
	if err := w.sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if f.closeCalls != 0 {
		t.Errorf("close calls = %d, want 0", f.closeCalls)
	}
}
