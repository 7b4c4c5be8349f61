package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"relay-agent/src/contracts"
)

func record(id, sha string, started time.Time) *contracts.BuildRecord {
	return &contracts.BuildRecord{
		ID:        id,
		Kind:      contracts.TargetCommit,
		SHA:       sha,
		Ref:       "refs/heads/develop",
		CloneURL:  "https://example.com/repo.git",
		State:     contracts.StatePending,
		ExitCode:  -1,
		StartedAt: started,
	}
}

func TestInMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	if err := s.CreateBuild(ctx, record("b1", "abc123", time.Now())); err != nil {
		t.Fatalf("CreateBuild() unexpected error: %v", err)
	}

	got, err := s.GetBuild(ctx, "b1")
	if err != nil {
		t.Fatalf("GetBuild() unexpected error: %v", err)
	}
	if got.State != contracts.StatePending {
		t.Errorf("State = %q, want pending", got.State)
	}

	if err := s.FinishBuild(ctx, "b1", contracts.StateSuccess, 0, "Build succeeded"); err != nil {
		t.Fatalf("FinishBuild() unexpected error: %v", err)
	}

	got, err = s.GetBuild(ctx, "b1")
	if err != nil {
		t.Fatalf("GetBuild() unexpected error: %v", err)
	}
	if got.State != contracts.StateSuccess || got.ExitCode != 0 {
		t.Errorf("finished record = %+v, want success/0", got)
	}
	if got.FinishedAt.IsZero() {
		t.Error("FinishedAt not set")
	}
}

func TestInMemoryStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	if _, err := s.GetBuild(ctx, "missing"); !errors.As(err, &ErrNotFound{}) {
		t.Errorf("GetBuild() error = %v, want ErrNotFound", err)
	}
	if err := s.FinishBuild(ctx, "missing", contracts.StateFailure, 1, ""); !errors.As(err, &ErrNotFound{}) {
		t.Errorf("FinishBuild() error = %v, want ErrNotFound", err)
	}
}

func TestInMemoryStoreListRecent(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	base := time.Now()
	for i, id := range []string{"b1", "b2", "b3"} {
		if err := s.CreateBuild(ctx, record(id, "sha"+id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}

	recs, err := s.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent() unexpected error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("ListRecent() returned %d records, want 2", len(recs))
	}
	if recs[0].ID != "b3" || recs[1].ID != "b2" {
		t.Errorf("ListRecent() order = %s, %s; want b3, b2", recs[0].ID, recs[1].ID)
	}
}
