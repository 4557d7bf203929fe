package jobs

import (
	"context"
	"path/filepath"
	"testing"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndPending(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	jobID, err := s.Create(ctx, "extract", []string{"vidA", "vidB", "vidC"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if jobID == 0 {
		t.Fatal("job id should be non-zero")
	}

	pending, err := s.Pending(ctx, jobID)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 3 || pending[0] != "vidA" || pending[2] != "vidC" {
		t.Errorf("pending = %v, want insertion order [vidA vidB vidC]", pending)
	}
}

func TestMarkDoneAndFailed(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	jobID, err := s.Create(ctx, "extract", []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.MarkDone(ctx, jobID, "a"); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	if err := s.MarkFailed(ctx, jobID, "b", "caption file unreadable"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	pending, err := s.Pending(ctx, jobID)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0] != "c" {
		t.Errorf("pending = %v, want [c]", pending)
	}

	st, err := s.JobStats(ctx, jobID)
	if err != nil {
		t.Fatalf("JobStats: %v", err)
	}
	if st.Pending != 1 || st.Done != 1 || st.Failed != 1 {
		t.Errorf("stats = %+v, want 1/1/1", st)
	}
}

func TestResume(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if id, err := s.Resume(ctx, "extract"); err != nil || id != 0 {
		t.Fatalf("Resume on empty db = (%d, %v), want (0, nil)", id, err)
	}

	first, err := s.Create(ctx, "extract", []string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Create(ctx, "extract", []string{"b"})
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Resume(ctx, "extract")
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if got != second {
		t.Errorf("Resume = %d, want newest unfinished job %d", got, second)
	}

	if err := s.Finish(ctx, second); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	got, err = s.Resume(ctx, "extract")
	if err != nil {
		t.Fatal(err)
	}
	if got != first {
		t.Errorf("Resume after finish = %d, want %d", got, first)
	}
}

func TestResumeIgnoresOtherKinds(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "reverify", []string{"x"}); err != nil {
		t.Fatal(err)
	}
	if id, err := s.Resume(ctx, "extract"); err != nil || id != 0 {
		t.Errorf("Resume(extract) = (%d, %v), want (0, nil)", id, err)
	}
}

func TestReopenKeepsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	jobID, err := s.Create(ctx, "extract", []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.MarkDone(ctx, jobID, "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	resumed, err := s2.Resume(ctx, "extract")
	if err != nil {
		t.Fatal(err)
	}
	if resumed != jobID {
		t.Fatalf("Resume after reopen = %d, want %d", resumed, jobID)
	}
	pending, err := s2.Pending(ctx, resumed)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0] != "b" {
		t.Errorf("pending after reopen = %v, want [b]", pending)
	}
}
