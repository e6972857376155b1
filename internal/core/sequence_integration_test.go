package core_test

import (
	"context"
	"sync"
	"testing"
)

func TestSequenceService_ConcurrentNextIsUnique(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	const workers, perWorker = 10, 20
	var (
		mu   sync.Mutex
		seen = map[int64]bool{}
		wg   sync.WaitGroup
	)
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				v, err := s.seq.Next(ctx, "order")
				if err != nil {
					errs <- err
					return
				}
				mu.Lock()
				if seen[v] {
					errs <- errDuplicate(v)
				}
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Next failed: %v", err)
	}

	if len(seen) != workers*perWorker {
		t.Errorf("Expected %d distinct values, got %d", workers*perWorker, len(seen))
	}
	for v := int64(1); v <= workers*perWorker; v++ {
		if !seen[v] {
			t.Errorf("Expected value %d to be handed out", v)
		}
	}
}

func TestSequenceService_CountersAreIndependent(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.seq.Next(ctx, "quote"); err != nil {
			t.Fatalf("Next(quote) failed: %v", err)
		}
	}
	v, err := s.seq.Next(ctx, "invoice:202601")
	if err != nil {
		t.Fatalf("Next(invoice) failed: %v", err)
	}
	if v != 1 {
		t.Errorf("Expected a fresh counter to start at 1, got %d", v)
	}
}

func TestSequenceService_NextTxRollsBack(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if v, err := s.seq.NextTx(ctx, tx, "quote"); err != nil || v != 1 {
		t.Fatalf("Expected NextTx to return 1, got %d (err %v)", v, err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	v, err := s.seq.Next(ctx, "quote")
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if v != 1 {
		t.Errorf("Expected rolled-back increment to be discarded, got %d", v)
	}
}

type errDuplicate int64

func (e errDuplicate) Error() string {
	return "duplicate sequence value"
}
