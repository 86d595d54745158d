package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/ujamaadao/backend/internal/app/domain/identity"
	"github.com/ujamaadao/backend/internal/app/domain/ledger"
	"github.com/ujamaadao/backend/internal/app/domain/vote"
	"github.com/ujamaadao/backend/internal/app/storage"
	"github.com/ujamaadao/backend/internal/errors"
)

func TestUserUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.CreateUser(ctx, identity.User{WalletAddress: "0xAAA", Email: "a@x.io", Name: "A"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateUser(ctx, identity.User{WalletAddress: "0xaaa", Email: "b@x.io", Name: "B"}); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("duplicate wallet: got %v, want ErrConflict", err)
	}
	if _, err := s.CreateUser(ctx, identity.User{WalletAddress: "0xbbb", Email: "A@x.io", Name: "B"}); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("duplicate email: got %v, want ErrConflict", err)
	}

	got, err := s.GetUserByWallet(ctx, "0xAaA")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.Email != "a@x.io" {
		t.Fatalf("got %q", got.Email)
	}
}

func TestRotateNonceCompareAndSwap(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.CreateUser(ctx, identity.User{WalletAddress: "0xaaa", Email: "a@x.io", Name: "A", Nonce: "n1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.RotateNonce(ctx, "0xaaa", "n1", "n2"); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if err := s.RotateNonce(ctx, "0xaaa", "n1", "n3"); !errors.Is(err, storage.ErrStaleNonce) {
		t.Fatalf("stale rotate: got %v, want ErrStaleNonce", err)
	}
	if err := s.RotateNonce(ctx, "0xzzz", "n1", "n2"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unknown wallet: got %v, want ErrNotFound", err)
	}
}

func TestTokenBalanceFloor(t *testing.T) {
	s := New()
	ctx := context.Background()
	holder := ledger.UserHolder("u1")

	bal, err := s.GetTokenBalance(ctx, holder)
	if err != nil || bal.Balance != 0 {
		t.Fatalf("fresh balance: %d, %v", bal.Balance, err)
	}
	if _, err := s.AdjustTokenBalance(ctx, holder, 100); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := s.AdjustTokenBalance(ctx, holder, -150); !errors.Is(err, storage.ErrInsufficientBalance) {
		t.Fatalf("overdraft: got %v", err)
	}
	bal, _ = s.GetTokenBalance(ctx, holder)
	if bal.Balance != 100 {
		t.Fatalf("overdraft changed balance to %d", bal.Balance)
	}
}

func TestConcurrentDeductsNeverOverdraw(t *testing.T) {
	s := New()
	ctx := context.Background()
	holder := ledger.GroupHolder("g1")
	if _, err := s.AdjustTokenBalance(ctx, holder, 150); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var wg sync.WaitGroup
	successes := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AdjustTokenBalance(ctx, holder, -100); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	var n int
	for range successes {
		n++
	}
	if n != 1 {
		t.Fatalf("got %d successful deducts, want 1", n)
	}
	bal, _ := s.GetTokenBalance(ctx, holder)
	if bal.Balance != 50 {
		t.Fatalf("final balance %d, want 50", bal.Balance)
	}
}

func TestImpactPointScopes(t *testing.T) {
	s := New()
	ctx := context.Background()
	holder := ledger.UserHolder("u1")

	if _, err := s.AdjustImpactPoints(ctx, holder, "", 10); err != nil {
		t.Fatalf("global: %v", err)
	}
	if _, err := s.AdjustImpactPoints(ctx, holder, "nairobi", 3); err != nil {
		t.Fatalf("scoped: %v", err)
	}
	global, _ := s.GetImpactPoints(ctx, holder, "")
	scoped, _ := s.GetImpactPoints(ctx, holder, "nairobi")
	if global.Points != 10 || scoped.Points != 3 {
		t.Fatalf("points %d/%d, want 10/3", global.Points, scoped.Points)
	}
	if _, err := s.AdjustImpactPoints(ctx, holder, "nairobi", -5); !errors.Is(err, storage.ErrNegativePoints) {
		t.Fatalf("negative points: got %v", err)
	}
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	holder := ledger.UserHolder("u1")
	if _, err := s.AdjustTokenBalance(ctx, holder, 100); err != nil {
		t.Fatalf("seed: %v", err)
	}

	failure := errors.New("boom")
	err := s.RunInTx(ctx, func(tx storage.TxStores) error {
		if _, err := tx.AdjustTokenBalance(ctx, holder, -40); err != nil {
			return err
		}
		if _, err := tx.AdjustImpactPoints(ctx, holder, "", 5); err != nil {
			return err
		}
		if _, err := tx.CreateVote(ctx, vote.Record{ProposalID: "p1", VoterID: "u1", Vote: true}); err != nil {
			return err
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("got %v, want the callback error", err)
	}

	bal, _ := s.GetTokenBalance(ctx, holder)
	if bal.Balance != 100 {
		t.Fatalf("balance %d after rollback, want 100", bal.Balance)
	}
	pts, _ := s.GetImpactPoints(ctx, holder, "")
	if pts.Points != 0 {
		t.Fatalf("points %d after rollback, want 0", pts.Points)
	}
	votes, _ := s.ListVotesByProposal(ctx, "p1")
	if len(votes) != 0 {
		t.Fatalf("%d votes after rollback, want 0", len(votes))
	}
}

func TestRunInTxRollbackKeepsConcurrentWrites(t *testing.T) {
	s := New()
	ctx := context.Background()
	holder := ledger.UserHolder("u1")
	if _, err := s.AdjustTokenBalance(ctx, holder, 100); err != nil {
		t.Fatalf("seed: %v", err)
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	failure := errors.New("boom")
	done := make(chan error, 1)
	go func() {
		done <- s.RunInTx(ctx, func(tx storage.TxStores) error {
			if _, err := tx.AdjustTokenBalance(ctx, holder, -40); err != nil {
				return err
			}
			close(entered)
			<-release
			return failure
		})
	}()

	// A direct mint commits while the transaction is still in flight.
	<-entered
	if _, err := s.AdjustTokenBalance(ctx, holder, 50); err != nil {
		t.Fatalf("concurrent mint: %v", err)
	}
	close(release)

	if err := <-done; !errors.Is(err, failure) {
		t.Fatalf("got %v, want the callback error", err)
	}

	// Rollback undoes the -40 spend but must not erase the mint.
	bal, _ := s.GetTokenBalance(ctx, holder)
	if bal.Balance != 150 {
		t.Fatalf("balance %d, want 150", bal.Balance)
	}
}

func TestRunInTxCommits(t *testing.T) {
	s := New()
	ctx := context.Background()
	holder := ledger.UserHolder("u1")

	err := s.RunInTx(ctx, func(tx storage.TxStores) error {
		if _, err := tx.AdjustTokenBalance(ctx, holder, 25); err != nil {
			return err
		}
		_, err := tx.CreateVote(ctx, vote.Record{ProposalID: "p1", VoterID: "u1", Vote: false})
		return err
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
	bal, _ := s.GetTokenBalance(ctx, holder)
	if bal.Balance != 25 {
		t.Fatalf("balance %d, want 25", bal.Balance)
	}
	votes, _ := s.ListVotesByProposal(ctx, "p1")
	if len(votes) != 1 {
		t.Fatalf("%d votes, want 1", len(votes))
	}
}
