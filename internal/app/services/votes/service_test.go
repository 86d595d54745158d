package votes

import (
	"context"
	"testing"

	"github.com/ujamaadao/backend/internal/app/domain/ledger"
	"github.com/ujamaadao/backend/internal/app/domain/proposal"
	"github.com/ujamaadao/backend/internal/app/domain/vote"
	"github.com/ujamaadao/backend/internal/app/storage/memory"
	"github.com/ujamaadao/backend/internal/errors"
)

func flag(b bool) *bool { return &b }

func newFixture(t *testing.T, status proposal.Status) (*Service, *memory.Store, proposal.Proposal) {
	t.Helper()
	store := memory.New()
	prop, err := store.CreateProposal(context.Background(), proposal.Proposal{
		CreatorUserID: "creator",
		Title:         "Community well",
		Description:   "Drill a borehole",
		LocationScope: proposal.ScopeCounty,
		County:        "Kisumu",
		Status:        status,
	})
	if err != nil {
		t.Fatalf("seed proposal: %v", err)
	}
	return New(store, store, store, nil), store, prop
}

func seedVoter(t *testing.T, store *memory.Store, id string, points, tokens int64) {
	t.Helper()
	ctx := context.Background()
	holder := ledger.UserHolder(id)
	if points > 0 {
		if _, err := store.AdjustImpactPoints(ctx, holder, "", points); err != nil {
			t.Fatalf("seed points: %v", err)
		}
	}
	if tokens > 0 {
		if _, err := store.AdjustTokenBalance(ctx, holder, tokens); err != nil {
			t.Fatalf("seed tokens: %v", err)
		}
	}
}

func TestCastSpendsTokensAndRewardsPoints(t *testing.T) {
	svc, store, prop := newFixture(t, proposal.StatusVoting)
	ctx := context.Background()
	seedVoter(t, store, "u1", 15, 10)

	rec, err := svc.Cast(ctx, CastRequest{ProposalID: prop.ID, VoterID: "u1", IsGroup: flag(false), Vote: flag(true), TokensSpent: 2})
	if err != nil {
		t.Fatalf("cast: %v", err)
	}
	if rec.ID == "" || !rec.Vote || rec.TokensSpent != 2 {
		t.Fatalf("unexpected record %+v", rec)
	}

	holder := ledger.UserHolder("u1")
	bal, _ := store.GetTokenBalance(ctx, holder)
	if bal.Balance != 8 {
		t.Fatalf("balance %d, want 8", bal.Balance)
	}
	pts, _ := store.GetImpactPoints(ctx, holder, "")
	if pts.Points != 15+ImpactPointsReward {
		t.Fatalf("points %d, want %d", pts.Points, 15+ImpactPointsReward)
	}
	recs, _ := store.ListVotesByProposal(ctx, prop.ID)
	if len(recs) != 1 {
		t.Fatalf("%d vote records, want 1", len(recs))
	}
}

func TestCastRejectsNonPositiveTokenSpend(t *testing.T) {
	svc, store, prop := newFixture(t, proposal.StatusVoting)
	ctx := context.Background()
	seedVoter(t, store, "u1", 20, 10)

	for _, spend := range []int64{0, -3} {
		_, err := svc.Cast(ctx, CastRequest{ProposalID: prop.ID, VoterID: "u1", IsGroup: flag(false), Vote: flag(true), TokensSpent: spend})
		svcErr := errors.GetServiceError(err)
		if svcErr == nil || svcErr.Code != errors.CodeValidation {
			t.Fatalf("spend %d: got %v, want validation error", spend, err)
		}
	}
	bal, _ := store.GetTokenBalance(ctx, ledger.UserHolder("u1"))
	if bal.Balance != 10 {
		t.Fatalf("balance %d changed on rejected cast", bal.Balance)
	}
}

func TestCastRejectsLowImpactPoints(t *testing.T) {
	svc, store, prop := newFixture(t, proposal.StatusVoting)
	ctx := context.Background()
	seedVoter(t, store, "u1", MinImpactPointsToVote-1, 10)

	_, err := svc.Cast(ctx, CastRequest{ProposalID: prop.ID, VoterID: "u1", IsGroup: flag(false), Vote: flag(true), TokensSpent: 1})
	svcErr := errors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != errors.CodeIneligible {
		t.Fatalf("got %v, want ineligible", err)
	}

	// No reward, no vote row, no spend on a rejected cast.
	pts, _ := store.GetImpactPoints(ctx, ledger.UserHolder("u1"), "")
	if pts.Points != MinImpactPointsToVote-1 {
		t.Fatalf("points %d changed on rejection", pts.Points)
	}
	recs, _ := store.ListVotesByProposal(ctx, prop.ID)
	if len(recs) != 0 {
		t.Fatalf("%d vote records on rejection", len(recs))
	}
}

func TestCastRejectsClosedProposal(t *testing.T) {
	for _, status := range []proposal.Status{proposal.StatusDraft, proposal.StatusApproved, proposal.StatusRejected} {
		svc, store, prop := newFixture(t, status)
		ctx := context.Background()
		seedVoter(t, store, "u1", 20, 10)

		_, err := svc.Cast(ctx, CastRequest{ProposalID: prop.ID, VoterID: "u1", IsGroup: flag(false), Vote: flag(true), TokensSpent: 1})
		svcErr := errors.GetServiceError(err)
		if svcErr == nil || svcErr.Code != errors.CodeIneligible {
			t.Fatalf("status %s: got %v, want ineligible", status, err)
		}
		recs, _ := store.ListVotesByProposal(ctx, prop.ID)
		if len(recs) != 0 {
			t.Fatalf("status %s: vote recorded on closed proposal", status)
		}
	}
}

func TestCastRollsBackOnInsufficientTokens(t *testing.T) {
	svc, store, prop := newFixture(t, proposal.StatusVoting)
	ctx := context.Background()
	seedVoter(t, store, "u1", 15, 1)

	_, err := svc.Cast(ctx, CastRequest{ProposalID: prop.ID, VoterID: "u1", IsGroup: flag(false), Vote: flag(true), TokensSpent: 5})
	svcErr := errors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != errors.CodeIneligible {
		t.Fatalf("got %v, want ineligible", err)
	}

	holder := ledger.UserHolder("u1")
	pts, _ := store.GetImpactPoints(ctx, holder, "")
	if pts.Points != 15 {
		t.Fatalf("points %d, want 15 after rollback", pts.Points)
	}
	bal, _ := store.GetTokenBalance(ctx, holder)
	if bal.Balance != 1 {
		t.Fatalf("balance %d, want 1 after rollback", bal.Balance)
	}
	recs, _ := store.ListVotesByProposal(ctx, prop.ID)
	if len(recs) != 0 {
		t.Fatalf("%d vote records after rollback", len(recs))
	}
}

func TestCastUnknownProposal(t *testing.T) {
	svc, store, _ := newFixture(t, proposal.StatusVoting)
	seedVoter(t, store, "u1", 20, 10)

	_, err := svc.Cast(context.Background(), CastRequest{ProposalID: "missing", VoterID: "u1", IsGroup: flag(false), Vote: flag(true), TokensSpent: 1})
	svcErr := errors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != errors.CodeNotFound {
		t.Fatalf("got %v, want not found", err)
	}
}

func TestCastValidation(t *testing.T) {
	svc, _, prop := newFixture(t, proposal.StatusVoting)
	ctx := context.Background()

	if _, err := svc.Cast(ctx, CastRequest{VoterID: "u1", IsGroup: flag(false), Vote: flag(true), TokensSpent: 1}); err == nil {
		t.Fatal("missing proposal id accepted")
	}
	if _, err := svc.Cast(ctx, CastRequest{ProposalID: prop.ID, IsGroup: flag(false), Vote: flag(true), TokensSpent: 1}); err == nil {
		t.Fatal("missing voter id accepted")
	}
}

func TestCastRequiresBooleanFields(t *testing.T) {
	svc, store, prop := newFixture(t, proposal.StatusVoting)
	ctx := context.Background()
	seedVoter(t, store, "u1", 20, 10)

	cases := map[string]CastRequest{
		"missing vote":    {ProposalID: prop.ID, VoterID: "u1", IsGroup: flag(false), TokensSpent: 1},
		"missing isGroup": {ProposalID: prop.ID, VoterID: "u1", Vote: flag(true), TokensSpent: 1},
	}
	for name, req := range cases {
		_, err := svc.Cast(ctx, req)
		svcErr := errors.GetServiceError(err)
		if svcErr == nil || svcErr.Code != errors.CodeValidation {
			t.Fatalf("%s: got %v, want validation error", name, err)
		}
	}

	// Nothing moves on a rejected cast.
	bal, _ := store.GetTokenBalance(ctx, ledger.UserHolder("u1"))
	if bal.Balance != 10 {
		t.Fatalf("balance %d changed on rejected cast", bal.Balance)
	}
	recs, _ := store.ListVotesByProposal(ctx, prop.ID)
	if len(recs) != 0 {
		t.Fatalf("%d records on rejected cast", len(recs))
	}
}

func TestRepeatVotesAreAllowed(t *testing.T) {
	svc, store, prop := newFixture(t, proposal.StatusVoting)
	ctx := context.Background()
	seedVoter(t, store, "u1", 20, 10)

	if _, err := svc.Cast(ctx, CastRequest{ProposalID: prop.ID, VoterID: "u1", IsGroup: flag(false), Vote: flag(true), TokensSpent: 1}); err != nil {
		t.Fatalf("first cast: %v", err)
	}
	if _, err := svc.Cast(ctx, CastRequest{ProposalID: prop.ID, VoterID: "u1", IsGroup: flag(false), Vote: flag(false), TokensSpent: 1}); err != nil {
		t.Fatalf("second cast: %v", err)
	}
	recs, _ := store.ListVotesByProposal(ctx, prop.ID)
	if len(recs) != 2 {
		t.Fatalf("%d records, want 2", len(recs))
	}
}

func TestTally(t *testing.T) {
	svc, store, prop := newFixture(t, proposal.StatusVoting)
	ctx := context.Background()
	for _, voter := range []string{"a", "b", "c"} {
		seedVoter(t, store, voter, 20, 10)
	}
	for voter, choice := range map[string]bool{"a": true, "b": true, "c": false} {
		if _, err := svc.Cast(ctx, CastRequest{ProposalID: prop.ID, VoterID: voter, IsGroup: flag(false), Vote: flag(choice), TokensSpent: 1}); err != nil {
			t.Fatalf("cast %s: %v", voter, err)
		}
	}

	tally, err := svc.Tally(ctx, prop.ID)
	if err != nil {
		t.Fatalf("tally: %v", err)
	}
	want := vote.Tally{TotalVotes: 3, YesVotes: 2, NoVotes: 1, Result: vote.ResultApproved}
	if tally != want {
		t.Fatalf("tally %+v, want %+v", tally, want)
	}
}

func TestTallyTieAndRejected(t *testing.T) {
	if got := vote.Count([]vote.Record{{Vote: true}, {Vote: false}}); got.Result != vote.ResultTie {
		t.Fatalf("tie tally %+v", got)
	}
	if got := vote.Count([]vote.Record{{Vote: false}}); got.Result != vote.ResultRejected {
		t.Fatalf("rejected tally %+v", got)
	}
	if got := vote.Count(nil); got.Result != vote.ResultTie || got.TotalVotes != 0 {
		t.Fatalf("empty tally %+v", got)
	}
}

func TestTallyWithoutVotesIsNotFound(t *testing.T) {
	svc, _, prop := newFixture(t, proposal.StatusVoting)
	_, err := svc.Tally(context.Background(), prop.ID)
	svcErr := errors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != errors.CodeNotFound {
		t.Fatalf("got %v, want not found", err)
	}
}

func TestTallyUnknownProposal(t *testing.T) {
	svc, _, _ := newFixture(t, proposal.StatusVoting)
	_, err := svc.Tally(context.Background(), "missing")
	svcErr := errors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != errors.CodeNotFound {
		t.Fatalf("got %v, want not found", err)
	}
}
