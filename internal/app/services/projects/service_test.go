package projects

import (
	"context"
	"testing"

	"github.com/ujamaadao/backend/internal/app/domain/identity"
	"github.com/ujamaadao/backend/internal/app/domain/project"
	"github.com/ujamaadao/backend/internal/app/domain/proposal"
	"github.com/ujamaadao/backend/internal/app/storage/memory"
	"github.com/ujamaadao/backend/internal/errors"
)

func newFixture(t *testing.T, status proposal.Status) (*Service, *memory.Store, proposal.Proposal) {
	t.Helper()
	store := memory.New()
	prop, err := store.CreateProposal(context.Background(), proposal.Proposal{
		CreatorUserID: "creator",
		Title:         "Community well",
		Description:   "Drill a borehole",
		Budget:        50000,
		Timeline:      "Q3",
		LocationScope: proposal.ScopeCounty,
		County:        "Kisumu",
		Status:        status,
	})
	if err != nil {
		t.Fatalf("seed proposal: %v", err)
	}
	return New(store, store, store, nil), store, prop
}

func seedUser(t *testing.T, store *memory.Store, wallet, email string) identity.User {
	t.Helper()
	u, err := store.CreateUser(context.Background(), identity.User{
		WalletAddress: wallet,
		Email:         email,
		Name:          "Member",
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func TestCreateFromProposalCopiesFields(t *testing.T) {
	svc, _, prop := newFixture(t, proposal.StatusApproved)

	created, err := svc.CreateFromProposal(context.Background(), prop.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.ProposalID != prop.ID {
		t.Fatalf("unexpected project %+v", created)
	}
	if created.Status != project.StatusActive {
		t.Fatalf("status %s, want ACTIVE", created.Status)
	}
	if created.Title != prop.Title || created.Budget != prop.Budget ||
		created.Timeline != prop.Timeline || created.County != prop.County ||
		created.LocationScope != prop.LocationScope {
		t.Fatalf("proposal fields not copied: %+v", created)
	}
}

func TestCreateFromProposalRequiresApproval(t *testing.T) {
	for _, status := range []proposal.Status{proposal.StatusDraft, proposal.StatusVoting, proposal.StatusRejected} {
		svc, _, prop := newFixture(t, status)
		_, err := svc.CreateFromProposal(context.Background(), prop.ID)
		svcErr := errors.GetServiceError(err)
		if svcErr == nil || svcErr.Code != errors.CodeIneligible {
			t.Fatalf("status %s: got %v, want ineligible", status, err)
		}
	}
}

func TestCreateFromProposalIsOncePerProposal(t *testing.T) {
	svc, _, prop := newFixture(t, proposal.StatusApproved)
	ctx := context.Background()

	if _, err := svc.CreateFromProposal(ctx, prop.ID); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.CreateFromProposal(ctx, prop.ID)
	svcErr := errors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != errors.CodeConflict {
		t.Fatalf("got %v, want conflict", err)
	}
}

func TestCreateFromProposalUnknown(t *testing.T) {
	svc, _, _ := newFixture(t, proposal.StatusApproved)

	_, err := svc.CreateFromProposal(context.Background(), "missing")
	svcErr := errors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != errors.CodeNotFound {
		t.Fatalf("got %v, want not found", err)
	}
	if _, err := svc.CreateFromProposal(context.Background(), ""); err == nil {
		t.Fatal("empty proposal id accepted")
	}
}

func TestAddParticipantDefaultsToMember(t *testing.T) {
	svc, store, prop := newFixture(t, proposal.StatusApproved)
	ctx := context.Background()
	proj, err := svc.CreateFromProposal(ctx, prop.ID)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	u := seedUser(t, store, "0xaaa", "a@x.io")

	p, err := svc.AddParticipant(ctx, proj.ID, u.ID, "")
	if err != nil {
		t.Fatalf("add participant: %v", err)
	}
	if p.Role != project.RoleMember {
		t.Fatalf("role %s, want MEMBER", p.Role)
	}

	admin := seedUser(t, store, "0xbbb", "b@x.io")
	p, err = svc.AddParticipant(ctx, proj.ID, admin.ID, "admin")
	if err != nil {
		t.Fatalf("add admin: %v", err)
	}
	if p.Role != project.RoleAdmin {
		t.Fatalf("role %s, want ADMIN", p.Role)
	}
}

func TestAddParticipantRejectsDuplicates(t *testing.T) {
	svc, store, prop := newFixture(t, proposal.StatusApproved)
	ctx := context.Background()
	proj, _ := svc.CreateFromProposal(ctx, prop.ID)
	u := seedUser(t, store, "0xaaa", "a@x.io")

	if _, err := svc.AddParticipant(ctx, proj.ID, u.ID, ""); err != nil {
		t.Fatalf("first add: %v", err)
	}
	_, err := svc.AddParticipant(ctx, proj.ID, u.ID, "ADMIN")
	svcErr := errors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != errors.CodeConflict {
		t.Fatalf("got %v, want conflict", err)
	}
}

func TestAddParticipantValidation(t *testing.T) {
	svc, store, prop := newFixture(t, proposal.StatusApproved)
	ctx := context.Background()
	proj, _ := svc.CreateFromProposal(ctx, prop.ID)
	u := seedUser(t, store, "0xaaa", "a@x.io")

	if _, err := svc.AddParticipant(ctx, proj.ID, u.ID, "OWNER"); err == nil {
		t.Fatal("unknown role accepted")
	}
	if _, err := svc.AddParticipant(ctx, "", u.ID, ""); err == nil {
		t.Fatal("missing project id accepted")
	}
	if _, err := svc.AddParticipant(ctx, proj.ID, "", ""); err == nil {
		t.Fatal("missing user id accepted")
	}

	_, err := svc.AddParticipant(ctx, "missing", u.ID, "")
	svcErr := errors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != errors.CodeNotFound {
		t.Fatalf("unknown project: got %v, want not found", err)
	}
	_, err = svc.AddParticipant(ctx, proj.ID, "missing", "")
	svcErr = errors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != errors.CodeNotFound {
		t.Fatalf("unknown user: got %v, want not found", err)
	}
}

func TestListParticipantsAttachesUsers(t *testing.T) {
	svc, store, prop := newFixture(t, proposal.StatusApproved)
	ctx := context.Background()
	proj, _ := svc.CreateFromProposal(ctx, prop.ID)
	a := seedUser(t, store, "0xaaa", "a@x.io")
	b := seedUser(t, store, "0xbbb", "b@x.io")

	if _, err := svc.AddParticipant(ctx, proj.ID, a.ID, "ADMIN"); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if _, err := svc.AddParticipant(ctx, proj.ID, b.ID, ""); err != nil {
		t.Fatalf("add b: %v", err)
	}

	out, err := svc.ListParticipants(ctx, proj.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("%d participants, want 2", len(out))
	}
	for _, p := range out {
		if p.User == nil || p.User.ID != p.UserID {
			t.Fatalf("participant %s missing user profile", p.UserID)
		}
	}
}

func TestListParticipantsUnknownProject(t *testing.T) {
	svc, _, _ := newFixture(t, proposal.StatusApproved)
	_, err := svc.ListParticipants(context.Background(), "missing")
	svcErr := errors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != errors.CodeNotFound {
		t.Fatalf("got %v, want not found", err)
	}
}
