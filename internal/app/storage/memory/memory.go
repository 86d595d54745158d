// Package memory provides an in-process storage backend used for tests and
// for running the server without a database.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ujamaadao/backend/internal/app/domain/identity"
	"github.com/ujamaadao/backend/internal/app/domain/ledger"
	"github.com/ujamaadao/backend/internal/app/domain/project"
	"github.com/ujamaadao/backend/internal/app/domain/proposal"
	"github.com/ujamaadao/backend/internal/app/domain/vote"
	"github.com/ujamaadao/backend/internal/app/storage"
)

// Store keeps everything in maps guarded by a single mutex. It implements
// every storage interface plus TxRunner.
type Store struct {
	mu sync.RWMutex

	users         map[string]identity.User
	usersByWallet map[string]string
	usersByEmail  map[string]string

	groups       map[string]identity.Group
	groupsByName map[string]string

	proposals map[string]proposal.Proposal

	projects           map[string]project.Project
	projectsByProposal map[string]string
	participants       map[string][]project.Participant

	tokens map[string]ledger.TokenBalance
	points map[string]ledger.ImpactPoint
	votes  map[string][]vote.Record

	// txMu serialises RunInTx calls against each other.
	txMu sync.Mutex
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:         make(map[string]identity.User),
		usersByWallet: make(map[string]string),
		usersByEmail:  make(map[string]string),
		groups:        make(map[string]identity.Group),
		groupsByName:  make(map[string]string),
		proposals:     make(map[string]proposal.Proposal),

		projects:           make(map[string]project.Project),
		projectsByProposal: make(map[string]string),
		participants:       make(map[string][]project.Participant),

		tokens: make(map[string]ledger.TokenBalance),
		points: make(map[string]ledger.ImpactPoint),
		votes:  make(map[string][]vote.Record),
	}
}

var (
	_ storage.IdentityStore = (*Store)(nil)
	_ storage.ProposalStore = (*Store)(nil)
	_ storage.ProjectStore  = (*Store)(nil)
	_ storage.TokenStore    = (*Store)(nil)
	_ storage.PointStore    = (*Store)(nil)
	_ storage.VoteStore     = (*Store)(nil)
	_ storage.TxRunner      = (*Store)(nil)
)

func normWallet(addr string) string { return strings.ToLower(strings.TrimSpace(addr)) }
func normEmail(addr string) string  { return strings.ToLower(strings.TrimSpace(addr)) }

func pointKey(h ledger.Holder, scope string) string { return h.String() + "|" + scope }

// CreateUser stores u, assigning an id when missing. ErrConflict reports a
// duplicate wallet or email.
func (s *Store) CreateUser(_ context.Context, u identity.User) (identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u.WalletAddress = normWallet(u.WalletAddress)
	u.Email = normEmail(u.Email)
	if _, ok := s.usersByWallet[u.WalletAddress]; ok {
		return identity.User{}, storage.ErrConflict
	}
	if _, ok := s.usersByEmail[u.Email]; ok {
		return identity.User{}, storage.ErrConflict
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	s.users[u.ID] = u
	s.usersByWallet[u.WalletAddress] = u.ID
	s.usersByEmail[u.Email] = u.ID
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return identity.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByWallet(_ context.Context, walletAddress string) (identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usersByWallet[normWallet(walletAddress)]
	if !ok {
		return identity.User{}, storage.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usersByEmail[normEmail(email)]
	if !ok {
		return identity.User{}, storage.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Store) UpdateUser(_ context.Context, u identity.User) (identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[u.ID]
	if !ok {
		return identity.User{}, storage.ErrNotFound
	}
	u.WalletAddress = normWallet(u.WalletAddress)
	u.Email = normEmail(u.Email)
	if u.Email != existing.Email {
		if _, taken := s.usersByEmail[u.Email]; taken {
			return identity.User{}, storage.ErrConflict
		}
	}
	if u.WalletAddress != existing.WalletAddress {
		if _, taken := s.usersByWallet[u.WalletAddress]; taken {
			return identity.User{}, storage.ErrConflict
		}
	}
	if u.Email != existing.Email {
		delete(s.usersByEmail, existing.Email)
		s.usersByEmail[u.Email] = u.ID
	}
	if u.WalletAddress != existing.WalletAddress {
		delete(s.usersByWallet, existing.WalletAddress)
		s.usersByWallet[u.WalletAddress] = u.ID
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

// RotateNonce is a compare-and-swap on the stored nonce.
func (s *Store) RotateNonce(_ context.Context, walletAddress, current, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.usersByWallet[normWallet(walletAddress)]
	if !ok {
		return storage.ErrNotFound
	}
	u := s.users[id]
	if u.Nonce != current {
		return storage.ErrStaleNonce
	}
	u.Nonce = next
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return nil
}

func (s *Store) CreateGroup(_ context.Context, g identity.Group) (identity.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g.WalletAddress = normWallet(g.WalletAddress)
	if _, ok := s.groupsByName[g.Name]; ok {
		return identity.Group{}, storage.ErrConflict
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	g.CreatedAt, g.UpdatedAt = now, now

	s.groups[g.ID] = g
	s.groupsByName[g.Name] = g.ID
	return g, nil
}

func (s *Store) GetGroup(_ context.Context, id string) (identity.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return identity.Group{}, storage.ErrNotFound
	}
	return g, nil
}

func (s *Store) GetGroupByName(_ context.Context, name string) (identity.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.groupsByName[name]
	if !ok {
		return identity.Group{}, storage.ErrNotFound
	}
	return s.groups[id], nil
}

func (s *Store) UpdateGroup(_ context.Context, g identity.Group) (identity.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.groups[g.ID]
	if !ok {
		return identity.Group{}, storage.ErrNotFound
	}
	if g.Name != existing.Name {
		if _, taken := s.groupsByName[g.Name]; taken {
			return identity.Group{}, storage.ErrConflict
		}
		delete(s.groupsByName, existing.Name)
		s.groupsByName[g.Name] = g.ID
	}
	g.WalletAddress = normWallet(g.WalletAddress)
	g.CreatedAt = existing.CreatedAt
	g.UpdatedAt = time.Now().UTC()
	s.groups[g.ID] = g
	return g, nil
}

func (s *Store) CreateProposal(_ context.Context, p proposal.Proposal) (proposal.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	s.proposals[p.ID] = p
	return p, nil
}

func (s *Store) GetProposal(_ context.Context, id string) (proposal.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.proposals[id]
	if !ok {
		return proposal.Proposal{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListProposals(_ context.Context, filter proposal.Filter) ([]proposal.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]proposal.Proposal, 0, len(s.proposals))
	for _, p := range s.proposals {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.LocationScope != "" && p.LocationScope != filter.LocationScope {
			continue
		}
		if filter.County != "" && p.County != filter.County {
			continue
		}
		if filter.Constituency != "" && p.Constituency != filter.Constituency {
			continue
		}
		if filter.Type != "" && p.Type != filter.Type {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateProposal(_ context.Context, p proposal.Proposal) (proposal.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.proposals[p.ID]
	if !ok {
		return proposal.Proposal{}, storage.ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.proposals[p.ID] = p
	return p, nil
}

// CreateProject stores p. ErrConflict reports an existing project for the
// same proposal.
func (s *Store) CreateProject(_ context.Context, p project.Project) (project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projectsByProposal[p.ProposalID]; ok {
		return project.Project{}, storage.ErrConflict
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	s.projects[p.ID] = p
	s.projectsByProposal[p.ProposalID] = p.ID
	return p, nil
}

func (s *Store) GetProject(_ context.Context, id string) (project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return project.Project{}, storage.ErrNotFound
	}
	return p, nil
}

// AddParticipant appends p to the project roster. ErrConflict reports a user
// already on the roster.
func (s *Store) AddParticipant(_ context.Context, p project.Participant) (project.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.participants[p.ProjectID] {
		if existing.UserID == p.UserID {
			return project.Participant{}, storage.ErrConflict
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()
	s.participants[p.ProjectID] = append(s.participants[p.ProjectID], p)
	return p, nil
}

func (s *Store) ListParticipants(_ context.Context, projectID string) ([]project.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.participants[projectID]
	out := make([]project.Participant, len(recs))
	copy(out, recs)
	return out, nil
}

// GetTokenBalance reports zero for holders with no row yet.
func (s *Store) GetTokenBalance(_ context.Context, holder ledger.Holder) (ledger.TokenBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if bal, ok := s.tokens[holder.String()]; ok {
		return bal, nil
	}
	return ledger.TokenBalance{Holder: holder}, nil
}

func (s *Store) AdjustTokenBalance(_ context.Context, holder ledger.Holder, delta int64) (ledger.TokenBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := holder.String()
	bal, ok := s.tokens[key]
	now := time.Now().UTC()
	if !ok {
		bal = ledger.TokenBalance{Holder: holder, CreatedAt: now}
	}
	if bal.Balance+delta < 0 {
		return ledger.TokenBalance{}, storage.ErrInsufficientBalance
	}
	bal.Balance += delta
	bal.UpdatedAt = now
	s.tokens[key] = bal
	return bal, nil
}

// GetImpactPoints reports zero for holders with no row yet.
func (s *Store) GetImpactPoints(_ context.Context, holder ledger.Holder, locationScope string) (ledger.ImpactPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if pt, ok := s.points[pointKey(holder, locationScope)]; ok {
		return pt, nil
	}
	return ledger.ImpactPoint{Holder: holder, LocationScope: locationScope}, nil
}

func (s *Store) AdjustImpactPoints(_ context.Context, holder ledger.Holder, locationScope string, delta int64) (ledger.ImpactPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pointKey(holder, locationScope)
	pt, ok := s.points[key]
	now := time.Now().UTC()
	if !ok {
		pt = ledger.ImpactPoint{Holder: holder, LocationScope: locationScope, CreatedAt: now}
	}
	if pt.Points+delta < 0 {
		return ledger.ImpactPoint{}, storage.ErrNegativePoints
	}
	pt.Points += delta
	pt.UpdatedAt = now
	s.points[key] = pt
	return pt, nil
}

func (s *Store) CreateVote(_ context.Context, rec vote.Record) (vote.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = time.Now().UTC()
	s.votes[rec.ProposalID] = append(s.votes[rec.ProposalID], rec)
	return rec, nil
}

func (s *Store) ListVotesByProposal(_ context.Context, proposalID string) ([]vote.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.votes[proposalID]
	out := make([]vote.Record, len(recs))
	copy(out, recs)
	return out, nil
}

// txView journals every write made through it so a failed transaction can
// undo exactly its own effects. Writes committed concurrently through the
// store's direct paths survive the rollback untouched.
type txView struct {
	s           *Store
	tokenDeltas map[string]int64
	pointDeltas map[string]int64
	votes       []vote.Record
}

var _ storage.TxStores = (*txView)(nil)

func (t *txView) GetTokenBalance(ctx context.Context, holder ledger.Holder) (ledger.TokenBalance, error) {
	return t.s.GetTokenBalance(ctx, holder)
}

func (t *txView) AdjustTokenBalance(ctx context.Context, holder ledger.Holder, delta int64) (ledger.TokenBalance, error) {
	bal, err := t.s.AdjustTokenBalance(ctx, holder, delta)
	if err == nil {
		t.tokenDeltas[holder.String()] += delta
	}
	return bal, err
}

func (t *txView) GetImpactPoints(ctx context.Context, holder ledger.Holder, locationScope string) (ledger.ImpactPoint, error) {
	return t.s.GetImpactPoints(ctx, holder, locationScope)
}

func (t *txView) AdjustImpactPoints(ctx context.Context, holder ledger.Holder, locationScope string, delta int64) (ledger.ImpactPoint, error) {
	pt, err := t.s.AdjustImpactPoints(ctx, holder, locationScope, delta)
	if err == nil {
		t.pointDeltas[pointKey(holder, locationScope)] += delta
	}
	return pt, err
}

func (t *txView) CreateVote(ctx context.Context, rec vote.Record) (vote.Record, error) {
	created, err := t.s.CreateVote(ctx, rec)
	if err == nil {
		t.votes = append(t.votes, created)
	}
	return created, err
}

func (t *txView) ListVotesByProposal(ctx context.Context, proposalID string) ([]vote.Record, error) {
	return t.s.ListVotesByProposal(ctx, proposalID)
}

// RunInTx serialises the callback against other transactions and, when fn
// fails, reverts only the writes fn made: the journalled ledger deltas are
// applied in reverse and the journalled vote rows removed.
func (s *Store) RunInTx(_ context.Context, fn func(tx storage.TxStores) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &txView{
		s:           s,
		tokenDeltas: make(map[string]int64),
		pointDeltas: make(map[string]int64),
	}
	if err := fn(tx); err != nil {
		s.undo(tx)
		return err
	}
	return nil
}

func (s *Store) undo(tx *txView) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for key, delta := range tx.tokenDeltas {
		if delta == 0 {
			continue
		}
		bal := s.tokens[key]
		bal.Balance -= delta
		bal.UpdatedAt = now
		s.tokens[key] = bal
	}
	for key, delta := range tx.pointDeltas {
		if delta == 0 {
			continue
		}
		pt := s.points[key]
		pt.Points -= delta
		pt.UpdatedAt = now
		s.points[key] = pt
	}
	for _, rec := range tx.votes {
		recs := s.votes[rec.ProposalID]
		for i := range recs {
			if recs[i].ID == rec.ID {
				s.votes[rec.ProposalID] = append(recs[:i], recs[i+1:]...)
				break
			}
		}
	}
}
