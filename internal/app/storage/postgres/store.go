// Package postgres implements the storage interfaces on PostgreSQL via
// database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ujamaadao/backend/internal/app/domain/identity"
	"github.com/ujamaadao/backend/internal/app/domain/ledger"
	"github.com/ujamaadao/backend/internal/app/domain/project"
	"github.com/ujamaadao/backend/internal/app/domain/proposal"
	"github.com/ujamaadao/backend/internal/app/domain/vote"
	"github.com/ujamaadao/backend/internal/app/storage"
)

// txMaxAttempts bounds the retry loop for serialization failures.
const txMaxAttempts = 3

// dbtx is the subset of *sql.DB and *sql.Tx the queries need, so the same
// methods run inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	q dbtx
}

// Store is the PostgreSQL backend. It implements every storage interface
// plus TxRunner.
type Store struct {
	db *sql.DB
	queries
}

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db, queries: queries{q: db}}
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

// mapErr translates driver errors into the shared sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return storage.ErrConflict
	}
	return err
}

func retryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	// serialization_failure, deadlock_detected
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}

// RunInTx executes fn in a transaction, retrying a bounded number of times
// when the database reports a serialization failure or deadlock.
func (s *Store) RunInTx(ctx context.Context, fn func(tx storage.TxStores) error) error {
	var lastErr error
	for attempt := 0; attempt < txMaxAttempts; attempt++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		if err := fn(&queries{q: tx}); err != nil {
			_ = tx.Rollback()
			if retryable(err) {
				lastErr = err
				continue
			}
			return err
		}
		if err := tx.Commit(); err != nil {
			if retryable(err) {
				lastErr = err
				continue
			}
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", txMaxAttempts, lastErr)
}

func normWallet(addr string) string { return strings.ToLower(strings.TrimSpace(addr)) }
func normEmail(addr string) string  { return strings.ToLower(strings.TrimSpace(addr)) }

const userColumns = `id, wallet_address, email, name, county_origin, constituency_origin,
	county_live, constituency_live, nonce, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (identity.User, error) {
	var u identity.User
	err := row.Scan(&u.ID, &u.WalletAddress, &u.Email, &u.Name, &u.CountyOrigin,
		&u.ConstituencyOrigin, &u.CountyLive, &u.ConstituencyLive, &u.Nonce,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return identity.User{}, mapErr(err)
	}
	return u, nil
}

func (s *queries) CreateUser(ctx context.Context, u identity.User) (identity.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	row := s.q.QueryRowContext(ctx, `
		INSERT INTO users (id, wallet_address, email, name, county_origin,
			constituency_origin, county_live, constituency_live, nonce)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+userColumns,
		u.ID, normWallet(u.WalletAddress), normEmail(u.Email), u.Name,
		u.CountyOrigin, u.ConstituencyOrigin, u.CountyLive, u.ConstituencyLive, u.Nonce)
	return scanUser(row)
}

func (s *queries) GetUser(ctx context.Context, id string) (identity.User, error) {
	return scanUser(s.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *queries) GetUserByWallet(ctx context.Context, walletAddress string) (identity.User, error) {
	return scanUser(s.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE wallet_address = $1`, normWallet(walletAddress)))
}

func (s *queries) GetUserByEmail(ctx context.Context, email string) (identity.User, error) {
	return scanUser(s.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, normEmail(email)))
}

func (s *queries) UpdateUser(ctx context.Context, u identity.User) (identity.User, error) {
	row := s.q.QueryRowContext(ctx, `
		UPDATE users
		SET wallet_address = $2, email = $3, name = $4, county_origin = $5,
			constituency_origin = $6, county_live = $7, constituency_live = $8,
			nonce = $9, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		u.ID, normWallet(u.WalletAddress), normEmail(u.Email), u.Name,
		u.CountyOrigin, u.ConstituencyOrigin, u.CountyLive, u.ConstituencyLive, u.Nonce)
	return scanUser(row)
}

// RotateNonce updates the nonce only where the current value still matches.
func (s *queries) RotateNonce(ctx context.Context, walletAddress, current, next string) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE users SET nonce = $3, updated_at = now()
		WHERE wallet_address = $1 AND nonce = $2`,
		normWallet(walletAddress), current, next)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrStaleNonce
	}
	return nil
}

const groupColumns = `id, name, wallet_address, county, constituency, industry_focus,
	created_at, updated_at`

func scanGroup(row interface{ Scan(...any) error }) (identity.Group, error) {
	var g identity.Group
	err := row.Scan(&g.ID, &g.Name, &g.WalletAddress, &g.County, &g.Constituency,
		&g.IndustryFocus, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return identity.Group{}, mapErr(err)
	}
	return g, nil
}

func (s *queries) CreateGroup(ctx context.Context, g identity.Group) (identity.Group, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	row := s.q.QueryRowContext(ctx, `
		INSERT INTO groups (id, name, wallet_address, county, constituency, industry_focus)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+groupColumns,
		g.ID, g.Name, normWallet(g.WalletAddress), g.County, g.Constituency, g.IndustryFocus)
	return scanGroup(row)
}

func (s *queries) GetGroup(ctx context.Context, id string) (identity.Group, error) {
	return scanGroup(s.q.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE id = $1`, id))
}

func (s *queries) GetGroupByName(ctx context.Context, name string) (identity.Group, error) {
	return scanGroup(s.q.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE name = $1`, name))
}

func (s *queries) UpdateGroup(ctx context.Context, g identity.Group) (identity.Group, error) {
	row := s.q.QueryRowContext(ctx, `
		UPDATE groups
		SET name = $2, wallet_address = $3, county = $4, constituency = $5,
			industry_focus = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+groupColumns,
		g.ID, g.Name, normWallet(g.WalletAddress), g.County, g.Constituency, g.IndustryFocus)
	return scanGroup(row)
}

const proposalColumns = `id, COALESCE(creator_user_id::text, ''), COALESCE(creator_group_id::text, ''),
	proposal_type, funded, title, description, budget, timeline, location_scope,
	constituency, county, purpose_details, status, created_at, updated_at`

func scanProposal(row interface{ Scan(...any) error }) (proposal.Proposal, error) {
	var p proposal.Proposal
	err := row.Scan(&p.ID, &p.CreatorUserID, &p.CreatorGroupID, &p.Type, &p.Funded,
		&p.Title, &p.Description, &p.Budget, &p.Timeline, &p.LocationScope,
		&p.Constituency, &p.County, &p.PurposeDetails, &p.Status,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return proposal.Proposal{}, mapErr(err)
	}
	return p, nil
}

func nullID(id string) any {
	if id == "" {
		return nil
	}
	return id
}

func (s *queries) CreateProposal(ctx context.Context, p proposal.Proposal) (proposal.Proposal, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	row := s.q.QueryRowContext(ctx, `
		INSERT INTO proposals (id, creator_user_id, creator_group_id, proposal_type,
			funded, title, description, budget, timeline, location_scope,
			constituency, county, purpose_details, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+proposalColumns,
		p.ID, nullID(p.CreatorUserID), nullID(p.CreatorGroupID), p.Type, p.Funded,
		p.Title, p.Description, p.Budget, p.Timeline, string(p.LocationScope),
		p.Constituency, p.County, p.PurposeDetails, string(p.Status))
	return scanProposal(row)
}

func (s *queries) GetProposal(ctx context.Context, id string) (proposal.Proposal, error) {
	return scanProposal(s.q.QueryRowContext(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id))
}

func (s *queries) ListProposals(ctx context.Context, filter proposal.Filter) ([]proposal.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE 1=1`
	var args []any
	add := func(clause string, val any) {
		args = append(args, val)
		query += fmt.Sprintf(" AND %s = $%d", clause, len(args))
	}
	if filter.Status != "" {
		add("status", string(filter.Status))
	}
	if filter.LocationScope != "" {
		add("location_scope", string(filter.LocationScope))
	}
	if filter.County != "" {
		add("county", filter.County)
	}
	if filter.Constituency != "" {
		add("constituency", filter.Constituency)
	}
	if filter.Type != "" {
		add("proposal_type", filter.Type)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []proposal.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *queries) UpdateProposal(ctx context.Context, p proposal.Proposal) (proposal.Proposal, error) {
	row := s.q.QueryRowContext(ctx, `
		UPDATE proposals
		SET proposal_type = $2, funded = $3, title = $4, description = $5,
			budget = $6, timeline = $7, location_scope = $8, constituency = $9,
			county = $10, purpose_details = $11, status = $12, updated_at = now()
		WHERE id = $1
		RETURNING `+proposalColumns,
		p.ID, p.Type, p.Funded, p.Title, p.Description, p.Budget, p.Timeline,
		string(p.LocationScope), p.Constituency, p.County, p.PurposeDetails, string(p.Status))
	return scanProposal(row)
}

const projectColumns = `id, proposal_id, title, description, budget, timeline, status,
	location_scope, constituency, county, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (project.Project, error) {
	var p project.Project
	err := row.Scan(&p.ID, &p.ProposalID, &p.Title, &p.Description, &p.Budget,
		&p.Timeline, &p.Status, &p.LocationScope, &p.Constituency, &p.County,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return project.Project{}, mapErr(err)
	}
	return p, nil
}

func (s *queries) CreateProject(ctx context.Context, p project.Project) (project.Project, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	row := s.q.QueryRowContext(ctx, `
		INSERT INTO projects (id, proposal_id, title, description, budget,
			timeline, status, location_scope, constituency, county)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+projectColumns,
		p.ID, p.ProposalID, p.Title, p.Description, p.Budget, p.Timeline,
		string(p.Status), string(p.LocationScope), p.Constituency, p.County)
	return scanProject(row)
}

func (s *queries) GetProject(ctx context.Context, id string) (project.Project, error) {
	return scanProject(s.q.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
}

func (s *queries) AddParticipant(ctx context.Context, p project.Participant) (project.Participant, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO project_participants (id, project_id, user_id, role)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		p.ID, p.ProjectID, p.UserID, string(p.Role)).
		Scan(&p.CreatedAt)
	if err != nil {
		return project.Participant{}, mapErr(err)
	}
	return p, nil
}

func (s *queries) ListParticipants(ctx context.Context, projectID string) ([]project.Participant, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, project_id, user_id, role, created_at
		FROM project_participants WHERE project_id = $1 ORDER BY created_at`,
		projectID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []project.Participant
	for rows.Next() {
		var p project.Participant
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.UserID, &p.Role, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *queries) GetTokenBalance(ctx context.Context, holder ledger.Holder) (ledger.TokenBalance, error) {
	bal := ledger.TokenBalance{Holder: holder}
	err := s.q.QueryRowContext(ctx, `
		SELECT balance, created_at, updated_at FROM token_balances
		WHERE holder_kind = $1 AND holder_id = $2`,
		string(holder.Kind), holder.ID).
		Scan(&bal.Balance, &bal.CreatedAt, &bal.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// Rows are created lazily; absent means zero.
		return ledger.TokenBalance{Holder: holder}, nil
	}
	if err != nil {
		return ledger.TokenBalance{}, mapErr(err)
	}
	return bal, nil
}

// AdjustTokenBalance creates the row at zero if missing, then applies delta
// only when the result stays non-negative.
func (s *queries) AdjustTokenBalance(ctx context.Context, holder ledger.Holder, delta int64) (ledger.TokenBalance, error) {
	if _, err := s.q.ExecContext(ctx, `
		INSERT INTO token_balances (holder_kind, holder_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		string(holder.Kind), holder.ID); err != nil {
		return ledger.TokenBalance{}, mapErr(err)
	}

	bal := ledger.TokenBalance{Holder: holder}
	err := s.q.QueryRowContext(ctx, `
		UPDATE token_balances
		SET balance = balance + $3, updated_at = now()
		WHERE holder_kind = $1 AND holder_id = $2 AND balance + $3 >= 0
		RETURNING balance, created_at, updated_at`,
		string(holder.Kind), holder.ID, delta).
		Scan(&bal.Balance, &bal.CreatedAt, &bal.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.TokenBalance{}, storage.ErrInsufficientBalance
	}
	if err != nil {
		return ledger.TokenBalance{}, mapErr(err)
	}
	return bal, nil
}

func (s *queries) GetImpactPoints(ctx context.Context, holder ledger.Holder, locationScope string) (ledger.ImpactPoint, error) {
	pt := ledger.ImpactPoint{Holder: holder, LocationScope: locationScope}
	err := s.q.QueryRowContext(ctx, `
		SELECT points, created_at, updated_at FROM impact_points
		WHERE holder_kind = $1 AND holder_id = $2 AND location_scope = $3`,
		string(holder.Kind), holder.ID, locationScope).
		Scan(&pt.Points, &pt.CreatedAt, &pt.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.ImpactPoint{Holder: holder, LocationScope: locationScope}, nil
	}
	if err != nil {
		return ledger.ImpactPoint{}, mapErr(err)
	}
	return pt, nil
}

// AdjustImpactPoints mirrors AdjustTokenBalance for the reputation ledger.
func (s *queries) AdjustImpactPoints(ctx context.Context, holder ledger.Holder, locationScope string, delta int64) (ledger.ImpactPoint, error) {
	if _, err := s.q.ExecContext(ctx, `
		INSERT INTO impact_points (holder_kind, holder_id, location_scope)
		VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		string(holder.Kind), holder.ID, locationScope); err != nil {
		return ledger.ImpactPoint{}, mapErr(err)
	}

	pt := ledger.ImpactPoint{Holder: holder, LocationScope: locationScope}
	err := s.q.QueryRowContext(ctx, `
		UPDATE impact_points
		SET points = points + $4, updated_at = now()
		WHERE holder_kind = $1 AND holder_id = $2 AND location_scope = $3 AND points + $4 >= 0
		RETURNING points, created_at, updated_at`,
		string(holder.Kind), holder.ID, locationScope, delta).
		Scan(&pt.Points, &pt.CreatedAt, &pt.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.ImpactPoint{}, storage.ErrNegativePoints
	}
	if err != nil {
		return ledger.ImpactPoint{}, mapErr(err)
	}
	return pt, nil
}

func (s *queries) CreateVote(ctx context.Context, rec vote.Record) (vote.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO votes (id, proposal_id, voter_id, is_group, vote, tokens_spent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		rec.ID, rec.ProposalID, rec.VoterID, rec.IsGroup, rec.Vote, rec.TokensSpent).
		Scan(&rec.CreatedAt)
	if err != nil {
		return vote.Record{}, mapErr(err)
	}
	return rec, nil
}

func (s *queries) ListVotesByProposal(ctx context.Context, proposalID string) ([]vote.Record, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, proposal_id, voter_id, is_group, vote, tokens_spent, created_at
		FROM votes WHERE proposal_id = $1 ORDER BY created_at`,
		proposalID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []vote.Record
	for rows.Next() {
		var rec vote.Record
		if err := rows.Scan(&rec.ID, &rec.ProposalID, &rec.VoterID, &rec.IsGroup,
			&rec.Vote, &rec.TokensSpent, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
