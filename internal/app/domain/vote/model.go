// Package vote holds the immutable vote audit record and its aggregation.
package vote

import "time"

// Record is one cast vote. Records are append-only; tokens spent are captured
// at cast time for auditability.
type Record struct {
	ID          string    `json:"id"`
	ProposalID  string    `json:"proposalId"`
	VoterID     string    `json:"voterId"`
	IsGroup     bool      `json:"isGroup"`
	Vote        bool      `json:"vote"`
	TokensSpent int64     `json:"tokensSpent"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Tally result labels.
const (
	ResultApproved = "Approved"
	ResultRejected = "Rejected"
	ResultTie      = "Tie"
)

// Tally is the aggregated outcome for one proposal.
type Tally struct {
	TotalVotes int    `json:"totalVotes"`
	YesVotes   int    `json:"yesVotes"`
	NoVotes    int    `json:"noVotes"`
	Result     string `json:"result"`
}

// Count tallies a slice of records.
func Count(records []Record) Tally {
	tally := Tally{TotalVotes: len(records)}
	for _, rec := range records {
		if rec.Vote {
			tally.YesVotes++
		}
	}
	tally.NoVotes = tally.TotalVotes - tally.YesVotes
	switch {
	case tally.YesVotes > tally.NoVotes:
		tally.Result = ResultApproved
	case tally.NoVotes > tally.YesVotes:
		tally.Result = ResultRejected
	default:
		tally.Result = ResultTie
	}
	return tally
}
