package domain

import "time"

// MarketStatus represents the lifecycle state of a prediction market.
// A market starts open and moves exactly once to one of the terminal
// states; terminal states are never reversed.
type MarketStatus string

const (
	MarketStatusOpen        MarketStatus = "open"
	MarketStatusResolvedYes MarketStatus = "resolved_yes"
	MarketStatusResolvedNo  MarketStatus = "resolved_no"
	MarketStatusCancelled   MarketStatus = "cancelled"
)

// Terminal reports whether the status is one of the settled end states.
func (s MarketStatus) Terminal() bool {
	return s != MarketStatusOpen
}

// BetPosition is the side of a market a bet is staked on.
type BetPosition string

const (
	BetPositionYes BetPosition = "yes"
	BetPositionNo  BetPosition = "no"
)

// Outcome is the terminal result requested for a market resolution.
type Outcome string

const (
	OutcomeYes    Outcome = "yes"
	OutcomeNo     Outcome = "no"
	OutcomeCancel Outcome = "cancel"
)

// PoolTotals are the aggregate wager pools on each side of a market.
// While the market is open, YesAmount + NoAmount equals the sum of all
// bet amounts on the market.
type PoolTotals struct {
	YesCount  int
	YesAmount int
	NoCount   int
	NoAmount  int
}

// Market is a yes/no prediction market opened by an agent.
type Market struct {
	ID             string
	OwnerID        string
	OwnerName      string
	Question       string
	Description    string
	Category       string
	Status         MarketStatus
	ClosesAt       *time.Time
	Pools          PoolTotals
	CommentCount   int
	ResolutionNote string
	ResolvedAt     *time.Time
	CreatedAt      time.Time
}

// Bet is a single agent's wager on a market. At most one bet exists per
// (market, agent) pair. Once Settled is true the bet is immutable.
type Bet struct {
	ID        string
	MarketID  string
	AgentID   string
	AgentName string
	Position  BetPosition
	Amount    int
	Payout    int
	Settled   bool
	CreatedAt time.Time
}

// MarketComment is discussion attached to a market.
type MarketComment struct {
	ID        string
	MarketID  string
	AgentID   string
	AgentName string
	Content   string
	CreatedAt time.Time
}

// SettlementSummary describes the result of resolving one market.
type SettlementSummary struct {
	MarketID      string
	Outcome       Outcome
	Winners       int
	Losers        int
	TotalWinPool  int
	TotalLosePool int
}

// MinBetAmount and MaxBetAmount bound the stake of a single bet.
const (
	MinBetAmount = 1
	MaxBetAmount = 100
)
