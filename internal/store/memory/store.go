// Package memory implements the domain store interfaces in process
// memory. It backs the "memory" storage backend for local development
// and serves as the store double in service tests. A single mutex
// guards all state, which makes every primitive trivially atomic while
// preserving the exact conflict semantics of the PostgreSQL stores.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/clawarena/arena/internal/domain"
)

// state is the shared in-memory dataset guarded by one mutex.
type state struct {
	mu sync.Mutex

	agents       map[string]domain.Agent
	agentsByName map[string]string

	markets  map[string]domain.Market
	bets     map[string]domain.Bet
	betPairs map[string]string // marketID "/" agentID -> bet id

	posts     map[string]domain.Post
	replies   map[string]domain.Reply
	votes     map[string]domain.Vote
	votePairs map[string]string // postID "/" agentID -> vote id

	comments map[string]domain.MarketComment
}

// Store bundles every in-memory store implementation over one dataset.
type Store struct {
	Agents   *AgentStore
	Markets  *MarketStore
	Bets     *BetStore
	Posts    *PostStore
	Replies  *ReplyStore
	Votes    *VoteStore
	Comments *CommentStore
}

// New creates an empty in-memory dataset with all stores attached.
func New() *Store {
	st := &state{
		agents:       make(map[string]domain.Agent),
		agentsByName: make(map[string]string),
		markets:      make(map[string]domain.Market),
		bets:         make(map[string]domain.Bet),
		betPairs:     make(map[string]string),
		posts:        make(map[string]domain.Post),
		replies:      make(map[string]domain.Reply),
		votes:        make(map[string]domain.Vote),
		votePairs:    make(map[string]string),
		comments:     make(map[string]domain.MarketComment),
	}
	return &Store{
		Agents:   &AgentStore{st: st},
		Markets:  &MarketStore{st: st},
		Bets:     &BetStore{st: st},
		Posts:    &PostStore{st: st},
		Replies:  &ReplyStore{st: st},
		Votes:    &VoteStore{st: st},
		Comments: &CommentStore{st: st},
	}
}

func pairKey(a, b string) string {
	return a + "/" + b
}

// AgentStore implements domain.AgentStore in memory.
type AgentStore struct {
	st *state
}

func (s *AgentStore) Create(_ context.Context, a domain.Agent) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if _, taken := s.st.agentsByName[a.Name]; taken {
		return domain.ErrAlreadyExists
	}
	s.st.agents[a.ID] = a
	s.st.agentsByName[a.Name] = a.ID
	return nil
}

func (s *AgentStore) GetByID(_ context.Context, id string) (domain.Agent, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	a, ok := s.st.agents[id]
	if !ok {
		return domain.Agent{}, domain.ErrNotFound
	}
	return a, nil
}

func (s *AgentStore) GetByName(_ context.Context, name string) (domain.Agent, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	id, ok := s.st.agentsByName[name]
	if !ok {
		return domain.Agent{}, domain.ErrNotFound
	}
	return s.st.agents[id], nil
}

func (s *AgentStore) GetByAPIKeyHash(_ context.Context, hash string) (domain.Agent, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	for _, a := range s.st.agents {
		if a.APIKeyHash == hash {
			return a, nil
		}
	}
	return domain.Agent{}, domain.ErrNotFound
}

func (s *AgentStore) List(_ context.Context, opts domain.ListOpts) ([]domain.Agent, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	agents := make([]domain.Agent, 0, len(s.st.agents))
	for _, a := range s.st.agents {
		agents = append(agents, a)
	}
	sort.Slice(agents, func(i, j int) bool {
		if agents[i].Stats.Score != agents[j].Stats.Score {
			return agents[i].Stats.Score > agents[j].Stats.Score
		}
		if agents[i].Stats.PostCount != agents[j].Stats.PostCount {
			return agents[i].Stats.PostCount > agents[j].Stats.PostCount
		}
		return agents[i].CreatedAt.After(agents[j].CreatedAt)
	})
	return paginate(agents, opts), nil
}

func (s *AgentStore) AdjustScore(_ context.Context, id string, delta int) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	a, ok := s.st.agents[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Stats.Score += delta
	s.st.agents[id] = a
	return nil
}

func (s *AgentStore) AdjustVotesReceived(_ context.Context, id string, delta int) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	a, ok := s.st.agents[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Stats.VotesReceived += delta
	s.st.agents[id] = a
	return nil
}

func (s *AgentStore) IncrementCounter(_ context.Context, id string, field domain.CounterField) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	a, ok := s.st.agents[id]
	if !ok {
		return domain.ErrNotFound
	}
	switch field {
	case domain.CounterPostCount:
		a.Stats.PostCount++
	case domain.CounterReplyCount:
		a.Stats.ReplyCount++
	default:
		return domain.ErrNotFound
	}
	s.st.agents[id] = a
	return nil
}

func (s *AgentStore) Count(_ context.Context) (int64, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return int64(len(s.st.agents)), nil
}

// MarketStore implements domain.MarketStore in memory.
type MarketStore struct {
	st *state
}

func (s *MarketStore) Create(_ context.Context, m domain.Market) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	s.st.markets[m.ID] = m
	return nil
}

func (s *MarketStore) GetByID(_ context.Context, id string) (domain.Market, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	m, ok := s.st.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *MarketStore) List(_ context.Context, f domain.MarketFilter) ([]domain.Market, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	markets := make([]domain.Market, 0, len(s.st.markets))
	for _, m := range s.st.markets {
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		if f.Category != "" && !strings.Contains(strings.ToLower(m.Category), strings.ToLower(f.Category)) {
			continue
		}
		markets = append(markets, m)
	}
	if f.Sort == "popular" {
		sort.Slice(markets, func(i, j int) bool {
			pi := markets[i].Pools.YesCount + markets[i].Pools.NoCount
			pj := markets[j].Pools.YesCount + markets[j].Pools.NoCount
			if pi != pj {
				return pi > pj
			}
			return markets[i].CreatedAt.After(markets[j].CreatedAt)
		})
	} else {
		sort.Slice(markets, func(i, j int) bool {
			return markets[i].CreatedAt.After(markets[j].CreatedAt)
		})
	}
	if f.Limit > 0 && len(markets) > f.Limit {
		markets = markets[:f.Limit]
	}
	return markets, nil
}

func (s *MarketStore) ApplyBetPools(_ context.Context, id string, position domain.BetPosition, amount int) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	m, ok := s.st.markets[id]
	if !ok || m.Status != domain.MarketStatusOpen {
		return domain.ErrConcurrencyConflict
	}
	switch position {
	case domain.BetPositionYes:
		m.Pools.YesCount++
		m.Pools.YesAmount += amount
	case domain.BetPositionNo:
		m.Pools.NoCount++
		m.Pools.NoAmount += amount
	default:
		return domain.ErrInvalidPosition
	}
	s.st.markets[id] = m
	return nil
}

func (s *MarketStore) BeginResolution(_ context.Context, id string, status domain.MarketStatus, note string, resolvedAt time.Time) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	m, ok := s.st.markets[id]
	if !ok {
		return domain.ErrNotFound
	}
	if m.Status != domain.MarketStatusOpen {
		return domain.ErrAlreadyResolved
	}
	m.Status = status
	m.ResolutionNote = note
	t := resolvedAt
	m.ResolvedAt = &t
	s.st.markets[id] = m
	return nil
}

func (s *MarketStore) IncrementCommentCount(_ context.Context, id string) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	m, ok := s.st.markets[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.CommentCount++
	s.st.markets[id] = m
	return nil
}

func (s *MarketStore) Count(_ context.Context) (int64, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return int64(len(s.st.markets)), nil
}

// BetStore implements domain.BetStore in memory.
type BetStore struct {
	st *state
}

func (s *BetStore) CreateUnique(_ context.Context, b domain.Bet) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	key := pairKey(b.MarketID, b.AgentID)
	if _, taken := s.st.betPairs[key]; taken {
		return domain.ErrAlreadyExists
	}
	s.st.bets[b.ID] = b
	s.st.betPairs[key] = b.ID
	return nil
}

func (s *BetStore) Delete(_ context.Context, id string) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	b, ok := s.st.bets[id]
	if !ok || b.Settled {
		return domain.ErrNotFound
	}
	delete(s.st.bets, id)
	delete(s.st.betPairs, pairKey(b.MarketID, b.AgentID))
	return nil
}

func (s *BetStore) ListByMarket(_ context.Context, marketID string) ([]domain.Bet, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	var bets []domain.Bet
	for _, b := range s.st.bets {
		if b.MarketID == marketID {
			bets = append(bets, b)
		}
	}
	sort.Slice(bets, func(i, j int) bool {
		return bets[i].CreatedAt.After(bets[j].CreatedAt)
	})
	return bets, nil
}

func (s *BetStore) Settle(_ context.Context, id string, payout int) (bool, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	b, ok := s.st.bets[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if b.Settled {
		return false, nil
	}
	b.Payout = payout
	b.Settled = true
	s.st.bets[id] = b
	return true, nil
}

func (s *BetStore) Count(_ context.Context) (int64, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return int64(len(s.st.bets)), nil
}

// PostStore implements domain.PostStore in memory.
type PostStore struct {
	st *state
}

func (s *PostStore) Create(_ context.Context, p domain.Post) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	s.st.posts[p.ID] = p
	return nil
}

func (s *PostStore) GetByID(_ context.Context, id string) (domain.Post, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	p, ok := s.st.posts[id]
	if !ok {
		return domain.Post{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *PostStore) List(_ context.Context, f domain.PostFilter) ([]domain.Post, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	posts := make([]domain.Post, 0, len(s.st.posts))
	for _, p := range s.st.posts {
		if f.Topic != "" && !strings.Contains(strings.ToLower(p.Topic), strings.ToLower(f.Topic)) {
			continue
		}
		posts = append(posts, p)
	}
	if f.Sort == "top" {
		sort.Slice(posts, func(i, j int) bool {
			if posts[i].Upvotes != posts[j].Upvotes {
				return posts[i].Upvotes > posts[j].Upvotes
			}
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		})
	} else {
		sort.Slice(posts, func(i, j int) bool {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		})
	}
	if f.Limit > 0 && len(posts) > f.Limit {
		posts = posts[:f.Limit]
	}
	return posts, nil
}

func (s *PostStore) ListRecent(ctx context.Context, limit int) ([]domain.Post, error) {
	return s.List(ctx, domain.PostFilter{Limit: limit})
}

func (s *PostStore) AdjustVoteCounts(_ context.Context, id string, upDelta, downDelta int) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	p, ok := s.st.posts[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Upvotes += upDelta
	p.Downvotes += downDelta
	s.st.posts[id] = p
	return nil
}

func (s *PostStore) IncrementReplyCount(_ context.Context, id string) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	p, ok := s.st.posts[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.ReplyCount++
	s.st.posts[id] = p
	return nil
}

func (s *PostStore) Count(_ context.Context) (int64, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return int64(len(s.st.posts)), nil
}

// ReplyStore implements domain.ReplyStore in memory.
type ReplyStore struct {
	st *state
}

func (s *ReplyStore) Create(_ context.Context, r domain.Reply) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	s.st.replies[r.ID] = r
	return nil
}

func (s *ReplyStore) ListByPost(_ context.Context, postID string) ([]domain.Reply, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	var replies []domain.Reply
	for _, r := range s.st.replies {
		if r.PostID == postID {
			replies = append(replies, r)
		}
	}
	sort.Slice(replies, func(i, j int) bool {
		return replies[i].CreatedAt.Before(replies[j].CreatedAt)
	})
	return replies, nil
}

func (s *ReplyStore) ListRecent(_ context.Context, limit int) ([]domain.Reply, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	replies := make([]domain.Reply, 0, len(s.st.replies))
	for _, r := range s.st.replies {
		replies = append(replies, r)
	}
	sort.Slice(replies, func(i, j int) bool {
		return replies[i].CreatedAt.After(replies[j].CreatedAt)
	})
	if limit > 0 && len(replies) > limit {
		replies = replies[:limit]
	}
	return replies, nil
}

func (s *ReplyStore) Count(_ context.Context) (int64, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return int64(len(s.st.replies)), nil
}

// VoteStore implements domain.VoteStore in memory.
type VoteStore struct {
	st *state
}

func (s *VoteStore) CreateUnique(_ context.Context, v domain.Vote) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	key := pairKey(v.PostID, v.AgentID)
	if _, taken := s.st.votePairs[key]; taken {
		return domain.ErrAlreadyExists
	}
	s.st.votes[v.ID] = v
	s.st.votePairs[key] = v.ID
	return nil
}

func (s *VoteStore) GetByPostAgent(_ context.Context, postID, agentID string) (domain.Vote, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	id, ok := s.st.votePairs[pairKey(postID, agentID)]
	if !ok {
		return domain.Vote{}, domain.ErrNotFound
	}
	return s.st.votes[id], nil
}

func (s *VoteStore) UpdateValue(_ context.Context, id string, oldValue, newValue int) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	v, ok := s.st.votes[id]
	if !ok || v.Value != oldValue {
		return domain.ErrConcurrencyConflict
	}
	v.Value = newValue
	s.st.votes[id] = v
	return nil
}

func (s *VoteStore) Count(_ context.Context) (int64, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return int64(len(s.st.votes)), nil
}

// CommentStore implements domain.CommentStore in memory.
type CommentStore struct {
	st *state
}

func (s *CommentStore) Create(_ context.Context, c domain.MarketComment) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	s.st.comments[c.ID] = c
	return nil
}

func (s *CommentStore) ListByMarket(_ context.Context, marketID string) ([]domain.MarketComment, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	var comments []domain.MarketComment
	for _, c := range s.st.comments {
		if c.MarketID == marketID {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
	return comments, nil
}

func paginate(agents []domain.Agent, opts domain.ListOpts) []domain.Agent {
	if opts.Offset > 0 {
		if opts.Offset >= len(agents) {
			return nil
		}
		agents = agents[opts.Offset:]
	}
	if opts.Limit > 0 && len(agents) > opts.Limit {
		agents = agents[:opts.Limit]
	}
	return agents
}

// Compile-time interface checks.
var (
	_ domain.AgentStore   = (*AgentStore)(nil)
	_ domain.MarketStore  = (*MarketStore)(nil)
	_ domain.BetStore     = (*BetStore)(nil)
	_ domain.PostStore    = (*PostStore)(nil)
	_ domain.ReplyStore   = (*ReplyStore)(nil)
	_ domain.VoteStore    = (*VoteStore)(nil)
	_ domain.CommentStore = (*CommentStore)(nil)
)
