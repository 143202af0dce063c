package main

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/irfndi/oddsradar-go/internal/models"
	"github.com/irfndi/oddsradar-go/internal/utils"
)

// memoryStore keeps one scan's bookmakers, events, quotes and opportunities
// in memory. It satisfies the store interfaces of services.SyncService.
type memoryStore struct {
	mu sync.RWMutex

	bookmakers    map[string]models.Bookmaker // by id
	bookmakerKeys map[string]string           // key -> id
	events        map[string]*models.Event    // by id
	eventKeys     map[string]string           // source|external id -> id
	odds          []models.OddsSnapshot
	opportunities []models.Opportunity
	states        map[string]models.SyncState
}

func newMemoryStore() *memoryStore {
	s := &memoryStore{
		bookmakers:    make(map[string]models.Bookmaker),
		bookmakerKeys: make(map[string]string),
		events:        make(map[string]*models.Event),
		eventKeys:     make(map[string]string),
		states:        make(map[string]models.SyncState),
	}
	for _, b := range models.DefaultBookmakers() {
		_, _ = s.Upsert(context.Background(), b)
	}
	return s
}

// eventStore exposes the event side of a memoryStore, whose own Upsert and
// GetByID serve bookmakers and opportunities.
type eventStore struct{ *memoryStore }

func (s *memoryStore) Upsert(_ context.Context, b models.Bookmaker) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.bookmakerKeys[b.Key]; ok {
		return id, nil
	}
	b.ID = uuid.NewString()
	s.bookmakers[b.ID] = b
	s.bookmakerKeys[b.Key] = b.ID
	return b.ID, nil
}

func (s *memoryStore) List(_ context.Context) ([]models.Bookmaker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Bookmaker, 0, len(s.bookmakers))
	for _, b := range s.bookmakers {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s eventStore) Upsert(_ context.Context, ev models.NormalizedEvent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := string(ev.SourceAPI) + "|" + ev.ExternalID
	id, ok := s.eventKeys[key]
	if !ok {
		id = uuid.NewString()
		s.eventKeys[key] = id
	}
	s.events[id] = &models.Event{
		ID:           id,
		ExternalID:   ev.ExternalID,
		SourceAPI:    ev.SourceAPI,
		SportKey:     ev.SportKey,
		Competition:  ev.Competition,
		HomeTeam:     ev.HomeTeam,
		AwayTeam:     ev.AwayTeam,
		CommenceTime: ev.CommenceTime,
		Status:       ev.Status,
	}
	return id, nil
}

func (s eventStore) GetByID(_ context.Context, id string) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[id]
	if !ok {
		return nil, utils.NewNotFoundError("event", id)
	}
	cp := *ev
	return &cp, nil
}

func (s *memoryStore) InsertSnapshots(_ context.Context, snapshots []models.OddsSnapshot) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.odds = append(s.odds, snapshots...)
	return len(snapshots), nil
}

// ListRecent joins quotes captured at or after since with their bookmaker.
func (s *memoryStore) ListRecent(_ context.Context, since time.Time) ([]models.QuoteSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.QuoteSnapshot
	for _, o := range s.odds {
		if o.CapturedAt.Before(since) {
			continue
		}
		b := s.bookmakers[o.BookmakerID]
		out = append(out, models.QuoteSnapshot{
			OddsSnapshot:      o,
			BookmakerKey:      b.Key,
			BookmakerName:     b.Name,
			Commission:        b.Commission,
			Reliability:       b.Reliability,
			MaxStake:          b.MaxStake,
			SupportsBothSides: b.SupportsBothSides,
		})
	}
	return out, nil
}

// HistoryForEvent returns the newest quotes first, like the database.
func (s *memoryStore) HistoryForEvent(ctx context.Context, eventID, market string, limit int) ([]models.QuoteSnapshot, error) {
	all, err := s.ListRecent(ctx, time.Time{})
	if err != nil {
		return nil, err
	}
	var out []models.QuoteSnapshot
	for _, q := range all {
		if q.EventID == eventID && q.MarketType == market {
			out = append(out, q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CapturedAt.After(out[j].CapturedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) Create(_ context.Context, o *models.Opportunity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.opportunities = append(s.opportunities, *o)
	return nil
}

func (s *memoryStore) GetByID(_ context.Context, id string) (*models.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.opportunities {
		if s.opportunities[i].ID == id {
			cp := s.opportunities[i]
			return &cp, nil
		}
	}
	return nil, utils.NewNotFoundError("opportunity", id)
}

func (s *memoryStore) Stats(_ context.Context, now time.Time) (*models.DashboardStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &models.DashboardStats{SystemHealth: "healthy"}
	var profit, latency float64
	for _, o := range s.opportunities {
		if o.Status == models.OpportunityActive && o.ExpiresAt.After(now) {
			stats.ActiveOpportunities++
		}
		profit += o.ProfitPercentage
		latency += float64(o.LatencyMs)
	}
	stats.OpportunitiesLast24h = len(s.opportunities)
	if n := len(s.opportunities); n > 0 {
		stats.AvgProfitPercentage = profit / float64(n)
		stats.AvgLatencyMs = latency / float64(n)
	}
	return stats, nil
}

func (s *memoryStore) Record(_ context.Context, provider, sportKey string, success bool, errMsg string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := provider + "|" + sportKey
	st := s.states[key]
	st.Provider = provider
	st.SportKey = sportKey
	st.LastSyncAt = &at
	st.TotalSyncs++
	if success {
		st.LastSuccessAt = &at
		st.ConsecutiveErrors = 0
	} else {
		st.LastErrorAt = &at
		st.LastError = errMsg
		st.ConsecutiveErrors++
	}
	s.states[key] = st
	return nil
}

// Opportunities returns the detected opportunities, most profitable first.
func (s *memoryStore) Opportunities() []models.Opportunity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]models.Opportunity(nil), s.opportunities...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ProfitPercentage > out[j].ProfitPercentage })
	return out
}
