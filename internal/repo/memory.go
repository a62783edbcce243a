package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"reactionduel/internal/models"
)

// Memory is an in-process Repository used in tests and when no DATABASE_URL
// is configured. All methods copy entities on the way in and out so callers
// never share mutable state with the store.
type Memory struct {
	mu      sync.Mutex
	players map[string]*models.Player
	rooms   map[string]*models.Room
	rounds  map[string]*models.Round
	clicks  map[string]*models.ClickRecord

	// insertion order, for join-ordered and recency queries
	roomOrder  []string
	joinOrder  map[string][]string // roomID -> playerIDs in join order
	clickOrder []string
}

func NewMemory() *Memory {
	return &Memory{
		players:   make(map[string]*models.Player),
		rooms:     make(map[string]*models.Room),
		rounds:    make(map[string]*models.Round),
		clicks:    make(map[string]*models.ClickRecord),
		joinOrder: make(map[string][]string),
	}
}

func (m *Memory) CreatePlayer(_ context.Context, p *models.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	if cp.JoinedAt.IsZero() {
		cp.JoinedAt = time.Now()
	}
	m.players[cp.ID] = &cp
	m.joinOrder[cp.RoomID] = append(m.joinOrder[cp.RoomID], cp.ID)
	return nil
}

func (m *Memory) GetPlayer(_ context.Context, id string) (*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) PlayersInRoom(_ context.Context, roomID string) ([]*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.joinOrder[roomID]
	list := make([]*models.Player, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.players[id]; ok && p.RoomID == roomID {
			cp := *p
			list = append(list, &cp)
		}
	}
	return list, nil
}

func (m *Memory) ResetPlayerForMatch(_ context.Context, playerID, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[playerID]
	if !ok {
		return ErrNotFound
	}
	p.RoomID = roomID
	p.WonRounds = 0
	p.ReactionTime = 0
	p.Flicker = false
	p.IsTie = false
	p.JoinedAt = time.Now()
	m.joinOrder[roomID] = append(m.joinOrder[roomID], playerID)
	return nil
}

func (m *Memory) IncrementWonRounds(_ context.Context, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[playerID]
	if !ok {
		return ErrNotFound
	}
	p.WonRounds++
	return nil
}

func (m *Memory) SetFlicker(_ context.Context, playerID string, flicker bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[playerID]
	if !ok {
		return ErrNotFound
	}
	p.Flicker = flicker
	return nil
}

func (m *Memory) AddReactionTime(_ context.Context, playerID string, ms int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[playerID]
	if !ok {
		return ErrNotFound
	}
	p.ReactionTime += ms
	return nil
}

func (m *Memory) MarkRoomTied(_ context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.joinOrder[roomID] {
		if p, ok := m.players[id]; ok && p.RoomID == roomID {
			p.IsTie = true
		}
	}
	return nil
}

func (m *Memory) TopPlayers(_ context.Context, limit int) ([]*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*models.Player
	for _, p := range m.players {
		room, ok := m.rooms[p.RoomID]
		if !ok || !room.FinishedGame {
			continue
		}
		cp := *p
		list = append(list, &cp)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ReactionTime < list[j].ReactionTime
	})
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (m *Memory) CreateRoom(_ context.Context, r *models.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	m.rooms[cp.ID] = &cp
	m.roomOrder = append(m.roomOrder, cp.ID)
	return nil
}

func (m *Memory) GetRoom(_ context.Context, id string) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *Memory) WaitingRoom(_ context.Context) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.roomOrder {
		if r := m.rooms[id]; r.PlayerCount == 1 && !r.FinishedGame {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) SetRoomPlayerCount(_ context.Context, roomID string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return ErrNotFound
	}
	r.PlayerCount = count
	return nil
}

func (m *Memory) FinishRoom(_ context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return ErrNotFound
	}
	r.FinishedGame = true
	return nil
}

func (m *Memory) RecentFinishedRooms(_ context.Context, limit int) ([]*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*models.Room
	// roomOrder is oldest-first; walk backwards for newest-first
	for i := len(m.roomOrder) - 1; i >= 0 && len(list) < limit; i-- {
		if r := m.rooms[m.roomOrder[i]]; r.FinishedGame {
			cp := *r
			list = append(list, &cp)
		}
	}
	return list, nil
}

func (m *Memory) CreateRound(_ context.Context, r *models.Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	cp.Clicks = nil
	m.rounds[cp.ID] = &cp
	return nil
}

func (m *Memory) CurrentRound(_ context.Context, roomID string) (*models.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.Round
	for _, r := range m.rounds {
		if r.RoomID != roomID {
			continue
		}
		if latest == nil || r.RoundNumber > latest.RoundNumber {
			latest = r
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	cp := *latest
	for _, id := range m.clickOrder {
		if c := m.clicks[id]; c.RoundID == cp.ID {
			cp.Clicks = append(cp.Clicks, *c)
		}
	}
	return &cp, nil
}

func (m *Memory) CreateClick(_ context.Context, c *models.ClickRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.clickOrder {
		if ex := m.clicks[id]; ex.RoundID == c.RoundID && ex.PlayerID == c.PlayerID {
			return ErrDuplicateClick
		}
	}
	cp := *c
	m.clicks[cp.ID] = &cp
	m.clickOrder = append(m.clickOrder, cp.ID)
	return nil
}

func (m *Memory) ClicksForPlayer(_ context.Context, roomID, playerID string) ([]models.ClickRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []models.ClickRecord
	for _, id := range m.clickOrder {
		if c := m.clicks[id]; c.RoomID == roomID && c.PlayerID == playerID {
			list = append(list, *c)
		}
	}
	return list, nil
}
