package models

import "time"

// Player is a participant's durable record. The ID is a client-held token
// issued on first connect, stable across reconnects; it is not the transport
// connection id. Players are never deleted so finished matches keep their
// leaderboard history.
type Player struct {
	ID           string    `json:"id"`
	PlayerName   string    `json:"playerName"`
	RoomID       string    `json:"roomId"`
	WonRounds    int       `json:"wonRounds"`
	ReactionTime int       `json:"reactionTime"` // cumulative ms across the match
	Flicker      bool      `json:"flicker"`
	IsTie        bool      `json:"isTie"`
	JoinedAt     time.Time `json:"-"`
}

// Room is a match session container. PlayerCount is 1 while waiting for an
// opponent and 2 once full. A finished room is never reused.
type Room struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	PlayerCount  int       `json:"playerCount"`
	FinishedGame bool      `json:"finishedGame"`
	CreatedAt    time.Time `json:"-"`
}

// Round is one timed attempt at locating a revealed target cell. Round
// numbers start at 1; number 11 is reserved for the tie-break decider.
type Round struct {
	ID          string        `json:"id"`
	RoomID      string        `json:"roomId"`
	RoundNumber int           `json:"roundNumber"`
	TargetCell  int           `json:"targetCell"` // cell index in the 10x10 grid, [1,100]
	DelayMs     int           `json:"delay"`      // reveal delay measured from CreatedAt
	CreatedAt   time.Time     `json:"-"`
	Clicks      []ClickRecord `json:"-"`
}

// ClickRecord is a single player's measured reaction time for one round.
// At most one exists per (player, round); a player who never clicked holds
// the max-time sentinel.
type ClickRecord struct {
	ID         string `json:"id"`
	PlayerID   string `json:"playerId"`
	RoundID    string `json:"roundId"`
	RoomID     string `json:"roomId"`
	PlayerTime int    `json:"playerTime"` // ms, or the max-time sentinel
}

// TotalReactionTime pairs a player with the sum of their recorded click
// times, for the reactionTimes notification.
type TotalReactionTime struct {
	PlayerID          string `json:"playerId"`
	TotalReactionTime int    `json:"totalReactionTime"`
}
