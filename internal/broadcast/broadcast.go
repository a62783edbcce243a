// Package broadcast projects repository state into the outbound
// notifications the two participants see. It keeps no state of its own:
// every call re-reads from the repository, so a notification always reflects
// what is durably recorded, not what some in-flight handler believes.
package broadcast

import (
	"context"

	"go.uber.org/zap"

	"reactionduel/internal/metrics"
	"reactionduel/internal/models"
	"reactionduel/internal/repo"
	"reactionduel/internal/wshub"
)

const (
	leaderboardSize = 10
	recentRoomsSize = 10
)

// Sender is the outbound side of the hub.
type Sender interface {
	BroadcastRoom(roomID string, msg wshub.Message)
	SendTo(playerID string, msg wshub.Message)
	SetRoom(playerID, roomID string)
}

type Broadcaster struct {
	repo    repo.Repository
	hub     Sender
	metrics *metrics.Metrics
	log     *zap.SugaredLogger
}

func New(r repo.Repository, hub Sender, m *metrics.Metrics, log *zap.SugaredLogger) *Broadcaster {
	return &Broadcaster{repo: r, hub: hub, metrics: m, log: log}
}

// JoinRoom binds the player's connection to the room before any room
// broadcasts are sent for the join.
func (b *Broadcaster) JoinRoom(_ context.Context, playerID, roomID string) {
	b.hub.SetRoom(playerID, roomID)
}

type playersPayload struct {
	Players []*models.Player `json:"players"`
}

type joinedPayload struct {
	PlayerName string `json:"playerName"`
	RoomSize   int    `json:"roomSize"`
}

type revealPayload struct {
	Cell int `json:"cell"`
}

type timesPayload struct {
	Mine     models.TotalReactionTime `json:"mine"`
	Opponent models.TotalReactionTime `json:"opponent"`
}

type resultPayload struct {
	Players []*models.Player `json:"players"`
	Rounds  int              `json:"rounds"`
}

type leftPayload struct {
	Player       *models.Player `json:"player"`
	FinishedGame bool           `json:"finishedGame"`
}

func (b *Broadcaster) PlayerJoined(_ context.Context, roomID, playerName string, roomSize int) {
	b.hub.BroadcastRoom(roomID, wshub.Message{
		Type: "playerJoined",
		Data: joinedPayload{PlayerName: playerName, RoomSize: roomSize},
	})
}

func (b *Broadcaster) OnlinePlayers(ctx context.Context, roomID string) {
	players, err := b.repo.PlayersInRoom(ctx, roomID)
	if err != nil {
		b.projectionFailed(ctx, "onlinePlayers", roomID, err)
		return
	}
	b.hub.BroadcastRoom(roomID, wshub.Message{Type: "onlinePlayers", Data: playersPayload{Players: players}})
}

func (b *Broadcaster) StartGame(_ context.Context, roomID string) {
	b.metrics.MatchStarted()
	b.hub.BroadcastRoom(roomID, wshub.Message{Type: "startGame"})
}

func (b *Broadcaster) ScoreUpdate(ctx context.Context, roomID string) {
	players, err := b.repo.PlayersInRoom(ctx, roomID)
	if err != nil {
		b.projectionFailed(ctx, "scoreUpdate", roomID, err)
		return
	}
	b.hub.BroadcastRoom(roomID, wshub.Message{Type: "scoreUpdate", Data: playersPayload{Players: players}})
}

func (b *Broadcaster) RevealTarget(_ context.Context, roomID string, cell int) {
	b.hub.BroadcastRoom(roomID, wshub.Message{Type: "revealTarget", Data: revealPayload{Cell: cell}})
}

func (b *Broadcaster) AdvanceRound(_ context.Context, roomID string) {
	b.hub.BroadcastRoom(roomID, wshub.Message{Type: "advanceRound"})
}

// ReactionTimes broadcasts both players' cumulative click-time sums, the
// reporter first.
func (b *Broadcaster) ReactionTimes(ctx context.Context, roomID, playerID string) {
	mine, err := b.totalFor(ctx, roomID, playerID)
	if err != nil {
		b.projectionFailed(ctx, "reactionTimes", roomID, err)
		return
	}

	opponent := models.TotalReactionTime{}
	players, err := b.repo.PlayersInRoom(ctx, roomID)
	if err != nil {
		b.projectionFailed(ctx, "reactionTimes", roomID, err)
		return
	}
	for _, p := range players {
		if p.ID == playerID {
			continue
		}
		opponent, err = b.totalFor(ctx, roomID, p.ID)
		if err != nil {
			b.projectionFailed(ctx, "reactionTimes", roomID, err)
			return
		}
	}

	b.hub.BroadcastRoom(roomID, wshub.Message{
		Type: "reactionTimes",
		Data: timesPayload{Mine: mine, Opponent: opponent},
	})
}

func (b *Broadcaster) totalFor(ctx context.Context, roomID, playerID string) (models.TotalReactionTime, error) {
	clicks, err := b.repo.ClicksForPlayer(ctx, roomID, playerID)
	if err != nil {
		return models.TotalReactionTime{}, err
	}
	total := models.TotalReactionTime{PlayerID: playerID}
	for _, c := range clicks {
		total.TotalReactionTime += c.PlayerTime
	}
	return total, nil
}

func (b *Broadcaster) MatchEnded(_ context.Context, roomID string) {
	b.metrics.MatchFinished()
	b.hub.BroadcastRoom(roomID, wshub.Message{Type: "matchEnded"})
}

// Leaderboard broadcasts the top finished-match players by ascending
// cumulative reaction time.
func (b *Broadcaster) Leaderboard(ctx context.Context, roomID string) {
	players, err := b.repo.TopPlayers(ctx, leaderboardSize)
	if err != nil {
		b.projectionFailed(ctx, "leaderboard", roomID, err)
		return
	}
	b.hub.BroadcastRoom(roomID, wshub.Message{Type: "leaderboard", Data: playersPayload{Players: players}})
}

// RecentMatches broadcasts the players of the last finished matches, grouped
// per room in pairs, newest match first.
func (b *Broadcaster) RecentMatches(ctx context.Context, roomID string) {
	rooms, err := b.repo.RecentFinishedRooms(ctx, recentRoomsSize)
	if err != nil {
		b.projectionFailed(ctx, "recentMatches", roomID, err)
		return
	}
	var players []*models.Player
	for _, r := range rooms {
		pair, err := b.repo.PlayersInRoom(ctx, r.ID)
		if err != nil {
			b.projectionFailed(ctx, "recentMatches", roomID, err)
			return
		}
		players = append(players, pair...)
	}
	b.hub.BroadcastRoom(roomID, wshub.Message{Type: "recentMatches", Data: playersPayload{Players: players}})
}

// MatchResult broadcasts the room's own result breakdown: both players with
// their wonRounds and reaction times, and how many rounds were played (11
// when the match went to the tie-break decider).
func (b *Broadcaster) MatchResult(ctx context.Context, roomID string) {
	players, err := b.repo.PlayersInRoom(ctx, roomID)
	if err != nil {
		b.projectionFailed(ctx, "matchResult", roomID, err)
		return
	}
	round, err := b.repo.CurrentRound(ctx, roomID)
	if err != nil {
		b.projectionFailed(ctx, "matchResult", roomID, err)
		return
	}
	b.hub.BroadcastRoom(roomID, wshub.Message{
		Type: "matchResult",
		Data: resultPayload{Players: players, Rounds: round.RoundNumber},
	})
}

func (b *Broadcaster) PlayerLeft(_ context.Context, player *models.Player, matchFinished bool) {
	b.hub.BroadcastRoom(player.RoomID, wshub.Message{
		Type: "playerLeft",
		Data: leftPayload{Player: player, FinishedGame: matchFinished},
	})
}

func (b *Broadcaster) projectionFailed(_ context.Context, event, roomID string, err error) {
	b.metrics.BroadcastError()
	b.log.Warnw("projection failed", "event", event, "room", roomID, "err", err)
}
