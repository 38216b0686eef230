package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"guessflag/internal/cache"
	"guessflag/internal/config"
	"guessflag/internal/model"
	"guessflag/internal/repository"
)

const maxNameLength = 24

// PlayerService handles join, rejoin, ready, and departure. Players belong to
// exactly one session for their lifetime; names may collide.
type PlayerService struct {
	cfg         *config.Config
	sessions    *SessionService
	playerRepo  repository.PlayerRepo
	scoreboard  cache.ScoreboardCache
	authSvc     *AuthService
	broadcaster Broadcaster
}

func NewPlayerService(
	cfg *config.Config,
	sessions *SessionService,
	playerRepo repository.PlayerRepo,
	scoreboard cache.ScoreboardCache,
	authSvc *AuthService,
) *PlayerService {
	return &PlayerService{
		cfg:        cfg,
		sessions:   sessions,
		playerRepo: playerRepo,
		scoreboard: scoreboard,
		authSvc:    authSvc,
	}
}

// SetBroadcaster sets the broadcaster for player events.
func (s *PlayerService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

func (s *PlayerService) publish(code string, event model.Event) {
	if s.broadcaster != nil {
		s.broadcaster.Publish(code, event)
	}
}

// Join adds a player to a session. When existingID resolves to a player
// already in this session the call is a rename/rejoin with idempotent
// identity; otherwise a new player is created, becoming host if it is the
// first. New players may only join a session still in the lobby.
func (s *PlayerService) Join(ctx context.Context, code, name, existingID string) (*model.JoinResult, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return nil, fmt.Errorf("invalid player name: %w", ErrValidation)
	}

	g, err := s.sessions.game(ctx, code)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if existingID != "" {
		if p := g.player(existingID); p != nil {
			return s.rejoinLocked(ctx, g, p, name)
		}
	}

	if g.session.State != model.SessionLobby {
		return nil, fmt.Errorf("join a %s session: %w", g.session.State, ErrInvalidStateTransition)
	}

	player := &model.Player{
		ID:          "p_" + uuid.New().String()[:8],
		SessionCode: code,
		Name:        name,
		IsHost:      len(g.players) == 0,
		JoinedAt:    time.Now(),
	}
	g.players = append(g.players, player)

	if err := s.playerRepo.Create(ctx, player); err != nil {
		log.Printf("failed to persist player %s: %v", player.ID, err)
	}
	if err := s.scoreboard.SetScore(ctx, code, player.ID, 0); err != nil {
		log.Printf("failed to init scoreboard for player %s: %v", player.ID, err)
	}

	token, err := s.authSvc.GeneratePlayerToken(code, player.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.publish(code, model.NewPlayerJoined(player.View()))

	return &model.JoinResult{Player: player.View(), Token: token}, nil
}

// rejoinLocked re-issues identity for a returning player. Whether score and
// host status survive is a configuration choice.
func (s *PlayerService) rejoinLocked(ctx context.Context, g *gameState, p *model.Player, name string) (*model.JoinResult, error) {
	p.Name = name
	if !s.cfg.PreserveStateOnRejoin {
		p.Score = 0
		p.Ready = false
		if err := s.scoreboard.SetScore(ctx, g.session.Code, p.ID, 0); err != nil {
			log.Printf("failed to reset scoreboard for player %s: %v", p.ID, err)
		}
	}
	if err := s.playerRepo.Update(ctx, p); err != nil {
		log.Printf("failed to persist player %s: %v", p.ID, err)
	}

	token, err := s.authSvc.GeneratePlayerToken(g.session.Code, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	// Subscribers key players by id, so a repeated join event is harmless.
	s.publish(g.session.Code, model.NewPlayerJoined(p.View()))

	return &model.JoinResult{Player: p.View(), Token: token}, nil
}

// ToggleReady flips a player's ready flag.
func (s *PlayerService) ToggleReady(ctx context.Context, code, playerID string) (*model.PlayerView, error) {
	g, err := s.sessions.game(ctx, code)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.player(playerID)
	if p == nil {
		return nil, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}

	p.Ready = !p.Ready
	if err := s.playerRepo.Update(ctx, p); err != nil {
		log.Printf("failed to persist player %s: %v", p.ID, err)
	}

	s.publish(code, model.NewPlayerReady(p.ID, p.Ready))

	view := p.View()
	return &view, nil
}

// Remove ejects a player on the host's initiative.
func (s *PlayerService) Remove(ctx context.Context, code, requesterID, targetID string) error {
	g, err := s.sessions.game(ctx, code)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	requester := g.player(requesterID)
	if requester == nil {
		return fmt.Errorf("player %s: %w", requesterID, ErrNotFound)
	}
	if !requester.IsHost {
		return ErrNotHost
	}

	return s.removeLocked(ctx, g, targetID, model.NewPlayerRemoved(targetID))
}

// Leave removes a player on its own initiative.
func (s *PlayerService) Leave(ctx context.Context, code, playerID string) error {
	g, err := s.sessions.game(ctx, code)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	return s.removeLocked(ctx, g, playerID, model.NewPlayerLeft(playerID))
}

func (s *PlayerService) removeLocked(ctx context.Context, g *gameState, playerID string, event model.Event) error {
	code := g.session.Code

	index := -1
	for i, p := range g.players {
		if p.ID == playerID {
			index = i
			break
		}
	}
	if index == -1 {
		return fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}

	removed := g.players[index]
	g.players = append(g.players[:index], g.players[index+1:]...)

	if err := s.playerRepo.Delete(ctx, playerID); err != nil {
		log.Printf("failed to delete player %s: %v", playerID, err)
	}
	if err := s.scoreboard.Remove(ctx, code, playerID); err != nil {
		log.Printf("failed to remove player %s from scoreboard: %v", playerID, err)
	}

	// Exactly one host per session: hand the flag to the longest-joined
	// remaining player.
	if removed.IsHost && len(g.players) > 0 {
		g.players[0].IsHost = true
		if err := s.playerRepo.Update(ctx, g.players[0]); err != nil {
			log.Printf("failed to persist player %s: %v", g.players[0].ID, err)
		}
	}

	s.publish(code, event)

	// A departure can leave everyone remaining answered; don't make the
	// survivors wait out the clock.
	if g.session.State == model.SessionActive && len(g.players) > 0 && g.answeredCount() == len(g.players) {
		s.sessions.scheduleAdvance(code, g.session.CurrentIndex)
	}

	return nil
}
