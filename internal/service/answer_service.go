package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"guessflag/internal/cache"
	"guessflag/internal/config"
	"guessflag/internal/model"
)

// AnswerService is the answer ledger: one answer per (session, question,
// player), scored exactly once, with all-answered detection triggering the
// grace-delayed advance.
type AnswerService struct {
	cfg         *config.Config
	sessions    *SessionService
	scoreboard  cache.ScoreboardCache
	broadcaster Broadcaster
}

func NewAnswerService(cfg *config.Config, sessions *SessionService, scoreboard cache.ScoreboardCache) *AnswerService {
	return &AnswerService{
		cfg:        cfg,
		sessions:   sessions,
		scoreboard: scoreboard,
	}
}

// SetBroadcaster sets the broadcaster for answer events.
func (s *AnswerService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

func (s *AnswerService) publish(code string, event model.Event) {
	if s.broadcaster != nil {
		s.broadcaster.Publish(code, event)
	}
}

// Submit records a player's answer for the session's current question.
// A submission for any other question is stale (the client raced an advance);
// a second submission for the same question is a duplicate. Correct answers
// award the configured points exactly once.
func (s *AnswerService) Submit(ctx context.Context, code, playerID, questionID, choiceID string) (*model.SubmitResult, error) {
	g, err := s.sessions.game(ctx, code)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.session.State != model.SessionActive {
		return nil, fmt.Errorf("submit to a %s session: %w", g.session.State, ErrInvalidStateTransition)
	}

	currentID, ok := g.session.CurrentQuestionID()
	if !ok || currentID != questionID {
		return nil, fmt.Errorf("question %s: %w", questionID, ErrStaleQuestion)
	}

	player := g.player(playerID)
	if player == nil {
		return nil, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}

	index := g.session.CurrentIndex
	if _, exists := g.answers[index][playerID]; exists || player.HasAnswered {
		return nil, ErrDuplicateSubmission
	}

	question := g.questions[questionID]
	if question == nil {
		return nil, fmt.Errorf("question %s: %w", questionID, ErrNotFound)
	}
	correct := choiceID != model.NoChoice && choiceID == question.CorrectChoiceID()

	answer := &model.Answer{
		SessionCode: code,
		QuestionID:  questionID,
		PlayerID:    playerID,
		ChoiceID:    choiceID,
		Correct:     correct,
		SubmittedAt: time.Now(),
	}
	if correct {
		player.Score += s.cfg.PointsPerCorrect
		if err := s.scoreboard.SetScore(ctx, code, playerID, player.Score); err != nil {
			log.Printf("failed to update scoreboard for player %s: %v", playerID, err)
		}
	}
	s.sessions.recordAnswerLocked(ctx, g, player, answer)

	answered := g.answeredCount()
	total := len(g.players)
	s.publish(code, model.NewAnswerSubmitted(playerID, correct, player.Score))
	s.publish(code, model.NewAnswerProgress(answered, total))

	if answered == total {
		s.sessions.scheduleAdvance(code, index)
	}

	return &model.SubmitResult{Correct: correct, Score: player.Score}, nil
}
