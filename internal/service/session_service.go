package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"guessflag/internal/cache"
	"guessflag/internal/config"
	"guessflag/internal/model"
	"guessflag/internal/repository"
)

// gameState is the authoritative in-memory state of one session. Every
// read-then-write operation (start, advance, submit, cancel, join, leave)
// runs under mu; locks are never nested across sessions.
type gameState struct {
	mu        sync.Mutex
	session   *model.Session
	players   []*model.Player            // join order
	questions map[string]*model.Question // fixed at start, includes correct flags
	answers   map[int]map[string]*model.Answer // question index -> player id
}

func (g *gameState) player(id string) *model.Player {
	for _, p := range g.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (g *gameState) answeredCount() int {
	n := 0
	for _, p := range g.players {
		if p.HasAnswered {
			n++
		}
	}
	return n
}

// SessionService owns session lifecycle: lobby -> active -> finished, with
// cancelled reachable from lobby or active. It keeps the per-session lock
// registry that the player and answer services share, arms the question
// timer on every transition, and writes state through to Mongo and Redis.
type SessionService struct {
	cfg          *config.Config
	sessionRepo  repository.SessionRepo
	playerRepo   repository.PlayerRepo
	answerRepo   repository.AnswerRepo
	bank         repository.QuestionRepo
	scoreboard   cache.ScoreboardCache
	sessionCache cache.SessionCache
	scheduler    *Scheduler
	broadcaster  Broadcaster

	mu    sync.Mutex
	games map[string]*gameState
}

func NewSessionService(
	cfg *config.Config,
	sessionRepo repository.SessionRepo,
	playerRepo repository.PlayerRepo,
	answerRepo repository.AnswerRepo,
	bank repository.QuestionRepo,
	scoreboard cache.ScoreboardCache,
	sessionCache cache.SessionCache,
	scheduler *Scheduler,
) *SessionService {
	return &SessionService{
		cfg:          cfg,
		sessionRepo:  sessionRepo,
		playerRepo:   playerRepo,
		answerRepo:   answerRepo,
		bank:         bank,
		scoreboard:   scoreboard,
		sessionCache: sessionCache,
		scheduler:    scheduler,
		games:        make(map[string]*gameState),
	}
}

// SetBroadcaster sets the broadcaster for session events.
func (s *SessionService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

func (s *SessionService) publish(code string, event model.Event) {
	if s.broadcaster != nil {
		s.broadcaster.Publish(code, event)
	}
}

const codeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const codeLength = 6
const codeAttempts = 10

// Create creates a new session in the lobby state with a fresh unique code.
func (s *SessionService) Create(ctx context.Context) (*model.Session, error) {
	code, err := s.generateCode(ctx)
	if err != nil {
		return nil, err
	}

	session := &model.Session{
		Code:         code,
		State:        model.SessionLobby,
		CurrentIndex: model.NoQuestion,
		CreatedAt:    time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if err := s.sessionCache.SetState(ctx, code, model.SessionLobby); err != nil {
		log.Printf("failed to cache session %s: %v", code, err)
	}

	g := &gameState{
		session:   session,
		questions: make(map[string]*model.Question),
		answers:   make(map[int]map[string]*model.Answer),
	}

	s.mu.Lock()
	s.games[code] = g
	s.mu.Unlock()

	return session, nil
}

func (s *SessionService) generateCode(ctx context.Context) (string, error) {
	for attempts := 0; attempts < codeAttempts; attempts++ {
		b := make([]byte, codeLength)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}

		code := make([]byte, codeLength)
		for i := range code {
			code[i] = codeChars[int(b[i])%len(codeChars)]
		}
		codeStr := string(code)

		exists, err := s.sessionCache.Exists(ctx, codeStr)
		if err != nil {
			return "", err
		}
		if exists {
			continue
		}
		// Redis entries expire; Mongo is the durable uniqueness check.
		existing, err := s.sessionRepo.GetByCode(ctx, codeStr)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return codeStr, nil
		}
	}

	return "", ErrCodeGenerationExhausted
}

// Start fixes the question sequence, marks the session active, and arms the
// timer for question 0. Only the host may start, and only from the lobby.
func (s *SessionService) Start(ctx context.Context, code, playerID string, questionCount int) error {
	g, err := s.game(ctx, code)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	player := g.player(playerID)
	if player == nil {
		return fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	if !player.IsHost {
		return ErrNotHost
	}
	if g.session.State != model.SessionLobby {
		return fmt.Errorf("start from %s: %w", g.session.State, ErrInvalidStateTransition)
	}

	if questionCount <= 0 {
		questionCount = s.cfg.QuestionsPerGame
	}

	questions, err := s.bank.Sample(ctx, questionCount)
	if err != nil {
		return fmt.Errorf("failed to sample questions: %w", err)
	}
	if len(questions) < questionCount {
		return fmt.Errorf("requested %d, bank has %d: %w", questionCount, len(questions), ErrInsufficientContent)
	}

	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
		g.questions[q.ID] = q
	}

	now := time.Now()
	endsAt := now.Add(s.cfg.AnswerTimeLimit)

	g.session.State = model.SessionActive
	g.session.QuestionIDs = ids
	g.session.QuestionCount = questionCount
	g.session.CurrentIndex = 0
	g.session.StartedAt = &now
	g.session.QuestionStartedAt = &now
	g.session.QuestionEndsAt = &endsAt

	for _, p := range g.players {
		p.HasAnswered = false
		s.persistPlayer(ctx, p)
	}
	s.persistSession(ctx, g.session)

	s.scheduler.Schedule(code, 0, timerQuestion, s.cfg.AnswerTimeLimit, func() {
		s.handleTimeUp(code, 0)
	})

	s.publish(code, model.NewGameStarted(questions[0].View(), 1, questionCount, endsAt))
	s.publish(code, model.NewQuestionTimerStart(1, endsAt))

	return nil
}

// Cancel terminates a session from lobby or active. Players are released and
// every armed timer for the session is disarmed.
func (s *SessionService) Cancel(ctx context.Context, code, playerID string) error {
	g, err := s.game(ctx, code)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	player := g.player(playerID)
	if player == nil {
		return fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	if !player.IsHost {
		return ErrNotHost
	}
	if g.session.State != model.SessionLobby && g.session.State != model.SessionActive {
		return fmt.Errorf("cancel from %s: %w", g.session.State, ErrInvalidStateTransition)
	}

	s.scheduler.CancelSession(code)

	now := time.Now()
	g.session.State = model.SessionCancelled
	g.session.CurrentIndex = model.NoQuestion
	g.session.QuestionStartedAt = nil
	g.session.QuestionEndsAt = nil
	g.session.EndedAt = &now
	g.players = nil

	if err := s.playerRepo.DeleteBySession(ctx, code); err != nil {
		log.Printf("failed to delete players for session %s: %v", code, err)
	}
	if err := s.scoreboard.Delete(ctx, code); err != nil {
		log.Printf("failed to delete scoreboard for session %s: %v", code, err)
	}
	s.persistSession(ctx, g.session)
	if err := s.sessionCache.SetState(ctx, code, model.SessionCancelled); err != nil {
		log.Printf("failed to cache session %s state: %v", code, err)
	}

	s.publish(code, model.NewGameCancelled())

	return nil
}

// GetSession returns the public session view: state, players, and the
// current question stripped of its correct-answer flag.
func (s *SessionService) GetSession(ctx context.Context, code string) (*model.SessionView, error) {
	g, err := s.game(ctx, code)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	view := &model.SessionView{
		Code:          g.session.Code,
		State:         g.session.State,
		QuestionCount: g.session.QuestionCount,
		Players:       make([]model.PlayerView, 0, len(g.players)),
	}
	for _, p := range g.players {
		view.Players = append(view.Players, p.View())
	}

	if qid, ok := g.session.CurrentQuestionID(); ok {
		if q, ok := g.questions[qid]; ok {
			qv := q.View()
			view.CurrentQuestion = &qv
			view.QuestionNumber = g.session.CurrentIndex + 1
			view.QuestionEndsAt = g.session.QuestionEndsAt
		}
	}

	return view, nil
}

// GetCurrentQuestion returns the public view of the question in play, or nil
// when the session has no current question.
func (s *SessionService) GetCurrentQuestion(ctx context.Context, code string) (*model.QuestionView, error) {
	g, err := s.game(ctx, code)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	qid, ok := g.session.CurrentQuestionID()
	if !ok {
		return nil, nil
	}
	q, ok := g.questions[qid]
	if !ok {
		return nil, nil
	}
	qv := q.View()
	return &qv, nil
}

// Scoreboard returns players ordered by score descending, join order breaking
// ties.
func (s *SessionService) Scoreboard(ctx context.Context, code string) ([]model.ScoreboardEntry, error) {
	g, err := s.game(ctx, code)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	return s.scoreboardLocked(g), nil
}

// IsLive reports whether a session exists and has not been cancelled.
// Used to reject subscriptions to dead topics.
func (s *SessionService) IsLive(ctx context.Context, code string) bool {
	s.mu.Lock()
	g, ok := s.games[code]
	s.mu.Unlock()
	if ok {
		g.mu.Lock()
		defer g.mu.Unlock()
		return g.session.State != model.SessionCancelled
	}

	state, err := s.sessionCache.GetState(ctx, code)
	if err != nil {
		log.Printf("failed to check session %s liveness: %v", code, err)
		return false
	}
	return state != "" && state != model.SessionCancelled
}

// game returns the locked unit of state for a session, loading it from the
// repositories if this process has not seen the code yet.
func (s *SessionService) game(ctx context.Context, code string) (*gameState, error) {
	s.mu.Lock()
	g, ok := s.games[code]
	s.mu.Unlock()
	if ok {
		return g, nil
	}
	return s.loadGame(ctx, code)
}

func (s *SessionService) loadGame(ctx context.Context, code string) (*gameState, error) {
	session, err := s.sessionRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %s: %w", code, ErrNotFound)
	}

	players, err := s.playerRepo.GetBySession(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to load players: %w", err)
	}

	g := &gameState{
		session:   session,
		players:   players,
		questions: make(map[string]*model.Question),
		answers:   make(map[int]map[string]*model.Answer),
	}

	for _, id := range session.QuestionIDs {
		q, err := s.bank.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load question %s: %w", id, err)
		}
		if q != nil {
			g.questions[id] = q
		}
	}

	if qid, ok := session.CurrentQuestionID(); ok {
		answers, err := s.answerRepo.GetBySessionAndQuestion(ctx, code, qid)
		if err != nil {
			return nil, fmt.Errorf("failed to load answers: %w", err)
		}
		byPlayer := make(map[string]*model.Answer, len(answers))
		for _, a := range answers {
			byPlayer[a.PlayerID] = a
		}
		g.answers[session.CurrentIndex] = byPlayer
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.games[code]; ok {
		return existing, nil
	}
	s.games[code] = g

	// Re-arm the deadline for a question that was in flight when this
	// process last saw the session.
	if session.State == model.SessionActive && session.QuestionEndsAt != nil {
		index := session.CurrentIndex
		remaining := time.Until(*session.QuestionEndsAt)
		if remaining < 0 {
			remaining = 0
		}
		s.scheduler.Schedule(code, index, timerQuestion, remaining, func() {
			s.handleTimeUp(code, index)
		})
	}

	return g, nil
}

// handleTimeUp runs when a question's answer window closes. It records an
// implicit no-answer for every player still unanswered, then schedules the
// grace-delayed advance. Fires after the question already advanced are
// benign and ignored.
func (s *SessionService) handleTimeUp(code string, index int) {
	ctx := context.Background()

	g, err := s.game(ctx, code)
	if err != nil {
		log.Printf("time-up for unknown session %s: %v", code, err)
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.session.State != model.SessionActive || g.session.CurrentIndex != index {
		log.Printf("stale time-up for session %s question %d, ignoring", code, index)
		return
	}

	qid, _ := g.session.CurrentQuestionID()
	for _, p := range g.players {
		if p.HasAnswered {
			continue
		}
		answer := &model.Answer{
			SessionCode: code,
			QuestionID:  qid,
			PlayerID:    p.ID,
			ChoiceID:    model.NoChoice,
			Correct:     false,
			SubmittedAt: time.Now(),
		}
		s.recordAnswerLocked(ctx, g, p, answer)
	}

	s.publish(code, model.NewQuestionTimeUp(index+1))
	s.scheduleAdvance(code, index)
}

// recordAnswerLocked stores an answer in the ledger and flags the player.
// Callers hold g.mu and have already checked for duplicates.
func (s *SessionService) recordAnswerLocked(ctx context.Context, g *gameState, p *model.Player, answer *model.Answer) {
	index := g.session.CurrentIndex
	if g.answers[index] == nil {
		g.answers[index] = make(map[string]*model.Answer)
	}
	g.answers[index][p.ID] = answer
	p.HasAnswered = true

	if err := s.answerRepo.Create(ctx, answer); err != nil {
		log.Printf("failed to persist answer for player %s: %v", p.ID, err)
	}
	s.persistPlayer(ctx, p)
}

// scheduleAdvance arms the grace delay before the next transition so clients
// can render per-question results first. Cancelling the session disarms it.
func (s *SessionService) scheduleAdvance(code string, index int) {
	s.scheduler.Cancel(code, index, timerQuestion)
	s.scheduler.Schedule(code, index, timerAdvance, s.cfg.ResultGrace, func() {
		s.handleAdvance(code, index)
	})
}

// handleAdvance is the deferred half of scheduleAdvance. It re-validates
// state under the lock since the session may have been cancelled, or the
// question advanced by another path, while the grace delay elapsed.
func (s *SessionService) handleAdvance(code string, index int) {
	ctx := context.Background()

	g, err := s.game(ctx, code)
	if err != nil {
		log.Printf("advance for unknown session %s: %v", code, err)
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.session.State != model.SessionActive || g.session.CurrentIndex != index {
		log.Printf("stale advance for session %s question %d, ignoring", code, index)
		return
	}

	s.advanceLocked(ctx, g)
}

// advanceLocked moves to the next question, or finishes the game when the
// sequence is exhausted. Callers hold g.mu.
func (s *SessionService) advanceLocked(ctx context.Context, g *gameState) {
	code := g.session.Code

	if g.session.CurrentIndex+1 >= g.session.QuestionCount {
		now := time.Now()
		g.session.State = model.SessionFinished
		g.session.CurrentIndex = model.NoQuestion
		g.session.QuestionStartedAt = nil
		g.session.QuestionEndsAt = nil
		g.session.EndedAt = &now

		s.scheduler.CancelSession(code)
		s.persistSession(ctx, g.session)
		if err := s.sessionCache.SetState(ctx, code, model.SessionFinished); err != nil {
			log.Printf("failed to cache session %s state: %v", code, err)
		}

		s.publish(code, model.NewGameFinished(s.scoreboardLocked(g)))
		return
	}

	g.session.CurrentIndex++
	index := g.session.CurrentIndex
	now := time.Now()
	endsAt := now.Add(s.cfg.AnswerTimeLimit)
	g.session.QuestionStartedAt = &now
	g.session.QuestionEndsAt = &endsAt

	for _, p := range g.players {
		p.HasAnswered = false
		s.persistPlayer(ctx, p)
	}
	s.persistSession(ctx, g.session)

	s.scheduler.Schedule(code, index, timerQuestion, s.cfg.AnswerTimeLimit, func() {
		s.handleTimeUp(code, index)
	})

	q := g.questions[g.session.QuestionIDs[index]]
	s.publish(code, model.NewNextQuestion(q.View(), index+1, g.session.QuestionCount, endsAt))
	s.publish(code, model.NewQuestionTimerStart(index+1, endsAt))
}

func (s *SessionService) scoreboardLocked(g *gameState) []model.ScoreboardEntry {
	ranked := make([]*model.Player, len(g.players))
	copy(ranked, g.players)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	entries := make([]model.ScoreboardEntry, len(ranked))
	for i, p := range ranked {
		entries[i] = model.ScoreboardEntry{
			PlayerID: p.ID,
			Name:     p.Name,
			Score:    p.Score,
			Rank:     i + 1,
		}
	}
	return entries
}

func (s *SessionService) persistSession(ctx context.Context, session *model.Session) {
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		log.Printf("failed to persist session %s: %v", session.Code, err)
	}
}

func (s *SessionService) persistPlayer(ctx context.Context, player *model.Player) {
	if err := s.playerRepo.Update(ctx, player); err != nil {
		log.Printf("failed to persist player %s: %v", player.ID, err)
	}
}
