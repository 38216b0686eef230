package service

import (
	"context"
	"fmt"
	"sync"

	"guessflag/internal/cache"
	"guessflag/internal/model"
	"guessflag/internal/repository"
)

// In-memory fakes for the repository, cache, and broadcaster interfaces.

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]model.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]model.Session)}
}

func (r *fakeSessionRepo) Create(ctx context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.Code]; ok {
		return fmt.Errorf("duplicate key %s", s.Code)
	}
	r.sessions[s.Code] = *s
	return nil
}

func (r *fakeSessionRepo) GetByCode(ctx context.Context, code string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[code]
	if !ok {
		return nil, nil
	}
	copied := s
	return &copied, nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.Code] = *s
	return nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, code)
	return nil
}

type fakePlayerRepo struct {
	mu      sync.Mutex
	players map[string]model.Player
	order   []string
}

func newFakePlayerRepo() *fakePlayerRepo {
	return &fakePlayerRepo{players: make(map[string]model.Player)}
}

func (r *fakePlayerRepo) Create(ctx context.Context, p *model.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[p.ID] = *p
	r.order = append(r.order, p.ID)
	return nil
}

func (r *fakePlayerRepo) GetByID(ctx context.Context, id string) (*model.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return nil, nil
	}
	copied := p
	return &copied, nil
}

func (r *fakePlayerRepo) GetBySession(ctx context.Context, code string) ([]*model.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Player
	for _, id := range r.order {
		if p, ok := r.players[id]; ok && p.SessionCode == code {
			copied := p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakePlayerRepo) Update(ctx context.Context, p *model.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[p.ID] = *p
	return nil
}

func (r *fakePlayerRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.players, id)
	return nil
}

func (r *fakePlayerRepo) DeleteBySession(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.players {
		if p.SessionCode == code {
			delete(r.players, id)
		}
	}
	return nil
}

type fakeAnswerRepo struct {
	mu      sync.Mutex
	answers []model.Answer
}

func newFakeAnswerRepo() *fakeAnswerRepo {
	return &fakeAnswerRepo{}
}

func (r *fakeAnswerRepo) Create(ctx context.Context, a *model.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers = append(r.answers, *a)
	return nil
}

func (r *fakeAnswerRepo) GetBySessionAndQuestion(ctx context.Context, code, questionID string) ([]*model.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Answer
	for i := range r.answers {
		if r.answers[i].SessionCode == code && r.answers[i].QuestionID == questionID {
			copied := r.answers[i]
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeAnswerRepo) GetByPlayer(ctx context.Context, playerID string) ([]*model.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Answer
	for i := range r.answers {
		if r.answers[i].PlayerID == playerID {
			copied := r.answers[i]
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeAnswerRepo) DeleteBySession(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []model.Answer
	for _, a := range r.answers {
		if a.SessionCode != code {
			kept = append(kept, a)
		}
	}
	r.answers = kept
	return nil
}

// fakeQuestionRepo serves a fixed bank; Sample returns the first n in order
// so tests know the sequence.
type fakeQuestionRepo struct {
	questions []*model.Question
}

func newFakeQuestionRepo(n int) *fakeQuestionRepo {
	r := &fakeQuestionRepo{}
	for i := 0; i < n; i++ {
		qid := fmt.Sprintf("q%d", i+1)
		r.questions = append(r.questions, &model.Question{
			ID:       qid,
			FlagName: fmt.Sprintf("Country %d", i+1),
			Prompt:   "Which country does this flag belong to?",
			ImageURL: fmt.Sprintf("https://flags.test/%s.png", qid),
			Choices: []model.Choice{
				{ID: qid + "_c1", Label: fmt.Sprintf("Country %d", i+1), Correct: true},
				{ID: qid + "_c2", Label: "Wrongland", Correct: false},
				{ID: qid + "_c3", Label: "Nowhere", Correct: false},
				{ID: qid + "_c4", Label: "Atlantis", Correct: false},
			},
		})
	}
	return r
}

func (r *fakeQuestionRepo) Sample(ctx context.Context, n int) ([]*model.Question, error) {
	if n > len(r.questions) {
		n = len(r.questions)
	}
	return r.questions[:n], nil
}

func (r *fakeQuestionRepo) GetByID(ctx context.Context, id string) (*model.Question, error) {
	for _, q := range r.questions {
		if q.ID == id {
			return q, nil
		}
	}
	return nil, nil
}

func (r *fakeQuestionRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(r.questions)), nil
}

type fakeScoreboard struct {
	mu     sync.Mutex
	scores map[string]map[string]int
}

func newFakeScoreboard() *fakeScoreboard {
	return &fakeScoreboard{scores: make(map[string]map[string]int)}
}

func (c *fakeScoreboard) SetScore(ctx context.Context, code, playerID string, score int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scores[code] == nil {
		c.scores[code] = make(map[string]int)
	}
	c.scores[code][playerID] = score
	return nil
}

func (c *fakeScoreboard) Remove(ctx context.Context, code, playerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.scores[code], playerID)
	return nil
}

func (c *fakeScoreboard) Top(ctx context.Context, code string, limit int) ([]cache.ScoreEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []cache.ScoreEntry
	for id, score := range c.scores[code] {
		out = append(out, cache.ScoreEntry{PlayerID: id, Score: score})
	}
	return out, nil
}

func (c *fakeScoreboard) Delete(ctx context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.scores, code)
	return nil
}

type fakeSessionCache struct {
	mu        sync.Mutex
	states    map[string]model.SessionState
	allExists bool // force every code to look taken
}

func newFakeSessionCache() *fakeSessionCache {
	return &fakeSessionCache{states: make(map[string]model.SessionState)}
}

func (c *fakeSessionCache) SetState(ctx context.Context, code string, state model.SessionState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[code] = state
	return nil
}

func (c *fakeSessionCache) GetState(ctx context.Context, code string) (model.SessionState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[code], nil
}

func (c *fakeSessionCache) Exists(ctx context.Context, code string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.allExists {
		return true, nil
	}
	_, ok := c.states[code]
	return ok, nil
}

func (c *fakeSessionCache) Delete(ctx context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, code)
	return nil
}

// recordingBroadcaster captures published events per topic.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events map[string][]model.Event
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{events: make(map[string][]model.Event)}
}

func (b *recordingBroadcaster) Publish(code string, event model.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[code] = append(b.events[code], event)
}

func (b *recordingBroadcaster) Events(code string) []model.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Event, len(b.events[code]))
	copy(out, b.events[code])
	return out
}

func (b *recordingBroadcaster) Last(code string, t model.EventType) (model.Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := b.events[code]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == t {
			return events[i], true
		}
	}
	return model.Event{}, false
}

func (b *recordingBroadcaster) Count(code string, t model.EventType) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events[code] {
		if e.Type == t {
			n++
		}
	}
	return n
}

// Interface conformance checks.
var (
	_ repository.SessionRepo  = (*fakeSessionRepo)(nil)
	_ repository.PlayerRepo   = (*fakePlayerRepo)(nil)
	_ repository.AnswerRepo   = (*fakeAnswerRepo)(nil)
	_ repository.QuestionRepo = (*fakeQuestionRepo)(nil)
	_ cache.ScoreboardCache   = (*fakeScoreboard)(nil)
	_ cache.SessionCache      = (*fakeSessionCache)(nil)
	_ Broadcaster             = (*recordingBroadcaster)(nil)
)
