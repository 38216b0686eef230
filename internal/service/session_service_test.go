package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guessflag/internal/config"
	"guessflag/internal/model"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

type testEnv struct {
	cfg          *config.Config
	sessions     *SessionService
	players      *PlayerService
	answers      *AnswerService
	auth         *AuthService
	sessionRepo  *fakeSessionRepo
	playerRepo   *fakePlayerRepo
	answerRepo   *fakeAnswerRepo
	bank         *fakeQuestionRepo
	scoreboard   *fakeScoreboard
	sessionCache *fakeSessionCache
	bus          *recordingBroadcaster
}

// newTestEnv wires the full service layer over in-memory fakes. The answer
// window defaults to a minute so only tests that opt in race the clock.
func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:             "test-secret",
		QuestionsPerGame:      3,
		AnswerTimeLimit:       time.Minute,
		PointsPerCorrect:      1,
		ResultGrace:           10 * time.Millisecond,
		PreserveStateOnRejoin: true,
	}
	if mutate != nil {
		mutate(cfg)
	}

	env := &testEnv{
		cfg:          cfg,
		auth:         NewAuthService(cfg.JWTSecret),
		sessionRepo:  newFakeSessionRepo(),
		playerRepo:   newFakePlayerRepo(),
		answerRepo:   newFakeAnswerRepo(),
		bank:         newFakeQuestionRepo(5),
		scoreboard:   newFakeScoreboard(),
		sessionCache: newFakeSessionCache(),
		bus:          newRecordingBroadcaster(),
	}

	env.sessions = NewSessionService(cfg, env.sessionRepo, env.playerRepo, env.answerRepo, env.bank, env.scoreboard, env.sessionCache, NewScheduler())
	env.players = NewPlayerService(cfg, env.sessions, env.playerRepo, env.scoreboard, env.auth)
	env.answers = NewAnswerService(cfg, env.sessions, env.scoreboard)

	env.sessions.SetBroadcaster(env.bus)
	env.players.SetBroadcaster(env.bus)
	env.answers.SetBroadcaster(env.bus)

	return env
}

// newLobby creates a session and joins n players named P1..Pn. P1 is the host.
func (env *testEnv) newLobby(t *testing.T, n int) (string, []string) {
	t.Helper()
	ctx := context.Background()

	session, err := env.sessions.Create(ctx)
	require.NoError(t, err)

	ids := make([]string, n)
	for i := 0; i < n; i++ {
		res, err := env.players.Join(ctx, session.Code, fmt.Sprintf("P%d", i+1), "")
		require.NoError(t, err)
		ids[i] = res.Player.ID
	}
	return session.Code, ids
}

// startGame creates a lobby with n players and starts it with count questions.
func (env *testEnv) startGame(t *testing.T, n, count int) (string, []string) {
	t.Helper()
	code, ids := env.newLobby(t, n)
	require.NoError(t, env.sessions.Start(context.Background(), code, ids[0], count))
	return code, ids
}

// currentQuestionID returns the id of the question in play.
func (env *testEnv) currentQuestionID(t *testing.T, code string) string {
	t.Helper()
	q, err := env.sessions.GetCurrentQuestion(context.Background(), code)
	require.NoError(t, err)
	require.NotNil(t, q)
	return q.ID
}

func TestCreateSession(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	session, err := env.sessions.Create(ctx)
	require.NoError(t, err)

	assert.Len(t, session.Code, 6)
	for _, c := range session.Code {
		assert.Contains(t, codeChars, string(c))
	}
	assert.Equal(t, model.SessionLobby, session.State)
	assert.Equal(t, model.NoQuestion, session.CurrentIndex)

	stored, err := env.sessionRepo.GetByCode(ctx, session.Code)
	require.NoError(t, err)
	require.NotNil(t, stored)

	state, err := env.sessionCache.GetState(ctx, session.Code)
	require.NoError(t, err)
	assert.Equal(t, model.SessionLobby, state)

	assert.True(t, env.sessions.IsLive(ctx, session.Code))
}

func TestCreateSession_CodeSpaceExhausted(t *testing.T) {
	env := newTestEnv(t, nil)
	env.sessionCache.allExists = true

	_, err := env.sessions.Create(context.Background())
	assert.ErrorIs(t, err, ErrCodeGenerationExhausted)
}

func TestStartGame(t *testing.T) {
	t.Run("host starts from lobby", func(t *testing.T) {
		env := newTestEnv(t, nil)
		code, _ := env.startGame(t, 2, 3)

		view, err := env.sessions.GetSession(context.Background(), code)
		require.NoError(t, err)
		assert.Equal(t, model.SessionActive, view.State)
		assert.Equal(t, 3, view.QuestionCount)
		assert.Equal(t, 1, view.QuestionNumber)
		require.NotNil(t, view.CurrentQuestion)
		require.NotNil(t, view.QuestionEndsAt)

		started, ok := env.bus.Last(code, model.EventGameStarted)
		require.True(t, ok)
		payload := started.Payload.(model.QuestionPayload)
		assert.Equal(t, 1, payload.QuestionNumber)
		assert.Equal(t, 3, payload.QuestionCount)
		assert.Equal(t, view.CurrentQuestion.ID, payload.Question.ID)

		_, ok = env.bus.Last(code, model.EventQuestionTimerStart)
		assert.True(t, ok)
	})

	t.Run("non-host rejected", func(t *testing.T) {
		env := newTestEnv(t, nil)
		code, ids := env.newLobby(t, 2)

		err := env.sessions.Start(context.Background(), code, ids[1], 3)
		assert.ErrorIs(t, err, ErrNotHost)
	})

	t.Run("unknown player rejected", func(t *testing.T) {
		env := newTestEnv(t, nil)
		code, _ := env.newLobby(t, 1)

		err := env.sessions.Start(context.Background(), code, "p_nobody", 3)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("already active rejected", func(t *testing.T) {
		env := newTestEnv(t, nil)
		code, ids := env.startGame(t, 1, 3)

		err := env.sessions.Start(context.Background(), code, ids[0], 3)
		assert.ErrorIs(t, err, ErrInvalidStateTransition)
	})

	t.Run("bank too small", func(t *testing.T) {
		env := newTestEnv(t, nil)
		code, ids := env.newLobby(t, 1)

		err := env.sessions.Start(context.Background(), code, ids[0], 99)
		assert.ErrorIs(t, err, ErrInsufficientContent)
	})

	t.Run("zero count falls back to default", func(t *testing.T) {
		env := newTestEnv(t, nil)
		code, ids := env.newLobby(t, 1)

		require.NoError(t, env.sessions.Start(context.Background(), code, ids[0], 0))

		view, err := env.sessions.GetSession(context.Background(), code)
		require.NoError(t, err)
		assert.Equal(t, env.cfg.QuestionsPerGame, view.QuestionCount)
	})
}

func TestGetSession_Lobby(t *testing.T) {
	env := newTestEnv(t, nil)
	code, ids := env.newLobby(t, 3)

	view, err := env.sessions.GetSession(context.Background(), code)
	require.NoError(t, err)

	assert.Equal(t, model.SessionLobby, view.State)
	assert.Nil(t, view.CurrentQuestion)
	require.Len(t, view.Players, 3)
	for i, p := range view.Players {
		assert.Equal(t, ids[i], p.ID)
		assert.Equal(t, i == 0, p.IsHost)
		assert.False(t, p.Ready)
		assert.Zero(t, p.Score)
	}
}

func TestGetSession_Unknown(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.sessions.GetSession(context.Background(), "ZZZZZZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQuestionViewHidesCorrectChoice(t *testing.T) {
	env := newTestEnv(t, nil)
	code, _ := env.startGame(t, 1, 1)

	q, err := env.sessions.GetCurrentQuestion(context.Background(), code)
	require.NoError(t, err)
	require.NotNil(t, q)
	require.NotEmpty(t, q.Choices)
	// ChoiceView carries only id and label; make sure the wire form never
	// leaks the answer either.
	for _, c := range q.Choices {
		assert.NotEmpty(t, c.ID)
		assert.NotEmpty(t, c.Label)
	}
}

func TestCancel(t *testing.T) {
	t.Run("mid-game", func(t *testing.T) {
		env := newTestEnv(t, nil)
		ctx := context.Background()
		code, ids := env.startGame(t, 2, 3)
		qid := env.currentQuestionID(t, code)

		require.NoError(t, env.sessions.Cancel(ctx, code, ids[0]))

		_, ok := env.bus.Last(code, model.EventGameCancelled)
		assert.True(t, ok)
		assert.False(t, env.sessions.IsLive(ctx, code))

		state, err := env.sessionCache.GetState(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, model.SessionCancelled, state)

		players, err := env.playerRepo.GetBySession(ctx, code)
		require.NoError(t, err)
		assert.Empty(t, players)

		// Submissions against a cancelled session bounce.
		_, err = env.answers.Submit(ctx, code, ids[1], qid, qid+"_c1")
		assert.ErrorIs(t, err, ErrInvalidStateTransition)
	})

	t.Run("non-host rejected", func(t *testing.T) {
		env := newTestEnv(t, nil)
		code, ids := env.startGame(t, 2, 3)

		err := env.sessions.Cancel(context.Background(), code, ids[1])
		assert.ErrorIs(t, err, ErrNotHost)
	})

	t.Run("finished session rejected", func(t *testing.T) {
		env := newTestEnv(t, nil)
		ctx := context.Background()
		code, ids := env.startGame(t, 1, 1)
		qid := env.currentQuestionID(t, code)

		_, err := env.answers.Submit(ctx, code, ids[0], qid, qid+"_c1")
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return env.bus.Count(code, model.EventGameFinished) == 1
		}, waitFor, tick)

		err = env.sessions.Cancel(ctx, code, ids[0])
		assert.ErrorIs(t, err, ErrInvalidStateTransition)
	})
}

func TestQuestionTimeUp(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.AnswerTimeLimit = 200 * time.Millisecond
		cfg.ResultGrace = 20 * time.Millisecond
	})
	ctx := context.Background()
	code, ids := env.startGame(t, 2, 3)
	qid := env.currentQuestionID(t, code)

	// P1 answers, P2 lets the clock run out.
	_, err := env.answers.Submit(ctx, code, ids[0], qid, qid+"_c1")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return env.bus.Count(code, model.EventNextQuestion) == 1
	}, waitFor, tick)

	_, ok := env.bus.Last(code, model.EventQuestionTimeUp)
	assert.True(t, ok)

	// The silent player got an implicit no-answer in the ledger.
	recorded, err := env.answerRepo.GetByPlayer(ctx, ids[1])
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, model.NoChoice, recorded[0].ChoiceID)
	assert.False(t, recorded[0].Correct)

	view, err := env.sessions.GetSession(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 2, view.QuestionNumber)
}

func TestGameFinishedScoreboard(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	code, ids := env.startGame(t, 3, 1)
	qid := env.currentQuestionID(t, code)

	// Only P2 answers correctly; P1 and P3 both miss, leaving a tie that
	// join order must break.
	_, err := env.answers.Submit(ctx, code, ids[0], qid, qid+"_c2")
	require.NoError(t, err)
	_, err = env.answers.Submit(ctx, code, ids[1], qid, qid+"_c1")
	require.NoError(t, err)
	_, err = env.answers.Submit(ctx, code, ids[2], qid, qid+"_c2")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return env.bus.Count(code, model.EventGameFinished) == 1
	}, waitFor, tick)

	finished, _ := env.bus.Last(code, model.EventGameFinished)
	board := finished.Payload.(model.GameFinishedPayload).Scoreboard
	require.Len(t, board, 3)

	assert.Equal(t, ids[1], board[0].PlayerID)
	assert.Equal(t, 1, board[0].Score)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, ids[0], board[1].PlayerID)
	assert.Equal(t, 2, board[1].Rank)
	assert.Equal(t, ids[2], board[2].PlayerID)
	assert.Equal(t, 3, board[2].Rank)

	view, err := env.sessions.GetSession(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, model.SessionFinished, view.State)
	assert.Nil(t, view.CurrentQuestion)
}

func TestLoadGameRehydration(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	code, ids := env.startGame(t, 2, 3)
	qid := env.currentQuestionID(t, code)

	_, err := env.answers.Submit(ctx, code, ids[0], qid, qid+"_c1")
	require.NoError(t, err)

	// A fresh service over the same stores simulates a process restart.
	restarted := NewSessionService(env.cfg, env.sessionRepo, env.playerRepo, env.answerRepo, env.bank, env.scoreboard, env.sessionCache, NewScheduler())

	view, err := restarted.GetSession(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, model.SessionActive, view.State)
	assert.Equal(t, 1, view.QuestionNumber)
	require.Len(t, view.Players, 2)

	// The in-flight answer survived the restart, so a resubmit is still a
	// duplicate.
	restartedAnswers := NewAnswerService(env.cfg, restarted, env.scoreboard)
	_, err = restartedAnswers.Submit(ctx, code, ids[0], qid, qid+"_c1")
	assert.ErrorIs(t, err, ErrDuplicateSubmission)
}

func TestScoreboardQuery(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	code, ids := env.startGame(t, 2, 2)
	qid := env.currentQuestionID(t, code)

	_, err := env.answers.Submit(ctx, code, ids[1], qid, qid+"_c1")
	require.NoError(t, err)

	entries, err := env.sessions.Scoreboard(ctx, code)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ids[1], entries[0].PlayerID)
	assert.Equal(t, 1, entries[0].Score)
	assert.Equal(t, "P2", entries[0].Name)
}

func TestGenerateCodeAlphabet(t *testing.T) {
	// The alphabet drops the lookalikes 0, O, 1, and I.
	for _, banned := range []string{"0", "O", "1", "I"} {
		assert.False(t, strings.Contains(codeChars, banned), "alphabet must not contain %s", banned)
	}
}

func TestIsLive_FallsBackToCache(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	require.NoError(t, env.sessionCache.SetState(ctx, "ABCDEF", model.SessionActive))
	assert.True(t, env.sessions.IsLive(ctx, "ABCDEF"))

	require.NoError(t, env.sessionCache.SetState(ctx, "ABCDEF", model.SessionCancelled))
	// Entry was never loaded into memory, so the cache answer stands.
	env.sessions.mu.Lock()
	_, loaded := env.sessions.games["ABCDEF"]
	env.sessions.mu.Unlock()
	require.False(t, loaded)
	assert.False(t, env.sessions.IsLive(ctx, "ABCDEF"))

	assert.False(t, env.sessions.IsLive(ctx, "NOSUCH"))
}

func TestStaleTimerFireIsIgnored(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	code, _ := env.startGame(t, 1, 2)

	// Fire a time-up for a question that is no longer current.
	env.sessions.handleTimeUp(code, 5)

	view, err := env.sessions.GetSession(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, model.SessionActive, view.State)
	assert.Equal(t, 1, view.QuestionNumber)
	assert.Zero(t, env.bus.Count(code, model.EventQuestionTimeUp))
}

func TestCancelledSessionStaysQueryable(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	code, ids := env.startGame(t, 2, 3)

	require.NoError(t, env.sessions.Cancel(ctx, code, ids[0]))

	view, err := env.sessions.GetSession(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, model.SessionCancelled, view.State)
	assert.Empty(t, view.Players)
	assert.Nil(t, view.CurrentQuestion)
}

func TestErrorsAreDistinct(t *testing.T) {
	all := []error{
		ErrNotFound,
		ErrInvalidStateTransition,
		ErrStaleQuestion,
		ErrDuplicateSubmission,
		ErrValidation,
		ErrCodeGenerationExhausted,
		ErrInsufficientContent,
		ErrNotHost,
		ErrInvalidToken,
	}
	for i, a := range all {
		for j, b := range all {
			if i != j {
				assert.False(t, errors.Is(a, b))
			}
		}
	}
}
