package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"guessflag/internal/cache"
	"guessflag/internal/config"
	"guessflag/internal/repository"
	"guessflag/internal/service"
	"guessflag/internal/transport/rest"
	"guessflag/internal/transport/ws"
)

func newCmd(cfg *config.Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("GUESSFLAG")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "guessflag-server",
		Short:         "Real-time multiplayer flag trivia server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.StringVar(&cfg.MongoURI, "mongo-uri", cfg.MongoURI, "MongoDB connection URI (env: GUESSFLAG_MONGO_URI)")
	fs.StringVar(&cfg.MongoDatabase, "mongo-database", cfg.MongoDatabase, "MongoDB database name (env: GUESSFLAG_MONGO_DATABASE)")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address (env: GUESSFLAG_REDIS_ADDR)")
	fs.StringVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on (env: GUESSFLAG_PORT)")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "secret for player tokens (env: GUESSFLAG_JWT_SECRET)")
	fs.IntVar(&cfg.QuestionsPerGame, "questions-per-game", cfg.QuestionsPerGame, "default question count per game (env: GUESSFLAG_QUESTIONS_PER_GAME)")
	fs.DurationVar(&cfg.AnswerTimeLimit, "answer-time-limit", cfg.AnswerTimeLimit, "answer window per question (env: GUESSFLAG_ANSWER_TIME_LIMIT)")
	fs.IntVar(&cfg.PointsPerCorrect, "points-per-correct", cfg.PointsPerCorrect, "points awarded per correct answer (env: GUESSFLAG_POINTS_PER_CORRECT)")
	fs.DurationVar(&cfg.ResultGrace, "result-grace", cfg.ResultGrace, "delay after a question resolves before advancing (env: GUESSFLAG_RESULT_GRACE)")
	fs.BoolVar(&cfg.PreserveStateOnRejoin, "preserve-state-on-rejoin", cfg.PreserveStateOnRejoin, "rejoining players keep score and host status (env: GUESSFLAG_PRESERVE_STATE_ON_REJOIN)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	log.Println("Connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDatabase)

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	log.Println("Connected to Redis")

	wsHub := ws.NewHub()
	log.Println("WebSocket hub started")

	sessionRepo := repository.NewSessionRepo(db)
	playerRepo := repository.NewPlayerRepo(db)
	answerRepo := repository.NewAnswerRepo(db)
	questionRepo := repository.NewQuestionRepo(db)

	scoreboard := cache.NewScoreboardCache(rdb)
	sessionCache := cache.NewSessionCache(rdb)

	authSvc := service.NewAuthService(cfg.JWTSecret)
	scheduler := service.NewScheduler()
	sessionSvc := service.NewSessionService(cfg, sessionRepo, playerRepo, answerRepo, questionRepo, scoreboard, sessionCache, scheduler)
	playerSvc := service.NewPlayerService(cfg, sessionSvc, playerRepo, scoreboard, authSvc)
	answerSvc := service.NewAnswerService(cfg, sessionSvc, scoreboard)

	// wsHub implements service.Broadcaster
	sessionSvc.SetBroadcaster(wsHub)
	playerSvc.SetBroadcaster(wsHub)
	answerSvc.SetBroadcaster(wsHub)

	container := &rest.Container{
		AuthService:    authSvc,
		SessionService: sessionSvc,
		PlayerService:  playerSvc,
		AnswerService:  answerSvc,
		Scoreboard:     scoreboard,
		WSHub:          wsHub,
	}

	router := rest.NewRouter(container)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server exited")
	return nil
}

func main() {
	cfg := config.Load()
	cobra.CheckErr(newCmd(cfg).Execute())
}
