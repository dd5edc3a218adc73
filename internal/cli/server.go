package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"shule-quiz-service/internal/config"
	"shule-quiz-service/internal/domain"
	"shule-quiz-service/internal/generator"
	"shule-quiz-service/internal/infra/memory"
	pginfra "shule-quiz-service/internal/infra/postgres"
	redisinfra "shule-quiz-service/internal/infra/redis"
	"shule-quiz-service/internal/quiz"
	transport "shule-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	livenessTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)
	templateTTL := config.TTLDuration(cfg.Templates.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.TemplateLoader = memory.NewStaticTemplates(sampleTemplates())
	if pool != nil {
		loader = pginfra.NewTemplateRepository(pool)
	}

	var templates quiz.TemplateRepository
	if redisClient != nil {
		templates = redisinfra.NewTemplateCache(redisClient, loader, templateTTL)
	} else {
		templates = memory.NewTemplateCache(loader, templateTTL)
	}

	var sessions quiz.SessionStore
	var profiles quiz.ProfileStore
	if pool != nil {
		store := pginfra.NewStore(pool)
		sessions = store
		profiles = store
	} else {
		sessions = memory.NewSessionStore()
		profiles = memory.NewProfileStore()
	}
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(sessions, redisClient, livenessTTL)
	}

	var gen quiz.ContentGenerator
	if cfg.Generator.URL != "" {
		gen = generator.NewClient(
			cfg.Generator.URL,
			cfg.Generator.Model,
			cfg.Generator.APIKey,
			config.TTLDuration(cfg.Generator.Timeout, 60*time.Second),
		)
	}

	engine := quiz.NewEngine(templates, sessions, profiles, gen)
	router := transport.NewRouter(engine, transport.NewWSHandler(engine))

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleTemplates provides a minimal template set for the no-Postgres dev mode.
func sampleTemplates() []domain.QuizTemplate {
	return []domain.QuizTemplate{
		{
			ID:               "kcse-f2-math-random",
			Curriculum:       "kcse",
			Level:            "form-2",
			Subject:          "mathematics",
			QuizType:         domain.QuizTypeRandom,
			TimeLimitMinutes: 10,
			Questions: []domain.Question{
				{
					ID:      "t1",
					Content: "What is 12 x 8?",
					Choices: []domain.Choice{
						{ID: "c1", Content: "86", OrderIndex: 1},
						{ID: "c2", Content: "96", IsCorrect: true, OrderIndex: 2},
						{ID: "c3", Content: "98", OrderIndex: 3},
						{ID: "c4", Content: "104", OrderIndex: 4},
					},
					Explanation: "12 x 8 = 96.",
					Difficulty:  domain.DifficultyEasy,
					Marks:       1,
				},
				{
					ID:      "t2",
					Content: "Solve for x: 2x + 6 = 18",
					Choices: []domain.Choice{
						{ID: "c1", Content: "x = 6", IsCorrect: true, OrderIndex: 1},
						{ID: "c2", Content: "x = 9", OrderIndex: 2},
						{ID: "c3", Content: "x = 12", OrderIndex: 3},
						{ID: "c4", Content: "x = 3", OrderIndex: 4},
					},
					Explanation: "2x = 12, so x = 6.",
					Difficulty:  domain.DifficultyMedium,
					Marks:       1,
				},
			},
		},
	}
}
