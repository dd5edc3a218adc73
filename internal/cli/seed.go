package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"shule-quiz-service/internal/config"
	"shule-quiz-service/internal/domain"
)

// NewSeedCmd loads the sample quiz templates into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed sample quiz templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}
			return seedTemplates(cmd.Context(), cfg, sampleTemplates())
		},
	}
}

func seedTemplates(ctx context.Context, cfg config.Config, templates []domain.QuizTemplate) error {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	for _, t := range templates {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshal template %s: %w", t.ID, err)
		}
		_, err = db.ExecContext(ctx, `
			INSERT INTO quiz_templates (id, curriculum, level, subject, quiz_type, topic_id, term, data)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?::jsonb)
			ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
			t.ID, t.Curriculum, t.Level, t.Subject, string(t.QuizType), t.TopicID, t.Term, string(data))
		if err != nil {
			return fmt.Errorf("insert template %s: %w", t.ID, err)
		}
	}
	log.Printf("seeded %d quiz templates", len(templates))
	return nil
}
