package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"trivia-game-service/internal/catalog"
	"trivia-game-service/internal/config"
	"trivia-game-service/internal/domain"
	"trivia-game-service/internal/infra/postgres"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type importOptions struct {
	perCategory int
	categories  []int
	delay       time.Duration
}

// NewImportCmd copies questions from the Open Trivia DB into the Postgres
// question bank used by the offline source.
func NewImportCmd(configPath, logLevel *string) *cobra.Command {
	opts := importOptions{}
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import Open Trivia DB questions into the question bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := newLogger(cfg, *logLevel)
			if err := runMigrationsWithConfig(cmd.Context(), cfg, log); err != nil {
				return err
			}
			return runImport(cmd.Context(), cfg, opts, log)
		},
	}
	cmd.Flags().IntVar(&opts.perCategory, "amount-per-category", domain.MaxQuestionsPerRequest, "questions to import per category")
	cmd.Flags().IntSliceVar(&opts.categories, "categories", nil, "category ids to import (default all)")
	// The public API allows one request every five seconds per client.
	cmd.Flags().DurationVar(&opts.delay, "delay", 5*time.Second, "pause between API requests")
	return cmd
}

func runImport(ctx context.Context, cfg config.Config, opts importOptions, log *logrus.Entry) error {
	if opts.perCategory <= 0 {
		return fmt.Errorf("amount-per-category must be positive")
	}

	client, err := newOpenTDBClient(cfg, log, nil)
	if err != nil {
		return err
	}
	db := postgres.OpenBun(cfg.Postgres.URL)
	defer db.Close()
	writer := postgres.NewQuestionWriter(db)

	categoryIDs := opts.categories
	if len(categoryIDs) == 0 {
		raw, err := client.FetchCategories(ctx)
		if err != nil {
			return err
		}
		categories, err := catalog.ParseCategoryList(raw)
		if err != nil {
			return err
		}
		for id := range categories {
			if id > 0 {
				categoryIDs = append(categoryIDs, id)
			}
		}
		sort.Ints(categoryIDs)
		if err := pause(ctx, opts.delay); err != nil {
			return err
		}
	}

	token, err := client.FetchSessionToken(ctx)
	if err != nil {
		return err
	}

	total := 0
	for _, id := range categoryIDs {
		categoryID := id
		remaining := opts.perCategory
		for remaining > 0 {
			if err := pause(ctx, opts.delay); err != nil {
				return err
			}
			results, err := client.FetchQuestions(ctx, domain.QuestionQuery{
				Amount:     min(remaining, domain.MaxQuestionsPerRequest),
				Token:      token,
				CategoryID: &categoryID,
			})
			var upstream *domain.UpstreamError
			if errors.As(err, &upstream) && (upstream.Code == domain.CodeNoResults || upstream.Code == domain.CodeTokenEmpty) {
				break
			}
			if err != nil {
				return err
			}

			batch := make([]domain.StoredQuestion, 0, len(results))
			for _, raw := range results {
				stored, err := catalog.StoredQuestionOf(raw, categoryID)
				if err != nil {
					log.WithError(err).WithField("category", categoryID).Warn("skipping malformed question")
					continue
				}
				batch = append(batch, stored)
			}
			saved, err := writer.Save(ctx, batch)
			if err != nil {
				return err
			}
			total += saved
			remaining -= len(results)
			if len(results) == 0 {
				break
			}
		}
		log.WithField("category", categoryID).Info("category imported")
	}

	log.WithFields(logrus.Fields{"categories": len(categoryIDs), "saved": total}).Info("import finished")
	return nil
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
