package cmd

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/StackOverflowed512/Shortlisting-Agent/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the candidates of a job posting and, optionally, the audit log of a run",
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobID, _ := cmd.Flags().GetInt64("job")
		runID, _ := cmd.Flags().GetString("run")
		if jobID <= 0 {
			return errors.New("--job must be a positive job posting id")
		}

		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx := cmd.Context()
		st, err := openStore(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer st.Close()

		posting, err := st.JobPosting(ctx, jobID)
		if err != nil {
			return err
		}

		log = log.With(zap.Int64("job_id", posting.ID))
		log.Info("job posting",
			zap.String("title", posting.Summary.JobTitle),
			zap.String("source", posting.SourceLabel),
			zap.Strings("required_skills", posting.Summary.RequiredSkills),
			zap.Time("created_at", posting.CreatedAt),
		)

		candidates, err := st.CandidatesForJob(ctx, jobID)
		if err != nil {
			return err
		}
		logCandidates(log, candidates)

		if runID == "" {
			return nil
		}
		return logAudit(cmd, st, log, runID)
	},
}

func logAudit(cmd *cobra.Command, st *store.Postgres, log *zap.Logger, raw string) error {
	runID, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", raw, err)
	}

	entries, err := st.Logs(cmd.Context(), runID)
	if err != nil {
		return err
	}

	log = log.With(zap.String("run_id", runID.String()))
	for _, entry := range entries {
		log.Info(entry.Message,
			zap.String("component", entry.Component),
			zap.String("audit_level", string(entry.Level)),
			zap.Time("at", entry.CreatedAt),
		)
	}
	log.Info("audit entries", zap.Int("count", len(entries)))
	return nil
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().Int64("job", 0, "job posting id")
	statusCmd.Flags().String("run", "", "run id whose audit entries should be printed")
}
