package main

import (
	"encoding/json"
	"fmt"

	"github.com/aescanero/dago-node-conformal/internal/config"
	"github.com/spf13/cobra"
)

// scoreOutput is printed by the score command
type scoreOutput struct {
	LogLikelihood float64 `json:"log_likelihood"`
	PValue        float64 `json:"p_value"`
	Decision      string  `json:"decision"`
	Annotation    string  `json:"annotation,omitempty"`
}

func newScoreCmd() *cobra.Command {
	var text string

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score one text against the baseline",
		Long: `Score computes the log-likelihood and p-value of a single text and prints the
decision the worker would take, without touching any queue.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			// stdout carries only the result
			logger, err := initLogger("error", "stderr")
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			scorer, err := newScorer(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			routerInstance, err := newRouter(cfg, logger)
			if err != nil {
				return err
			}

			result, err := scorer.Score(cmd.Context(), text)
			if err != nil {
				return err
			}
			decision, annotation := routerInstance.Route(result.PValue)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(scoreOutput{
				LogLikelihood: result.LogLikelihood,
				PValue:        result.PValue,
				Decision:      string(decision),
				Annotation:    annotation,
			})
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "text to score")
	_ = cmd.MarkFlagRequired("text")

	return cmd
}
