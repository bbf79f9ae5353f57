package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	feedbackID     string
	feedbackAmount float64
	feedbackNotes  string
	feedbackSource string
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record the final agreed amount against an estimate",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		engine, st, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		res, err := engine.SubmitFeedback(ctx, feedbackID, feedbackAmount, feedbackNotes, feedbackSource)
		if err != nil {
			return err
		}

		zap.L().Info("feedback recorded",
			zap.String("estimate_id", res.EstimateID),
			zap.Float64("final_amount", feedbackAmount),
			zap.Int("history_len", len(res.FeedbackHistory)))

		return printJSON(res)
	},
}

func init() {
	feedbackCmd.Flags().StringVar(&feedbackID, "id", "", "estimate record ID")
	feedbackCmd.Flags().Float64Var(&feedbackAmount, "amount", 0, "final agreed amount")
	feedbackCmd.Flags().StringVar(&feedbackNotes, "notes", "", "why the amount changed")
	feedbackCmd.Flags().StringVar(&feedbackSource, "source", "cli", "who supplied the correction")
	feedbackCmd.MarkFlagRequired("id")
	feedbackCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(feedbackCmd)
}
