package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dailypages/internal/delivery"
	"dailypages/internal/service"
)

// trigger is the on-demand entry point of the delivery service.
type trigger interface {
	Trigger(ctx context.Context, email, documentID string) (*delivery.Report, error)
}

// connectFunc builds the trigger and returns a cleanup to run once the pass is done.
type connectFunc func(ctx context.Context) (trigger, func() error, error)

func newRootCmd(connect connectFunc) *cobra.Command {
	var (
		documentID string
		asJSON     bool
		strict     bool
	)

	cmd := &cobra.Command{
		Use:   "sendpages <email|ALL>",
		Short: "Deliver the next page to readers now",
		Long: `Runs one delivery pass outside the daily schedule.
Pass ALL to target every active subscription, or a reader's email to target
that reader. With --document only the reader's subscription to that document
is processed. A pass advances cursors exactly like the scheduled one.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, cleanup, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = cleanup() }()

			report, err := t.Trigger(cmd.Context(), args[0], documentID)
			if err != nil {
				if invalidArgs(err) {
					return fmt.Errorf("invalid arguments: %w", err)
				}
				return fmt.Errorf("delivery pass failed: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printSummary(cmd, report)
			}

			if strict && failed(report) > 0 {
				return errors.New("some subscriptions were not delivered")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&documentID, "document", "d", "", "restrict the pass to one document of the reader")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any subscription failed to send or store")

	return cmd
}

// invalidArgs reports errors raised before any subscription was touched.
func invalidArgs(err error) bool {
	return errors.Is(err, service.ErrInvalidEmail) ||
		errors.Is(err, service.ErrInvalidID) ||
		errors.Is(err, service.ErrInvalidScope)
}

func failed(r *delivery.Report) int {
	return r.Count(delivery.OutcomeSendFailed) + r.Count(delivery.OutcomeStorageFailed)
}

func printSummary(cmd *cobra.Command, r *delivery.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Pass %s (%s) finished in %s\n", r.Scope, r.Trigger, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	for _, o := range delivery.Outcomes {
		if n := r.Count(o); n > 0 {
			fmt.Fprintf(out, "  %-16s %d\n", o, n)
		}
	}
	for _, res := range r.Results {
		if res.Error != "" {
			fmt.Fprintf(out, "  ! %s %s/%s: %s\n", res.Outcome, res.ReaderEmail, res.DocumentID, res.Error)
		}
	}
}
