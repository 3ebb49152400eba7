package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/quotedesk/internal/cli"
	"github.com/Veraticus/quotedesk/internal/common"
	"github.com/Veraticus/quotedesk/internal/tui"
	"github.com/Veraticus/quotedesk/internal/tui/themes"
)

const resumeHint = "Run `quote retry` to analyze the message again, or `quote dismiss` to drop it."

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive chat screen",
		Long: `Open a full-screen chat for the current session. Paste buyer messages,
pick suggested replies and watch the price estimate update.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			theme, err := themes.ByName(a.cfg.Theme)
			if err != nil {
				return common.NewUserError("Invalid tui.theme", err)
			}
			return tui.Run(cmd.Context(), tui.Deps{
				Orchestrator: a.orchestrator,
				Sessions:     a.sessions,
				Estimator:    a.estimator,
				Catalog:      a.catalog,
				Logger:       a.logger,
				Theme:        theme,
				Timeout:      a.cfg.BackendTimeout,
			})
		},
	}
}

func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send [message]",
		Short: "Analyze a buyer message",
		Long: `Send a buyer message to the current session for analysis. Without
arguments the message is read from standard input until EOF.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			content := strings.Join(args, " ")
			if len(args) == 0 {
				fmt.Fprintln(a.errOut, cli.FormatInfo("Paste the buyer message, then press Ctrl-D:"))
				content, err = cli.NewInput(cmd.InOrStdin(), a.errOut).ReadMessage(ctx)
				if err != nil {
					return err
				}
			}

			if err := a.restore(ctx); err != nil {
				return err
			}

			ctx, stop := cli.NewInterruptHandler(a.errOut).HandleInterrupts(ctx, resumeHint)
			defer stop()

			spin := cli.StartSpinner(a.errOut, "Analyzing buyer message")
			err = a.orchestrator.SendMessage(ctx, content)
			spin.Stop()
			return a.sendResult(err)
		},
	}
}

func retryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Analyze the last failed message again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			if err := a.restore(ctx); err != nil {
				return err
			}

			ctx, stop := cli.NewInterruptHandler(a.errOut).HandleInterrupts(ctx, resumeHint)
			defer stop()

			spin := cli.StartSpinner(a.errOut, "Retrying analysis")
			err = a.orchestrator.Retry(ctx)
			spin.Stop()
			return a.sendResult(err)
		},
	}
}

func dismissCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss",
		Short: "Forget the last failed message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			if err := a.restore(ctx); err != nil {
				return err
			}
			if a.orchestrator.Snapshot().Failed == nil {
				fmt.Fprintln(a.out, cli.FormatInfo("Nothing to dismiss"))
				return nil
			}
			if err := a.orchestrator.Dismiss(ctx); err != nil {
				return fmt.Errorf("failed to dismiss: %w", err)
			}
			fmt.Fprintln(a.out, cli.FormatSuccess("Dismissed the failed message"))
			return nil
		},
	}
}
