package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/quotedesk/internal/cli"
	"github.com/Veraticus/quotedesk/internal/common"
	"github.com/Veraticus/quotedesk/internal/model"
	"github.com/Veraticus/quotedesk/internal/session"
)

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.restore(cmd.Context()); err != nil {
				return err
			}
			return a.render()
		},
	}
}

func newSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start a new session",
		Long:  `Forget the current session. The next buyer message starts a new one.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.sessions.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, cli.FormatSuccess("Started a new session"))
			return nil
		},
	}
}

func endCmd() *cobra.Command {
	var (
		deal        string
		articleType string
		price       float64
		summarize   bool
	)

	cmd := &cobra.Command{
		Use:   "end",
		Short: "Close the current session with the deal outcome",
		Long: `Close the current session. --deal records whether the buyer placed the
order. A successful deal without --price records the middle of the current
estimate. With --summarize the backend condenses the buyer's requirements first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			var suggested *float64
			unsubscribe := a.estimator.OnPriceChange(func(mid *float64) { suggested = mid })
			defer unsubscribe()

			if err := a.restore(ctx); err != nil {
				return err
			}
			if _, ok := a.sessions.SessionID(); !ok {
				return common.NewUserError("No session loaded", common.ErrNoSession)
			}

			req := session.EndRequest{
				DealStatus:  model.DealStatus(deal),
				ArticleType: articleType,
			}
			switch {
			case cmd.Flags().Changed("price"):
				req.DealPrice = &price
			case req.DealStatus == model.DealSuccess && suggested != nil:
				req.DealPrice = suggested
				fmt.Fprintln(a.out, cli.FormatInfo(fmt.Sprintf("Recorded the estimated price ¥%g (override with --price)", *suggested)))
			}
			if summarize {
				spin := cli.StartSpinner(a.errOut, "Summarizing requirements")
				rs, err := a.sessions.Summarize(ctx, a.cfg.LLM)
				spin.Stop()
				if err != nil {
					return fmt.Errorf("failed to summarize requirements: %w", err)
				}
				req.RequirementSummary = rs
			}

			if err := a.sessions.EndSession(ctx, req); err != nil {
				return err
			}
			fmt.Fprintln(a.out, cli.FormatSuccess("Session closed"))
			return a.render()
		},
	}

	cmd.Flags().StringVar(&deal, "deal", string(model.DealPending), "deal outcome (success, failed, pending)")
	cmd.Flags().Float64Var(&price, "price", 0, "agreed price")
	cmd.Flags().StringVar(&articleType, "type", "", "article type to record")
	cmd.Flags().BoolVar(&summarize, "summarize", false, "summarize the requirements before closing")

	return cmd
}

func replyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reply <messageID> <index>",
		Short: "Send a suggested reply as the seller",
		Long: `Select suggested reply <index> (as numbered by ` + "`quote show`" + `) for a buyer
message and add it to the conversation as a seller message.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			messageID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return common.NewUserError("Message id must be a number", err)
			}
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return common.NewUserError("Reply index must be a number", err)
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			if err := a.restore(ctx); err != nil {
				return err
			}
			msg, err := a.sessions.SendReply(ctx, messageID, index)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, cli.FormatSuccess("Sent: "+msg.Content))
			return nil
		},
	}
}
