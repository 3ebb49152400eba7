package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/quotedesk/internal/cli"
	"github.com/Veraticus/quotedesk/internal/common"
	"github.com/Veraticus/quotedesk/internal/history"
	"github.com/Veraticus/quotedesk/internal/model"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Browse past sessions",
		Long:  `List, inspect, reopen and delete sessions.`,
	}

	cmd.AddCommand(sessionsListCmd())
	cmd.AddCommand(sessionsShowCmd())
	cmd.AddCommand(sessionsOpenCmd())
	cmd.AddCommand(sessionsDeleteCmd())

	return cmd
}

func parseSessionID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, common.NewUserError(fmt.Sprintf("Invalid session id %q", arg), common.ErrValidation)
	}
	return id, nil
}

func sessionsListCmd() *cobra.Command {
	var (
		status      string
		deal        string
		search      string
		page        int
		pageSize    int
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		Long: `List sessions, newest first. --interactive keeps the list open for paging
and searching.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			q := history.NewQuery(a.remote, history.Options{
				PageSize: a.cfg.HistoryPageSize,
				Debounce: a.cfg.HistoryDebounce,
				Logger:   a.logger,
			})
			defer q.Close()

			res, err := q.SetFilter(ctx, model.SessionFilter{
				Status:     model.SessionStatus(status),
				DealStatus: model.DealStatus(deal),
				Search:     search,
				Page:       page,
				PageSize:   pageSize,
			})
			if err != nil {
				return err
			}
			if err := printResult(a.out, res); err != nil {
				return err
			}
			if !interactive {
				return nil
			}
			return browse(ctx, q, cli.NewInput(cmd.InOrStdin(), a.errOut), a.out)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (active, closed)")
	cmd.Flags().StringVar(&deal, "deal", "", "filter by deal outcome (success, failed, pending)")
	cmd.Flags().StringVar(&search, "search", "", "only sessions whose messages contain this text")
	cmd.Flags().IntVar(&page, "page", 1, "page to show")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "sessions per page (default from history.page_size)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "page and search interactively")

	return cmd
}

func printResult(w io.Writer, res history.Result) error {
	if res.Err != nil {
		return res.Err
	}
	return cli.RenderSessionPage(w, res.Page)
}

// browse reads paging and search commands until the seller quits.
func browse(ctx context.Context, q *history.Query, in *cli.Input, w io.Writer) error {
	for {
		fmt.Fprint(w, cli.SubtleStyle.Render("[n]ext [p]rev /text search, / clears, [q]uit > "))
		line, err := in.ReadLine(ctx)
		if errors.Is(err, io.EOF) || errors.Is(err, cli.ErrInputCancelled) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		var res history.Result
		switch {
		case line == "q" || line == "quit":
			return nil
		case line == "n" || line == "":
			var ok bool
			if res, ok = q.Next(ctx); !ok {
				fmt.Fprintln(w, cli.FormatInfo("Already on the last page"))
				continue
			}
		case line == "p":
			var ok bool
			if res, ok = q.Prev(ctx); !ok {
				fmt.Fprintln(w, cli.FormatInfo("Already on the first page"))
				continue
			}
		case strings.HasPrefix(line, "/"):
			res = q.SearchNow(ctx, strings.TrimPrefix(line, "/"))
		default:
			fmt.Fprintln(w, cli.FormatWarning("Unknown command "+strconv.Quote(line)))
			continue
		}

		if err := printResult(w, res); err != nil {
			fmt.Fprintln(w, cli.FormatError(err.Error()))
		}
	}
}

func sessionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a session without making it current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.remote.GetSession(cmd.Context(), id)
			if errors.Is(err, common.ErrNotFound) {
				return common.NewUserError(fmt.Sprintf("Session %d does not exist", id), err)
			}
			if err != nil {
				return err
			}
			s.Normalize()
			return cli.RenderSession(a.out, cli.SessionView{Session: s})
		},
	}
}

func sessionsOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <id>",
		Short: "Make a session current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			if _, err := a.catalog.Load(ctx); err != nil {
				a.logger.Warn("Failed to load price list", "error", err)
			}
			if err := a.estimator.LoadCoefficient(ctx); err != nil {
				a.logger.Warn("Failed to load coefficient", "error", err)
			}
			if err := a.sessions.Load(ctx, id); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("Session %d does not exist", id), err)
				}
				return err
			}
			if cur := a.sessions.Current(); cur != nil && cur.LatestAnalysis != nil {
				a.estimator.Update(cur.LatestAnalysis.ExtractedInfo)
			}
			return a.render()
		},
	}
}

func sessionsDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			if !yes {
				ok, err := cli.NewInput(cmd.InOrStdin(), a.errOut).Confirm(ctx, fmt.Sprintf("Delete session %d?", id))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(a.out, cli.FormatInfo("Kept session"))
					return nil
				}
			}

			// The current pointer is cleared when it names the deleted session.
			if _, err := a.sessions.Restore(ctx); err != nil {
				a.logger.Debug("Could not restore current session", "error", err)
			}
			if err := a.sessions.Delete(ctx, id); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("Session %d does not exist", id), err)
				}
				return err
			}
			fmt.Fprintln(a.out, cli.FormatSuccess(fmt.Sprintf("Deleted session %d", id)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}
