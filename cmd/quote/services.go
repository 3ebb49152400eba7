package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/quotedesk/internal/cli"
	"github.com/Veraticus/quotedesk/internal/common"
	"github.com/Veraticus/quotedesk/internal/pricing"
)

func servicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "services",
		Short: "Show the price list",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List service types and their prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.catalog.Load(cmd.Context())
			if err != nil {
				return err
			}
			return cli.RenderServices(a.out, entries)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Reload the price list from its source sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.catalog.Reload(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, cli.FormatSuccess(fmt.Sprintf("Loaded %d service types", len(entries))))
			return cli.RenderServices(a.out, entries)
		},
	})

	return cmd
}

func priceCmd() *cobra.Command {
	var (
		articleType string
		words       float64
		quantity    string
		coefficient string
	)

	cmd := &cobra.Command{
		Use:   "price",
		Short: "Estimate a price without a session",
		Long: `Match an article type against the price list and compute the price range.
--quantity overrides the quantity derived from --words. Without --coefficient
the saved difficulty coefficient is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			if _, err := a.catalog.Load(ctx); err != nil {
				return err
			}

			// A scratch estimator so the saved coefficient is never touched.
			est := pricing.NewEstimator(a.catalog, nil, a.logger)
			if coefficient != "" {
				if err := est.SetCoefficientText(ctx, coefficient); err != nil {
					return err
				}
			} else if err := a.estimator.LoadCoefficient(ctx); err == nil {
				if err := est.SetCoefficient(ctx, a.estimator.Coefficient()); err != nil {
					return err
				}
			}
			est.SetArticleType(articleType)
			if words > 0 {
				est.SetWordCount(words)
			}
			if quantity != "" {
				est.SetQuantityText(quantity)
			}

			_, err = fmt.Fprintln(a.out, cli.FormatEstimate(est.Estimate()))
			return err
		},
	}

	cmd.Flags().StringVar(&articleType, "type", "", "article type, e.g. 实习报告")
	cmd.Flags().Float64Var(&words, "words", 0, "word count")
	cmd.Flags().StringVar(&quantity, "quantity", "", "quantity in the entry's unit")
	cmd.Flags().StringVar(&coefficient, "coefficient", "", "difficulty coefficient")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func coefficientCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "coefficient [value]",
		Short: "Show or set the difficulty coefficient",
		Long: fmt.Sprintf(`Show the saved difficulty coefficient, or save a new one.
Common presets: %s.`, formatPresets()),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			if err := a.estimator.LoadCoefficient(ctx); err != nil {
				return err
			}
			if len(args) == 1 {
				if err := a.estimator.SetCoefficientText(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintln(a.out, cli.FormatSuccess(fmt.Sprintf("Coefficient set to ×%g", a.estimator.Coefficient())))
				return nil
			}
			_, err = fmt.Fprintf(a.out, "×%g\n", a.estimator.Coefficient())
			return err
		},
	}
}

func formatPresets() string {
	parts := make([]string, len(pricing.CoefficientPresets))
	for i, p := range pricing.CoefficientPresets {
		parts[i] = fmt.Sprintf("%g", p)
	}
	return strings.Join(parts, ", ")
}

func retentionCmd() *cobra.Command {
	var set string

	cmd := &cobra.Command{
		Use:   "retention",
		Short: "Show or change the follow-up line for buyers who went quiet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			if cmd.Flags().Changed("set") {
				set = strings.TrimSpace(set)
				if set == "" {
					return common.NewUserError("The retention line cannot be empty", common.ErrValidation)
				}
				if err := a.remote.UpdateRetentionTemplate(ctx, set); err != nil {
					return fmt.Errorf("failed to save retention line: %w", err)
				}
				fmt.Fprintln(a.out, cli.FormatSuccess("Retention line saved"))
				return nil
			}
			_, err = fmt.Fprintln(a.out, a.sessions.RetentionLine(ctx))
			return err
		},
	}

	cmd.Flags().StringVar(&set, "set", "", "save a new retention line")

	return cmd
}

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect the LLM settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Check that the backend can reach the configured LLM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.LLM.IsZero() {
				return common.NewUserError("LLM is not configured: set llm.api_key and llm.model", common.ErrMissingLLMConfig)
			}
			tester, ok := a.remote.(connectionTester)
			if !ok {
				return fmt.Errorf("backend does not support connection tests")
			}

			spin := cli.StartSpinner(a.errOut, "Testing "+a.cfg.LLM.ModelID)
			err = tester.TestConnection(cmd.Context(), a.cfg.LLM)
			spin.Stop()
			if err != nil {
				hint := common.ClassifyFailure(err.Error())
				fmt.Fprintln(a.out, cli.FormatError(hint.Message))
				if hint.Detail != "" {
					fmt.Fprintln(a.out, "  "+cli.SubtleStyle.Render(hint.Detail))
				}
				return common.NewUserError("Connection test failed", err)
			}
			fmt.Fprintln(a.out, cli.FormatSuccess("Connected to "+a.cfg.LLM.ModelID))
			return nil
		},
	})

	return cmd
}
