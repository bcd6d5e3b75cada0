package cli

import (
	"strings"

	"github.com/spf13/cobra"

	appPricing "github.com/bangunhq/estimator/internal/application/pricing"
	"github.com/bangunhq/estimator/internal/infrastructure/database/postgres"
	"github.com/bangunhq/estimator/internal/infrastructure/database/postgres/repositories"
	"github.com/bangunhq/estimator/internal/infrastructure/marketplace"
	domainPricing "github.com/bangunhq/estimator/internal/domain/pricing"
)

// newPriceCommand builds `bangun price <name>`: a one-shot run of the full
// resolution pipeline against the configured store and scraper.
func newPriceCommand(opts *rootOptions) *cobra.Command {
	var (
		qty      float64
		unit     string
		category string
	)

	cmd := &cobra.Command{
		Use:   "price <material name>",
		Short: "Resolve the market price of one material",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger, err := opts.newLogger()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			conn, err := postgres.NewConnection(ctx, cfg.Database, logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			repo := repositories.NewPriceRepository(conn.Pool(), logger)
			matcher := domainPricing.NewMatcher(
				&domainPricing.ExactStrategy{
					Repo:            repo,
					BaseConfidence:  cfg.Pricing.ExactConfidence,
					FreshnessWindow: cfg.Pricing.FreshnessWindow,
				},
				&domainPricing.FuzzyStrategy{Repo: repo, Threshold: cfg.Pricing.FuzzyThreshold},
			)

			scraper, err := marketplace.NewClient(cfg.Marketplace, logger)
			if err != nil {
				return err
			}
			live := marketplace.NewResolver(scraper, repo, nil, cfg.Marketplace,
				cfg.Pricing.FreshnessWindow, logger, nil)
			engine := appPricing.NewEngine(matcher, live, cfg.Pricing, logger, nil)

			result, err := engine.Resolve(ctx, domainPricing.LookupRequest{
				Name:     strings.Join(args, " "),
				Quantity: qty,
				Unit:     unit,
				Category: category,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}

	cmd.Flags().Float64Var(&qty, "qty", 1, "quantity")
	cmd.Flags().StringVar(&unit, "unit", "", "unit (defaults to pcs)")
	cmd.Flags().StringVar(&category, "category", "", "category hint for fallback pricing")
	return cmd
}
