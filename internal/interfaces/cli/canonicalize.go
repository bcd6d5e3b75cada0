package cli

import (
	"strings"

	"github.com/spf13/cobra"

	domainPricing "github.com/bangunhq/estimator/internal/domain/pricing"
)

// newCanonicalizeCommand builds `bangun canonicalize <name>`.
func newCanonicalizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "canonicalize <material name>",
		Short: "Print the canonical cache key for a material name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.Join(args, " ")
			return printJSON(cmd, map[string]string{
				"raw":       raw,
				"canonical": domainPricing.Canonicalize(raw),
			})
		},
	}
}
