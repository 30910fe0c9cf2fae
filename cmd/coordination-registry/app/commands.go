// Package app holds the cobra commands of the coordination registry.
package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stacklok/coordination-registry/internal/versions"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

// NewRootCmd creates the root command with every subcommand attached
func NewRootCmd(logger *zap.Logger) *cobra.Command {
	if logger == nil {
		logger = zap.NewNop()
	}

	rootCmd := &cobra.Command{
		Use:               "coordination-registry",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Coordination registry for resources, capabilities and subscriptions",
		Long: `The coordination registry tracks resources, the capabilities they support and
the subscriptions owners hold against those capabilities. It supervises resource
health, enables subscriptions on live resources and reports status changes to
subscription owners.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newServeCmd(logger))
	rootCmd.AddCommand(newSnapshotCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}

			info := versions.GetVersionInfo()
			out := cmd.OutOrStdout()
			switch format {
			case formatJSON:
				data, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to format version info as JSON: %w", err)
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			case "":
				_, err = fmt.Fprintf(out, "coordination-registry %s\n", info)
				return err
			default:
				return fmt.Errorf("unsupported format %q", format)
			}
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}
