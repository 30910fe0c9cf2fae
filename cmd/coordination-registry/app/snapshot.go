package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stacklok/coordination-registry/internal/persistence"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect the stored registry snapshot",
	}
	cmd.AddCommand(newSnapshotShowCmd())
	return cmd
}

func newSnapshotShowCmd() *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the capabilities and subscriptions of the stored snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(v)
			if err != nil {
				return err
			}

			gateway, err := persistence.Open(cfg.GetPersistence(), persistence.WithLogger(zap.L()))
			if err != nil {
				return fmt.Errorf("failed to open persistence: %w", err)
			}
			defer func() { _ = gateway.Close() }()

			snap, err := gateway.LoadSnapshot(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load snapshot: %w", err)
			}

			switch format := v.GetString("format"); format {
			case formatJSON:
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			case formatTable, "":
				return renderSnapshot(cmd.OutOrStdout(), snap)
			default:
				return fmt.Errorf("unsupported format %q", format)
			}
		},
	}

	cmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	cmd.Flags().String("format", formatTable, "Output format (table or json)")
	mustBindFlags(v, cmd, "config", "format")

	return cmd
}

// renderSnapshot writes one table of capabilities and one of subscriptions
func renderSnapshot(w io.Writer, snap *persistence.Snapshot) error {
	if snap.Empty() {
		_, err := fmt.Fprintln(w, "Snapshot is empty")
		return err
	}

	savedAt := "never"
	if !snap.SavedAt.IsZero() {
		savedAt = snap.SavedAt.Format(time.RFC3339)
	}
	if _, err := fmt.Fprintf(w, "Snapshot format %s, saved %s\n\n", snap.FormatVersion, savedAt); err != nil {
		return err
	}

	caps := tablewriter.NewWriter(w)
	caps.Header("Capability", "Schema")
	for _, c := range snap.Capabilities {
		schema := "-"
		if len(c.Schema) > 0 {
			schema = strconv.Itoa(len(c.Schema)) + " bytes"
		}
		if err := caps.Append([]string{c.ID, schema}); err != nil {
			return err
		}
	}
	if err := caps.Render(); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	subs := tablewriter.NewWriter(w)
	subs.Header("Subscription", "Capability", "Owner", "Last Reported", "Created")
	for _, s := range snap.Subscriptions {
		if err := subs.Append([]string{
			s.ID,
			s.CapabilityID,
			s.Owner,
			lastReported(s.LastReportedEnabled),
			s.CreatedAt.Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	return subs.Render()
}

func lastReported(v *bool) string {
	switch {
	case v == nil:
		return "-"
	case *v:
		return "enabled"
	default:
		return "disabled"
	}
}
