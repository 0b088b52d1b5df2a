package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/warp/machine-storage/internal/app"
	"go.uber.org/zap"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "Print the machine type catalogue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := setup()
		if err != nil {
			return err
		}
		types, err := app.Catalogue(cfg.DefinitionsPath)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tITEMS\tFLUIDS\tENERGY")
		for _, t := range types.All() {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", t.ID, t.Name, t.Items.Size(), t.Fluids.Size(), t.Energy.Capacity)
		}
		return w.Flush()
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <machine-id>",
	Short: "Print a stored machine record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid machine id %q: %w", args[0], err)
		}
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		store, closer, err := app.OpenStore(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		if closer != nil {
			defer func() {
				if err := closer.Close(); err != nil {
					log.Warn("failed to close store", zap.Error(err))
				}
			}()
		}

		rec, err := store.Load(cmd.Context(), id)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"id":         rec.ID,
			"type":       rec.Type,
			"updated_at": rec.UpdatedAt,
			"data":       rec.Data,
		})
	},
}

func init() {
	rootCmd.AddCommand(typesCmd, inspectCmd)
}

