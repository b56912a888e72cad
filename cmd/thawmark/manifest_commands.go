package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"thawmark/internal/inventory"
	"thawmark/internal/manifest"
)

func newManifestCommand(ctx *commandContext) *cobra.Command {
	manifestCmd := &cobra.Command{
		Use:   "manifest",
		Short: "Manifest maintenance",
	}

	manifestCmd.AddCommand(newManifestInitCommand(ctx))

	return manifestCmd
}

func newManifestInitCommand(ctx *commandContext) *cobra.Command {
	var inventoryPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Seed the manifest from the feature inventory",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			path := strings.TrimSpace(inventoryPath)
			if path == "" {
				path = cfg.Paths.InventoryPath
			}
			if path == "" {
				return fmt.Errorf("no inventory path; set paths.inventory_path or pass --inventory")
			}

			if !force {
				health, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				if health.Total > 0 {
					return fmt.Errorf("manifest at %s already has %d entries (use --force to add new UIDs anyway)",
						store.Path(), health.Total)
				}
			}

			ds, err := inventory.Load(path)
			if err != nil {
				return err
			}
			uids := ds.UIDs()
			added, err := store.Seed(cmd.Context(), uids)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Inventory: %d positive features, %d unique UIDs\n", ds.Len(), len(uids))
			fmt.Fprintf(out, "Seeded %d new entries into %s\n", added, store.Path())
			return nil
		},
	}

	cmd.Flags().StringVar(&inventoryPath, "inventory", "", "ARTS GeoJSON inventory path (defaults to paths.inventory_path)")
	cmd.Flags().BoolVar(&force, "force", false, "Seed even when the manifest already has entries")
	return cmd
}

func newClaimCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "claim",
		Short: "Claim the next eligible UID",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			labeler, err := ctx.labelerID()
			if err != nil {
				return err
			}
			entry, err := store.Claim(cmd.Context(), labeler)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if entry == nil {
				fmt.Fprintln(out, "No claimable entries remain.")
				return nil
			}
			fmt.Fprintf(out, "Claimed %s as %s (version %d)\n", entry.UID, labeler, entry.Version)
			return nil
		},
	}
}

func newReleaseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "release <uid>",
		Short: "Return a claimed UID to the pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			labeler, err := ctx.labelerID()
			if err != nil {
				return err
			}
			if err := store.Release(cmd.Context(), args[0], labeler); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Released %s\n", args[0])
			return nil
		},
	}
}

func newCommitCommand(ctx *commandContext) *cobra.Command {
	var skip bool
	var outputFile string

	cmd := &cobra.Command{
		Use:   "commit <uid>",
		Short: "Commit a claimed UID to a terminal status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			labeler, err := ctx.labelerID()
			if err != nil {
				return err
			}
			entry, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if entry == nil {
				return fmt.Errorf("unknown UID %q", args[0])
			}
			if entry.Assignee != labeler {
				return fmt.Errorf("%s is held by %q, not by %q", entry.UID, entry.Assignee, labeler)
			}

			status := manifest.StatusCompleted
			if skip {
				status = manifest.StatusSkipped
			}
			if err := store.Commit(cmd.Context(), entry, status, strings.TrimSpace(outputFile)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Committed %s as %s\n", entry.UID, status)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skip, "skip", false, "Record the UID as skipped instead of completed")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Artifact file name to record")
	return cmd
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the manifest snapshot as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if strings.TrimSpace(outPath) == "" || outPath == "-" {
				return store.WriteCSV(cmd.Context(), cmd.OutOrStdout())
			}

			file, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			defer file.Close()
			if err := store.WriteCSV(cmd.Context(), file); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported manifest to %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Export destination (default stdout)")
	return cmd
}
