package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"thawmark/internal/extract"
	"thawmark/internal/history"
	"thawmark/internal/inventory"
	"thawmark/internal/logging"
	"thawmark/internal/prompt"
	"thawmark/internal/segment"
	"thawmark/internal/services"
	"thawmark/internal/session"
	"thawmark/internal/sink"
	"thawmark/internal/tiles"
)

// newAutoCommand runs unattended first-pass labeling: for each claimed UID the
// historical centroid seeds a single positive prompt, the engine produces a
// mask, and the result is committed. Entries the engine cannot segment are
// deferred for the rest of the run and released on exit, so a human labeler
// can pick them up; each UID is tried at most once per run.
func newAutoCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "auto",
		Short: "Run unattended centroid-seeded labeling",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			labeler, err := ctx.labelerID()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			engine, err := segment.NewClientFromConfig(cfg)
			if err != nil {
				return err
			}
			provider, err := tiles.NewProvider(cfg)
			if err != nil {
				return err
			}
			labelSink, err := sink.NewGeoJSONSink(cfg.Paths.OutputDir)
			if err != nil {
				return err
			}

			var past session.HistoryLoader
			if cfg.Paths.InventoryPath != "" {
				ds, err := inventory.Load(cfg.Paths.InventoryPath)
				if err != nil {
					return err
				}
				past = history.NewLoader(ds)
			}

			controller, err := session.New(session.Options{
				Store:     store,
				Engine:    engine,
				Tiles:     provider,
				Extractor: extract.New(cfg),
				Sink:      labelSink,
				History:   past,
				LabelerID: labeler,
				Logger:    logger,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			labeled := 0
			attempted := make(map[string]bool)
			var deferred []string
			for labeled < limit {
				entry, err := controller.Next(cmd.Context())
				if err != nil {
					return err
				}
				if entry == nil {
					fmt.Fprintln(out, "No claimable entries remain.")
					break
				}
				if attempted[entry.UID] {
					// Every remaining claimable entry already failed this
					// run; another pass would repeat the same failures.
					if err := controller.Abandon(cmd.Context()); err != nil {
						logger.Warn("release re-claimed entry",
							logging.FieldUID, entry.UID, "error", err)
					}
					fmt.Fprintf(out, "%s already failed this run; stopping\n", entry.UID)
					break
				}
				attempted[entry.UID] = true

				artifact, err := autoLabelOne(cmd, controller)
				if err != nil {
					// Keep the claim held so the next iteration moves on to
					// a fresh UID; deferred entries are released on exit.
					deferred = append(deferred, entry.UID)
					if detachErr := detachIfActive(controller); detachErr != nil {
						logger.Warn("detach after auto-label failure",
							logging.FieldUID, entry.UID, "error", detachErr)
					}
					fmt.Fprintf(out, "%s: %v (deferred)\n", entry.UID, err)
					continue
				}
				fmt.Fprintf(out, "%s: committed %s\n", entry.UID, artifact)
				labeled++
			}

			for _, uid := range deferred {
				if err := store.Release(cmd.Context(), uid, labeler); err != nil {
					logger.Warn("release deferred entry",
						logging.FieldUID, uid, "error", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 1, "Number of UIDs to label before stopping")
	return cmd
}

func autoLabelOne(cmd *cobra.Command, controller *session.Controller) (string, error) {
	if err := controller.Start(cmd.Context()); err != nil {
		return "", err
	}

	tile := controller.Tile()
	x, y, ok := controller.SuggestedSeed()
	if !ok {
		x, y = float64(tile.Width)/2, float64(tile.Height)/2
	}
	if _, err := controller.AddPrompt(x, y, prompt.Positive); err != nil {
		return "", err
	}
	if err := controller.Infer(cmd.Context()); err != nil {
		return "", err
	}
	return controller.Accept(cmd.Context())
}

func detachIfActive(controller *session.Controller) error {
	switch controller.State() {
	case session.StateClaimed, session.StatePrompting, session.StateMaskReady:
		err := controller.Detach()
		if err != nil && !errors.Is(err, services.ErrValidation) {
			return err
		}
	}
	return nil
}
