package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storyloom/storyloom-server/internal/store"
)

type collectionSummary struct {
	Name    string `json:"name" yaml:"name"`
	Records int    `json:"records" yaml:"records"`
}

type dumpedRecord struct {
	ID   string `json:"id" yaml:"id"`
	Data any    `json:"data" yaml:"data"`
}

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List stored collections with their record counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := openBackend()
		if err != nil {
			return err
		}
		defer backend.Close()

		lister, ok := backend.(store.Collections)
		if !ok {
			return fmt.Errorf("%s backend cannot list collections", backend.Kind())
		}

		ctx := cmd.Context()
		names, err := lister.Collections(ctx)
		if err != nil {
			return err
		}

		summaries := make([]collectionSummary, 0, len(names))
		for _, name := range names {
			records, err := backend.GetAll(ctx, name)
			if err != nil {
				return fmt.Errorf("read %s: %w", name, err)
			}
			summaries = append(summaries, collectionSummary{Name: name, Records: len(records)})
		}
		return output(summaries)
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump <collection>",
	Short: "Print every record of a collection",
	Example: `  storyctl dump books
  storyctl dump slides:characters -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := openBackend()
		if err != nil {
			return err
		}
		defer backend.Close()

		records, err := backend.GetAll(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := make([]dumpedRecord, 0, len(records))
		for _, r := range records {
			out = append(out, dumpedRecord{ID: r.ID, Data: decodeJSON(r.Data)})
		}
		return output(out)
	},
}

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear <collection>",
	Short: "Remove a collection entirely",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes {
			return fmt.Errorf("refusing to clear %s without --yes", args[0])
		}

		backend, err := openBackend()
		if err != nil {
			return err
		}
		defer backend.Close()

		if err := backend.Clear(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "cleared %s\n", args[0])
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a stored key, such as a drawing snapshot",
	Example: `  storyctl get drawing_aiPanelOpen
  storyctl get drawingBoardCanvas_characters_old_mara`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := openBackend()
		if err != nil {
			return err
		}
		defer backend.Close()

		raw, err := backend.Get(cmd.Context(), args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("key %s not found", args[0])
		}
		if err != nil {
			return err
		}
		return output(decodeJSON(raw))
	},
}

func init() {
	clearCmd.Flags().BoolVar(&clearYes, "yes", false, "confirm the deletion")
}
