package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIngestCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <path|glob|dir>...",
		Short: "Load, chunk and embed documents into the vector store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.requirePersistentStore("ingest"); err != nil {
				return err
			}
			a, err := rt.build(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.Ingest.IngestPaths(cmd.Context(), args)
			out := cmd.OutOrStdout()
			for _, r := range results {
				fmt.Fprintf(out, "%s\t%s\t%d chunks\n", r.DocumentID, r.Path, r.Chunks)
			}
			fmt.Fprintf(out, "%d documents ingested\n", len(results))
			return err
		},
	}
}
