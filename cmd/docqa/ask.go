package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/docqa-go/internal/adapters/retrieval"
	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

func newAskCmd(rt *runtime) *cobra.Command {
	var (
		sessionID   string
		showSources bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question against the vector store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.requirePersistentStore("ask"); err != nil {
				return err
			}
			a, err := rt.build(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.Query.Query(cmd.Context(), &entities.ChatRequest{
				SessionID: sessionID,
				Question:  strings.Join(args, " "),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, resp.Answer)
			if showSources {
				for _, s := range resp.Sources {
					fmt.Fprintf(out, "  [%s #%s score %s]\n", s.Source[retrieval.SourceDocument], s.Source[retrieval.SourceIndex], s.Source[retrieval.SourceScore])
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "conversation session ID")
	cmd.Flags().BoolVar(&showSources, "sources", false, "print the excerpts the answer was based on")
	return cmd
}
