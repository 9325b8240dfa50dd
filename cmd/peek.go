package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newPeekCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "peek <url>",
		Short: "HEAD a URL and report its content type, size, and status without fetching the body",
		Args:  cobra.ExactArgs(1),
		RunE:  runPeek,
	}
}

func runPeek(cmd *cobra.Command, args []string) error {
	application, err := bootstrap()
	if err != nil {
		return err
	}

	preview, err := application.Services.ContentReader.Peek(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(preview)
}
