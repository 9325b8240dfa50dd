package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"apitap/internal/replay"
)

var (
	browseFresh    bool
	browseMaxBytes int
)

func newBrowseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse <url> [key=value...]",
		Short: "Resolve a URL to its domain's skill file and replay the best-matching endpoint",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runBrowse,
	}
	cmd.Flags().BoolVar(&browseFresh, "fresh", false, "force a credential refresh before replaying")
	cmd.Flags().IntVar(&browseMaxBytes, "max-bytes", 0, "truncate the response body to at most this many bytes (0 = no limit)")
	return cmd
}

func runBrowse(cmd *cobra.Command, args []string) error {
	application, err := bootstrap()
	if err != nil {
		return err
	}

	params, err := parseKeyValueArgs(args[1:])
	if err != nil {
		return err
	}

	result, err := application.Services.Browse.Browse(cmd.Context(), args[0], replay.Params{
		PathAndBodyParams: params,
		Fresh:             browseFresh,
		MaxBytes:          browseMaxBytes,
	})
	if err != nil {
		return err
	}

	if !result.Success {
		fmt.Fprintf(cmd.OutOrStdout(), "no skill found for %s, suggestion=%s\n", result.Domain, result.Suggestion)
		return nil
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
