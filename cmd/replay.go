package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"apitap/internal/cli"
	"apitap/internal/replay"
)

var (
	replayFresh    bool
	replayMaxBytes int
)

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <domain> <endpointId> [key=value...]",
		Short: "Replay a saved endpoint directly over HTTP",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runReplay,
	}
	cmd.Flags().BoolVar(&replayFresh, "fresh", false, "force a credential refresh before replaying")
	cmd.Flags().IntVar(&replayMaxBytes, "max-bytes", 0, "truncate the response body to at most this many bytes (0 = no limit)")
	return cmd
}

func runReplay(cmd *cobra.Command, args []string) error {
	application, err := bootstrap()
	if err != nil {
		return err
	}

	domain, endpointID := args[0], args[1]
	params, err := parseKeyValueArgs(args[2:])
	if err != nil {
		return &cli.ValidationError{Reason: err.Error()}
	}

	skill, err := application.Services.SkillStore.Load(domain)
	if err != nil {
		return &cli.NotFoundError{Kind: "domain", ID: domain}
	}

	result, err := application.Services.Replay.Replay(cmd.Context(), skill, endpointID, replay.Params{
		PathAndBodyParams: params,
		Fresh:             replayFresh,
		MaxBytes:          replayMaxBytes,
	})
	if err != nil {
		return err
	}

	return printReplayResult(cmd, result)
}

func printReplayResult(cmd *cobra.Command, result replay.Result) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// parseKeyValueArgs turns a list of "key=value" CLI arguments into a map,
// erroring on any argument missing the "=" separator.
func parseKeyValueArgs(args []string) (map[string]string, error) {
	params := map[string]string{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		params[key] = value
	}
	return params, nil
}
