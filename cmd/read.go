package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var readMaxBytes int

func newReadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read <url>",
		Short: "Fetch a URL's body, truncated to max-bytes",
		Args:  cobra.ExactArgs(1),
		RunE:  runRead,
	}
	cmd.Flags().IntVar(&readMaxBytes, "max-bytes", 1<<20, "maximum response bytes to fetch")
	return cmd
}

func runRead(cmd *cobra.Command, args []string) error {
	application, err := bootstrap()
	if err != nil {
		return err
	}

	result, err := application.Services.ContentReader.Read(cmd.Context(), args[0], readMaxBytes)
	if err != nil {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Body        string `json:"body"`
			Truncated   bool   `json:"truncated"`
			ContentType string `json:"contentType"`
			StatusCode  int    `json:"statusCode"`
		}{string(result.Body), result.Truncated, result.ContentType, result.StatusCode})
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(result.Body))
	if result.Truncated {
		fmt.Fprintln(cmd.ErrOrStderr(), "(truncated)")
	}
	return nil
}
