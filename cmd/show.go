package cmd

import (
	"encoding/json"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"apitap/internal/cli"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <domain>",
		Short: "Show every endpoint in one domain's skill file",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
}

func runShow(cmd *cobra.Command, args []string) error {
	application, err := bootstrap()
	if err != nil {
		return err
	}

	skill, err := application.Services.SkillStore.Load(args[0])
	if err != nil {
		return &cli.NotFoundError{Kind: "domain", ID: args[0]}
	}

	if flagJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(skill)
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	header := text.Colors{text.FgHiBlue, text.Bold}
	t.AppendHeader(table.Row{
		header.Sprint("ID"), header.Sprint("Method"), header.Sprint("Path"),
		header.Sprint("Tier"), header.Sprint("Verified"),
	})
	for _, ep := range skill.Endpoints {
		t.AppendRow(table.Row{ep.ID, ep.Method, ep.Path, string(ep.Replayability.Tier), ep.Replayability.Verified})
	}
	t.Render()
	return nil
}
