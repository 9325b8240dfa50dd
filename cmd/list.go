package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every domain with a saved skill file",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
}

func runList(cmd *cobra.Command, args []string) error {
	application, err := bootstrap()
	if err != nil {
		return err
	}

	domains, err := application.Services.SkillStore.ListDomains()
	if err != nil {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(domains)
	}

	type row struct {
		domain     string
		endpoints  int
		green      int
		provenance string
	}
	rows := make([]row, 0, len(domains))
	for _, domain := range domains {
		skill, err := application.Services.SkillStore.Load(domain)
		if err != nil {
			continue
		}
		green := 0
		for _, ep := range skill.Endpoints {
			if ep.Replayability.Tier == "green" {
				green++
			}
		}
		rows = append(rows, row{domain, len(skill.Endpoints), green, string(skill.Provenance)})
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	header := text.Colors{text.FgHiBlue, text.Bold}
	t.AppendHeader(table.Row{header.Sprint("Domain"), header.Sprint("Endpoints"), header.Sprint("Green"), header.Sprint("Provenance")})
	for _, r := range rows {
		t.AppendRow(table.Row{r.domain, r.endpoints, r.green, r.provenance})
	}
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no skill files saved yet")
		return nil
	}
	t.Render()
	return nil
}
