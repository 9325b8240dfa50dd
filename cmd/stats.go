package cmd

import (
	"encoding/json"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"apitap/internal/skillstore"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Aggregate endpoint and tier counts across every saved domain",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
}

type tierCounts struct {
	Domains   int            `json:"domains"`
	Endpoints int            `json:"endpoints"`
	ByTier    map[string]int `json:"byTier"`
}

func runStats(cmd *cobra.Command, args []string) error {
	application, err := bootstrap()
	if err != nil {
		return err
	}

	domains, err := application.Services.SkillStore.ListDomains()
	if err != nil {
		return err
	}

	counts := tierCounts{ByTier: map[string]int{
		string(skillstore.TierGreen):   0,
		string(skillstore.TierYellow):  0,
		string(skillstore.TierOrange):  0,
		string(skillstore.TierRed):     0,
		string(skillstore.TierUnknown): 0,
	}}
	for _, domain := range domains {
		skill, err := application.Services.SkillStore.Load(domain)
		if err != nil {
			continue
		}
		counts.Domains++
		counts.Endpoints += len(skill.Endpoints)
		for _, ep := range skill.Endpoints {
			counts.ByTier[string(ep.Replayability.Tier)]++
		}
	}

	if flagJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(counts)
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	header := text.Colors{text.FgHiBlue, text.Bold}
	t.AppendHeader(table.Row{header.Sprint("Domains"), header.Sprint("Endpoints"), header.Sprint("Green"), header.Sprint("Yellow"), header.Sprint("Orange"), header.Sprint("Red"), header.Sprint("Unknown")})
	t.AppendRow(table.Row{
		counts.Domains, counts.Endpoints,
		counts.ByTier[string(skillstore.TierGreen)], counts.ByTier[string(skillstore.TierYellow)],
		counts.ByTier[string(skillstore.TierOrange)], counts.ByTier[string(skillstore.TierRed)],
		counts.ByTier[string(skillstore.TierUnknown)],
	})
	t.Render()
	return nil
}
