package cmd

import (
	"encoding/json"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"apitap/internal/skillstore"
)

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search every saved domain's endpoints by path or id substring",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}
}

type searchHit struct {
	Domain string
	ID     string
	Method string
	Path   string
	Tier   string
}

func runSearch(cmd *cobra.Command, args []string) error {
	application, err := bootstrap()
	if err != nil {
		return err
	}

	query := strings.ToLower(args[0])
	domains, err := application.Services.SkillStore.ListDomains()
	if err != nil {
		return err
	}

	var hits []searchHit
	for _, domain := range domains {
		skill, err := application.Services.SkillStore.Load(domain)
		if err != nil {
			continue
		}
		for _, ep := range matchingEndpoints(skill, query) {
			hits = append(hits, searchHit{domain, ep.ID, ep.Method, ep.Path, string(ep.Replayability.Tier)})
		}
	}

	if flagJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	header := text.Colors{text.FgHiBlue, text.Bold}
	t.AppendHeader(table.Row{header.Sprint("Domain"), header.Sprint("ID"), header.Sprint("Method"), header.Sprint("Path"), header.Sprint("Tier")})
	for _, h := range hits {
		t.AppendRow(table.Row{h.Domain, h.ID, h.Method, h.Path, h.Tier})
	}
	t.Render()
	return nil
}

func matchingEndpoints(skill *skillstore.SkillFile, query string) []skillstore.SkillEndpoint {
	var matches []skillstore.SkillEndpoint
	for _, ep := range skill.Endpoints {
		if strings.Contains(strings.ToLower(ep.Path), query) || strings.Contains(strings.ToLower(ep.ID), query) {
			matches = append(matches, ep)
		}
	}
	return matches
}
