package cmd

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"apitap/internal/cli"
)

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <domain>",
		Short: "Refresh a domain's credentials via its declared OAuth or browser handoff",
		Args:  cobra.ExactArgs(1),
		RunE:  runRefresh,
	}
}

func runRefresh(cmd *cobra.Command, args []string) error {
	application, err := bootstrap()
	if err != nil {
		return err
	}

	domain := args[0]
	skill, err := application.Services.SkillStore.Load(domain)
	if err != nil {
		return &cli.NotFoundError{Kind: "domain", ID: domain}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = fmt.Sprintf(" refreshing credentials for %s...", domain)
	s.Start()

	result, err := application.Services.Refresh.Refresh(cmd.Context(), domain, skill)
	if err != nil {
		s.FinalMSG = color.RedString("refresh failed for %s: %v\n", domain, err)
		s.Stop()
		return err
	}

	s.FinalMSG = color.GreenString("refreshed %s (captcha=%s)\n", domain, result.Captcha)
	s.Stop()
	return nil
}
