package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"apitap/internal/generator"
	"apitap/internal/skillstore"
)

var (
	captureNoVerify    bool
	captureVerifyPosts bool
)

func newCaptureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture <exchanges-file>",
		Short: "Distill a captured exchange log into one skill file per domain",
		Args:  cobra.ExactArgs(1),
		RunE:  runCapture,
	}
	cmd.Flags().BoolVar(&captureNoVerify, "no-verify", false, "skip live endpoint verification before saving")
	cmd.Flags().BoolVar(&captureVerifyPosts, "verify-posts", false, "also live-verify POST endpoints that carry a request body template (overrides config.yaml's verify_posts_on_save)")
	return cmd
}

func runCapture(cmd *cobra.Command, args []string) error {
	application, err := bootstrap()
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("capture: read %s: %w", args[0], err)
	}
	var exchanges []generator.Exchange
	if err := json.Unmarshal(raw, &exchanges); err != nil {
		return fmt.Errorf("capture: parse exchanges: %w", err)
	}

	if cmd.Flags().Changed("verify-posts") {
		application.Services.Verifier.VerifyPosts = captureVerifyPosts
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = fmt.Sprintf(" distilling %d captured exchanges...", len(exchanges))
	s.Start()

	skills, err := application.Services.Generator.Generate(exchanges)
	if err != nil {
		s.FinalMSG = color.RedString("capture failed: %v\n", err)
		s.Stop()
		return err
	}

	ctx := context.Background()
	for domain, skill := range skills {
		if !captureNoVerify {
			for i := range skill.Endpoints {
				skill.Endpoints[i].Replayability = application.Services.Verifier.Verify(ctx, skill.BaseURL, skill.Endpoints[i])
			}
		}
		if err := application.Services.SkillStore.Save(skill); err != nil {
			s.FinalMSG = color.RedString("capture failed saving %s: %v\n", domain, err)
			s.Stop()
			return err
		}
		application.Services.Cache.Invalidate(domain)
	}

	s.FinalMSG = color.GreenString("captured %d domain(s): %s\n", len(skills), domainNames(skills))
	s.Stop()
	return nil
}

func domainNames(skills map[string]*skillstore.SkillFile) string {
	names := make([]string, 0, len(skills))
	for domain := range skills {
		names = append(names, domain)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
