package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"apitap/internal/skillstore"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <skill-file>",
		Short: "Import a skill file produced elsewhere, marked as imported provenance",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	application, err := bootstrap()
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("import: read %s: %w", args[0], err)
	}
	var skill skillstore.SkillFile
	if err := json.Unmarshal(raw, &skill); err != nil {
		return fmt.Errorf("import: parse skill file: %w", err)
	}

	if err := application.Services.SkillStore.Import(cmd.Context(), &skill); err != nil {
		return err
	}
	application.Services.Cache.Invalidate(skill.Domain)

	fmt.Fprintf(cmd.OutOrStdout(), "imported %s (%d endpoints, provenance=%s)\n", skill.Domain, len(skill.Endpoints), skill.Provenance)
	return nil
}
