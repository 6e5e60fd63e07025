package cmd

import (
	"encoding/json"
	"errors"

	"github.com/MeKo-Tech/docflow/internal/approval"
	"github.com/spf13/cobra"
)

// approveCmd evaluates stage scores against the auto-approval rules.
var approveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Evaluate document scores against the auto-approval rules",
	Long: `Decide whether a document of the given class is approved, rejected or
sent to review, based on its validation, matching and extraction scores.
Scores that are not given are treated as missing and never satisfy a rule.

Examples:
  docflow approve --class claims_form --validation 0.9 --matching 0.85
  docflow approve --class driver_license --extraction 0.95 --rules rules.yaml`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runApproveCommand,
}

func loadApprovalRules(path string) (approval.Rules, error) {
	if path == "" {
		return approval.DefaultRules(), nil
	}
	return approval.LoadRules(path)
}

func scoreFlag(cmd *cobra.Command, name string) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetFloat64(name)
	return &v
}

func runApproveCommand(cmd *cobra.Command, args []string) error {
	class, _ := cmd.Flags().GetString("class")
	if class == "" {
		return errors.New("--class is required")
	}

	rulesFile := GetConfig().Approval.RulesFile
	if cmd.Flags().Changed("rules") {
		rulesFile, _ = cmd.Flags().GetString("rules")
	}
	rules, err := loadApprovalRules(rulesFile)
	if err != nil {
		return err
	}

	decision := rules.Evaluate(class, approval.Scores{
		Validation: scoreFlag(cmd, "validation"),
		Matching:   scoreFlag(cmd, "matching"),
		Extraction: scoreFlag(cmd, "extraction"),
	})

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(decision)
}

func init() {
	rootCmd.AddCommand(approveCmd)

	approveCmd.Flags().String("class", "", "document class, e.g. claims_form")
	approveCmd.Flags().Float64("validation", 0, "validation score (0..1)")
	approveCmd.Flags().Float64("matching", 0, "matching score (0..1)")
	approveCmd.Flags().Float64("extraction", 0, "extraction score (0..1)")
	approveCmd.Flags().String("rules", "", "YAML rules file merged over the built-in rules")
}
