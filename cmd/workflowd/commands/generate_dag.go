package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/algowizzzz/agentsmcp/internal/dyndag"
)

var (
	genTemplateFile string
	genDAGID        string
)

var generateDAGCmd = &cobra.Command{
	Use:   "generate-dag",
	Short: "Generate a DAG from a documentation template and register it",
	Long: `generate-dag reads a dyndag.Template from --template-file, derives the
fixed preprocessing/draft/assembly node structure (SPEC_FULL.md §4.7), and
persists the resulting DAG definition into the DAG registry.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(genTemplateFile)
		if err != nil {
			return fmt.Errorf("read template file: %w", err)
		}
		var tpl dyndag.Template
		if err := json.Unmarshal(data, &tpl); err != nil {
			return fmt.Errorf("parse template file: %w", err)
		}

		f := dyndag.Generate(tpl.Name, tpl, genDAGID)
		if err := dagReg.Add(f); err != nil {
			return fmt.Errorf("register generated dag: %w", err)
		}
		fmt.Printf("registered dag %q with %d nodes\n", f.DAGID, len(f.Nodes))
		return nil
	},
}

func init() {
	generateDAGCmd.Flags().StringVar(&genTemplateFile, "template-file", "", "path to a JSON dyndag.Template (required)")
	generateDAGCmd.Flags().StringVar(&genDAGID, "dag-id", "", "override the generated dag id (default: <template_name>_generated_dag)")
	_ = generateDAGCmd.MarkFlagRequired("template-file")
}
