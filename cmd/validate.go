package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/osisim/internal/config"
	"firestige.xyz/osisim/internal/pipeline"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file (YAML, TOML or JSON) and check that its
stack resolves to registered codecs.

File format is auto-detected from extension (.yaml, .yml, .toml, .json).

Examples:
  osisim validate -f config.yml
  osisim validate -f config.toml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(validateConfigFile, cmd.OutOrStdout())
	},
}

var validateConfigFile string

func init() {
	validateCmd.Flags().StringVarP(&validateConfigFile, "file", "f", "",
		"configuration file to validate (required)")
	validateCmd.MarkFlagRequired("file")
}

func runValidate(path string, out io.Writer) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("INVALID: %w", err)
	}
	p, err := pipeline.FromConfig(cfg.Stack).Build()
	if err != nil {
		return fmt.Errorf("INVALID: %w", err)
	}

	fmt.Fprintf(out, "VALID: profile %q, %d layer override(s)\n", cfg.Stack.Profile, len(cfg.Stack.Layers))
	for _, l := range p.Layers() {
		fmt.Fprintf(out, "  %s\n", l)
	}
	return nil
}
