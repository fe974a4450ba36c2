package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/recognizer"
	"github.com/lakhansamani/coach-sophia-ai-anonymizer/patterns"
)

var validateCmd = &cobra.Command{
	Use:   "validate [recognizer.yaml]",
	Short: "Validate a recognizer registry YAML file",
	Long: `Validate checks a recognizer YAML file against the registry schema and
compiles every regex. With no argument it validates the embedded defaults,
which is useful as a build sanity check.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		name string
		err  error
	)

	if len(args) == 0 {
		data = patterns.RecognizersYAML()
		name = "embedded defaults"
	} else {
		name = args[0]
		data, err = os.ReadFile(name)
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
	}

	if err := recognizer.ValidateSchema(data); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	f, err := recognizer.ParseFile(data)
	if err != nil {
		return err
	}

	log.Info().Str("file", name).Int("recognizers", len(f.Recognizers)).Msg("recognizer file is valid")
	fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (%d recognizers)\n", name, len(f.Recognizers))
	return nil
}
