package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kfreiman/docconv/internal/classify"
	"github.com/kfreiman/docconv/internal/convert"
)

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify <source> <target>",
	Short: "Print the engine a conversion would be routed to",
	Long: `Print which engine (document, media or unsupported) handles a conversion.

The source may be a bare extension ("docx") or a filename ("report.docx").`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := classify.Normalize(args[0])
		if ext := convert.SourceExtension(args[0]); ext != "" {
			source = ext
		}
		engine := classify.Classify(source, args[1])
		fmt.Fprintln(cmd.OutOrStdout(), engine)
		return nil
	},
}

// formatsCmd represents the formats command
var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List the recognized document and media formats",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "document: %s\n", strings.Join(classify.DocumentFormats(), " "))
		fmt.Fprintf(out, "media:    %s\n", strings.Join(classify.MediaFormats(), " "))
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(formatsCmd)
}
