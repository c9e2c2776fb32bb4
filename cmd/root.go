package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "docconv",
	Short: "Convert documents and media files over HTTP",
	Long: `docconv accepts an uploaded file and a target format, converts the file
with LibreOffice (documents) or FFmpeg (audio, video, images) and returns
the result. Every request runs in its own throwaway workspace.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// a missing .env file is not an error
		_ = godotenv.Load()
	},
}

// Execute adds all child commands to the root command and runs it
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
