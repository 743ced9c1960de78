package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

// rootCmd runs the chat client when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "haggle",
	Short: "Terminal chat client for the marketplace",
	Long: `Haggle lets buyers and sellers chat about listings from the terminal.
Run it without arguments to open your conversations, or reopen the one you
were reading when you last quit.`,
	Version:      fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()
		return rt.run(rt.startScreen())
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log debug output to the log file")
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path (default is $HOME/.haggle/config.yaml)")
}
