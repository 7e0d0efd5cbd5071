package cmd

import "github.com/spf13/cobra"

// Version is the genrun release version, overridable at build time via
// -ldflags "-X github.com/genrun/genrun/internal/cmd.Version=...".
var Version = "0.4.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("genrun v%s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
