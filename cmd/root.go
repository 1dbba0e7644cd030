package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "refgraph",
	Short: "reference graph maintenance tool",
	Example: `refgraph db migrate
refgraph doc create -c <content>
refgraph doc get -d <doc-id>
refgraph doc delete -d <doc-id>
refgraph deps -r <reference> [--exact]
refgraph reindex -r <reference>`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(docCmd)
	rootCmd.AddCommand(depsCommand())
	rootCmd.AddCommand(reindexCommand())
	rootCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	cobra.EnableCommandSorting = false
}
