// Package cmd implements the docchat command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "docchat - conversational Q&A over your documents",
	Long: `docchat answers questions about a directory of text documents.

It splits documents into chunks, embeds them into a vector store, and lets a
language model search those chunks while answering. Run "docchat index" to
build the index, then "docchat ask" for one-off questions or "docchat serve"
for the HTTP API.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
