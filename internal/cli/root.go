package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	debugCount   int
	indexDirFlag string
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "everdex",
	Short: "everdex - grep with a persistent index",
	Long: `everdex registers one or more directory roots, builds a persistent
n-gram index of their file content and paths, and answers path/content
regex queries against that index much faster than a fresh grep.

Commands:
  index      Register a root, or update/remove/touch an already-registered one
  query      Search the index by path regex and/or content regex
  list       List currently registered roots
  helm-ag    ag-compatible search, served from the index when possible
  helm-files ag --files-with-matches compatible path listing`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().CountVarP(&debugCount, "debug", "d", "print debug information (repeatable)")
	rootCmd.PersistentFlags().StringVarP(&indexDirFlag, "location", "l", "", "index directory (default: .pyeverything marker, else per-user cache dir)")

	bindFlag := func(key, flag string) {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("failed to bind %s flag: %v", flag, err))
		}
	}
	bindFlag("debug", "debug")
	bindFlag("location", "location")

	rootCmd.AddCommand(newIndexCmd())
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newHelmAgCmd())
	rootCmd.AddCommand(newHelmFilesCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())
}

func initLogging() {
	if debugCount > 0 {
		fmt.Fprintf(os.Stderr, "everdex: debug level %d\n", debugCount)
	}
}

func debugf(format string, args ...any) {
	if debugCount > 0 {
		fmt.Fprintf(os.Stderr, "everdex: "+format+"\n", args...)
	}
}
