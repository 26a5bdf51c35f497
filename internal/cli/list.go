package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List currently registered roots",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, cleanup, err := openService(nil)
			if err != nil {
				return err
			}
			defer cleanup()

			markers, err := svc.RootMarkers()
			if err != nil {
				return fmt.Errorf("list: %w", err)
			}
			sort.Slice(markers, func(i, j int) bool { return markers[i].Path < markers[j].Path })

			out := cmd.OutOrStdout()
			for _, m := range markers {
				fmt.Fprintf(out, "path:%s, modified time:%s\n", m.Path, m.ModifiedTime.Format("2006-01-02T15:04:05"))
			}
			return nil
		},
	}
}
