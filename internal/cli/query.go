package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imyousuf/everdex/internal/cli/output"
	"github.com/imyousuf/everdex/internal/queryengine"
	"github.com/imyousuf/everdex/internal/rawmatch"
	"github.com/imyousuf/everdex/internal/store"
)

func newQueryCmd() *cobra.Command {
	var pathRegex, contentRegex string
	var ignoreCase, rawPattern, pathOnly, noColor, ackmate, noGroup bool
	var limit, page, pageSize int

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Search the index by path regex and/or content regex",
		RunE: func(cmd *cobra.Command, args []string) error {
			if pathRegex == "" && contentRegex == "" {
				return fmt.Errorf("query: at least one of --path or --content is required")
			}

			svc, cfg, cleanup, err := openService(nil)
			if err != nil {
				return err
			}
			defer cleanup()

			effectiveIgnoreCase := cfg.IgnoreCase
			if cmd.Flags().Changed("ignore-case") {
				effectiveIgnoreCase = ignoreCase
			}

			handle, err := svc.Query(context.Background(), queryengine.Options{
				PathRegex:    pathRegex,
				ContentRegex: contentRegex,
				IgnoreCase:   effectiveIgnoreCase,
				RawPattern:   rawPattern,
			})
			if err != nil {
				return err
			}
			defer handle.Close()

			var hits []store.Hit
			if cmd.Flags().Changed("page") {
				// The CLI's --page is 1-based, per the external surface;
				// Handle.Page takes the 0-based index internally.
				hits, _ = handle.Page(page-1, pageSize)
			} else {
				hits = handle.All()
				if limit > 0 && len(hits) > limit {
					hits = hits[:limit]
				}
			}

			w := output.NewWriter(cmd.OutOrStdout(), output.Options{
				NoColor:  noColor,
				Ackmate:  ackmate,
				PathOnly: pathOnly,
				NoGroup:  noGroup,
			})

			errOut := cmd.ErrOrStderr()
			for _, hit := range hits {
				if _, err := os.Stat(hit.Path); err != nil {
					continue
				}

				if pathOnly || contentRegex == "" {
					w.Path(hit.Path)
					continue
				}

				spans, err := handle.Matches(context.Background(), hit)
				if err != nil {
					fmt.Fprintf(errOut, "everdex: warning: %s: %v\n", hit.Path, err)
					continue
				}
				if len(spans) == 0 {
					continue
				}

				w.StartMatches(hit.Path)
				for _, g := range groupSpansByLine(spans) {
					w.Match(hit.Path, g.Line, g.Text, g.Spans)
				}
				w.EndMatches()
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&pathRegex, "path", "p", "", "path regex to match")
	cmd.Flags().StringVarP(&contentRegex, "content", "c", "", "content regex to match")
	cmd.Flags().BoolVarP(&ignoreCase, "ignore-case", "i", false, "case-insensitive match (overrides the index's configured default)")
	cmd.Flags().BoolVar(&rawPattern, "raw_pattern", false, "treat --path/--content as literal text, not regex")
	cmd.Flags().BoolVar(&pathOnly, "path_only", false, "print only matching paths")
	cmd.Flags().BoolVar(&noColor, "no_color", false, "disable colored output")
	cmd.Flags().BoolVar(&ackmate, "ackmate", false, "emit ackmate-format output (implies --no_color)")
	cmd.Flags().BoolVar(&noGroup, "no_group", false, "don't print a blank line between each path's matches")
	cmd.Flags().IntVar(&limit, "limit", 0, "limit the number of hits returned (0 = unlimited)")
	cmd.Flags().IntVar(&page, "page", 0, "1-based page number")
	cmd.Flags().IntVar(&pageSize, "page_size", 20, "hits per page")

	return cmd
}

// lineGroup collects every match span on one line of one hit's content,
// mirroring the original tool's accumulation of consecutive same-line spans
// before flushing a record.
type lineGroup struct {
	Line  int
	Text  string
	Spans []rawmatch.Span
}

func groupSpansByLine(spans []rawmatch.Span) []lineGroup {
	var groups []lineGroup
	for _, s := range spans {
		if n := len(groups); n > 0 && groups[n-1].Line == s.Line {
			groups[n-1].Spans = append(groups[n-1].Spans, s)
			continue
		}
		groups = append(groups, lineGroup{Line: s.Line, Text: s.Text, Spans: []rawmatch.Span{s}})
	}
	return groups
}
