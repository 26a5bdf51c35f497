package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// touchNowSentinel is the pflag NoOptDefVal for --touch: it lets `-t` be
// given bare (meaning "now") while still distinguishing "flag absent" from
// "flag given with no value", matching the original tool's argparse
// nargs='?' contract (flag absent -> don't touch; flag bare -> now; flag
// with a value -> parse it).
const touchNowSentinel = "\x00now\x00"

func newIndexCmd() *cobra.Command {
	var remove, update bool
	var touchArg string
	var listFile string

	cmd := &cobra.Command{
		Use:   "index [<path>...]",
		Short: "Register, update, remove, or restamp indexed roots",
		RunE: func(cmd *cobra.Command, args []string) error {
			touchTime, touching := resolveTouchTime(cmd, touchArg)

			paths := append([]string{}, args...)
			if listFile != "" {
				fromFile, err := readPathList(listFile)
				if err != nil {
					return fmt.Errorf("index: read list file: %w", err)
				}
				paths = append(paths, fromFile...)
			}

			svc, _, cleanup, err := openService(paths)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := context.Background()
			out := cmd.ErrOrStderr()

			if len(paths) == 0 {
				switch {
				case touching:
					return svc.Touch(ctx, nil, *touchTime)
				case update:
					for _, root := range svc.ListRoots() {
						if err := svc.Update(ctx, root); err != nil {
							fmt.Fprintf(out, "everdex: warning: update %s: %v\n", root, err)
						}
					}
					return nil
				default:
					return fmt.Errorf("index: at least one <path> is required unless -t or -u is given")
				}
			}

			for _, p := range paths {
				var taskErr error
				switch {
				case remove:
					taskErr = svc.Remove(ctx, p)
				case touching:
					root := p
					taskErr = svc.Touch(ctx, &root, *touchTime)
				case update:
					taskErr = svc.Update(ctx, p)
				default:
					taskErr = svc.Index(ctx, p)
				}
				if taskErr != nil {
					fmt.Fprintf(out, "everdex: warning: %s: %v\n", p, taskErr)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&remove, "remove", "r", false, "delete the index entries for the given paths")
	cmd.Flags().BoolVarP(&update, "update", "u", false, "reconcile the given paths (or every registered root, if none given) against disk")
	cmd.Flags().StringVarP(&touchArg, "touch", "t", "", "restamp a root's modified time (ISO datetime, or omit the value for now)")
	cmd.Flags().Lookup("touch").NoOptDefVal = touchNowSentinel
	cmd.Flags().StringVarP(&listFile, "file", "f", "", "file containing one path to index per line")

	return cmd
}

// resolveTouchTime mirrors the original tool's get_touch_time: the flag
// absent means "don't touch", present with no value means "now", and an
// unparseable value falls back to "now" with a warning instead of failing
// the whole invocation.
func resolveTouchTime(cmd *cobra.Command, raw string) (*time.Time, bool) {
	if !cmd.Flags().Changed("touch") {
		return nil, false
	}
	if raw == touchNowSentinel || raw == "" {
		t := time.Now()
		return &t, true
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "everdex: warning: invalid datetime string %q, using now\n", raw)
		t := time.Now()
		return &t, true
	}
	return &parsed, true
}

func readPathList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var paths []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		paths = append(paths, line)
	}
	return paths, scanner.Err()
}
