package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/imyousuf/everdex/internal/indexservice"
	"github.com/imyousuf/everdex/internal/queryengine"
)

// cwdCovered reports whether the current working directory falls under any
// root currently registered with svc, the condition spec.md names for
// deciding between serving a helm-ag/helm-files request from the index or
// shelling out to ag.
func cwdCovered(svc *indexservice.Service) (string, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for _, root := range svc.ListRoots() {
		if underRoot(cwd, root) {
			return root, true
		}
	}
	return "", false
}

func underRoot(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (len(rel) > 0 && rel[0] != '.')
}

// runAg shells out to the external ag tool, streaming its stdout/stderr
// through the command's own writers so helm-ag/helm-files behave like a
// transparent ag wrapper when no index covers the CWD.
func runAg(cmd *cobra.Command, args []string) error {
	agPath, err := exec.LookPath("ag")
	if err != nil {
		return fmt.Errorf("helm-ag: no index covers the current directory and ag is not installed: %w", err)
	}
	c := exec.Command(agPath, args...)
	c.Stdout = cmd.OutOrStdout()
	c.Stderr = cmd.ErrOrStderr()
	c.Stdin = os.Stdin
	return c.Run()
}

func newHelmAgCmd() *cobra.Command {
	var ignorePatterns []string
	var pathToIgnore string

	cmd := &cobra.Command{
		Use:   "helm-ag <pattern> [<path>]",
		Short: "ag-compatible content search, served from the index when possible",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := args[0]
			searchPath := "."
			if len(args) == 2 {
				searchPath = args[1]
			}

			svc, _, cleanup, err := openService(nil)
			if err == nil {
				defer cleanup()
				if _, ok := cwdCovered(svc); ok {
					return runIndexedSearch(cmd, svc, pattern, searchPath, false)
				}
			}

			agArgs := make([]string, 0, len(ignorePatterns)*2+3)
			for _, p := range ignorePatterns {
				agArgs = append(agArgs, "--ignore", p)
			}
			if pathToIgnore != "" {
				agArgs = append(agArgs, "--path-to-ignore", pathToIgnore)
			}
			agArgs = append(agArgs, pattern, searchPath)
			return runAg(cmd, agArgs)
		},
	}

	cmd.Flags().StringArrayVar(&ignorePatterns, "ignore", nil, "glob pattern to ignore (repeatable)")
	cmd.Flags().StringVar(&pathToIgnore, "path-to-ignore", "", "path to a file listing ignore patterns")

	return cmd
}

func newHelmFilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "helm-files <pattern> [<path>]",
		Short: "ag --files-with-matches compatible path listing, served from the index when possible",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := args[0]
			searchPath := "."
			if len(args) == 2 {
				searchPath = args[1]
			}

			svc, _, cleanup, err := openService(nil)
			if err == nil {
				defer cleanup()
				if _, ok := cwdCovered(svc); ok {
					return runIndexedSearch(cmd, svc, pattern, searchPath, true)
				}
			}

			return runAg(cmd, []string{"-l", pattern, searchPath})
		},
	}
	return cmd
}

// runIndexedSearch answers a helm-ag/helm-files request from the index:
// content is the user's pattern, restricted to paths under searchPath.
// filesOnly mirrors ag -l (path per line, no match text).
func runIndexedSearch(cmd *cobra.Command, svc *indexservice.Service, pattern, searchPath string, filesOnly bool) error {
	abs, err := filepath.Abs(searchPath)
	if err != nil {
		return fmt.Errorf("helm-ag: resolve %s: %w", searchPath, err)
	}

	handle, err := svc.Query(context.Background(), queryengine.Options{ContentRegex: pattern})
	if err != nil {
		return err
	}
	defer handle.Close()

	out := cmd.OutOrStdout()
	for _, hit := range handle.All() {
		if !underRoot(hit.Path, abs) {
			continue
		}
		if filesOnly {
			fmt.Fprintln(out, hit.Path)
			continue
		}
		spans, err := handle.Matches(context.Background(), hit)
		if err != nil || len(spans) == 0 {
			continue
		}
		for _, g := range groupSpansByLine(spans) {
			fmt.Fprintf(out, "%s:%d:%s\n", hit.Path, g.Line+1, g.Text)
		}
	}
	return nil
}
