package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/systemshift/minvcs/internal/dag"
	"github.com/systemshift/minvcs/internal/object"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Start managing a directory",
		Args:  maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.workDir()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if dir, err = a.resolve(args[0]); err != nil {
					return err
				}
			}
			if err := a.setup(""); err != nil {
				return err
			}
			defer a.close()

			repo, err := dag.Init(a.fs, dir, a.repoOptions()...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized empty repository in %s\n", repo.MetaDir())
			return nil
		},
	}
}

func newStoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "store <path>",
		Short: "Store a file or directory and print its digest",
		Long: `Store a file or directory and print its digest.

Head is not changed. Directories honor .minvcs_excludes.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.openRepo(); err != nil {
				return err
			}
			defer a.close()

			path, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			d, err := a.repo.Store(path)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), d)
			return nil
		},
	}
}

func newSnapCmd(a *app) *cobra.Command {
	var author, message string
	cmd := &cobra.Command{
		Use:   "snap [path]",
		Short: "Record a snapshot and move head to it",
		Long: `Record a snapshot of the managed root, or of path, and move head to it.

The new snapshot's parent is the previous head.`,
		Args: maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.openRepo(); err != nil {
				return err
			}
			defer a.close()

			path := a.repo.Root()
			if len(args) == 1 {
				var err error
				if path, err = a.resolve(args[0]); err != nil {
					return err
				}
			}
			if author == "" {
				author = a.cfg.Author
			}
			d, err := a.repo.Snapshot(path, author, message)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), d)
			return nil
		},
	}
	cmd.Flags().StringVarP(&author, "author", "a", "", "snapshot author (default from config)")
	cmd.Flags().StringVarP(&message, "message", "m", "", "snapshot comment")
	return cmd
}

func newCatCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "cat <digest>",
		Short: "Print a stored object",
		Long: `Print a stored object.

The digest may be given as 64 hex characters or as a CID.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := object.ParseDigest(args[0])
			if err != nil {
				return usageError{err}
			}
			if err := a.openRepo(); err != nil {
				return err
			}
			defer a.close()

			o, err := a.repo.Objects.Get(d)
			if err != nil {
				return err
			}
			return printObject(cmd.OutOrStdout(), format, d, o)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")
	return cmd
}

func printObject(w io.Writer, format string, d object.Digest, o object.Object) error {
	switch format {
	case "text":
		return object.Fprint(w, d, o)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(object.NewView(d, o))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(object.NewView(d, o)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return usageError{fmt.Errorf("unknown format %q", format)}
	}
}

func newLogCmd(a *app) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show snapshot history from head",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.openRepo(); err != nil {
				return err
			}
			defer a.close()

			entries, err := a.repo.Log(n)
			w := cmd.OutOrStdout()
			for i, e := range entries {
				if i > 0 {
					fmt.Fprintln(w)
				}
				if perr := object.Fprint(w, e.Digest, e.Snapshot); perr != nil {
					return perr
				}
			}
			return err
		},
	}
	cmd.Flags().IntVarP(&n, "max-count", "n", 0, "show at most n snapshots (0 for all)")
	return cmd
}

func newHeadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "head",
		Short: "Print the digest of the latest snapshot",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.openRepo(); err != nil {
				return err
			}
			defer a.close()

			head, err := a.repo.Head.Read()
			if err != nil {
				return err
			}
			if head.IsZero() {
				return fmt.Errorf("no snapshots yet: %w", dag.ErrNotFound)
			}
			fmt.Fprintln(cmd.OutOrStdout(), head)
			return nil
		},
	}
}
