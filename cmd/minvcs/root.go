package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/systemshift/minvcs/internal/config"
	"github.com/systemshift/minvcs/internal/dag"
	"github.com/systemshift/minvcs/internal/logger"
)

// app holds the state shared by all commands.
type app struct {
	fs       afero.Fs
	dir      string // working directory, from -C
	logLevel string // overrides the configured level when set

	cfg  *config.Config
	log  *zap.Logger
	repo *dag.Repository
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "minvcs",
		Short: "A minimal content-addressed version control store",
		Long: `minvcs stores files, directory trees and snapshots as objects named by the
SHA2-256 digest of their encoding, under .minvcs/ in the managed directory.

A single head records the most recent snapshot.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.dir, "dir", "C", ".", "run as if started in this directory")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error or none")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	root.AddCommand(
		newInitCmd(a),
		newStoreCmd(a),
		newSnapCmd(a),
		newCatCmd(a),
		newLogCmd(a),
		newHeadCmd(a),
		newMountCmd(a),
	)
	return root
}

// workDir returns the absolute working directory.
func (a *app) workDir() (string, error) {
	dir, err := filepath.Abs(a.dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", a.dir, err)
	}
	return dir, nil
}

// resolve makes p absolute relative to the working directory.
func (a *app) resolve(p string) (string, error) {
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	dir, err := a.workDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, p), nil
}

// setup loads configuration and the logger for the repository in root.
// An empty root loads only the defaults, environment and MINVCS_CONFIG.
func (a *app) setup(root string) error {
	cfg, err := config.Load(a.fs, root, dag.MetaDirName)
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	l, err := logger.GetLogger(level)
	if err != nil {
		return usageError{fmt.Errorf("log level %q: %w", level, err)}
	}
	a.cfg = cfg
	a.log = l
	if cfg.File != "" {
		l.Debug("using config file", zap.String("path", cfg.File))
	}
	return nil
}

func (a *app) repoOptions() []dag.Option {
	return []dag.Option{
		dag.WithLogger(a.log),
		dag.WithCompressionLevel(a.cfg.CompressionLevel),
		dag.WithLocking(a.cfg.Lock),
		dag.WithLockWait(a.cfg.LockWait),
	}
}

// openRepo finds and opens the repository containing the working directory.
func (a *app) openRepo() error {
	dir, err := a.workDir()
	if err != nil {
		return err
	}
	root, err := dag.FindRoot(a.fs, dir)
	if err != nil {
		return err
	}
	if err := a.setup(root); err != nil {
		return err
	}
	repo, err := dag.Open(a.fs, root, a.repoOptions()...)
	if err != nil {
		return err
	}
	a.repo = repo
	return nil
}

func (a *app) close() {
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func maxArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MaximumNArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}
