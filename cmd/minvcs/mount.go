package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	minvcsfuse "github.com/systemshift/minvcs/internal/fuse"
)

func newMountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mount <mountpoint>",
		Short: "Mount a read-only view of head and history",
		Long: `Mount a read-only view of the repository.

  head/        the tree of the latest snapshot
  snapshots/   one directory per snapshot in the head history
  log/         HEAD and one text file per snapshot, newest first

Runs until interrupted.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.openRepo(); err != nil {
				return err
			}
			defer a.close()

			mountpoint, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			// Ensure mountpoint exists
			if err := os.MkdirAll(mountpoint, 0755); err != nil {
				return err
			}

			a.log.Info("mounting", zap.String("root", a.repo.Root()), zap.String("mountpoint", mountpoint))
			server, err := minvcsfuse.MountFS(mountpoint, a.repo, minvcsfuse.Options{
				CacheSize: a.cfg.CacheSize,
				Debug:     a.cfg.MountDebug,
			})
			if err != nil {
				return err
			}

			// Unmount on signal
			done := make(chan os.Signal, 1)
			signal.Notify(done, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-done
				a.log.Info("shutting down")
				if err := server.Unmount(); err != nil {
					a.log.Error("unmount", zap.Error(err))
				}
			}()

			a.log.Info("ready", zap.Int("pid", os.Getpid()))
			server.Wait()
			a.log.Info("stopped")
			return nil
		},
	}
}
