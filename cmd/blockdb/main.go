// Command blockdb drives the heap-file, hash-index, and B+ tree engines
// from the shell: create a file, insert records, scan it back.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blockdb-go/blockdb/config"
)

var (
	configPath string
	cfg        config.Config
	logger     *zap.SugaredLogger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "blockdb",
		Short: "Inspect and manipulate block-pool storage files",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			} else {
				cfg = config.Default()
			}

			l, err := zap.NewProduction()
			if err != nil {
				return err
			}
			logger = l.Sugar()
			logger.Debugw("config loaded", "blockSize", cfg.BlockSize, "cacheSize", cfg.CacheSize, "eviction", cfg.Eviction)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a HuJSON config file")

	root.AddCommand(newHeapCmd())
	root.AddCommand(newHashCmd())
	root.AddCommand(newTreeCmd())
	return root
}
