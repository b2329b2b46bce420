package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/stepwise/internal/config"
	"github.com/aretw0/stepwise/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "stepwise",
	Short: "Stepwise runs multi-step selection wizards",
	Long: `Stepwise drives wizards whose steps narrow a three level catalog
(modules, menus, actions) and persists progress so a session can be resumed.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v = config.New(cfgFile)
		if err := v.BindPFlag("log.level", cmd.Root().PersistentFlags().Lookup("log-level")); err != nil {
			return err
		}
		if err := v.BindPFlag("store.backend", cmd.Root().PersistentFlags().Lookup("store")); err != nil {
			return err
		}

		c, err := config.Load(v)
		if err != nil {
			return err
		}
		cfg = c

		l, err := logging.NewFromConfig(cfg.Log.Format, cfg.Log.Level)
		if err != nil {
			return err
		}
		logger = l
		slog.SetDefault(logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./stepwise.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("store", "", "Snapshot backend: memory, file, redis, sqlite")
}
