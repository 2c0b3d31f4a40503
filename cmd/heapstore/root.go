package main

import (
	"fmt"
	"heapstore/pkg/config"
	"heapstore/pkg/database"
	"heapstore/pkg/logging"
	"os"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:               "heapstore",
		Short:             "A page-locking heap file store",
		Long:              "heapstore stores tables in slotted heap files behind a NO-STEAL/FORCE buffer pool with page-level two-phase locking.",
		SilenceUsage:      true,
		PersistentPreRunE: rootPreRun,
		PersistentPostRun: rootPostRun,
	}

	cfg        = config.Default()
	configFile = config.DefaultConfigFile
	noConfig   = false
)

func init() {
	fs := rootCmd.PersistentFlags()
	cfg.RegisterFlags(fs)
	fs.StringVar(&configFile, "config-file", configFile, "`file` to load config from")
	fs.BoolVar(&noConfig, "no-config", noConfig, "don't load config file")
}

func Execute() error {
	return rootCmd.Execute()
}

func rootPreRun(cmd *cobra.Command, args []string) error {
	if configFile != "" && !noConfig {
		err := cfg.LoadFile(configFile, cmd.Flags())
		if err != nil && !(os.IsNotExist(err) && configFile == config.DefaultConfigFile) {
			return fmt.Errorf("heapstore: %s", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logging.Init(cfg.Logging()); err != nil {
		return fmt.Errorf("heapstore: %s", err)
	}

	logging.Debug("heapstore starting", "pid", os.Getpid(), "command", cmd.Name())
	return nil
}

func rootPostRun(cmd *cobra.Command, args []string) {
	logging.Debug("heapstore done", "pid", os.Getpid())
	logging.Close()
}

// withDB opens the database for the duration of fn.
func withDB(fn func(db *database.Database) error) error {
	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	err = fn(db)
	if cerr := db.Close(); err == nil {
		err = cerr
	}
	return err
}
