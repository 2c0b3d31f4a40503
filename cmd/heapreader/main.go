// heapreader browses the pages of heapstore tables in the terminal.
package main

import (
	"fmt"
	"heapstore/pkg/config"
	"heapstore/pkg/database"
	"heapstore/pkg/logging"
	"heapstore/pkg/ui"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "heapreader:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()
	fs := pflag.NewFlagSet("heapreader", pflag.ContinueOnError)
	cfg.RegisterFlags(fs)
	configFile := fs.String("config-file", config.DefaultConfigFile, "`file` to load config from")
	table := fs.StringP("table", "t", "", "table to open first")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	if *configFile != "" {
		err := cfg.LoadFile(*configFile, fs)
		if err != nil && !(os.IsNotExist(err) && *configFile == config.DefaultConfigFile) {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Log lines on stderr would tear the alternate screen.
	logCfg := cfg.Logging()
	if logCfg.OutputPath == "" {
		logCfg.Writer = io.Discard
	}
	if err := logging.Init(logCfg); err != nil {
		return err
	}
	defer logging.Close()

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if fs.NArg() > 0 && *table == "" {
		*table = fs.Arg(0)
	}
	_, err = tea.NewProgram(ui.NewModel(db, *table), tea.WithAltScreen()).Run()
	return err
}
