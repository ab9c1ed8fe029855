package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperflow/internal/classify"
	"github.com/pdiddy/paperflow/internal/config"
	"github.com/pdiddy/paperflow/internal/logging"
	"github.com/pdiddy/paperflow/internal/parse"
	"github.com/pdiddy/paperflow/internal/pipeline"
	"github.com/pdiddy/paperflow/internal/store"
	"github.com/pdiddy/paperflow/internal/zotero"
	"github.com/pdiddy/paperflow/pkg/types"
)

const historyDB = ".cache/paperflow.db"

// configPath resolves the config file from the --config flag or viper's
// search path discovery.
func configPath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path, nil
	}
	if path := viper.ConfigFileUsed(); path != "" {
		return path, nil
	}
	return "", fmt.Errorf("no config file found: create ./paperflow.yaml or pass --config")
}

// loadApp loads the config and sets up logging. Every subcommand that
// touches the library starts here.
func loadApp(cmd *cobra.Command) (*types.AppConfig, error) {
	path, err := configPath(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path, loadedSecrets)
	if err != nil {
		return nil, err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	logPath, err := logging.Setup(logging.Options{Verbose: verbose})
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(os.Stderr, "Logging to", logPath)
	return cfg, nil
}

// buildRunner assembles the pipeline from config. The returned store is
// nil when the history database could not be opened; the pipeline then
// runs without persistence.
func buildRunner(cfg *types.AppConfig) (*pipeline.Runner, *store.Store, error) {
	parser, err := parse.NewParser(cfg.Parser)
	if err != nil {
		return nil, nil, err
	}

	st, err := store.Open(historyDB)
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning: history store unavailable:", err)
		st = nil
	}

	runner := &pipeline.Runner{
		Library:    zotero.NewClient(cfg.Zotero, cfg.WebDAV),
		Parser:     parser,
		Classifier: classify.NewClassifier(cfg.LLM, cfg.Collections, cfg.Tags),
		Processing: cfg.Processing,
		Progress:   os.Stdout,
	}
	if st != nil {
		runner.Store = st
	}
	return runner, st, nil
}
