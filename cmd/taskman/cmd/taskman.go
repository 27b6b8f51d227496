package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"taskman/backend"
	_ "taskman/backend/file"
	_ "taskman/backend/sqlite"
	"taskman/internal/config"
	"taskman/internal/shell"
	"taskman/internal/store"
	"taskman/internal/utils"
)

// Version is set at build time
var Version = "dev"

// Config holds process-level settings injected by callers (tests mostly).
type Config struct {
	ConfigPath string // Path to taskman.yaml; defaults to the working directory
	WorkDir    string // Directory relative paths resolve against; defaults to os.Getwd
}

// Execute runs the CLI with the given arguments and IO streams and returns the exit code
func Execute(args []string, stdin io.Reader, stdout, stderr io.Writer, cfg *Config) int {
	rootCmd := NewTaskman(stdin, stdout, stderr, cfg)

	// cobra reads os.Args when given nil
	if args == nil {
		args = []string{}
	}
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

// NewTaskman creates the root command with injectable IO
func NewTaskman(stdin io.Reader, stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	if cfg == nil {
		cfg = &Config{}
	}

	cmd := &cobra.Command{
		Use:     "taskman",
		Short:   "A personal task tracker",
		Long: "taskman is an interactive task tracker that keeps your tasks in a local file.\n\n" +
			"Settings are read from " + config.DefaultFileName + " in the working directory if present:\n\n" +
			config.GetSampleConfig(),
		Version: Version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), stdin, stdout, stderr, cfg)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	return cmd
}

// run loads configuration, opens storage and hands control to the shell
func run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, cfg *Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	workDir := cfg.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("could not determine working directory: %w", err)
		}
		workDir = wd
	}

	configPath := cfg.ConfigPath
	if configPath == "" {
		configPath = filepath.Join(workDir, config.DefaultFileName)
	}

	appCfg, err := config.Load(configPath)
	if err != nil {
		return utils.WrapWithSuggestion(err, fmt.Sprintf("Fix or remove %s", configPath))
	}
	utils.GetLogger().SetOutput(stderr)
	defer utils.GetLogger().SetOutput(nil)
	utils.SetVerboseMode(appCfg.IsVerbose())
	appCfg.ResolvePaths(workDir)

	storage, err := backend.Open(appCfg.Backend, appCfg.StoragePath())
	if err != nil {
		return err
	}
	defer func() { _ = storage.Close() }()
	utils.Debugf("using %s backend at %s", appCfg.Backend, storage.Location())

	st := store.New(storage, store.Options{PartialEdit: appCfg.IsPartialEditEnabled()})
	if err := st.Load(ctx); err != nil {
		return err
	}

	return shell.New(st, stdin, stdout).Run(ctx)
}
