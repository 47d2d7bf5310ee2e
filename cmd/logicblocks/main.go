// Command logicblocks plays, solves and serves Logic Blocks gate puzzles.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyerfyer/logic-blocks/pkg/config"
	"github.com/fyerfyer/logic-blocks/pkg/puzzle"
	"github.com/fyerfyer/logic-blocks/pkg/utils"
)

var (
	cfg    config.Config
	logger *utils.Logger

	verbose     bool
	levelFile   string
	modeName    string
	slotPolicy  string
	allowCycles bool
	logFile     string
)

var rootCmd = &cobra.Command{
	Use:   "logicblocks",
	Short: "Logic Blocks gate network puzzle",
	Long: `Wire AND, OR and NOT gates between toggleable inputs until the
terminal gate outputs high.

Settings are read from LOGICBLOCKS_* environment variables; flags override them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("level") {
			cfg.LevelFile = levelFile
		}
		if flags.Changed("mode") {
			cfg.Mode = modeName
		}
		if flags.Changed("slots") {
			cfg.SlotPolicy = slotPolicy
		}
		if flags.Changed("allow-cycles") {
			cfg.AllowCycles = allowCycles
		}
		if flags.Changed("log") {
			cfg.LogFile = logFile
		}
		if verbose {
			cfg.LogLevel = utils.DebugLevel.String()
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, err = cfg.Logger()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	flags.StringVar(&levelFile, "level", "", "Level file (.yaml or .bench); default is the built-in level")
	flags.StringVar(&modeName, "mode", "settled", "Evaluation mode: settled or single-pass")
	flags.StringVar(&slotPolicy, "slots", "reject", "Occupied slot policy: reject or last-wins")
	flags.BoolVar(&allowCycles, "allow-cycles", false, "Accept connections that close a gate cycle")
	flags.StringVar(&logFile, "log", "", "Log file (default: stdout)")

	rootCmd.AddCommand(evalCmd, solveCmd, exportCmd, playCmd, serveCmd)
}

// loadLevel returns the configured level or the built-in one
func loadLevel() (*puzzle.Level, error) {
	if cfg.LevelFile == "" {
		return puzzle.DefaultLevel(), nil
	}
	logger.Info("Loading level from %s", cfg.LevelFile)
	return puzzle.LoadLevelFile(cfg.LevelFile)
}

// sessionOptions builds session options from the resolved config
func sessionOptions() (puzzle.Options, error) {
	rules, err := cfg.Rules()
	if err != nil {
		return puzzle.Options{}, err
	}
	mode, err := cfg.EvalMode()
	if err != nil {
		return puzzle.Options{}, err
	}
	return puzzle.Options{
		Rules:    rules,
		Mode:     mode,
		Logger:   logger,
		PlayerID: cfg.PlayerID,
	}, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
