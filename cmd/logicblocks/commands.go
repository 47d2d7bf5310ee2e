package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/fyerfyer/logic-blocks/pkg/api"
	"github.com/fyerfyer/logic-blocks/pkg/circuit"
	"github.com/fyerfyer/logic-blocks/pkg/metrics"
	"github.com/fyerfyer/logic-blocks/pkg/puzzle"
	"github.com/fyerfyer/logic-blocks/pkg/store"
	"github.com/fyerfyer/logic-blocks/pkg/utils"
)

var (
	connectFlags []string
	toggleFlags  []int
	targetHigh   bool
	outputFile   string
	exportFormat string
	listenAddr   string
	dbPath       string
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Wire and toggle a level, then print the evaluated circuit",
	Example: `  logicblocks eval --connect in1->g1.0 --connect in2->g1.1 --connect g1->g2.0 --toggle 1 --toggle 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := prepareSession()
		if err != nil {
			return err
		}
		for _, id := range toggleFlags {
			if err := session.ToggleInput(id); err != nil {
				return err
			}
		}

		fmt.Fprintln(cmd.OutOrStdout(), session.Circuit())
		return nil
	},
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Find the input toggles that drive the terminal output to a target",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := prepareSession()
		if err != nil {
			return err
		}

		hint, err := session.HintFor(targetHigh)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Toggle: %v\n", hint.Toggles)
		logger.Info("Decisions: %d, backtracks: %d, implications: %d, time: %s",
			hint.Stats.Decisions, hint.Stats.Backtracks, hint.Stats.Implications, hint.Stats.TotalTime)

		if outputFile == "" {
			return utils.WriteAssignment(out, hint.Assignment)
		}
		file, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}
		defer file.Close()
		logger.Info("Writing assignment to %s", outputFile)
		return utils.WriteAssignment(file, hint.Assignment)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a level and its wiring as a BENCH netlist or YAML level",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := prepareSession()
		if err != nil {
			return err
		}

		c := session.Circuit()
		if exportFormat == "bench" && outputFile != "" {
			logger.Info("Writing netlist to %s", outputFile)
			return utils.WriteBenchFile(outputFile, c)
		}

		var out io.Writer = cmd.OutOrStdout()
		if outputFile != "" {
			file, err := os.Create(outputFile)
			if err != nil {
				return fmt.Errorf("failed to create file: %w", err)
			}
			defer file.Close()
			out = file
		}

		switch exportFormat {
		case "bench":
			return utils.WriteBench(out, c)
		case "yaml":
			level := puzzle.LevelFromCircuit(c)
			level.ID = session.Level().ID
			level.Title = session.Level().Title
			return level.WriteYAML(out)
		default:
			return fmt.Errorf("unknown export format: %q", exportFormat)
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve puzzle sessions over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("addr") {
			cfg.ListenAddr = listenAddr
		}
		if cmd.Flags().Changed("db") {
			cfg.DBPath = dbPath
		}

		level, err := loadLevel()
		if err != nil {
			return err
		}
		opts, err := sessionOptions()
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()

		opts.Recorder = st
		opts.Metrics = metrics.New(prometheus.DefaultRegisterer)
		logger.SetPrefix("serve")

		srv := api.NewServer(api.Config{
			Addr:       cfg.ListenAddr,
			Level:      level,
			Session:    opts,
			SessionTTL: cfg.SessionTTL,
			Gatherer:   prometheus.DefaultGatherer,
			Logger:     logger,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Run(ctx)
	},
}

// prepareSession starts a session on the configured level and applies the
// --connect flags in order
func prepareSession() (*puzzle.Session, error) {
	level, err := loadLevel()
	if err != nil {
		return nil, err
	}
	opts, err := sessionOptions()
	if err != nil {
		return nil, err
	}
	session, err := puzzle.NewSession(level, opts)
	if err != nil {
		return nil, err
	}

	for _, text := range connectFlags {
		conn, err := circuit.ParseConnection(text)
		if err != nil {
			return nil, err
		}
		if err := session.AddConnection(conn.Source, conn.Gate, conn.Slot); err != nil {
			return nil, err
		}
	}
	return session, nil
}

func init() {
	for _, cmd := range []*cobra.Command{evalCmd, solveCmd, exportCmd} {
		cmd.Flags().StringArrayVar(&connectFlags, "connect", nil, "Connection to add, e.g. in1->g1.0 (repeatable)")
	}
	evalCmd.Flags().IntSliceVar(&toggleFlags, "toggle", nil, "Input IDs to toggle after wiring")

	solveCmd.Flags().BoolVar(&targetHigh, "target", true, "Target terminal output")
	solveCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Assignment output file (default: stdout)")

	exportCmd.Flags().StringVar(&exportFormat, "format", "bench", "Export format: bench or yaml")
	exportCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	serveCmd.Flags().StringVar(&listenAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&dbPath, "db", "logicblocks.db", "SQLite completion database")
	playCmd.Flags().StringVar(&dbPath, "db", "", "SQLite completion database (default: none)")
}
