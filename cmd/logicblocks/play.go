package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyerfyer/logic-blocks/pkg/circuit"
	"github.com/fyerfyer/logic-blocks/pkg/puzzle"
	"github.com/fyerfyer/logic-blocks/pkg/store"
	"github.com/fyerfyer/logic-blocks/pkg/surface"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a level from a script of commands on stdin",
	Long: `Reads one command per line:

  toggle <id>            flip an input
  connect <in1->g1.0>    wire a source into a gate slot
  down|move|up <x> <y>   pointer gesture on the canvas
  leave                  pointer left the canvas
  show                   print the circuit
  hint                   print the toggles that solve the level
  reset                  restore the level
  submit                 complete the level

Lines starting with # are ignored.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := loadLevel()
		if err != nil {
			return err
		}
		opts, err := sessionOptions()
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("db") {
			st, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()
			opts.Recorder = st
		}

		session, err := puzzle.NewSession(level, opts)
		if err != nil {
			return err
		}
		return runScript(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), session, surface.New(session, logger))
	},
}

// runScript executes play commands. Rejected moves are reported and the
// script continues.
func runScript(ctx context.Context, r io.Reader, w io.Writer, session *puzzle.Session, board *surface.Surface) error {
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		result, err := runCommand(ctx, strings.Fields(line), session, board)
		if err != nil {
			fmt.Fprintf(w, "line %d: error: %v\n", lineNum, err)
			continue
		}
		fmt.Fprintln(w, result)
	}
	return scanner.Err()
}

func runCommand(ctx context.Context, fields []string, session *puzzle.Session, board *surface.Surface) (string, error) {
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "toggle":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: toggle <id>")
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return "", fmt.Errorf("invalid input id %q", args[0])
		}
		if err := session.ToggleInput(id); err != nil {
			return "", err
		}
		return status(session), nil

	case "connect":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: connect <source->g<id>.<slot>>")
		}
		conn, err := circuit.ParseConnection(args[0])
		if err != nil {
			return "", err
		}
		if err := session.AddConnection(conn.Source, conn.Gate, conn.Slot); err != nil {
			return "", err
		}
		return status(session), nil

	case "down", "move", "up":
		if len(args) != 2 {
			return "", fmt.Errorf("usage: %s <x> <y>", name)
		}
		x, errX := strconv.ParseFloat(args[0], 64)
		y, errY := strconv.ParseFloat(args[1], 64)
		if errX != nil || errY != nil {
			return "", fmt.Errorf("invalid point %q %q", args[0], args[1])
		}
		ev, err := board.Dispatch(name, circuit.Point{X: x, Y: y})
		if err != nil {
			return "", err
		}
		return describeEvent(ev, session), nil

	case "leave":
		return describeEvent(board.PointerLeave(), session), nil

	case "show":
		return strings.TrimRight(session.Circuit().String(), "\n"), nil

	case "hint":
		hint, err := session.Hint()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("hint: toggle %v", hint.Toggles), nil

	case "reset":
		session.Reset()
		return status(session), nil

	case "submit":
		if err := session.Submit(ctx); err != nil {
			return "", err
		}
		return fmt.Sprintf("completed %s in %d attempts", session.Level().ID, session.Attempts()), nil

	default:
		return "", fmt.Errorf("unknown command %q", name)
	}
}

func describeEvent(ev surface.Event, session *puzzle.Session) string {
	switch {
	case ev.Action == surface.Rejected && ev.Connection != nil:
		return fmt.Sprintf("%s %s: %s", ev.Action, ev.Connection, ev.Reason)
	case ev.Action == surface.Rejected:
		return fmt.Sprintf("%s: %s", ev.Action, ev.Reason)
	case ev.Connection != nil:
		return fmt.Sprintf("%s %s; %s", ev.Action, ev.Connection, status(session))
	case ev.Action == surface.Toggled:
		return fmt.Sprintf("%s in%d; %s", ev.Action, ev.Input, status(session))
	default:
		return ev.Action.String()
	}
}

func status(session *puzzle.Session) string {
	return fmt.Sprintf("output=%s attempts=%d connections=%d",
		circuit.FromBool(session.Output()), session.Attempts(), session.ConnectionCount())
}
