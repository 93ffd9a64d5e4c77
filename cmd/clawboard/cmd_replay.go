package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/clawboard/internal/classify"
	"github.com/user/clawboard/internal/state"
	"github.com/user/clawboard/internal/stream"
)

var replayJSON bool

func init() {
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "print the full derived state as JSON")
	rootCmd.AddCommand(replayCmd)
}

var replayCmd = &cobra.Command{
	Use:   "replay <stream-file>",
	Short: "Replay a captured event stream and print the derived state",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read stream file: %w", err)
	}

	st := state.New()
	cls := classify.New(classify.Options{
		Model:         cfg.Agent.Model,
		TruncateLimit: cfg.TruncateLimit,
	})

	dec := stream.NewDecoder()
	for _, frame := range dec.Feed(string(data)) {
		for _, action := range cls.Classify(frame) {
			st.Apply(action)
		}
	}

	if replayJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st.Snapshot())
	}

	snap := st.Snapshot()
	fmt.Fprintf(os.Stdout, "Session:    %s\n", snap.SessionID)
	fmt.Fprintf(os.Stdout, "Tasks:      %d\n", len(snap.Tasks))
	for _, task := range snap.Tasks {
		fmt.Fprintf(os.Stdout, "  [%s] %s\n", task.Status, task.Title)
	}
	fmt.Fprintf(os.Stdout, "Activities: %d\n", len(snap.Activities))
	fmt.Fprintf(os.Stdout, "Tool runs:  %d\n", len(snap.ToolRuns))
	for _, run := range snap.ToolRuns {
		fmt.Fprintf(os.Stdout, "  [%s] %s\n", run.Status, run.Label)
	}
	fmt.Fprintf(os.Stdout, "Artifacts:  %d\n", len(snap.Artifacts))
	for _, artifact := range snap.Artifacts {
		fmt.Fprintf(os.Stdout, "  %s (%s)\n", artifact.Filename, artifact.Kind)
	}
	fmt.Fprintf(os.Stdout, "Cost:       $%.4f over %d turns\n", snap.TotalCost, snap.Turns)
	if dec.Buffered() > 0 {
		fmt.Fprintf(os.Stdout, "Note: %d bytes of a trailing partial record were dropped\n", dec.Buffered())
	}
	return nil
}
