package main

import (
	"github.com/aretw0/graphlab/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <graph-file>",
	Short: "Play a traversal in the terminal",
	Long: `Loads a YAML or JSON graph and steps a traversal until it ends, printing one
line per event. The session runs in-process unless --server is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		opts := cli.RunOptions{
			GraphPath: args[0],
			Interval:  cfg.AutoPlayInterval,
			Stdin:     cmd.InOrStdin(),
			Stdout:    cmd.OutOrStdout(),
		}
		opts.Algorithm, _ = flags.GetString("algo")
		opts.Start, _ = flags.GetString("start")
		opts.Server, _ = flags.GetString("server")
		opts.HTTPOnly, _ = flags.GetBool("http-only")
		opts.Keep, _ = flags.GetBool("keep")
		opts.Interactive, _ = flags.GetBool("interactive")
		opts.JSON, _ = flags.GetBool("json")
		opts.Mermaid, _ = flags.GetString("mermaid")
		opts.NoBanner, _ = flags.GetBool("no-banner")
		opts.Watch, _ = flags.GetBool("watch")
		opts.Debug = cfg.LogLevel == "debug"
		if opts.Debug || flags.Changed("log-level") {
			if opts.Logger, err = cfg.NewLogger(); err != nil {
				return err
			}
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()
		return cli.Execute(sigCtx, opts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("algo", "bfs", "algorithm: bfs, dfs, dijkstra")
	runCmd.Flags().String("start", "", "start node (defaults to the first node)")
	runCmd.Flags().String("server", "", "graphlab server URL; empty runs in-process")
	runCmd.Flags().Bool("http-only", false, "step over plain HTTP instead of WebSocket")
	runCmd.Flags().Bool("keep", false, "keep the remote session after the run")
	runCmd.Flags().Duration("interval", 0, "auto-play interval (default from config)")
	runCmd.Flags().BoolP("interactive", "i", false, "step on Enter instead of auto-playing")
	runCmd.Flags().Bool("json", false, "print events as JSON lines")
	runCmd.Flags().String("mermaid", "", "write the final graph as Mermaid to this file, '-' for stdout")
	runCmd.Flags().Bool("no-banner", false, "do not print the banner")
	runCmd.Flags().BoolP("watch", "w", false, "replay whenever the graph file changes")
}
