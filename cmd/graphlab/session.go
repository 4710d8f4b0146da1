package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/graphlab/internal/presentation/graph"
	"github.com/aretw0/graphlab/pkg/client"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage sessions on a graphlab server",
	Long:  `List, inspect, and remove sessions of a running graphlab server.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := getClient(cmd).List(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(sessions) == 0 {
			fmt.Fprintln(out, "No active sessions found.")
			return nil
		}

		fmt.Fprintln(out, "Active Sessions:")
		for _, s := range sessions {
			fmt.Fprintln(out, "- "+s)
		}
		return nil
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Inspect the state of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]
		c := getClient(cmd)

		info, err := c.Get(cmd.Context(), sessionID)
		if err != nil {
			return fmt.Errorf("loading session '%s': %w", sessionID, err)
		}

		out := cmd.OutOrStdout()
		if asMermaid, _ := cmd.Flags().GetBool("mermaid"); asMermaid {
			events, err := c.Events(cmd.Context(), sessionID, 0)
			if err != nil {
				return fmt.Errorf("loading events of '%s': %w", sessionID, err)
			}
			s := client.Replay(events)
			fmt.Fprint(out, graph.GenerateMermaid(info.Graph, &graph.Overlay{
				Visited:  s.Visited,
				Frontier: s.Frontier,
				Current:  s.Current,
			}))
			return nil
		}

		// Pretty print JSON
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling session: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getClient(cmd)
		out := cmd.OutOrStdout()
		var errs []error

		for _, sessionID := range args {
			if err := c.Delete(cmd.Context(), sessionID); err != nil {
				errs = append(errs, fmt.Errorf("removing '%s': %w", sessionID, err))
				continue
			}
			fmt.Fprintf(out, "Removed session '%s'\n", sessionID)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.PersistentFlags().String("server", "http://localhost:8080", "graphlab server URL")
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
	sessionInspectCmd.Flags().Bool("mermaid", false, "print the graph with the traversal overlay as Mermaid")
}

func getClient(cmd *cobra.Command) *client.HTTPTransport {
	server, _ := cmd.Flags().GetString("server")
	return client.NewHTTPTransport(server)
}
