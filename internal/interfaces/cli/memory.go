package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var memorySearchLimit int

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect and manage conversation memory",
}

var memoryStatsCmd = &cobra.Command{
	Use:   "stats [session-id]",
	Short: "Show memory statistics of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemoryStats,
}

var memoryClearCmd = &cobra.Command{
	Use:   "clear [session-id]",
	Short: "Delete all memory of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemoryClear,
}

var memorySearchCmd = &cobra.Command{
	Use:   "search [session-id] [text]",
	Short: "Find remembered turns containing text",
	Args:  cobra.ExactArgs(2),
	RunE:  runMemorySearch,
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions that have memory",
	Args:  cobra.NoArgs,
	RunE:  runMemoryList,
}

func init() {
	memorySearchCmd.Flags().IntVarP(&memorySearchLimit, "limit", "n", 5, "maximum number of results")
	memoryCmd.AddCommand(memoryStatsCmd, memoryClearCmd, memorySearchCmd, memoryListCmd)
	rootCmd.AddCommand(memoryCmd)
}

func runMemoryStats(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}

	stats, err := services.Memory.Stats(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to read memory stats: %w", err)
	}

	if outputJSON {
		return printJSON(cmd, stats)
	}
	cmd.Printf("Session:       %s\n", stats.SessionID)
	cmd.Printf("Conversations: %d\n", stats.TotalConversations)
	cmd.Printf("Entries:       %d\n", stats.TotalEntries)

	models := make([]string, 0, len(stats.ModelUsage))
	for m := range stats.ModelUsage {
		models = append(models, m)
	}
	sort.Strings(models)
	for _, m := range models {
		cmd.Printf("  %s: %d\n", m, stats.ModelUsage[m])
	}
	return nil
}

func runMemoryClear(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}

	if !services.Memory.Clear(cmd.Context(), args[0]) {
		return fmt.Errorf("no memory found for session %s", args[0])
	}
	cmd.Printf("Memory of session %s cleared.\n", args[0])
	return nil
}

func runMemorySearch(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	if memorySearchLimit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}

	turns, err := services.Memory.SearchByText(cmd.Context(), args[0], args[1], memorySearchLimit)
	if err != nil {
		return fmt.Errorf("memory search failed: %w", err)
	}

	if outputJSON {
		return printJSON(cmd, turns)
	}
	if len(turns) == 0 {
		cmd.Println("No results found.")
		return nil
	}
	for i, t := range turns {
		cmd.Printf("[%d] %s %s\n", i+1, t.Timestamp.Format("2006-01-02 15:04"), t.Type)
		cmd.Printf("    %s\n", t.Text)
	}
	return nil
}

func runMemoryList(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}

	sessions, err := services.Memory.ListSessions(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	sort.Strings(sessions)

	if outputJSON {
		if sessions == nil {
			sessions = []string{}
		}
		return printJSON(cmd, sessions)
	}
	for _, s := range sessions {
		cmd.Println(s)
	}
	return nil
}
