package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	domainRAG "github.com/nymav/drax-tbs/internal/domain/rag"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
)

var (
	askPDF     string
	askRole    string
	askSession string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about a textbook",
	Long: `Answers a question using the textbook given by --pdf.
With --role strict the answer only uses textbook content.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions [session-id]",
	Short: "Show the question history of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessions,
}

func init() {
	askCmd.Flags().StringVarP(&askPDF, "pdf", "p", "", "textbook id")
	askCmd.Flags().StringVarP(&askRole, "role", "r", string(domainRAG.RoleDefault), "strict or default")
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "session id for conversation memory")
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}

	if services.Models != nil {
		if err := services.Models.Apply(); err != nil {
			log.NewModuleLogger("cli", "ask").Warn("Using default model settings", "error", err)
		}
	}

	result := services.RAG.Ask(cmd.Context(), domainRAG.Question{
		Query:      strings.Join(args, " "),
		Role:       askRole,
		DocumentID: askPDF,
		SessionID:  askSession,
	})

	if outputJSON {
		return printJSON(cmd, result.Answer)
	}
	cmd.Println(result.Answer.Answer)
	if len(result.Citations) > 0 {
		cmd.Printf("\nSources: %s\n", strings.Join(result.Citations, ", "))
	}
	return nil
}

func runSessions(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}

	records, err := services.History.FindBySession(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to read session history: %w", err)
	}

	if outputJSON {
		if records == nil {
			records = []*domainRAG.HistoryRecord{}
		}
		return printJSON(cmd, records)
	}
	if len(records) == 0 {
		cmd.Println("No history for this session.")
		return nil
	}
	for i, r := range records {
		cmd.Printf("[%d] (%s) Q: %s\n", i+1, r.Role, r.Query)
		cmd.Printf("    A: %s\n", r.Answer)
	}
	return nil
}
