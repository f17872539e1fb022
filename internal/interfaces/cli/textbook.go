package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var textbooksCmd = &cobra.Command{
	Use:   "textbooks",
	Short: "List uploaded textbooks",
	Args:  cobra.NoArgs,
	RunE:  runTextbooks,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [pdf]",
	Short: "Upload a PDF and index it",
	Long: `Copies the PDF into the upload directory, extracts and chunks its text,
embeds the chunks and stores them in the vector index.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(textbooksCmd)
	rootCmd.AddCommand(ingestCmd)
}

func runTextbooks(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}

	books, err := services.Textbooks.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list textbooks: %w", err)
	}

	if outputJSON {
		return printJSON(cmd, books)
	}
	if len(books) == 0 {
		cmd.Println("No textbooks uploaded.")
		return nil
	}
	for _, b := range books {
		cmd.Printf("%s  %s (%s, %d pages)", b.ID, b.Title, b.Author, b.Pages)
		if b.Status != "" {
			cmd.Printf("  [%s, %d chunks]", b.Status, b.Chunks)
		}
		cmd.Println()
	}
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}

	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	uploaded, err := services.Textbooks.Upload(cmd.Context(), filepath.Base(path), f)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	result, err := services.Ingest.Run(cmd.Context(), uploaded.PDFID)
	if err != nil {
		return fmt.Errorf("ingestion of %s failed: %w", uploaded.PDFID, err)
	}

	if outputJSON {
		return printJSON(cmd, map[string]any{
			"pdf_id": uploaded.PDFID,
			"title":  uploaded.Title,
			"status": result.Status,
			"chunks": result.Chunks,
		})
	}
	cmd.Printf("%s  %s: %s, %d chunks\n", uploaded.PDFID, uploaded.Title, result.Status, result.Chunks)
	return nil
}
