package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage the knowledge base",
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	RunE:  runDocumentList,
}

var documentAddCmd = &cobra.Command{
	Use:   "add [file]",
	Short: "Ingest a document file",
	Long: `Reads a text or markdown file into the knowledge base. The title
defaults to the file name; override it with --title.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentAdd,
}

var documentTitle string

func init() {
	documentAddCmd.Flags().StringVar(&documentTitle, "title", "", "Document title")
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentAddCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	defer closeServices()

	docs, err := documentService.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents stored.")
		return nil
	}

	cmd.Printf("%d documents:\n", len(docs))
	for _, doc := range docs {
		embedded := "embedded"
		if doc.Embedding == nil {
			embedded = "not embedded"
		}
		cmd.Printf("  %4d  %-40s  %s\n", doc.ID, doc.Title, embedded)
	}
	return nil
}

func runDocumentAdd(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	defer closeServices()

	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	title := documentTitle
	if title == "" {
		name := filepath.Base(path)
		title = strings.TrimSuffix(name, filepath.Ext(name))
	}

	doc, err := documentService.Add(context.Background(), title, string(content), map[string]any{
		"source": "cli",
		"file":   filepath.Base(path),
	})
	if err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}

	cmd.Printf("Stored document %d (%q)\n", doc.ID, doc.Title)
	return nil
}
