package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samjmc/dashchat/internal/core/domain"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-off question from the terminal",
	Long: `Sends a single question through the chat pipeline and prints the
answer. Useful for smoke-testing the knowledge base and provider
configuration without a running widget.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var askConversationID int

func init() {
	askCmd.Flags().IntVar(&askConversationID, "conversation", 0, "Continue an existing conversation")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	defer closeServices()

	resp, err := chatService.Send(context.Background(), &domain.ChatRequest{
		Message:        strings.Join(args, " "),
		ConversationID: askConversationID,
	})
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	cmd.Println(resp.Content)
	cmd.Printf("\n(conversation %d)\n", resp.ConversationID)
	return nil
}
