package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samjmc/dashchat/internal/adapters/driven/config/file"
	"github.com/samjmc/dashchat/internal/adapters/driven/storage/memory"
	"github.com/samjmc/dashchat/internal/core/services"
)

// setupTestServices wires in-memory services so commands run without
// touching disk or the network.
func setupTestServices(t *testing.T) func() {
	t.Helper()

	cfg, err := file.NewConfigStore(t.TempDir())
	require.NoError(t, err)

	docs := services.NewDocumentService(memory.NewDocumentStore(), nil, nil)
	chat := services.NewChatService(memory.NewChatStore(), docs, nil, nil)

	oldConfig, oldChat, oldDocs := configStore, chatService, documentService
	configStore, chatService, documentService = cfg, chat, docs

	return func() {
		configStore, chatService, documentService = oldConfig, oldChat, oldDocs
	}
}

// execute runs the root command with args and captures its output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCmd_Use(t *testing.T) {
	assert.Equal(t, "version", versionCmd.Use)
}

func TestVersionCmd_Executes(t *testing.T) {
	originalVersion := version
	version = "test-version-1.0.0"
	defer func() { version = originalVersion }()

	out, err := execute("version")

	assert.NoError(t, err)
	assert.Contains(t, out, "dashchat version test-version-1.0.0")
}

func TestDocumentCmd_HasSubcommands(t *testing.T) {
	commands := documentCmd.Commands()
	commandNames := make([]string, 0, len(commands))
	for _, cmd := range commands {
		commandNames = append(commandNames, cmd.Name())
	}

	assert.Contains(t, commandNames, "list")
	assert.Contains(t, commandNames, "add")
}

func TestDocumentListCmd_EmptyStore(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute("document", "list")

	assert.NoError(t, err)
	assert.Contains(t, out, "No documents stored.")
}

func TestDocumentAddCmd_IngestsFile(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	path := filepath.Join(t.TempDir(), "bar-charts.md")
	require.NoError(t, os.WriteFile(path, []byte("Bar charts compare categories."), 0o644))

	out, err := execute("document", "add", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"bar-charts"`)

	out, err = execute("document", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "bar-charts")
	assert.Contains(t, out, "not embedded")
}

func TestDocumentAddCmd_RequiresFileArg(t *testing.T) {
	_, err := execute("document", "add")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestAskCmd_DegradedWithoutProvider(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute("ask", "what", "does", "this", "chart", "show")

	require.NoError(t, err)
	assert.Contains(t, out, services.ApologyReply)
	assert.Contains(t, out, "(conversation 1)")
}

func TestAskCmd_PersistsConversation(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	_, err := execute("ask", "first question")
	require.NoError(t, err)

	history, err := chatService.History(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestConfigCmd_SetGetRoundTrip(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute("config", "set", "server.port", "8080")
	require.NoError(t, err)
	assert.Contains(t, out, "server.port = 8080")

	out, err = execute("config", "get", "server.port")
	require.NoError(t, err)
	assert.Contains(t, out, "8080")

	assert.Equal(t, 8080, configStore.GetInt("server.port"))
}

func TestConfigCmd_GetUnsetKey(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute("config", "get", "missing.key")

	require.NoError(t, err)
	assert.Contains(t, out, "(not set)")
}

func TestConfigCmd_SetParsesBooleans(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	_, err := execute("config", "set", "kb.watch", "true")
	require.NoError(t, err)

	assert.True(t, configStore.GetBool("kb.watch"))
}
