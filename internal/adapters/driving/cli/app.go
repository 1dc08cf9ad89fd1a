package cli

import (
	"os"

	"github.com/samjmc/dashchat/internal/adapters/driven/config/file"
	"github.com/samjmc/dashchat/internal/adapters/driven/embedding/openai"
	openaillm "github.com/samjmc/dashchat/internal/adapters/driven/llm/openai"
	"github.com/samjmc/dashchat/internal/adapters/driven/storage/memory"
	"github.com/samjmc/dashchat/internal/adapters/driven/storage/sqlite"
	"github.com/samjmc/dashchat/internal/classifier"
	"github.com/samjmc/dashchat/internal/core/ports/driven"
	"github.com/samjmc/dashchat/internal/core/ports/driving"
	"github.com/samjmc/dashchat/internal/core/services"
	"github.com/samjmc/dashchat/internal/logger"
)

// Services used by the commands. Wired by ensureServices; tests inject
// fakes directly.
var (
	configStore     driven.ConfigStore
	chatService     driving.ChatService
	documentService driving.DocumentService
	contextDetector driving.ContextDetector
	contextCache    driven.ContextCache

	sqliteStore *sqlite.Store
	closers     []func() error
)

// ensureConfig loads the configuration store once.
func ensureConfig() error {
	if configStore != nil {
		return nil
	}

	store, err := file.NewConfigStore("")
	if err != nil {
		return err
	}
	configStore = store
	return nil
}

// ensureServices wires the full service graph from configuration. Already
// wired services (including test fakes) are left alone.
func ensureServices() error {
	if chatService != nil {
		return nil
	}
	if err := ensureConfig(); err != nil {
		return err
	}

	chatStore, docStore, err := openStorage()
	if err != nil {
		return err
	}

	embedding := openEmbedding()
	llm := openLLM()

	docs := services.NewDocumentService(docStore, embedding, nil)
	contextCache = memory.NewContextCache(0)
	contextDetector = services.NewDetectorService(
		nil, nil, contextCache, classifier.NewKeyword(), services.DetectorConfig{},
	)
	chatService = services.NewChatService(chatStore, docs, contextDetector, llm)
	documentService = docs

	return nil
}

// openStorage opens the configured persistence backend. SQLite is the
// default; "memory" keeps everything in process for throwaway runs.
func openStorage() (driven.ChatStore, driven.DocumentStore, error) {
	if configStore.GetString("storage.backend") == "memory" {
		logger.Info("Using in-memory storage")
		return memory.NewChatStore(), memory.NewDocumentStore(), nil
	}

	store, err := sqlite.NewStore(configStore.GetString("storage.data_dir"))
	if err != nil {
		return nil, nil, err
	}
	sqliteStore = store
	closers = append(closers, store.Close)
	return store.ChatStore(), store.DocumentStore(), nil
}

// openEmbedding builds the embedding provider when an API key is present.
func openEmbedding() driven.EmbeddingService {
	key := apiKey()
	if key == "" {
		logger.Warn("No OpenAI API key configured, documents will be stored unembedded")
		return nil
	}

	svc, err := openai.NewEmbeddingService(openai.Config{
		APIKey:  key,
		BaseURL: configStore.GetString("openai.base_url"),
		Model:   configStore.GetString("embedding.model"),
	})
	if err != nil {
		logger.Warn("Embedding provider unavailable: %v", err)
		return nil
	}
	closers = append(closers, svc.Close)
	return svc
}

// openLLM builds the completion provider when an API key is present.
func openLLM() driven.LLMService {
	key := apiKey()
	if key == "" {
		logger.Warn("No OpenAI API key configured, chat replies will be degraded")
		return nil
	}

	svc, err := openaillm.NewLLMService(openaillm.Config{
		APIKey:  key,
		BaseURL: configStore.GetString("openai.base_url"),
		Model:   configStore.GetString("llm.model"),
	})
	if err != nil {
		logger.Warn("Completion provider unavailable: %v", err)
		return nil
	}
	closers = append(closers, svc.Close)
	return svc
}

// apiKey resolves the OpenAI key from config, then the environment.
func apiKey() string {
	if key := configStore.GetString("openai.api_key"); key != "" {
		return key
	}
	return os.Getenv("OPENAI_API_KEY")
}

// closeServices releases everything ensureServices opened.
func closeServices() {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			logger.Warn("Close failed: %v", err)
		}
	}
	closers = nil
}
