package kb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samjmc/dashchat/internal/adapters/driven/storage/memory"
	"github.com/samjmc/dashchat/internal/core/services"
)

func TestSeed_PopulatesEmptyStore(t *testing.T) {
	docs := services.NewDocumentService(memory.NewDocumentStore(), nil, nil)

	require.NoError(t, Seed(context.Background(), docs))

	stored, err := docs.List(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, len(seedDocuments))
	assert.Equal(t, "Understanding Bar Charts", stored[0].Title)
	assert.Equal(t, "built-in", stored[0].Metadata["source"])
}

func TestSeed_SkipsPopulatedStore(t *testing.T) {
	docs := services.NewDocumentService(memory.NewDocumentStore(), nil, nil)

	_, err := docs.Add(context.Background(), "Existing", "Operator supplied doc.", nil)
	require.NoError(t, err)

	require.NoError(t, Seed(context.Background(), docs))

	stored, err := docs.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}
