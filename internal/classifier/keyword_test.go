package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samjmc/dashchat/internal/core/domain"
)

func TestClassify_Nil(t *testing.T) {
	k := NewKeyword()
	assert.Nil(t, k.Classify(nil))
}

func TestClassify_NothingRecognisable(t *testing.T) {
	k := NewKeyword()
	env := &domain.Environment{
		PageTitle: "My Blog",
		PageText:  "cooking recipes and travel notes",
	}
	assert.Nil(t, k.Classify(env))
}

func TestClassify_NHSDashboard(t *testing.T) {
	k := NewKeyword()
	env := &domain.Environment{
		FrameNested: true,
		PageTitle:   "NHS Financial Overview",
		PageText:    "Patient counts and claimed items by month",
	}

	c := k.Classify(env)
	require.NotNil(t, c)
	assert.Equal(t, "NHS Healthcare Financial Data", c.Type)
	assert.Contains(t, c.Categories, "Patient Data")
	assert.Contains(t, c.Categories, "Claimed Items")
	assert.Contains(t, c.Metrics, "Counts")
}

func TestClassify_MarginDashboard(t *testing.T) {
	k := NewKeyword()
	env := &domain.Environment{
		Referrer: "https://eu-west-1a.online.tableau.com/t/acme/views/margins",
		PageText: "Margin % by drug category with procurement data and net sales",
	}

	c := k.Classify(env)
	require.NotNil(t, c)
	assert.Equal(t, "Pharmaceutical Margin Analysis", c.Type)
	assert.Contains(t, c.Categories, "Drug Categories")
	assert.Contains(t, c.Categories, "Procurement Data")
	assert.Contains(t, c.Metrics, "Margins")
	assert.Contains(t, c.Metrics, "Revenue/Sales")
}

func TestClassify_CaseInsensitive(t *testing.T) {
	k := NewKeyword()
	env := &domain.Environment{
		FrameNested: true,
		PageText:    "nHs PaTiEnT data",
	}

	c := k.Classify(env)
	require.NotNil(t, c)
	assert.Equal(t, "NHS Healthcare Financial Data", c.Type)
}

func TestClassify_GenericDashboardFallsBackToDefaultType(t *testing.T) {
	k := NewKeyword()
	env := &domain.Environment{
		PageText: "company dashboard with revenue figures",
	}

	c := k.Classify(env)
	require.NotNil(t, c)
	assert.Equal(t, DefaultType, c.Type)
	assert.Contains(t, c.Metrics, "Revenue/Sales")
}
