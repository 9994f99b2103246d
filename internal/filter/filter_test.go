package filter_test

import (
	"testing"

	"github.com/polycopy/engine/internal/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFilter(t *testing.T) *filter.Filter {
	t.Helper()
	f, err := filter.New(filter.Rules{
		"crypto":   {"bitcoin", "btc", "ethereum", `\beth\b`},
		"politics": {"election", "president", "senate"},
		"Sports":   {"super bowl", "nba"},
	})
	require.NoError(t, err)
	return f
}

func TestMatches_CaseInsensitive(t *testing.T) {
	f := newFilter(t)

	assert.True(t, f.Matches("Will Bitcoin hit $100k?", []string{"crypto"}))
	assert.True(t, f.Matches("Will BITCOIN crash?", []string{"crypto"}))
	assert.True(t, f.Matches("Who wins the ELECTION?", []string{"politics"}))
}

func TestMatches_CategoryNameNormalized(t *testing.T) {
	f := newFilter(t)

	// "Sports" se definió con mayúscula; el lookup normaliza
	assert.True(t, f.Matches("Super Bowl winner?", []string{"SPORTS"}))
	assert.True(t, f.Matches("Super Bowl winner?", []string{" sports "}))
}

func TestMatches_OnlyAllowedCategories(t *testing.T) {
	f := newFilter(t)

	// La pregunta es de crypto pero el whale solo tiene politics
	assert.False(t, f.Matches("Will Bitcoin hit $100k?", []string{"politics"}))
	assert.True(t, f.Matches("Will Bitcoin hit $100k?", []string{"politics", "crypto"}))
}

func TestMatches_RegexBoundary(t *testing.T) {
	f := newFilter(t)

	assert.True(t, f.Matches("Will ETH flip BTC?", []string{"crypto"}))
	// "ethics" no debe matchear \beth\b
	assert.False(t, f.Matches("Will the ethics committee vote?", []string{"crypto"}))
}

func TestMatches_EmptyInputs(t *testing.T) {
	f := newFilter(t)

	assert.False(t, f.Matches("", []string{"crypto"}))
	assert.False(t, f.Matches("   ", []string{"crypto"}))
	assert.False(t, f.Matches("Will Bitcoin hit $100k?", nil))
	assert.False(t, f.Matches("Will Bitcoin hit $100k?", []string{"unknown-category"}))
}

func TestNew_InvalidPatternFails(t *testing.T) {
	_, err := filter.New(filter.Rules{"bad": {"(unclosed"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestNew_EmptyRules(t *testing.T) {
	f, err := filter.New(filter.Rules{})
	require.NoError(t, err)
	assert.False(t, f.Matches("anything", []string{"crypto"}))
}
