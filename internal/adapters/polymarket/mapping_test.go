package polymarket

import (
	"testing"

	"github.com/polycopy/engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapGammaMarket(t *testing.T) {
	gm := gammaMarket{
		ConditionID:   "0xcond",
		Slug:          "btc-100k",
		Question:      "Will Bitcoin hit $100k?",
		Active:        true,
		Outcomes:      `["Yes","No"]`,
		OutcomePrices: `["0.62","0.38"]`,
		ClobTokenIDs:  `["tok-yes","tok-no"]`,
	}

	m := mapGammaMarket(gm)

	assert.Equal(t, "btc-100k", m.Slug)
	assert.True(t, m.Active)
	assert.False(t, m.Resolved)
	assert.Equal(t, []string{"Yes", "No"}, m.OutcomeLabels)
	require.Len(t, m.OutcomePrices, 2)
	assert.InDelta(t, 0.62, m.OutcomePrices[0], 1e-9)

	require.Len(t, m.Tokens, 2)
	assert.Equal(t, "tok-yes", m.Tokens[0].TokenID)
	assert.Equal(t, "Yes", m.Tokens[0].Outcome)
}

func TestMapGammaMarket_UMAResolved(t *testing.T) {
	m := mapGammaMarket(gammaMarket{UMAResolutionStatus: "resolved"})
	assert.True(t, m.Resolved)
}

func TestMapGammaMarket_MalformedPricesDropped(t *testing.T) {
	gm := gammaMarket{
		Outcomes:      `["Yes","No"]`,
		OutcomePrices: `["0.62","not-a-number"]`,
	}

	m := mapGammaMarket(gm)
	// Un array de precios a medias es peor que ninguno: el resolver
	// debe caer al siguiente método, no decidir con datos parciales.
	assert.Nil(t, m.OutcomePrices)
	assert.Equal(t, []string{"Yes", "No"}, m.OutcomeLabels)
}

func TestMapGammaMarket_EmptySerializedFields(t *testing.T) {
	m := mapGammaMarket(gammaMarket{Slug: "x"})
	assert.Nil(t, m.OutcomeLabels)
	assert.Nil(t, m.OutcomePrices)
	assert.Empty(t, m.Tokens)
}

func TestApplyClobTokens(t *testing.T) {
	m := domain.Market{
		Slug:   "btc-100k",
		Tokens: []domain.Token{{TokenID: "tok-yes", Outcome: "Yes"}},
	}

	applyClobTokens(&m, clobMarket{
		Closed: true,
		Tokens: []clobToken{
			{TokenID: "tok-yes", Outcome: "Yes", Price: 0.99, Winner: true},
			{TokenID: "tok-no", Outcome: "No", Price: 0.01},
		},
	})

	require.Len(t, m.Tokens, 2)
	assert.True(t, m.Tokens[0].Winner)
	assert.True(t, m.Closed)
}

func TestApplyClobTokens_EmptyKeepsGammaView(t *testing.T) {
	m := domain.Market{
		Tokens: []domain.Token{{TokenID: "tok-yes", Outcome: "Yes"}},
	}
	applyClobTokens(&m, clobMarket{})
	assert.Len(t, m.Tokens, 1)
	assert.False(t, m.Closed)
}

func TestJSONStringArray(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, jsonStringArray(`["a","b"]`))
	assert.Nil(t, jsonStringArray(""))
	assert.Nil(t, jsonStringArray("not json"))
}

func TestBuildHmacSignature_Deterministic(t *testing.T) {
	// secret en base64url de "0123456789abcdef0123456789abcdef"
	secret := "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="

	sig1, err := buildHmacSignature(secret, "1700000000", "POST", "/order", `{"x":1}`)
	require.NoError(t, err)
	// Vector fijo: cualquier cambio en la concatenación del mensaje o en
	// el encoding base64url rompe esta firma.
	assert.Equal(t, "2t4TPZwjv6fDsCqe3ug1x5NQWmGEc82naGXsZQIdsWE=", sig1)

	sig2, err := buildHmacSignature(secret, "1700000000", "POST", "/order", `{"x":1}`)
	require.NoError(t, err)
	assert.Equal(t, sig1, sig2)

	// Cualquier cambio en el mensaje cambia la firma
	sig3, err := buildHmacSignature(secret, "1700000001", "POST", "/order", `{"x":1}`)
	require.NoError(t, err)
	assert.NotEqual(t, sig1, sig3)
}

func TestBuildHmacSignature_BadSecret(t *testing.T) {
	_, err := buildHmacSignature("%%%not-base64%%%", "1700000000", "GET", "/balance", "")
	assert.Error(t, err)
}
