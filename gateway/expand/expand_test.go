package expand

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayhq/llmgateway/gateway"
)

func TestExpand_OneWorkerPerCredential(t *testing.T) {
	providers := []gateway.ProviderConfig{
		{
			ID:         "openai-primary",
			WireFamily: gateway.WireOpenAI,
			Endpoint:   "https://api.openai.com/v1",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			Models:     []string{"gpt-4o-mini"},
			Credentials: gateway.CredentialSet{
				Keys: []string{"sk-a", "sk-b", "sk-c"},
			},
		},
	}

	res, err := Expand(providers, nil)
	require.NoError(t, err)
	require.Len(t, res.Workers, 3)

	for i, w := range res.Workers {
		assert.Equal(t, "openai-primary", w.ProviderID)
		assert.Equal(t, i, w.CredentialIndex)
		assert.Equal(t, 3, w.TotalCredentials)
		assert.Equal(t, "openai-primary:"+strconv.Itoa(i), w.WorkerID)
		assert.True(t, w.Eligible(time.Now()))
	}
}

func TestExpand_DisabledProviderEmitsWarningNotError(t *testing.T) {
	providers := []gateway.ProviderConfig{
		{ID: "disabled-one", Disabled: true, Credentials: gateway.CredentialSet{Keys: []string{"k"}}},
		{ID: "ok-one", Credentials: gateway.CredentialSet{Keys: []string{"k"}}},
	}

	res, err := Expand(providers, nil)
	require.NoError(t, err)
	require.Len(t, res.Workers, 1)
	assert.Len(t, res.Warnings, 1)
	assert.Equal(t, "ok-one", res.Workers[0].ProviderID)
}

func TestExpand_ZeroCredentialsEmitsWarningNotError(t *testing.T) {
	providers := []gateway.ProviderConfig{
		{ID: "no-creds"},
		{ID: "ok-one", Credentials: gateway.CredentialSet{Keys: []string{"k"}}},
	}

	res, err := Expand(providers, nil)
	require.NoError(t, err)
	require.Len(t, res.Workers, 1)
	assert.Len(t, res.Warnings, 1)
}

func TestExpand_ZeroWorkersTotalIsError(t *testing.T) {
	providers := []gateway.ProviderConfig{
		{ID: "disabled-one", Disabled: true},
		{ID: "no-creds"},
	}

	res, err := Expand(providers, nil)
	require.ErrorIs(t, err, gateway.ErrExpansionEmpty)
	assert.Empty(t, res.Workers)
}

func TestExpand_NeverMergesDifferentWireFamilies(t *testing.T) {
	providers := []gateway.ProviderConfig{
		{ID: "a", WireFamily: gateway.WireOpenAI, Credentials: gateway.CredentialSet{Keys: []string{"k1"}}},
		{ID: "b", WireFamily: gateway.WireAnthropic, Credentials: gateway.CredentialSet{Keys: []string{"k2"}}},
	}

	res, err := Expand(providers, nil)
	require.NoError(t, err)
	require.Len(t, res.Workers, 2)
	assert.Equal(t, gateway.WireOpenAI, res.Workers[0].WireFamily)
	assert.Equal(t, gateway.WireAnthropic, res.Workers[1].WireFamily)
}

func TestExpand_DeterministicOrder(t *testing.T) {
	providers := []gateway.ProviderConfig{
		{ID: "z-provider", Credentials: gateway.CredentialSet{Keys: []string{"k1", "k2"}}},
		{ID: "a-provider", Credentials: gateway.CredentialSet{Keys: []string{"k3"}}},
	}

	res1, err := Expand(providers, nil)
	require.NoError(t, err)
	res2, err := Expand(providers, nil)
	require.NoError(t, err)

	require.Len(t, res1.Workers, 3)
	for i := range res1.Workers {
		assert.Equal(t, res1.Workers[i].WorkerID, res2.Workers[i].WorkerID)
	}
	assert.Equal(t, "z-provider:0", res1.Workers[0].WorkerID)
	assert.Equal(t, "z-provider:1", res1.Workers[1].WorkerID)
	assert.Equal(t, "a-provider:0", res1.Workers[2].WorkerID)
}

func TestExpand_DefaultHeaderNameByWireFamily(t *testing.T) {
	providers := []gateway.ProviderConfig{
		{ID: "openai-p", WireFamily: gateway.WireOpenAI, Credentials: gateway.CredentialSet{Keys: []string{"k"}}},
		{ID: "anthropic-p", WireFamily: gateway.WireAnthropic, Credentials: gateway.CredentialSet{Keys: []string{"k"}}},
	}

	res, err := Expand(providers, nil)
	require.NoError(t, err)
	assert.Equal(t, "bearer", res.Workers[0].Credential.HeaderName)
	assert.Equal(t, "x-api-key", res.Workers[1].Credential.HeaderName)
}

func TestRewriteRoutingTable(t *testing.T) {
	providers := []gateway.ProviderConfig{
		{ID: "p1", Credentials: gateway.CredentialSet{Keys: []string{"k1", "k2"}}},
		{ID: "p2", Credentials: gateway.CredentialSet{Keys: []string{"k3"}}},
	}
	res, err := Expand(providers, nil)
	require.NoError(t, err)

	table := map[gateway.Category][]gateway.CategoryEntry{
		gateway.CategoryDefault: {
			{ProviderID: "p2", Priority: 10},
			{ProviderID: "p1", Priority: 5},
		},
	}

	rewritten := RewriteRoutingTable(table, res.Workers)
	candidates := rewritten[gateway.CategoryDefault]
	require.Len(t, candidates, 3)
	assert.Equal(t, "p2", candidates[0].Worker.ProviderID)
	assert.Equal(t, 10, candidates[0].Priority)
	assert.Equal(t, "p1", candidates[1].Worker.ProviderID)
	assert.Equal(t, "p1", candidates[2].Worker.ProviderID)
}

