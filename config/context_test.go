package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(name string) *Context {
	return &Context{
		Name:        name,
		Description: "paper trading",
		Account: Account{
			Name:   "sandbox",
			Broker: "tradier",
			Number: "ACCT123",
			Token:  "token",
			Env:    "sandbox",
		},
	}
}

func TestContextRoundTrip(t *testing.T) {
	isolateHome(t)

	require.NoError(t, SaveContext(testContext("paper")))

	loaded, err := LoadContext("paper")
	require.NoError(t, err)

	assert.Equal(t, "paper", loaded.Name)
	assert.Equal(t, "tradier", loaded.Account.Broker)
	assert.Equal(t, "ACCT123", loaded.Account.Number)
	assert.Equal(t, "sandbox", loaded.Account.Env)
}

func TestLoadContext_Missing(t *testing.T) {
	isolateHome(t)

	_, err := LoadContext("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a context")
}

func TestListAndRemoveContexts(t *testing.T) {
	isolateHome(t)

	require.NoError(t, SaveContext(testContext("live")))
	require.NoError(t, SaveContext(testContext("paper")))

	names, err := ListContexts()
	require.NoError(t, err)
	assert.Equal(t, []string{"live", "paper"}, names)

	require.NoError(t, RemoveContext("live"))

	names, err = ListContexts()
	require.NoError(t, err)
	assert.Equal(t, []string{"paper"}, names)

	assert.Error(t, RemoveContext("live"))
}

func TestWatchlist(t *testing.T) {
	t.Parallel()

	c := testContext("paper")

	assert.True(t, c.Watch("aapl", "earnings play"))
	assert.True(t, c.Watching("AAPL"))
	assert.Equal(t, "AAPL", c.Watchlist[0].Name, "stored uppercased")

	// Re-watching the same name is rejected, case-insensitively.
	assert.False(t, c.Watch("AAPL", ""))
	assert.Len(t, c.Watchlist, 1)

	c.Watch("MSFT", "")
	c.Unwatch("aapl")
	assert.False(t, c.Watching("AAPL"))
	assert.True(t, c.Watching("MSFT"))
}
