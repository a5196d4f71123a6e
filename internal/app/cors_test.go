package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractOriginHost(t *testing.T) {
	assert.Equal(t, "app.procollekt.io", extractOriginHost("https://app.procollekt.io"))
	assert.Equal(t, "localhost:3000", extractOriginHost("http://localhost:3000"))
	assert.Equal(t, "app.procollekt.io", extractOriginHost("https://App.Procollekt.IO"))
	assert.Equal(t, "not a url", extractOriginHost("Not A URL"))
}

func TestMatchOriginPattern(t *testing.T) {
	assert.True(t, matchOriginPattern("app.procollekt.io", "app.procollekt.io"))
	assert.True(t, matchOriginPattern("App.Procollekt.io", "app.procollekt.io"))
	assert.True(t, matchOriginPattern("*.procollekt.io", "staging.procollekt.io"))
	assert.True(t, matchOriginPattern("localhost:*", "localhost:5173"))
	assert.False(t, matchOriginPattern("*.procollekt.io", "procollekt.dev"))
	assert.False(t, matchOriginPattern("localhost:*", "remotehost:5173"))
	assert.False(t, matchOriginPattern("", "app.procollekt.io"))
}
