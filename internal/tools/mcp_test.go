package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeMCPName(t *testing.T) {
	out := sanitizeMCPName("server:name/with spaces")
	assert.NotEqual(t, "server:name/with spaces", out)
	assert.NotEmpty(t, out)
}

func TestMCPManager_RegisterAllSkipsUnconfiguredServers(t *testing.T) {
	m := NewMCPManager()
	reg := NewRegistry()
	m.RegisterAll(context.Background(), reg, []MCPServerConfig{
		{Name: "broken"}, // neither Command nor URL set
	})
	_, ok := reg.resolve("broken_anything")
	assert.False(t, ok)
}

func TestMCPManager_RegisterOneRejectsEmptyName(t *testing.T) {
	m := NewMCPManager()
	reg := NewRegistry()
	err := m.RegisterOne(context.Background(), reg, MCPServerConfig{})
	assert.Error(t, err)
}
