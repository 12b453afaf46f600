package registry

import (
	"testing"

	"github.com/ruteri/reputation-registry/interfaces"
	"github.com/stretchr/testify/assert"
)

func TestIsAuthorized(t *testing.T) {
	config := &interfaces.RegistryConfig{Authority: authority}

	tests := []struct {
		name   string
		caller interfaces.Identity
		config *interfaces.RegistryConfig
		agent  *interfaces.AgentRecord
		want   bool
	}{
		{"authority", authority, config, nil, true},
		{"authority ignores agent record", authority, config, &interfaces.AgentRecord{Agent: authority}, true},
		{"active agent", agentID, config, &interfaces.AgentRecord{Agent: agentID, IsActive: true}, true},
		{"inactive agent", agentID, config, &interfaces.AgentRecord{Agent: agentID}, false},
		{"record of another agent", stranger, config, &interfaces.AgentRecord{Agent: agentID, IsActive: true}, false},
		{"no agent record", stranger, config, nil, false},
		{"no config", authority, nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAuthorized(tt.caller, tt.config, tt.agent))
		})
	}
}

func TestIsAuthorityExcludesAgents(t *testing.T) {
	config := &interfaces.RegistryConfig{Authority: authority}
	assert.True(t, isAuthority(authority, config))
	assert.False(t, isAuthority(agentID, config))
	assert.False(t, isAuthority(authority, nil))
}
