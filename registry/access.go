package registry

import "github.com/ruteri/reputation-registry/interfaces"

// IsAuthorized reports whether caller may record scores. The authority is
// always authorized; anyone else needs an active agent record of their own.
// A nil agent means the caller has no agent record.
func IsAuthorized(caller interfaces.Identity, config *interfaces.RegistryConfig, agent *interfaces.AgentRecord) bool {
	if config == nil {
		return false
	}
	if caller == config.Authority {
		return true
	}
	return agent != nil && agent.Agent == caller && agent.IsActive
}

// isAuthority is the stricter check used by authority and agent management.
func isAuthority(caller interfaces.Identity, config *interfaces.RegistryConfig) bool {
	return config != nil && caller == config.Authority
}
