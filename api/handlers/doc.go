/*
Package handlers implements request processing for the reputation registry API.

Handler decodes requests, authenticates mutating calls and dispatches them to
an interfaces.ScoreRegistry. Registry errors are translated to HTTP responses
with api.Classify.

# Endpoints

	POST   /api/v1/initialize          initialize the registry, caller becomes authority
	POST   /api/v1/scores/{wallet}     record a score (authority or active agent)
	POST   /api/v1/authority           transfer the authority (authority only)
	POST   /api/v1/agents/{agent}      add an agent (authority only)
	DELETE /api/v1/agents/{agent}      deactivate an agent (authority only)
	GET    /api/v1/config              registry config
	GET    /api/v1/scores/{wallet}     score record of a wallet
	GET    /api/v1/agents/{agent}      agent record
	GET    /api/v1/leaderboard?limit=N highest scores first
	GET    /api/v1/events?since=SEQ    events after a sequence number
	POST   /api/v1/batch/scores        score records of up to 10 wallets
	GET    /api/v1/compare?first=&second=  two score records side by side

Mutating requests carry X-Registry-Caller, X-Registry-Signature,
X-Registry-Timestamp and X-Registry-Nonce. A cryptoutils.Verifier rejects
stale timestamps and nonces it has already seen.

Mutating endpoints respond with {"type": ..., "event": ...}.
*/
package handlers
