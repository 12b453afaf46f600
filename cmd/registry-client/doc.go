/*
registry-client talks to a registry-server.

	registry-client keygen
	registry-client initialize --private-key $AUTHORITY_KEY
	registry-client add-agent --private-key $AUTHORITY_KEY --agent 0x...
	registry-client record-score --private-key-file agent.key --wallet 0x... --score 850
	registry-client leaderboard --limit 10
*/
package main
