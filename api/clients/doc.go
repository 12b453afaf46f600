/*
Package clients provides a client library for the reputation registry API.

RegistryClient signs every mutating request with the caller's secp256k1 key
(see package cryptoutils) and decodes the resulting event. Errors returned by
the API are *api.APIError values that unwrap to the registry errors they
stand for:

	client := clients.NewRegistryClient("http://127.0.0.1:8080", key)

	event, err := client.RecordScore(ctx, interfaces.RecordScoreArgs{
	    Wallet: wallet,
	    Score:  850,
	    Grade:  interfaces.GradeForScore(850),
	})
	if errors.Is(err, interfaces.ErrUnauthorized) {
	    // not the authority and not an active agent
	}

A client created without a key can only run queries.
*/
package clients
