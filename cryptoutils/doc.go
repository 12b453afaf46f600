// Package cryptoutils authenticates registry API requests.
//
// A client signs "METHOD\nPATH\nBODY" with its secp256k1 key using the
// EIP-191 text hash and sends the signature together with the identity it
// claims. The server recovers the signer from the signature and accepts the
// request only if it matches the claimed identity, which then becomes the
// caller of the registry operation.
//
// Private keys can be given as hex, read from a key file or fetched from a
// HashiCorp Vault KV v2 secret.
package cryptoutils
