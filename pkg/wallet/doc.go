// Package wallet is the signing and submission boundary of the SDK.
//
// Adapter is the seam: everything that needs the user's key or the user's
// consent (personal-sign, transaction submission) goes through it, so an
// interactive wallet implementation can surface a prompt and veto the
// operation. KeyedWallet is the non-interactive implementation over a raw
// private key and an RPC client, adapted for services and tests.
package wallet
