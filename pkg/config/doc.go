// Package config defines SDK configuration and validation.
//
// A Config names the two services the SDK talks to (the clearing service over
// websocket, an Ethereum node over RPC), the custody contract address, and the
// signing key. Validate fills defaults and must run before the config is used;
// NewFromConfig in the sdk package calls it for you.
//
// # Environments
//
// Sandbox and Production are the predefined environments. Sandbox targets
// Sepolia (chain ID 11155111) and enables the test-token faucet; Production
// targets mainnet. A custom Environment literal overrides both.
//
// # Environment Variables
//
// FromEnv loads the config from CLEARING_* variables:
//
//	CLEARING_URL           websocket endpoint of the clearing service
//	CLEARING_RPC_ADDR      Ethereum node RPC endpoint
//	CLEARING_CUSTODY_ADDR  custody contract address
//	CLEARING_PRIVATE_KEY   hex signing key
//	CLEARING_DEBUG         verbose logging
//
// Timeouts and reconnect tuning have matching variables and sensible defaults;
// see Timeouts.WithDefaults and Reconnect.WithDefaults.
package config
