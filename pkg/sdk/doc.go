// Package sdk provides the high-level entry point for establishing payment-channel
// sessions against a clearing service.
//
// The SDK turns one wallet identity into a live off-chain settlement session: it
// connects and authenticates to the clearing service, opens a payment channel
// backed by an on-chain custody deposit, relays instant gasless payments through
// it, and closes the channel to sweep remaining funds back to the wallet.
//
// # Quick Start
//
// Create a session manager from configuration, then drive the session lifecycle:
//
//	import (
//		"github.com/openclearing/clearing-sdk-go/pkg/config"
//		"github.com/openclearing/clearing-sdk-go/pkg/sdk"
//	)
//
//	func main() {
//		cfg := &config.Config{
//			ClearingURL: "wss://clearing.sandbox.example.org/ws",
//			RPCAddr:     "wss://sepolia.infura.io/ws/v3/YOUR_PROJECT_ID",
//			CustodyAddr: "0xCUSTODY_CONTRACT",
//			PrivateKey:  "YOUR_PRIVATE_KEY",
//			Environment: config.Sandbox,
//		}
//
//		manager, err := sdk.NewFromConfig(cfg)
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer manager.Close()
//
//		ctx := context.Background()
//		if err := manager.Connect(ctx); err != nil {
//			log.Fatal(err)
//		}
//		if err := manager.Authenticate(ctx); err != nil {
//			log.Fatal(err)
//		}
//
//		txHash, err := manager.OpenSession(ctx, partner, decimal.RequireFromString("0.01"))
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		// Instant, gasless: no transaction, no wallet prompt
//		if err := manager.SendPayment(ctx, "1.5", recipient); err != nil {
//			log.Fatal(err)
//		}
//
//		if err := manager.CloseSession(ctx); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// # Architecture
//
// The SessionManager coordinates three collaborators:
//
//   - wallet.Adapter: signing and transaction submission; an interactive wallet
//     can veto any prompt
//   - clearing.Link: websocket connection to the clearing service, carrying
//     requests and push events
//   - custody.Client: read access and calldata packing for the on-chain custody
//     contract
//
// All session state lives in one canonical session value guarded by a state
// machine; observers receive immutable snapshots via Subscribe.
//
// # Channel Creation
//
// Channel creation is two-phase. RequestChannelCreation negotiates terms with
// the clearing service off-chain; the result is cheap, revocable and held as
// the single pending channel. CreateChannelOnChain commits the deposit through
// the wallet and blocks until the transaction is mined. If the wallet rejects
// or the chain reverts, the pending channel is retained so only the on-chain
// step needs retrying. OpenSession runs both phases back to back.
//
// # Reconnection
//
// An unexpected link loss triggers a bounded reconnect loop with exponential
// backoff. DisableReconnect switches this off permanently for the manager,
// which is useful after high-value operations when a surprise wallet prompt
// would be worse than staying offline.
//
// # Errors
//
// Failures wrap the sentinel errors in the session package
// (session.ErrConnection, session.ErrAuth, session.ErrChannelNegotiation,
// session.ErrChannelCommit, session.ErrNotReady, ...). Match them with
// errors.Is.
package sdk
