//go:build e2e

package e2e

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/openclearing/clearing-sdk-go/pkg/custody"

	"github.com/ethereum/go-ethereum/common"
)

func TestCustodySessionRead(t *testing.T) {
	rpc := os.Getenv("CLEARING_RPC_ADDR")
	addr := os.Getenv("CLEARING_CUSTODY_ADDR")
	if rpc == "" || addr == "" {
		t.Skip("CLEARING_RPC_ADDR or CLEARING_CUSTODY_ADDR not set")
	}
	cli, err := custody.NewClient(common.HexToAddress(addr), rpc)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	user := common.HexToAddress(os.Getenv("CLEARING_TEST_USER"))
	record, err := cli.Sessions(ctx, user)
	if err != nil {
		t.Fatalf("Sessions error: %v", err)
	}
	if record.Deposit == nil {
		t.Fatal("nil deposit in session record")
	}
}
