package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	listingengine "bazaar/contexts/marketplace/listing-engine"
	"bazaar/contexts/marketplace/listing-engine/domain/entities"
)

func inMemoryOpener(t *testing.T) (opener, listingengine.Module) {
	t.Helper()
	module := listingengine.NewInMemoryModule("acct_admin", nil, nil)
	open := func(context.Context) (*session, error) {
		return &session{
			engine:       module.Engine,
			provisioning: module.Provisioning,
			migrate:      func(context.Context) error { return nil },
		}, nil
	}
	return open, module
}

func run(t *testing.T, open opener, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(open)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMarketctlQueries(t *testing.T) {
	open, module := inMemoryOpener(t)
	module.Custody.RegisterAsset("nft_1", "alice")
	id, err := module.Engine.List(context.Background(), "alice", "nft_1", 500, "usd")
	require.NoError(t, err)

	out, err := run(t, open, "sellers")
	require.NoError(t, err)
	require.Equal(t, "alice\n", out)

	out, err = run(t, open, "listings", "alice")
	require.NoError(t, err)
	require.Equal(t, string(id)+"\n", out)

	out, err = run(t, open, "listing", string(id))
	require.NoError(t, err)
	require.Equal(t, "asset=nft_1 seller=alice\n", out)

	out, err = run(t, open, "price", string(id), "--currency", "usd")
	require.NoError(t, err)
	require.Equal(t, "500\n", out)

	out, err = run(t, open, "price", string(id), "--currency", "eur")
	require.NoError(t, err)
	require.Equal(t, "absent\n", out)
}

func TestMarketctlSetFeeRecipient(t *testing.T) {
	open, module := inMemoryOpener(t)

	_, err := run(t, open, "set-fee-recipient", "treasury", "--caller", "mallory", "--rate", "3")
	require.Error(t, err)

	out, err := run(t, open, "set-fee-recipient", "treasury", "--caller", "acct_admin", "--rate", "3")
	require.NoError(t, err)
	require.Contains(t, out, "fee recipient treasury at 3%")

	config, err := module.Store.GetAdminConfig(context.Background(), entities.AccountID("acct_admin"))
	require.NoError(t, err)
	require.Equal(t, entities.AccountID("treasury"), config.FeeRecipient)
}

func TestMarketctlMigrateAndArgs(t *testing.T) {
	open, _ := inMemoryOpener(t)

	out, err := run(t, open, "migrate")
	require.NoError(t, err)
	require.Equal(t, "schema up to date\n", out)

	_, err = run(t, open, "listings")
	require.Error(t, err)
}

func TestMarketctlProvisioningEnablesSale(t *testing.T) {
	open, module := inMemoryOpener(t)
	ctx := context.Background()

	out, err := run(t, open, "register-asset", "nft_7", "--owner", "alice")
	require.NoError(t, err)
	require.Equal(t, "asset nft_7 owned by alice\n", out)

	out, err = run(t, open, "credit", "bob", "--currency", "usd", "--amount", "400")
	require.NoError(t, err)
	require.Equal(t, "credited 400 usd to bob\n", out)

	_, err = run(t, open, "credit", "bob", "--currency", "", "--amount", "1")
	require.Error(t, err)

	id, err := module.Engine.List(ctx, "alice", "nft_7", 400, "usd")
	require.NoError(t, err)
	_, err = run(t, open, "set-fee-recipient", "treasury", "--caller", "acct_admin", "--rate", "0")
	require.NoError(t, err)
	_, err = module.Engine.Purchase(ctx, "bob", id, "acct_admin", "usd")
	require.NoError(t, err)
	require.Equal(t, entities.Amount(400), module.Ledger.Balance("alice", "usd"))
}

func TestMarketctlProvisioningNeedsBackend(t *testing.T) {
	module := listingengine.NewInMemoryModule("acct_admin", nil, nil)
	open := func(context.Context) (*session, error) {
		return &session{engine: module.Engine}, nil
	}
	_, err := run(t, open, "register-asset", "nft_1", "--owner", "alice")
	require.ErrorIs(t, err, errNoProvisioning)
}
