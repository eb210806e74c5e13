package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/marketplace/listing-engine/domain/errors"
)

func TestCustodyContainerLifecycle(t *testing.T) {
	custody := NewCustody()
	ctx := context.Background()
	custody.RegisterAsset("nft_1", "alice")

	box, err := custody.CreateContainer(ctx, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, box.Handle)
	require.NotEmpty(t, box.Capability)
	require.NoError(t, custody.DisableExternalTransfer(ctx, box.Handle))
	require.ErrorIs(t, custody.TransferContainer(ctx, box.Handle, "bob"), domainerrors.ErrTransferDisabled)

	require.NoError(t, custody.MoveIn(ctx, "alice", "nft_1", box))
	owner, err := custody.OwnerOf(ctx, "nft_1")
	require.NoError(t, err)
	require.Equal(t, box.Account(), owner)

	require.ErrorIs(t, custody.DeleteContainer(ctx, box.Capability), domainerrors.ErrRepositoryInvariantBroke)

	require.NoError(t, custody.Transfer(ctx, box.Capability, "nft_1", "bob"))
	owner, err = custody.OwnerOf(ctx, "nft_1")
	require.NoError(t, err)
	require.Equal(t, entities.AccountID("bob"), owner)

	require.NoError(t, custody.DeleteContainer(ctx, box.Capability))
	require.False(t, custody.ContainerExists(box.Handle))
	require.ErrorIs(t, custody.DeleteContainer(ctx, box.Capability), domainerrors.ErrContainerNotFound)
}

func TestCustodyMoveInRequiresOwner(t *testing.T) {
	custody := NewCustody()
	ctx := context.Background()
	custody.RegisterAsset("nft_1", "alice")

	box, err := custody.CreateContainer(ctx, "mallory")
	require.NoError(t, err)
	require.ErrorIs(t, custody.MoveIn(ctx, "mallory", "nft_1", box), domainerrors.ErrForbidden)
	require.ErrorIs(t, custody.Transfer(ctx, box.Capability, "nft_1", "mallory"), domainerrors.ErrForbidden)

	_, err = custody.OwnerOf(ctx, "nft_missing")
	require.ErrorIs(t, err, domainerrors.ErrAssetNotFound)
}

func TestCustodyFailOnFiresOnce(t *testing.T) {
	custody := NewCustody()
	ctx := context.Background()
	boom := errors.New("custody offline")

	custody.FailOn(CustodyOpCreateContainer, boom)
	_, err := custody.CreateContainer(ctx, "alice")
	require.ErrorIs(t, err, boom)
	_, err = custody.CreateContainer(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 2, custody.Calls(CustodyOpCreateContainer))
	require.Equal(t, 2, custody.TotalCalls())
}
