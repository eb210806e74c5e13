package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/marketplace/listing-engine/domain/errors"
)

// Custody operation names accepted by FailOn.
const (
	CustodyOpOwnerOf                 = "owner_of"
	CustodyOpCreateContainer         = "create_container"
	CustodyOpDisableExternalTransfer = "disable_external_transfer"
	CustodyOpMoveIn                  = "move_in"
	CustodyOpTransfer                = "transfer"
	CustodyOpDeleteContainer         = "delete_container"
)

type container struct {
	handle           entities.AssetHandle
	owner            entities.AccountID
	transferDisabled bool
}

// Custody is an in-memory asset custody backend. Assets are owned by
// accounts; a container is itself an owned asset whose account address
// can hold other assets.
type Custody struct {
	mu           sync.Mutex
	owners       map[entities.AssetHandle]entities.AccountID
	containers   map[entities.CustodyCapability]*container
	capabilities map[entities.AssetHandle]entities.CustodyCapability
	faults       map[string]error
	calls        map[string]int
}

func NewCustody() *Custody {
	return &Custody{
		owners:       make(map[entities.AssetHandle]entities.AccountID),
		containers:   make(map[entities.CustodyCapability]*container),
		capabilities: make(map[entities.AssetHandle]entities.CustodyCapability),
		faults:       make(map[string]error),
		calls:        make(map[string]int),
	}
}

// RegisterAsset records owner as the holder of asset.
func (c *Custody) RegisterAsset(asset entities.AssetHandle, owner entities.AccountID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owners[asset] = owner
}

// FailOn makes the next call of op return err.
func (c *Custody) FailOn(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faults[op] = err
}

// Calls reports how many times op was invoked.
func (c *Custody) Calls(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

// TotalCalls reports the number of invocations across all operations.
func (c *Custody) TotalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.calls {
		total += n
	}
	return total
}

// ContainerExists reports whether a container with handle is still live.
func (c *Custody) ContainerExists(handle entities.AssetHandle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.capabilities[handle]
	return ok
}

// TransferContainer moves ownership of a container between accounts. It
// fails once external transfer has been disabled.
func (c *Custody) TransferContainer(_ context.Context, handle entities.AssetHandle, to entities.AccountID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	capability, ok := c.capabilities[handle]
	if !ok {
		return domainerrors.ErrContainerNotFound
	}
	box := c.containers[capability]
	if box.transferDisabled {
		return domainerrors.ErrTransferDisabled
	}
	box.owner = to
	c.owners[handle] = to
	return nil
}

func (c *Custody) OwnerOf(_ context.Context, asset entities.AssetHandle) (entities.AccountID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(CustodyOpOwnerOf); err != nil {
		return "", err
	}

	owner, ok := c.owners[asset]
	if !ok {
		return "", domainerrors.ErrAssetNotFound
	}
	return owner, nil
}

func (c *Custody) CreateContainer(_ context.Context, owner entities.AccountID) (entities.Container, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(CustodyOpCreateContainer); err != nil {
		return entities.Container{}, err
	}

	handle := entities.AssetHandle("ctr_" + uuid.NewString())
	capability := entities.CustodyCapability("cap_" + uuid.NewString())
	c.containers[capability] = &container{handle: handle, owner: owner}
	c.capabilities[handle] = capability
	c.owners[handle] = owner
	return entities.Container{Handle: handle, Capability: capability}, nil
}

func (c *Custody) DisableExternalTransfer(_ context.Context, handle entities.AssetHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(CustodyOpDisableExternalTransfer); err != nil {
		return err
	}

	capability, ok := c.capabilities[handle]
	if !ok {
		return domainerrors.ErrContainerNotFound
	}
	c.containers[capability].transferDisabled = true
	return nil
}

func (c *Custody) MoveIn(_ context.Context, owner entities.AccountID, asset entities.AssetHandle, target entities.Container) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(CustodyOpMoveIn); err != nil {
		return err
	}

	if _, ok := c.containers[target.Capability]; !ok {
		return domainerrors.ErrContainerNotFound
	}
	current, ok := c.owners[asset]
	if !ok {
		return domainerrors.ErrAssetNotFound
	}
	if current != owner {
		return domainerrors.ErrForbidden
	}
	c.owners[asset] = target.Account()
	return nil
}

func (c *Custody) Transfer(_ context.Context, capability entities.CustodyCapability, asset entities.AssetHandle, to entities.AccountID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(CustodyOpTransfer); err != nil {
		return err
	}

	box, ok := c.containers[capability]
	if !ok {
		return domainerrors.ErrContainerNotFound
	}
	current, ok := c.owners[asset]
	if !ok {
		return domainerrors.ErrAssetNotFound
	}
	if current != entities.AccountID(box.handle) {
		return domainerrors.ErrForbidden
	}
	c.owners[asset] = to
	return nil
}

// DeleteContainer destroys an empty container. It cannot be undone.
func (c *Custody) DeleteContainer(_ context.Context, capability entities.CustodyCapability) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(CustodyOpDeleteContainer); err != nil {
		return err
	}

	box, ok := c.containers[capability]
	if !ok {
		return domainerrors.ErrContainerNotFound
	}
	account := entities.AccountID(box.handle)
	for _, owner := range c.owners {
		if owner == account {
			return domainerrors.ErrRepositoryInvariantBroke
		}
	}
	delete(c.containers, capability)
	delete(c.capabilities, box.handle)
	delete(c.owners, box.handle)
	return nil
}

func (c *Custody) enter(op string) error {
	c.calls[op]++
	if err, ok := c.faults[op]; ok {
		delete(c.faults, op)
		return err
	}
	return nil
}
