package dag

import (
	"container/list"
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/iotaledger/bee-sub000/pkg/common"
	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/utils"
)

// ChildrenTraverser can be used to walk the dag in direction of the children (future cone).
type ChildrenTraverser struct {
	// interface to the used storage
	childrenTraverserStorage ChildrenTraverserStorage

	// stack holding the ordered blocks to process
	stack *list.List

	// discovered map with already found blocks
	discovered map[block.BlockID]struct{}

	ctx                   context.Context
	condition             Predicate
	consumer              Consumer
	walkAlreadyDiscovered bool

	traverserLock sync.Mutex
}

// NewChildrenTraverser creates a new traverser to traverse the children (future cone).
func NewChildrenTraverser(childrenTraverserStorage ChildrenTraverserStorage) *ChildrenTraverser {

	t := &ChildrenTraverser{
		childrenTraverserStorage: childrenTraverserStorage,
		stack:                    list.New(),
		discovered:               make(map[block.BlockID]struct{}),
	}

	return t
}

func (t *ChildrenTraverser) reset() {

	t.discovered = make(map[block.BlockID]struct{})
	t.stack = list.New()
}

// Traverse starts to traverse the children (future cone) of the given start block until
// the traversal stops due to no more blocks passing the given condition.
// It is unsorted BFS because the children are not ordered in the database.
func (t *ChildrenTraverser) Traverse(ctx context.Context, startBlockID block.BlockID, condition Predicate, consumer Consumer, walkAlreadyDiscovered bool) error {

	// make sure only one traversal is running
	t.traverserLock.Lock()

	// release lock so the traverser can be reused
	defer t.traverserLock.Unlock()

	t.ctx = ctx
	t.condition = condition
	t.consumer = consumer
	t.walkAlreadyDiscovered = walkAlreadyDiscovered

	// Prepare for a new traversal
	t.reset()

	t.stack.PushFront(startBlockID)
	if !t.walkAlreadyDiscovered {
		t.discovered[startBlockID] = struct{}{}
	}

	for t.stack.Len() > 0 {
		if err := t.processStackChildren(); err != nil {
			return err
		}
	}

	return nil
}

// processStackChildren checks if the current element in the stack must be processed and traversed.
// the current element gets consumed first, afterwards its children get traversed in random order.
func (t *ChildrenTraverser) processStackChildren() error {

	if err := utils.ReturnErrIfCtxDone(t.ctx, common.ErrOperationAborted); err != nil {
		return err
	}

	// load candidate block
	ele := t.stack.Front()
	currentBlockID := ele.Value.(block.BlockID)

	// remove the block from the stack
	t.stack.Remove(ele)

	cachedBlockMeta, err := t.childrenTraverserStorage.CachedBlockMetadata(currentBlockID) // meta +1
	if err != nil {
		return err
	}

	if cachedBlockMeta == nil {
		// there was an error, stop processing the stack
		return errors.Wrapf(common.ErrBlockNotFound, "block ID: %s", currentBlockID.ToHex())
	}
	defer cachedBlockMeta.Release(true) // meta -1

	// check condition to decide if the block should be consumed and traversed
	traverse, err := t.condition(cachedBlockMeta.Retain()) // meta pass +1
	if err != nil {
		// there was an error, stop processing the stack
		return err
	}

	if !traverse {
		// block will not get consumed and children are not traversed
		return nil
	}

	if t.consumer != nil {
		// consume the block
		if err := t.consumer(cachedBlockMeta.Retain()); err != nil { // meta pass +1
			// there was an error, stop processing the stack
			return err
		}
	}

	childrenBlockIDs, err := t.childrenTraverserStorage.ChildrenBlockIDs(currentBlockID)
	if err != nil {
		return err
	}

	for _, childBlockID := range childrenBlockIDs {
		if !t.walkAlreadyDiscovered {
			if _, childDiscovered := t.discovered[childBlockID]; childDiscovered {
				// child was already discovered
				continue
			}

			t.discovered[childBlockID] = struct{}{}
		}

		// traverse the child
		t.stack.PushBack(childBlockID)
	}

	return nil
}
