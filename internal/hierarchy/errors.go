package hierarchy

import "errors"

var (
	// ErrDuplicateNode is returned when an id is inserted twice into one builder.
	ErrDuplicateNode = errors.New("duplicate node")

	// ErrIllegalState is returned when a builder is mutated after Finalize.
	ErrIllegalState = errors.New("builder already finalized")

	// ErrEmptyTree is returned by Finalize under ExpectExactlyOneRoot when
	// nothing survives pruning.
	ErrEmptyTree = errors.New("empty tree")

	// ErrRootCount is returned by Finalize under ExpectExactlyOneRoot when more
	// than one top-level category survives pruning.
	ErrRootCount = errors.New("unexpected number of root categories")

	// ErrCyclicHierarchy is returned when a parent chain loops back on itself.
	ErrCyclicHierarchy = errors.New("cyclic hierarchy")
)
