package ship

import "errors"

var (
	ErrUnknownBlock    = errors.New("unknown block")
	ErrDuplicateBlock  = errors.New("block id already in use")
	ErrAlreadyPlaced   = errors.New("block already belongs to a ship")
	ErrPrelinked       = errors.New("unplaced block already has connections")
	ErrSelfConnect     = errors.New("block cannot connect to itself")
	ErrPointInUse      = errors.New("attachment point already connected")
	ErrPointOutOfRange = errors.New("attachment point index out of range")
	ErrNotConnected    = errors.New("blocks are not connected")
	// ErrFrozen is returned by structural edits after the compound body exists.
	ErrFrozen    = errors.New("ship is frozen into a compound body")
	ErrNotFrozen = errors.New("ship has no compound body")
)
