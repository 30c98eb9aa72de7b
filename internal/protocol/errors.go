package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	// Builder layer.
	ErrBadRequest      = "E_BAD_REQUEST"
	ErrUnknownType     = "E_UNKNOWN_TYPE"
	ErrCannotPlace     = "E_CANNOT_PLACE"
	ErrCapacity        = "E_CAPACITY"
	ErrNotFound        = "E_NOT_FOUND"
	ErrPointInUse      = "E_POINT_IN_USE"
	ErrPointOutOfRange = "E_POINT_OUT_OF_RANGE"
	ErrNotConnected    = "E_NOT_CONNECTED"
	ErrFrozen          = "E_FROZEN"
	ErrInvalidShip     = "E_INVALID_SHIP"
	ErrUnavailable     = "E_UNAVAILABLE"
	ErrInternal        = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrBadRequest:      {},
	ErrUnknownType:     {},
	ErrCannotPlace:     {},
	ErrCapacity:        {},
	ErrNotFound:        {},
	ErrPointInUse:      {},
	ErrPointOutOfRange: {},
	ErrNotConnected:    {},
	ErrFrozen:          {},
	ErrInvalidShip:     {},
	ErrUnavailable:     {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
