package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeCatalog = "CATALOG"
	TypeResult  = "RESULT"

	TypePlace      = "PLACE"
	TypeRemove     = "REMOVE"
	TypeConnect    = "CONNECT"
	TypeDisconnect = "DISCONNECT"
	TypeStats      = "STATS"
	TypeValidate   = "VALIDATE"
	TypeTest       = "TEST"
	TypeSave       = "SAVE"
	TypeLoad       = "LOAD"
	TypeHangar     = "HANGAR"
	TypeListBlocks = "LIST_BLOCKS"
)

var requestTypes = map[string]struct{}{
	TypePlace:      {},
	TypeRemove:     {},
	TypeConnect:    {},
	TypeDisconnect: {},
	TypeStats:      {},
	TypeValidate:   {},
	TypeTest:       {},
	TypeSave:       {},
	TypeLoad:       {},
	TypeHangar:     {},
	TypeListBlocks: {},
}

// IsRequestType reports whether t is answered with a RESULT.
func IsRequestType(t string) bool {
	_, ok := requestTypes[t]
	return ok
}

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
