// Package protocol is the request/response contract around a simulation:
// one JSON request in, one JSON response out.
package protocol

import "encoding/json"

// Request types.
const (
	TypeStep           = "step"
	TypeAddPlant       = "add-plant"
	TypeKillPlant      = "kill-plant"
	TypeSetEnvironment = "set-environment"
	TypeSerialize      = "serialize"
	TypeInspectPlant   = "inspect-plant"
)

// Types lists every request type in a stable order.
var Types = []string{
	TypeStep,
	TypeAddPlant,
	TypeKillPlant,
	TypeSetEnvironment,
	TypeSerialize,
	TypeInspectPlant,
}

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
