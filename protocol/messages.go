package protocol

import "encoding/json"

// add-plant (client -> server)
type AddPlantMsg struct {
	Type     string     `json:"type"`
	ID       string     `json:"id,omitempty"`
	Position [3]float64 `json:"position"`
	// Genome is kept raw so a non-string payload reports a genome format
	// error rather than a decoding error.
	Genome json.RawMessage `json:"genome"`
	Energy float64         `json:"energy,omitempty"` // 0 = configured default
}

// kill-plant and inspect-plant (client -> server)
type PlantMsg struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Plant uint32 `json:"plant"`
}

// set-environment (client -> server)
type SetEnvironmentMsg struct {
	Type            string  `json:"type"`
	ID              string  `json:"id,omitempty"`
	LightMultiplier float64 `json:"light_multiplier"`
}

// Response (server -> client) echoes the request type and id.
type Response struct {
	Type   string     `json:"type"`
	ID     string     `json:"id,omitempty"`
	OK     bool       `json:"ok"`
	Result any        `json:"result,omitempty"`
	Error  *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AddPlantResult is the result of add-plant.
type AddPlantResult struct {
	Plant uint32 `json:"plant"`
}

// KillPlantResult is the result of kill-plant.
type KillPlantResult struct {
	Plant uint32 `json:"plant"`
}

// SetEnvironmentResult is the result of set-environment.
type SetEnvironmentResult struct {
	LightMultiplier float64 `json:"light_multiplier"`
}
