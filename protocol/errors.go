package protocol

const (
	// Transport/validation.
	ErrBadRequest  = "E_BAD_REQUEST"
	ErrUnknownType = "E_UNKNOWN_TYPE"

	// Simulation.
	ErrGenomeFormat       = "E_GENOME_FORMAT"
	ErrUnknownPlant       = "E_UNKNOWN_PLANT"
	ErrInvalidEnvironment = "E_INVALID_ENVIRONMENT"
	ErrInternal           = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest:         {},
	ErrUnknownType:        {},
	ErrGenomeFormat:       {},
	ErrUnknownPlant:       {},
	ErrInvalidEnvironment: {},
	ErrInternal:           {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
