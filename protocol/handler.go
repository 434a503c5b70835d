package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/bonsai/chunk"
	"github.com/pthm-cable/bonsai/genome"
)

// Sim is the simulation a Handler drives. *chunk.Chunk and *game.Game
// both satisfy it.
type Sim interface {
	Step() chunk.StepStats
	AddPlant(pos r3.Vec, g *genome.Genome, energy float64) uint32
	KillPlant(id uint32) error
	SetEnvironment(multiplier float64) error
	Serialize() chunk.Snapshot
	Inspect(id uint32) (chunk.PlantDetail, error)
}

// Handler validates requests and applies them to a Sim one at a time.
// It is safe for concurrent use.
type Handler struct {
	mu      sync.Mutex
	sim     Sim
	schemas map[string]*jsonschema.Schema
}

// NewHandler compiles the request schemas and returns a handler over sim.
func NewHandler(sim Sim) (*Handler, error) {
	schemas, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	return &Handler{sim: sim, schemas: schemas}, nil
}

// Handle decodes, validates and applies one request. A panic inside the
// simulation is logged and reported as ErrInternal; state is left as it was
// when the panic happened.
func (h *Handler) Handle(msg []byte) (resp Response) {
	base, err := DecodeBase(msg)
	if err != nil {
		return failure(base, ErrBadRequest, err)
	}
	schema, ok := h.schemas[base.Type]
	if !ok {
		return failure(base, ErrUnknownType, fmt.Errorf("unknown request type %q", base.Type))
	}
	var doc any
	if err := json.Unmarshal(msg, &doc); err != nil {
		return failure(base, ErrBadRequest, err)
	}
	if err := schema.Validate(doc); err != nil {
		return failure(base, ErrBadRequest, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("request_panic",
				"type", base.Type,
				"id", base.ID,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			resp = failure(base, ErrInternal, fmt.Errorf("panic: %v", r))
		}
	}()

	result, err := h.dispatch(base.Type, msg)
	if err != nil {
		return failure(base, codeFor(err), err)
	}
	return Response{Type: base.Type, ID: base.ID, OK: true, Result: result}
}

func (h *Handler) dispatch(typ string, msg []byte) (any, error) {
	switch typ {
	case TypeStep:
		return h.sim.Step(), nil

	case TypeAddPlant:
		var m AddPlantMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return nil, badRequest(err)
		}
		g, err := decodeGenome(m.Genome)
		if err != nil {
			return nil, err
		}
		pos := r3.Vec{X: m.Position[0], Y: m.Position[1], Z: m.Position[2]}
		return AddPlantResult{Plant: h.sim.AddPlant(pos, g, m.Energy)}, nil

	case TypeKillPlant:
		var m PlantMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return nil, badRequest(err)
		}
		if err := h.sim.KillPlant(m.Plant); err != nil {
			return nil, err
		}
		return KillPlantResult{Plant: m.Plant}, nil

	case TypeSetEnvironment:
		var m SetEnvironmentMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return nil, badRequest(err)
		}
		if err := h.sim.SetEnvironment(m.LightMultiplier); err != nil {
			return nil, err
		}
		return SetEnvironmentResult{LightMultiplier: m.LightMultiplier}, nil

	case TypeSerialize:
		return h.sim.Serialize(), nil

	case TypeInspectPlant:
		var m PlantMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return nil, badRequest(err)
		}
		return h.sim.Inspect(m.Plant)
	}
	return nil, fmt.Errorf("unknown request type %q", typ)
}

// decodeGenome accepts only a JSON string holding an encoded genome.
func decodeGenome(raw json.RawMessage) (*genome.Genome, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, &genome.FormatError{Input: string(raw), Reason: "not a string"}
	}
	return genome.Decode(text)
}

var errBadRequest = errors.New("bad request")

func badRequest(err error) error {
	return fmt.Errorf("%w: %v", errBadRequest, err)
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, genome.ErrFormat):
		return ErrGenomeFormat
	case errors.Is(err, chunk.ErrUnknownPlant):
		return ErrUnknownPlant
	case errors.Is(err, chunk.ErrInvalidEnvironment):
		return ErrInvalidEnvironment
	case errors.Is(err, errBadRequest):
		return ErrBadRequest
	}
	return ErrInternal
}

func failure(base BaseMessage, code string, err error) Response {
	return Response{
		Type:  base.Type,
		ID:    base.ID,
		Error: &ErrorBody{Code: code, Message: err.Error()},
	}
}
