package genome

import (
	"errors"
	"fmt"
	"strings"
)

// Encoding delimiters.
const (
	GeneSep = '/'
	EmitSep = ':'
)

// ErrFormat is wrapped by every decoding failure.
var ErrFormat = errors.New("genome: invalid format")

// FormatError describes why an encoded genome was rejected.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("genome: invalid format: %s (input %q)", e.Reason, e.Input)
}

func (e *FormatError) Unwrap() error {
	return ErrFormat
}

// Gene adds Emit to a cell when When fires.
type Gene struct {
	When []Signal
	Emit []Signal
}

// Genome is an ordered list of genes.
type Genome struct {
	Genes []Gene
}

// New builds a genome from genes.
func New(genes ...Gene) *Genome {
	return &Genome{Genes: genes}
}

// Len returns the total number of structural elements: genes plus their signals.
func (g *Genome) Len() int {
	n := len(g.Genes)
	for _, gene := range g.Genes {
		n += len(gene.When) + len(gene.Emit)
	}
	return n
}

// Encode serializes the genome, e.g. "c:cx/dd:f".
func (g *Genome) Encode() string {
	var b strings.Builder
	for i, gene := range g.Genes {
		if i > 0 {
			b.WriteByte(GeneSep)
		}
		for _, s := range gene.When {
			b.WriteByte(s.Byte())
		}
		b.WriteByte(EmitSep)
		for _, s := range gene.Emit {
			b.WriteByte(s.Byte())
		}
	}
	return b.String()
}

func (g *Genome) String() string {
	return g.Encode()
}

// Decode parses an encoded genome. It is the exact inverse of Encode for any
// genome with at least one gene.
func Decode(text string) (*Genome, error) {
	if text == "" {
		return nil, &FormatError{Input: text, Reason: "no genes"}
	}

	parts := strings.Split(text, string(GeneSep))
	genes := make([]Gene, 0, len(parts))
	for i, part := range parts {
		when, emit, ok := strings.Cut(part, string(EmitSep))
		if !ok {
			return nil, &FormatError{Input: text, Reason: fmt.Sprintf("gene %d has no %q separator", i, EmitSep)}
		}
		w, err := decodeSignals(text, when)
		if err != nil {
			return nil, err
		}
		e, err := decodeSignals(text, emit)
		if err != nil {
			return nil, err
		}
		genes = append(genes, Gene{When: w, Emit: e})
	}
	return &Genome{Genes: genes}, nil
}

func decodeSignals(input, s string) ([]Signal, error) {
	out := make([]Signal, 0, len(s))
	for i := 0; i < len(s); i++ {
		sig, ok := ParseSignal(s[i])
		if !ok {
			return nil, &FormatError{Input: input, Reason: fmt.Sprintf("invalid signal %q", s[i])}
		}
		out = append(out, sig)
	}
	return out, nil
}

// MustDecode is like Decode but panics on error. Intended for literals.
func MustDecode(text string) *Genome {
	g, err := Decode(text)
	if err != nil {
		panic(err)
	}
	return g
}
