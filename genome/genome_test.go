package genome

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
)

func TestEncode_Format(t *testing.T) {
	g := New(
		Gene{When: []Signal{Chloroplast}, Emit: []Signal{Chloroplast, GrowZ}},
		Gene{When: []Signal{Diff, Diff}, Emit: []Signal{Flower}},
		Gene{},
	)
	if got := g.Encode(); got != "c:cz/dd:f/:" {
		t.Errorf("expected %q, got %q", "c:cz/dd:f/:", got)
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		g := Random(rng, 1+rng.Intn(12))
		decoded, err := Decode(g.Encode())
		if err != nil {
			t.Fatalf("decode %q: %v", g.Encode(), err)
		}
		if !reflect.DeepEqual(decoded.Genes, g.Genes) {
			t.Fatalf("round trip mismatch: %q vs %q", g.Encode(), decoded.Encode())
		}
	}
}

func TestDecode_EmptyGeneLists(t *testing.T) {
	g, err := Decode(":/a:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(g.Genes) != 2 {
		t.Fatalf("expected 2 genes, got %d", len(g.Genes))
	}
	if len(g.Genes[0].When) != 0 || len(g.Genes[0].Emit) != 0 {
		t.Errorf("expected empty first gene, got %+v", g.Genes[0])
	}
	if g.Encode() != ":/a:" {
		t.Errorf("expected re-encode %q, got %q", ":/a:", g.Encode())
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing separator", "abc"},
		{"invalid symbol", "a:B"},
		{"digit", "1:a"},
		{"trailing delimiter", "a:b/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.input)
			if err == nil {
				t.Fatalf("expected error for %q", tt.input)
			}
			if !errors.Is(err, ErrFormat) {
				t.Errorf("expected ErrFormat, got %v", err)
			}
			var fe *FormatError
			if !errors.As(err, &fe) || fe.Input != tt.input {
				t.Errorf("expected FormatError carrying input %q, got %v", tt.input, err)
			}
		})
	}
}

func TestDefault_Decodes(t *testing.T) {
	g := Default()
	if len(g.Genes) == 0 {
		t.Fatal("expected starter genome to have genes")
	}
}

func TestSignal_Parse(t *testing.T) {
	for i := 0; i < NumSignals; i++ {
		s := Signal(i)
		back, ok := ParseSignal(s.Byte())
		if !ok || back != s {
			t.Errorf("signal %d did not round trip through %q", i, s.Byte())
		}
	}
	if _, ok := ParseSignal(':'); ok {
		t.Error("expected separator to be rejected as a signal")
	}
	if !Chloroplast.Intrinsic() || Signal('e'-'a').Intrinsic() {
		t.Error("intrinsic table mismatch")
	}
}
