package game

import (
	"log/slog"

	"github.com/pthm-cable/bonsai/genome"
)

// reseedFromBankIfNeeded drops plants from the seed bank once the chunk is
// empty. Falls back to the starter genome while the bank has no entries.
func (g *Game) reseedFromBankIfNeeded() {
	count := g.cfg.SeedBank.ReseedCount
	if count <= 0 || g.Plants() > 0 {
		return
	}

	mutation := genome.MutationParams{
		Keep:      g.cfg.Mutation.Keep,
		Duplicate: g.cfg.Mutation.Duplicate,
		Replace:   g.cfg.Mutation.Replace,
	}

	fromBank := 0
	for i := 0; i < count; i++ {
		gnm := g.bank.Sample()
		if gnm == nil {
			gnm = genome.Default()
		} else {
			gnm = gnm.NaturalClone(g.rng, mutation)
			fromBank++
		}
		g.AddPlant(g.DropPosition(), gnm, 0)
	}

	slog.Info("seed_bank_reseed",
		"tick", g.Tick(),
		"reseeded_count", count,
		"from_bank", fromBank,
		"bank_size", g.bank.Size(),
	)
}
