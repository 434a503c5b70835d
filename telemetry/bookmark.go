package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"
)

// BookmarkType names the kind of moment a bookmark marks.
type BookmarkType string

const (
	BookmarkGrowthSpurt        BookmarkType = "growth_spurt"
	BookmarkPopulationRecovery BookmarkType = "population_recovery"
	BookmarkPopulationCrash    BookmarkType = "population_crash"
	BookmarkExtinction         BookmarkType = "extinction"
	BookmarkStablePopulation   BookmarkType = "stable_population"
)

// Bookmark is one bookmarks.csv row.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int64        `csv:"tick"`
	Description string       `csv:"description"`
}

func (b Bookmark) LogBookmark() {
	slog.Info("bookmark", "type", string(b.Type), "tick", b.Tick, "description", b.Description)
}

// Detection thresholds.
const (
	spurtFactor      = 2.0  // divisions vs. history average
	spurtMinDivs     = 10   // ignore spurts below this many divisions
	recoveryFloor    = 3    // population must have fallen to this or fewer
	recoveryFactor   = 3    // and then grown by this factor
	recoveryMinPlant = 6    // to at least this many plants
	crashDrop        = 0.30 // fraction lost from the recent peak
	crashMinLoss     = 5    // absolute plants lost
	stableMinPlants  = 5
	stableSpan       = 4    // windows compared for steadiness
	stableMaxCV      = 0.2  // coefficient of variation across the span
	stableRun        = 5    // consecutive steady windows before firing
)

// BookmarkDetector watches the window stream for notable population events.
type BookmarkDetector struct {
	history []WindowStats // oldest first, at most limit entries
	limit   int

	recentMin   int // lowest population since the last recovery (-1 before any window)
	recentPeak  int // highest population since the last crash
	stableCount int
}

// NewBookmarkDetector keeps the last historySize windows (at least 5).
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	return &BookmarkDetector{
		limit:     max(historySize, 5),
		recentMin: -1,
	}
}

// Check compares stats against the windows seen so far, records it, and
// returns any bookmarks it triggered. The first window never triggers.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var out []Bookmark
	if len(bd.history) > 0 {
		for _, check := range []func(WindowStats) (string, BookmarkType, bool){
			bd.growthSpurt,
			bd.recovery,
			bd.crash,
			bd.extinction,
			bd.stable,
		} {
			if desc, typ, ok := check(stats); ok {
				out = append(out, Bookmark{Type: typ, Tick: stats.WindowEndTick, Description: desc})
			}
		}
	}

	bd.history = append(bd.history, stats)
	if len(bd.history) > bd.limit {
		bd.history = bd.history[1:]
	}
	if bd.recentMin < 0 || stats.Plants < bd.recentMin {
		bd.recentMin = stats.Plants
	}
	bd.recentPeak = max(bd.recentPeak, stats.Plants)
	return out
}

func (bd *BookmarkDetector) growthSpurt(s WindowStats) (string, BookmarkType, bool) {
	if len(bd.history) < 3 {
		return "", "", false
	}
	var total int
	for _, h := range bd.history {
		total += h.Divisions
	}
	avg := float64(total) / float64(len(bd.history))
	if avg == 0 || float64(s.Divisions) <= avg*spurtFactor || s.Divisions < spurtMinDivs {
		return "", "", false
	}
	return fmt.Sprintf("%d divisions is %.1fx average (%.1f)", s.Divisions, float64(s.Divisions)/avg, avg),
		BookmarkGrowthSpurt, true
}

func (bd *BookmarkDetector) recovery(s WindowStats) (string, BookmarkType, bool) {
	low := bd.recentMin
	if low <= 0 || low > recoveryFloor || s.Plants < low*recoveryFactor || s.Plants < recoveryMinPlant {
		return "", "", false
	}
	bd.recentMin = s.Plants
	return fmt.Sprintf("Population recovered from %d to %d plants", low, s.Plants),
		BookmarkPopulationRecovery, true
}

func (bd *BookmarkDetector) crash(s WindowStats) (string, BookmarkType, bool) {
	peak := bd.recentPeak
	if peak == 0 {
		return "", "", false
	}
	drop := 1 - float64(s.Plants)/float64(peak)
	if drop <= crashDrop || s.Plants >= peak-crashMinLoss {
		return "", "", false
	}
	bd.recentPeak = s.Plants
	return fmt.Sprintf("Population crashed %.0f%% from peak %d to %d", drop*100, peak, s.Plants),
		BookmarkPopulationCrash, true
}

// extinction fires on the transition to zero plants only.
func (bd *BookmarkDetector) extinction(s WindowStats) (string, BookmarkType, bool) {
	if s.Plants != 0 || bd.history[len(bd.history)-1].Plants == 0 {
		return "", "", false
	}
	return fmt.Sprintf("Last plant lost (%d deaths this window)", s.Deaths), BookmarkExtinction, true
}

// stable fires once per steady run, on its stableRun-th window.
func (bd *BookmarkDetector) stable(s WindowStats) (string, BookmarkType, bool) {
	if s.Plants < stableMinPlants {
		bd.stableCount = 0
		return "", "", false
	}
	if len(bd.history) < stableSpan {
		return "", "", false
	}

	counts := make([]float64, stableSpan)
	for i, h := range bd.history[len(bd.history)-stableSpan:] {
		counts[i] = float64(h.Plants)
	}
	mean, variance := stat.PopMeanVariance(counts, nil)
	if mean > 0 && variance/(mean*mean) < stableMaxCV*stableMaxCV {
		bd.stableCount++
	} else {
		bd.stableCount = 0
	}

	if bd.stableCount != stableRun {
		return "", "", false
	}
	return fmt.Sprintf("Steady population of %d plants over %d+ windows", s.Plants, stableRun),
		BookmarkStablePopulation, true
}
