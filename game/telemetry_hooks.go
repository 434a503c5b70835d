package game

import (
	"log/slog"

	"github.com/pthm-cable/bonsai/telemetry"
)

// flushTelemetry closes the stats window when it is due, then reports it,
// persists it and archives the chunk for every bookmark it triggers.
func (g *Game) flushTelemetry() {
	tick := g.Tick()
	if !g.collector.ShouldFlush(tick) {
		return
	}
	window := g.collector.Flush(tick, g.Census())
	perf := g.Perf().Stats()

	if g.statsCallback != nil {
		g.statsCallback(window)
	}
	if g.logStats {
		window.LogStats()
		perf.LogStats()
	}
	logIfErr("telemetry", g.outputManager.WriteTelemetry(window))
	logIfErr("perf", g.outputManager.WritePerf(perf, window.WindowEndTick))

	for _, bm := range g.bookmarks.Check(window) {
		if g.logStats {
			bm.LogBookmark()
		}
		logIfErr("bookmark", g.outputManager.WriteBookmark(bm))
		g.saveSnapshot(&bm)
	}
}

func logIfErr(what string, err error) {
	if err != nil {
		slog.Error("write failed", "output", what, "error", err)
	}
}

// saveSnapshot archives the chunk, tagged with bookmark when non-nil.
// No-op without a snapshot directory.
func (g *Game) saveSnapshot(bookmark *telemetry.Bookmark) {
	if g.snapshotDir == "" {
		return
	}
	path, err := telemetry.SaveSnapshot(g.Serialize(), g.seed, g.Tick(), bookmark, g.snapshotDir)
	if err != nil {
		slog.Error("snapshot failed", "tick", g.Tick(), "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "tick", g.Tick())
}
