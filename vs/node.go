// MODUL: node
// ZWECK: Node-Interface, VideoInfo und Anforderung von Upstream-Frames
// INPUT: Upstream-Nodes, Frame-Index
// OUTPUT: Frames in Node-Reihenfolge
// NEBENEFFEKTE: Parallele GetFrame-Aufrufe auf allen Nodes
// ABHAENGIGKEITEN: golang.org/x/sync/errgroup
// HINWEISE: Bei einem Fehler werden bereits gelieferte Frames freigegeben

package vs

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// VideoInfo beschreibt einen Video-Stream
type VideoInfo struct {
	// Format ist nil bei variablem Format
	Format    *Format
	Width     int
	Height    int
	NumFrames int
	FPSNum    int64
	FPSDen    int64
}

// IsConstant prueft ob Format und Dimensionen konstant sind
func (vi VideoInfo) IsConstant() bool {
	return vi.Format != nil && vi.Width > 0 && vi.Height > 0
}

func (vi VideoInfo) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("format", vi.Format.String()),
		slog.Int("width", vi.Width),
		slog.Int("height", vi.Height),
		slog.Int("frames", vi.NumFrames),
	)
}

// Node ist eine Frame-Quelle. GetFrame darf nebenlaeufig aufgerufen werden;
// der Aufrufer besitzt den gelieferten Frame und muss ihn freigeben.
type Node interface {
	VideoInfo() VideoInfo
	GetFrame(ctx context.Context, n int) (*Frame, error)
}

// Freer wird von Nodes implementiert, die Ressourcen halten
type Freer interface {
	Free()
}

// FreeNode gibt einen Node frei, falls er Ressourcen haelt
func FreeNode(n Node) {
	if f, ok := n.(Freer); ok {
		f.Free()
	}
}

// RequestFrames fordert Frame n von allen Nodes parallel an und wartet auf alle.
// Die Frames werden in Node-Reihenfolge zurueckgegeben.
func RequestFrames(ctx context.Context, nodes []Node, n int) ([]*Frame, error) {
	frames := make([]*Frame, len(nodes))

	g, gctx := errgroup.WithContext(ctx)
	for i, node := range nodes {
		g.Go(func() error {
			f, err := node.GetFrame(gctx, clampFrame(n, node.VideoInfo()))
			if err != nil {
				return fmt.Errorf("clip %d: %w", i, err)
			}
			frames[i] = f
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, f := range frames {
			f.Free()
		}
		return nil, err
	}

	return frames, nil
}

// clampFrame begrenzt n auf den letzten Frame eines endlichen Clips
func clampFrame(n int, vi VideoInfo) int {
	if vi.NumFrames > 0 && n >= vi.NumFrames {
		return vi.NumFrames - 1
	}
	return n
}
