package pipeline

import (
	"github.com/vaeringr/cdsp/internal/chunk"
	"github.com/vaeringr/cdsp/internal/graph"
)

// ProcessWorker is stage P of spec.md §4.1: it runs each chunk through the
// current graph and applies a pending reload between chunks, never
// mid-chunk.
type ProcessWorker struct {
	In      <-chan *chunk.Chunk
	Out     chan<- *chunk.Chunk
	Status  chan<- StatusMessage
	Barrier *Barrier
	Graph   *graph.Graph
	Reload  *ReloadSlot
}

// Run executes the process loop until In is closed, then closes Out and
// forwards the chain's completion.
func (w *ProcessWorker) Run() {
	w.Barrier.Wait()

	for c := range w.In {
		if w.Reload != nil {
			if steps, ok := w.Reload.TakeIfPending(); ok {
				if err := w.Graph.Reload(steps); err != nil {
					w.Status <- StatusMessage{Kind: ReloadFailed, Err: err}
				}
			}
		}

		out, err := w.Graph.Process(c)
		if err != nil {
			w.Status <- StatusMessage{Kind: ProcessError, Err: err}
			continue
		}
		w.Out <- out
	}

	close(w.Out)
	w.Status <- StatusMessage{Kind: ProcessDone}
}
