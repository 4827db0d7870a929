// semaphore.go - Faire Zaehl-Semaphore mit Tickets
//
// Jeder Aufrufer zieht ein Ticket, zugelassen wird wer ein Ticket unterhalb
// von current haelt. Da current nur um eins waechst, werden Tickets in
// Ausgabe-Reihenfolge zugelassen.
package trt

import (
	"sync"
	"sync/atomic"
)

// TicketSemaphore laesst hoechstens n Halter gleichzeitig zu, in Ankunfts-Reihenfolge
type TicketSemaphore struct {
	ticket  atomic.Int64
	current atomic.Int64

	mu   sync.Mutex
	cond *sync.Cond
}

// NewTicketSemaphore erstellt eine Semaphore mit n freien Plaetzen
func NewTicketSemaphore(n int) *TicketSemaphore {
	s := &TicketSemaphore{}
	s.current.Store(int64(n))
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Acquire blockiert bis das eigene Ticket zugelassen ist. Nicht abbrechbar.
func (s *TicketSemaphore) Acquire() {
	tk := s.ticket.Add(1) - 1
	if tk < s.current.Load() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for tk >= s.current.Load() {
		s.cond.Wait()
	}
}

// Release gibt einen Platz frei und weckt alle Wartenden
func (s *TicketSemaphore) Release() {
	s.mu.Lock()
	s.current.Add(1)
	s.mu.Unlock()

	s.cond.Broadcast()
}

// Waiting gibt die Anzahl ausgegebener, noch nicht zugelassener Tickets zurueck
func (s *TicketSemaphore) Waiting() int {
	return int(max(s.ticket.Load()-s.current.Load(), 0))
}
