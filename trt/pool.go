// pool.go - Pool der Inferenz-Instanzen
//
// Die Semaphore begrenzt die Anzahl der Halter auf die Pool-Groesse, die
// Free-List unter mu ordnet jedem Halter einen freien Index zu.
package trt

import (
	"fmt"
	"slices"
	"sync"

	"github.com/emirpasic/gods/v2/stacks/arraystack"

	"github.com/vsmlrt/vstrt/ml"
)

type instancePool struct {
	sem *TicketSemaphore

	mu         sync.Mutex
	free       *arraystack.Stack[int]
	checkedOut []bool

	instances []ml.Instance
}

func newInstancePool(instances []ml.Instance) *instancePool {
	p := &instancePool{
		sem:        NewTicketSemaphore(len(instances)),
		free:       arraystack.New[int](),
		checkedOut: make([]bool, len(instances)),
		instances:  instances,
	}

	for i := range instances {
		p.free.Push(i)
	}
	return p
}

// acquire blockiert bis eine Instanz frei ist und gibt deren Index zurueck
func (p *instancePool) acquire() (int, ml.Instance) {
	p.sem.Acquire()

	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.free.Pop()
	if !ok {
		panic("trt: instance free-list empty after admission")
	}
	p.checkedOut[idx] = true
	return idx, p.instances[idx]
}

// release legt idx zurueck in die Free-List und oeffnet danach die Semaphore
func (p *instancePool) release(idx int) {
	p.mu.Lock()
	if !p.checkedOut[idx] {
		p.mu.Unlock()
		panic(fmt.Sprintf("trt: instance %d released but not checked out", idx))
	}
	p.checkedOut[idx] = false
	p.free.Push(idx)
	p.mu.Unlock()

	p.sem.Release()
}

// available gibt die sortierten freien Indizes zurueck
func (p *instancePool) available() []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	free := p.free.Values()
	slices.Sort(free)
	return free
}

func (p *instancePool) size() int {
	return len(p.instances)
}
