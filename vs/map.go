// MODUL: map
// ZWECK: Geordnete Property-Map fuer Filter-Argumente
// INPUT: Schluessel mit Int-, Node- oder Daten-Werten
// OUTPUT: Typisierte Zugriffe, ErrKeyNotFound fuer fehlende Schluessel
// NEBENEFFEKTE: Keine
// ABHAENGIGKEITEN: github.com/wk8/go-ordered-map/v2
// HINWEISE: Jeder Schluessel haelt eine Liste gleichartiger Werte (wie Host-Property-Maps)

package vs

import (
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrKeyNotFound wird fuer fehlende Schluessel oder Indizes geliefert
var ErrKeyNotFound = errors.New("key not found")

// ErrWrongType wird geliefert wenn ein Schluessel einen anderen Typ haelt
var ErrWrongType = errors.New("wrong value type")

// Map ist eine geordnete Argument-Map. Der Null-Wert ist nicht nutzbar, New verwenden.
type Map struct {
	values *orderedmap.OrderedMap[string, []any]
}

// NewMap erstellt eine leere Map
func NewMap() *Map {
	return &Map{values: orderedmap.New[string, []any]()}
}

func (m *Map) appendValue(key string, v any) {
	vals, _ := m.values.Get(key)
	m.values.Set(key, append(vals, v))
}

// SetInt haengt einen Integer an key an
func (m *Map) SetInt(key string, v int64) {
	m.appendValue(key, v)
}

// SetNode haengt einen Node an key an
func (m *Map) SetNode(key string, n Node) {
	m.appendValue(key, n)
}

// SetData haengt einen String an key an
func (m *Map) SetData(key string, v string) {
	m.appendValue(key, v)
}

// Delete entfernt key mit allen Werten
func (m *Map) Delete(key string) {
	m.values.Delete(key)
}

// Keys gibt alle Schluessel in Einfuege-Reihenfolge zurueck
func (m *Map) Keys() []string {
	keys := make([]string, 0, m.values.Len())
	for pair := m.values.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// NumElements gibt die Anzahl der Werte unter key zurueck, -1 wenn key fehlt
func (m *Map) NumElements(key string) int {
	vals, ok := m.values.Get(key)
	if !ok {
		return -1
	}
	return len(vals)
}

func get[T any](m *Map, key string, idx int) (T, error) {
	var zero T
	vals, ok := m.values.Get(key)
	if !ok || idx < 0 || idx >= len(vals) {
		return zero, fmt.Errorf("%q[%d]: %w", key, idx, ErrKeyNotFound)
	}

	v, ok := vals[idx].(T)
	if !ok {
		return zero, fmt.Errorf("%q: %w: %T", key, ErrWrongType, vals[idx])
	}
	return v, nil
}

// Int liest den Integer an Position idx unter key
func (m *Map) Int(key string, idx int) (int64, error) {
	return get[int64](m, key, idx)
}

// Data liest den String an Position idx unter key
func (m *Map) Data(key string, idx int) (string, error) {
	return get[string](m, key, idx)
}

// Nodes liest alle Nodes unter key
func (m *Map) Nodes(key string) ([]Node, error) {
	n := m.NumElements(key)
	if n < 0 {
		return nil, fmt.Errorf("%q: %w", key, ErrKeyNotFound)
	}

	nodes := make([]Node, n)
	for i := range n {
		node, err := get[Node](m, key, i)
		if err != nil {
			return nil, err
		}
		nodes[i] = node
	}
	return nodes, nil
}
