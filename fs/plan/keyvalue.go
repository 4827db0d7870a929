// Package plan - Key-Value Typen
//
// Dieses Modul enthaelt KeyValue und Value mit typisierten Accessoren.
// Fehlende Keys liefern einen leeren Value, dessen Accessoren Nullwerte zurueckgeben.
package plan

// KeyValue ist ein Metadaten-Eintrag
type KeyValue struct {
	Key string
	Value
}

// Valid prueft ob der Eintrag in der Datei vorhanden war
func (kv KeyValue) Valid() bool {
	return kv.Value.value != nil
}

// Value kapselt einen Metadaten-Wert
type Value struct {
	value any
}

// Any gibt den rohen Wert zurueck
func (v Value) Any() any {
	return v.value
}

// Int gibt den Wert als int zurueck (0 wenn kein Integer)
func (v Value) Int() int {
	switch n := v.value.(type) {
	case uint32:
		return int(n)
	case int32:
		return int(n)
	default:
		return 0
	}
}

// Uint gibt den Wert als uint32 zurueck
func (v Value) Uint() uint32 {
	switch n := v.value.(type) {
	case uint32:
		return n
	case int32:
		if n >= 0 {
			return uint32(n)
		}
	}
	return 0
}

// Float gibt den Wert als float32 zurueck
func (v Value) Float() float32 {
	f, _ := v.value.(float32)
	return f
}

// Bool gibt den Wert als bool zurueck
func (v Value) Bool() bool {
	b, _ := v.value.(bool)
	return b
}

// String gibt den Wert als string zurueck
func (v Value) String() string {
	s, _ := v.value.(string)
	return s
}

// Ints gibt den Wert als []int zurueck
func (v Value) Ints() []int {
	s, ok := v.value.([]int32)
	if !ok {
		return nil
	}

	ints := make([]int, len(s))
	for i := range s {
		ints[i] = int(s[i])
	}
	return ints
}
