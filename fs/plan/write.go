// Package plan - Write Operations
//
// Dieses Modul enthaelt Funktionen zum Schreiben von Plan-Dateien:
// - Write: Schreibt komplette Plan-Datei mit KV und Tensors
// - writeKV: Key-Value Paar Serialisierung
// - writeTensorInfo: Tensor-Metadaten Serialisierung
package plan

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
)

// Write schreibt eine Plan-Datei mit KV-Paaren und Tensors.
// Keys ohne "general."-Prefix erhalten den Architecture-Prefix.
func Write(ws io.WriteSeeker, kv map[string]any, ts []Tensor) error {
	arch, _ := kv["general.architecture"].(string)
	if arch == "" {
		return fmt.Errorf("architecture not set")
	}

	if err := binary.Write(ws, binary.LittleEndian, magic); err != nil {
		return err
	}

	if err := binary.Write(ws, binary.LittleEndian, Version); err != nil {
		return err
	}

	if err := binary.Write(ws, binary.LittleEndian, uint64(len(ts))); err != nil {
		return err
	}

	if err := binary.Write(ws, binary.LittleEndian, uint64(len(kv))); err != nil {
		return err
	}

	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		if err := writeKV(ws, arch, key, kv[key]); err != nil {
			return err
		}
	}

	ts = slices.Clone(ts)
	slices.SortStableFunc(ts, func(a, b Tensor) int {
		return cmp.Compare(a.Name, b.Name)
	})

	alignment := int64(DefaultAlignment)
	if a, ok := kv["general.alignment"].(uint32); ok && a > 0 {
		alignment = int64(a)
	}

	data := make([][]byte, len(ts))
	var s int64
	for i, t := range ts {
		bts, err := encode(t.Kind, t.Values)
		if err != nil {
			return fmt.Errorf("tensor %s: %w", t.Name, err)
		}

		info := TensorInfo{Name: t.Name, Shape: t.Shape, Kind: t.Kind, Offset: uint64(s)}
		if info.NumBytes() != int64(len(bts)) {
			return fmt.Errorf("tensor %s: shape %v does not match %d values", t.Name, t.Shape, len(t.Values))
		}

		if err := writeTensorInfo(ws, info); err != nil {
			return err
		}

		data[i] = bts
		s += int64(len(bts))
		s += padding(s, alignment)
	}

	offset, err := ws.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	for _, bts := range data {
		if pad := padding(offset, alignment); pad > 0 {
			if _, err := ws.Write(make([]byte, pad)); err != nil {
				return err
			}
			offset += pad
		}

		if _, err := ws.Write(bts); err != nil {
			return err
		}
		offset += int64(len(bts))
	}

	return nil
}

// writeKV schreibt ein Key-Value Paar
func writeKV(w io.Writer, arch, k string, v any) error {
	if !strings.HasPrefix(k, arch+".") && !strings.HasPrefix(k, "general.") {
		k = arch + "." + k
	}

	slog.Debug(k, "type", fmt.Sprintf("%T", v))

	if err := writeString(w, k); err != nil {
		return err
	}

	switch v := v.(type) {
	case uint32:
		return writeTyped(w, typeUint32, v)
	case int32:
		return writeTyped(w, typeInt32, v)
	case int:
		return writeTyped(w, typeInt32, int32(v))
	case float32:
		return writeTyped(w, typeFloat32, v)
	case bool:
		return writeTyped(w, typeBool, v)
	case string:
		if err := binary.Write(w, binary.LittleEndian, typeString); err != nil {
			return err
		}
		return writeString(w, v)
	case []int32:
		if err := binary.Write(w, binary.LittleEndian, typeArrayInt32); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint64(len(v))); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, v)
	default:
		return fmt.Errorf("improper type for '%s'", k)
	}
}

// writeTyped schreibt einen typisierten Wert mit Typ-Prefix
func writeTyped[V any](w io.Writer, t uint32, v V) error {
	if err := binary.Write(w, binary.LittleEndian, t); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, v)
}

// writeString schreibt einen String mit Laengen-Prefix
func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint64(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// writeTensorInfo schreibt die Tensor-Metadaten
func writeTensorInfo(w io.Writer, t TensorInfo) error {
	slog.Debug(t.Name, "kind", t.Kind, "shape", t.Shape, "offset", t.Offset)

	if err := writeString(w, t.Name); err != nil {
		return err
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(t.Shape))); err != nil {
		return err
	}
	for _, n := range t.Shape {
		if err := binary.Write(w, binary.LittleEndian, n); err != nil {
			return err
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(t.Kind)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, t.Offset)
}
