// Package plan - Low-Level Lese-Funktionen
//
// Dieses Modul enthaelt:
// - reader: Reader mit Offset-Zaehlung
// - readTensor: Liest Tensor-Metadaten
// - readKeyValue: Liest ein Key-Value Paar
// - read[T]: Generische Funktion zum Lesen typisierter Werte
// - readString: String-Deserialisierung
package plan

import (
	"encoding/binary"
	"fmt"
	"io"
)

// reader zaehlt gelesene Bytes fuer die Berechnung des Datenoffsets
type reader struct {
	r      io.Reader
	offset int64
	bts    []byte
}

func (r *reader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.offset += int64(n)
	return n, err
}

// readTensor liest die Metadaten eines einzelnen Tensors
func (r *reader) readTensor() (TensorInfo, error) {
	name, err := r.readString()
	if err != nil {
		return TensorInfo{}, err
	}

	dims, err := read[uint32](r)
	if err != nil {
		return TensorInfo{}, err
	}

	shape := make([]uint64, dims)
	for i := range dims {
		shape[i], err = read[uint64](r)
		if err != nil {
			return TensorInfo{}, err
		}
	}

	kind, err := read[uint32](r)
	if err != nil {
		return TensorInfo{}, err
	}

	if TensorKind(kind) > KindBF16 {
		return TensorInfo{}, fmt.Errorf("%w tensor kind %d", ErrUnsupported, kind)
	}

	offset, err := read[uint64](r)
	if err != nil {
		return TensorInfo{}, err
	}

	return TensorInfo{
		Name:   name,
		Shape:  shape,
		Kind:   TensorKind(kind),
		Offset: offset,
	}, nil
}

// readKeyValue liest ein einzelnes Key-Value Paar
func (r *reader) readKeyValue() (KeyValue, error) {
	key, err := r.readString()
	if err != nil {
		return KeyValue{}, err
	}

	t, err := read[uint32](r)
	if err != nil {
		return KeyValue{}, err
	}

	value, err := func() (any, error) {
		switch t {
		case typeUint32:
			return read[uint32](r)
		case typeInt32:
			return read[int32](r)
		case typeFloat32:
			return read[float32](r)
		case typeBool:
			return read[bool](r)
		case typeString:
			return r.readString()
		case typeArrayInt32:
			n, err := read[uint64](r)
			if err != nil {
				return nil, err
			}
			s := make([]int32, n)
			if err := binary.Read(r, binary.LittleEndian, s); err != nil {
				return nil, err
			}
			return s, nil
		default:
			return nil, fmt.Errorf("%w type %d", ErrUnsupported, t)
		}
	}()
	if err != nil {
		return KeyValue{}, err
	}

	return KeyValue{
		Key:   key,
		Value: Value{value},
	}, nil
}

// read liest einen typisierten Wert aus dem Reader
func read[T any](r *reader) (t T, err error) {
	err = binary.Read(r, binary.LittleEndian, &t)
	return t, err
}

// readString liest einen String aus dem Reader
func (r *reader) readString() (string, error) {
	n, err := read[uint64](r)
	if err != nil {
		return "", err
	}

	if n > 1<<20 {
		return "", fmt.Errorf("%w string length %d", ErrUnsupported, n)
	}

	if int(n) > len(r.bts) {
		r.bts = make([]byte, n)
	}

	bts := r.bts[:n]
	if _, err := io.ReadFull(r, bts); err != nil {
		return "", err
	}
	defer clear(bts)

	return string(bts), nil
}
