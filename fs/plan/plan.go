// Package plan - Container-Format fuer serialisierte Engines
//
// Dieses Modul enthaelt die Hauptstruktur fuer Engine-Plan-Dateien:
// - File: Repraesentiert eine geoeffnete Plan-Datei
// - Open/Read: Oeffnet und parst eine Plan-Datei
// - KeyValue/Tensor: Zugriff auf Metadaten und Gewichte
// - Type-Konstanten fuer die Datentypen
//
// Layout (little endian):
//
//	magic "VSTE" | version u32 | tensor count u64 | kv count u64
//	kv pairs     | tensor infos | padding | tensor data (aligned)
package plan

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	bfloat16 "github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"
)

// Type-Konstanten fuer KV-Datentypen
const (
	typeUint32 uint32 = iota
	typeInt32
	typeFloat32
	typeBool
	typeString
	typeArrayInt32
)

// Version ist die aktuelle Format-Version
const Version uint32 = 1

// DefaultAlignment ist das Alignment des Datenbereichs
const DefaultAlignment = 32

var magic = [4]byte{'V', 'S', 'T', 'E'}

// ErrUnsupported wird bei nicht unterstuetzten Formaten oder Versionen zurueckgegeben
var ErrUnsupported = errors.New("unsupported")

// TensorKind ist der Element-Typ eines Tensors
type TensorKind uint32

const (
	KindF32 TensorKind = iota
	KindF16
	KindBF16
)

func (k TensorKind) size() uint64 {
	switch k {
	case KindF16, KindBF16:
		return 2
	default:
		return 4
	}
}

func (k TensorKind) String() string {
	switch k {
	case KindF32:
		return "F32"
	case KindF16:
		return "F16"
	case KindBF16:
		return "BF16"
	default:
		return fmt.Sprintf("kind(%d)", uint32(k))
	}
}

// TensorInfo beschreibt einen Tensor im Datenbereich
type TensorInfo struct {
	Name   string
	Shape  []uint64
	Kind   TensorKind
	Offset uint64
}

// Elements gibt die Anzahl der Elemente zurueck
func (t TensorInfo) Elements() uint64 {
	n := uint64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// NumBytes gibt die Groesse der Tensor-Daten zurueck
func (t TensorInfo) NumBytes() int64 {
	return int64(t.Elements() * t.Kind.size())
}

// Tensor ist ein zu schreibender Tensor mit float32-Werten, die beim
// Schreiben in Kind kodiert werden
type Tensor struct {
	Name   string
	Shape  []uint64
	Kind   TensorKind
	Values []float32
}

// File repraesentiert eine geoeffnete Plan-Datei
type File struct {
	Magic   [4]byte
	Version uint32

	keyValues []KeyValue
	tensors   []TensorInfo
	offset    int64

	r      io.ReaderAt
	closer io.Closer
}

// Open oeffnet eine Plan-Datei und parst Header, Metadaten und Tensor-Infos
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	pf, err := Read(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	pf.closer = f
	return pf, nil
}

// Read parst eine Plan-Datei aus r
func Read(r io.ReaderAt) (*File, error) {
	f := &File{r: r}
	rd := &reader{r: io.NewSectionReader(r, 0, 1<<62), bts: make([]byte, 256)}

	if err := binary.Read(rd, binary.LittleEndian, &f.Magic); err != nil {
		return nil, err
	}

	if !bytes.Equal(f.Magic[:], magic[:]) {
		return nil, fmt.Errorf("%w file type %q", ErrUnsupported, f.Magic[:])
	}

	if err := binary.Read(rd, binary.LittleEndian, &f.Version); err != nil {
		return nil, err
	}

	if f.Version != Version {
		return nil, fmt.Errorf("%w version %v", ErrUnsupported, f.Version)
	}

	numTensors, err := read[uint64](rd)
	if err != nil {
		return nil, err
	}

	numKV, err := read[uint64](rd)
	if err != nil {
		return nil, err
	}

	for range numKV {
		kv, err := rd.readKeyValue()
		if err != nil {
			return nil, err
		}
		f.keyValues = append(f.keyValues, kv)
	}

	for range numTensors {
		t, err := rd.readTensor()
		if err != nil {
			return nil, err
		}
		f.tensors = append(f.tensors, t)
	}

	alignment := int64(cmp.Or(f.KeyValue("general.alignment").Int(), DefaultAlignment))
	f.offset = rd.offset + padding(rd.offset, alignment)
	return f, nil
}

// Close schliesst die zugrunde liegende Datei
func (f *File) Close() error {
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

// KeyValue sucht ein Key-Value Paar nach Name.
// Wenn der Key weder mit "general." noch mit dem Architecture-Prefix
// beginnt, wird der Architecture-Prefix automatisch hinzugefuegt.
func (f *File) KeyValue(key string) KeyValue {
	if !strings.HasPrefix(key, "general.") {
		if arch := f.KeyValue("general.architecture").String(); !strings.HasPrefix(key, arch+".") {
			key = arch + "." + key
		}
	}

	if index := slices.IndexFunc(f.keyValues, func(kv KeyValue) bool {
		return kv.Key == key
	}); index >= 0 {
		return f.keyValues[index]
	}

	return KeyValue{Key: key}
}

// KeyValues gibt alle Key-Value Paare in Datei-Reihenfolge zurueck
func (f *File) KeyValues() []KeyValue {
	return f.keyValues
}

// TensorInfos gibt alle Tensor-Infos zurueck
func (f *File) TensorInfos() []TensorInfo {
	return f.tensors
}

// TensorInfo sucht Tensor-Info nach Name
func (f *File) TensorInfo(name string) (TensorInfo, bool) {
	if index := slices.IndexFunc(f.tensors, func(t TensorInfo) bool {
		return t.Name == name
	}); index >= 0 {
		return f.tensors[index], true
	}
	return TensorInfo{}, false
}

// Tensor liest die Werte eines Tensors als float32
func (f *File) Tensor(name string) (TensorInfo, []float32, error) {
	t, ok := f.TensorInfo(name)
	if !ok {
		return TensorInfo{}, nil, fmt.Errorf("tensor %s not found", name)
	}

	bts := make([]byte, t.NumBytes())
	if _, err := f.r.ReadAt(bts, f.offset+int64(t.Offset)); err != nil {
		return TensorInfo{}, nil, fmt.Errorf("tensor %s: %w", name, err)
	}

	values, err := decode(t.Kind, bts)
	if err != nil {
		return TensorInfo{}, nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	return t, values, nil
}

// decode wandelt Rohdaten eines Tensors in float32
func decode(kind TensorKind, bts []byte) ([]float32, error) {
	switch kind {
	case KindF32:
		values := make([]float32, len(bts)/4)
		if err := binary.Read(bytes.NewReader(bts), binary.LittleEndian, values); err != nil {
			return nil, err
		}
		return values, nil
	case KindF16:
		values := make([]float32, len(bts)/2)
		for i := range values {
			values[i] = float16.Frombits(binary.LittleEndian.Uint16(bts[2*i:])).Float32()
		}
		return values, nil
	case KindBF16:
		return bfloat16.DecodeFloat32(bts), nil
	default:
		return nil, fmt.Errorf("%w tensor kind %v", ErrUnsupported, kind)
	}
}

// encode wandelt float32-Werte in die Rohdaten von kind
func encode(kind TensorKind, values []float32) ([]byte, error) {
	switch kind {
	case KindF32:
		var buf bytes.Buffer
		if err := binary.Write(&buf, binary.LittleEndian, values); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case KindF16:
		bts := make([]byte, 2*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint16(bts[2*i:], float16.Fromfloat32(v).Bits())
		}
		return bts, nil
	case KindBF16:
		return bfloat16.EncodeFloat32(values), nil
	default:
		return nil, fmt.Errorf("%w tensor kind %v", ErrUnsupported, kind)
	}
}

// padding berechnet das Padding fuer Alignment
func padding(offset, align int64) int64 {
	return (align - offset%align) % align
}
