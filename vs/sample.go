// MODUL: sample
// ZWECK: Lesen und Schreiben einzelner Samples in Plane-Puffern
// INPUT: Plane-Bytes, Sample-Index, Bytes pro Sample
// OUTPUT: float32-Werte
// NEBENEFFEKTE: WriteSample schreibt in den uebergebenen Puffer
// ABHAENGIGKEITEN: github.com/x448/float16
// HINWEISE: Float-Samples sind little endian abgelegt, 1 Byte = 8-Bit Integer

package vs

import (
	"encoding/binary"
	"math"

	"github.com/x448/float16"
)

// ReadSample liest Sample idx aus plane als float32
func ReadSample(plane []byte, idx, bytesPerSample int) float32 {
	switch bytesPerSample {
	case 4:
		return math.Float32frombits(binary.LittleEndian.Uint32(plane[4*idx:]))
	case 2:
		return float16.Frombits(binary.LittleEndian.Uint16(plane[2*idx:])).Float32()
	default:
		return float32(plane[idx])
	}
}

// WriteSample schreibt v als Sample idx in plane
func WriteSample(plane []byte, idx, bytesPerSample int, v float32) {
	switch bytesPerSample {
	case 4:
		binary.LittleEndian.PutUint32(plane[4*idx:], math.Float32bits(v))
	case 2:
		binary.LittleEndian.PutUint16(plane[2*idx:], float16.Fromfloat32(v).Bits())
	default:
		plane[idx] = uint8(min(max(v+0.5, 0), 255))
	}
}
