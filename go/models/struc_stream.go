package models

import (
	"encoding/binary"
	"io"

	"github.com/lunixbochs/struc"
)

type StrucStream struct {
	Stream io.ReadWriter
	Order  binary.ByteOrder
}

// StrucAt packs and unpacks little-endian structures directly in physical memory.
func StrucAt(mem Memory, addr uint64) *StrucStream {
	return &StrucStream{Stream: MemIO(mem).StreamAt(addr), Order: binary.LittleEndian}
}

func (s *StrucStream) Pack(i interface{}) error {
	return struc.PackWithOrder(s.Stream, i, s.Order)
}

func (s *StrucStream) Unpack(i interface{}) error {
	return struc.UnpackWithOrder(s.Stream, i, s.Order)
}
