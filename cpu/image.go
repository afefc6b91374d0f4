// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
)

// Program image layout, all little endian:
//
//	magic    [4]byte "MIMR"
//	version  uint16
//	count    uint32
//	count × { opcode uint16, operands uint8, operands × int64 }
const (
	IMAGE_MAGIC   = "MIMR"
	IMAGE_VERSION = uint16(1)
)

var imageOrder = binary.LittleEndian

// WriteImage writes the program as a binary image.
func WriteImage(output io.Writer, prog *Program) (err error) {
	w := bufio.NewWriter(output)

	_, err = w.WriteString(IMAGE_MAGIC)
	if err != nil {
		return
	}

	header := struct {
		Version uint16
		Count   uint32
	}{IMAGE_VERSION, uint32(prog.Len())}
	err = binary.Write(w, imageOrder, header)
	if err != nil {
		return
	}

	for _, ins := range prog.All() {
		if len(ins.Operands) > 0xff {
			err = &ErrOperandCount{Opcode: ins.Opcode, Want: 0xff, Have: len(ins.Operands)}
			return
		}
		err = binary.Write(w, imageOrder, uint16(ins.Opcode))
		if err != nil {
			return
		}
		err = w.WriteByte(uint8(len(ins.Operands)))
		if err != nil {
			return
		}
		if len(ins.Operands) > 0 {
			err = binary.Write(w, imageOrder, ins.Operands)
			if err != nil {
				return
			}
		}
	}

	return w.Flush()
}

// ReadImage reads a binary image. The instructions are not validated;
// Machine.Load does that.
func ReadImage(input io.Reader) (prog *Program, err error) {
	r := bufio.NewReader(input)

	defer func() {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = ErrImageTruncated
		}
	}()

	var magic [4]byte
	_, err = io.ReadFull(r, magic[:])
	if err != nil {
		return
	}
	if string(magic[:]) != IMAGE_MAGIC {
		err = ErrImageMagic
		return
	}

	var header struct {
		Version uint16
		Count   uint32
	}
	err = binary.Read(r, imageOrder, &header)
	if err != nil {
		return
	}
	if header.Version != IMAGE_VERSION {
		err = ErrImageVersion
		return
	}

	prog = &Program{}
	for range header.Count {
		var code uint16
		err = binary.Read(r, imageOrder, &code)
		if err != nil {
			return
		}
		var count uint8
		count, err = r.ReadByte()
		if err != nil {
			return
		}
		ins := Instruction{Opcode: Opcode(code)}
		if count > 0 {
			ins.Operands = make([]int64, count)
			err = binary.Read(r, imageOrder, ins.Operands)
			if err != nil {
				return
			}
		}
		prog.Instructions = append(prog.Instructions, ins)
	}

	return
}
