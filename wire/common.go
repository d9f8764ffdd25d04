package wire

import (
	"encoding/binary"
	"io"
	"math/big"

	"github.com/weavesuite/weave-mining-server/utils"
)

// writeElement writes the little pieces a data segment is made of in their
// canonical big-endian form. The encode cannot fail except for a broken
// writer, so serialization into byte buffers ignores the error returns.
func writeElement(w io.Writer, element interface{}) error {
	switch e := element.(type) {
	case int64:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(e))
		_, err := w.Write(buf[:])
		return err

	case uint64:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], e)
		_, err := w.Write(buf[:])
		return err

	case uint32:
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], e)
		_, err := w.Write(buf[:])
		return err

	case *utils.Hash:
		_, err := w.Write(e[:])
		return err

	case utils.Hash:
		_, err := w.Write(e[:])
		return err

	case []byte:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(len(e)))
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
		_, err := w.Write(e)
		return err

	case string:
		return writeElement(w, []byte(e))
	}

	return binary.Write(w, binary.BigEndian, element)
}

func writeElements(w io.Writer, elements ...interface{}) error {
	for _, element := range elements {
		err := writeElement(w, element)
		if err != nil {
			return err
		}
	}
	return nil
}

// writeBigInt writes a non-negative big integer as a fixed 32-byte
// big-endian field. Values wider than 256 bits are truncated to their low
// 256 bits; a cumulative difficulty can reach 2^256.
func writeBigInt(w io.Writer, v *big.Int) error {
	var buf [32]byte
	if v != nil {
		raw := v.Bytes()
		if len(raw) > len(buf) {
			raw = raw[len(raw)-len(buf):]
		}
		copy(buf[len(buf)-len(raw):], raw)
	}
	_, err := w.Write(buf[:])
	return err
}

// BigEndianFixed encodes v as a fixed-width big-endian integer of the given
// byte width. It is how the timestamp enters the solution-hash preimage.
func BigEndianFixed(v int64, width int) []byte {
	buf := make([]byte, width)
	big.NewInt(v).FillBytes(buf)
	return buf
}
