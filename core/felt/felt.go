package felt

import (
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
)

// Felt is a Starknet field element.
type Felt struct {
	val fp.Element
}

const (
	Limbs = fp.Limbs // number of 64 bits words needed to represent a Element
	Bits  = fp.Bits  // number of bits needed to represent a Element
	Bytes = fp.Bytes // number of bytes needed to represent a Element
)

// zero felt constant
var Zero = Felt{}

func New(element *fp.Element) *Felt {
	return &Felt{
		val: *element,
	}
}

// Impl returns the underlying field element type
func (z *Felt) Impl() *fp.Element {
	return &z.val
}

// SetBytes interprets e as a big-endian unsigned integer, reduced mod p.
func (z *Felt) SetBytes(e []byte) *Felt {
	z.val.SetBytes(e)
	return z
}

// SetString forwards the call to underlying field element implementation
func (z *Felt) SetString(number string) (*Felt, error) {
	_, err := z.val.SetString(number)
	return z, err
}

// SetUint64 forwards the call to underlying field element implementation
func (z *Felt) SetUint64(v uint64) *Felt {
	z.val.SetUint64(v)
	return z
}

// String forwards the call to underlying field element implementation
func (z *Felt) String() string {
	return z.val.String()
}

// Text returns the element as a string in the given base.
func (z *Felt) Text(base int) string {
	return z.val.Text(base)
}

// Equal forwards the call to underlying field element implementation
func (z *Felt) Equal(x *Felt) bool {
	return z.val.Equal(&x.val)
}

// Bytes returns the big-endian byte representation.
func (z *Felt) Bytes() [32]byte {
	return z.val.Bytes()
}

// IsZero forwards the call to underlying field element implementation
func (z *Felt) IsZero() bool {
	return z.val.IsZero()
}
