package pylldb

import (
	"math"
	"math/big"
)

// decodeInt implements the PyLongObject layout: a signed size
// field whose sign encodes the number's sign and whose magnitude is the
// digit count, plus a variable-length array of unsigned digits such that
// abs(n) = sum(digit[i] * 2**(shift*i)).
//
// The shift is resolved from the live "digit" C type's size rather than
// hardcoded, so the decoder keeps working on builds where PyLong_SHIFT
// differs.
func decodeInt(v Value) (*big.Int, bool) {
	size, ok := v.Child("ob_base").Child("ob_size").Signed()
	if !ok {
		size, ok = v.Child("ob_size").Signed()
	}
	if !ok {
		return nil, false
	}
	if size == 0 {
		return new(big.Int), true
	}

	shift := digitShift(v.proc)
	digits := v.Child("ob_digit")

	n := size
	neg := false
	if n < 0 {
		neg = true
		n = -n
	}

	abs := new(big.Int)
	term := new(big.Int)
	for i := int64(0); i < n; i++ {
		d, ok := digits.Index(int(i)).Unsigned()
		if !ok {
			return nil, false
		}
		term.Lsh(big.NewInt(int64(d)), uint(shift*i))
		abs.Add(abs, term)
	}
	if neg {
		abs.Neg(abs)
	}
	return abs, true
}

// digitShift returns PyLong_SHIFT: 15 when the build's digit type is 2 bytes
// wide, else 30.
func digitShift(proc Process) int64 {
	if t, ok := proc.TypeByName("digit"); ok && t.Size() == 2 {
		return 15
	}
	return 30
}

// decodeBool implements the PyBoolObject subtype: its decoded value is the
// zeroth digit coerced to a truth value.
func decodeBool(v Value) (bool, bool) {
	digits := v.Child("ob_digit")
	d0, ok := digits.Index(0).Unsigned()
	if !ok {
		return false, false
	}
	return d0 != 0, true
}

// decodeFloat reads the native double carried by a PyFloatObject.
func decodeFloat(v Value) (float64, bool) {
	f := v.Child("ob_fval")
	bits, ok := f.Bytes(8)
	if !ok || len(bits) != 8 {
		return 0, false
	}
	var u uint64
	for i := 7; i >= 0; i-- {
		u = (u << 8) | uint64(bits[i])
	}
	return math.Float64frombits(u), true
}
