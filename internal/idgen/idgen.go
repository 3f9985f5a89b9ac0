// Package idgen produces opaque ids and human-facing codes for the state
// document. Uniqueness is probabilistic-with-retry: there is no central
// sequence, so generators retry against a caller-supplied used set a bounded
// number of times and callers re-validate when the invariant is hard.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	// barcodeAttempts bounds barcode retries against the used set.
	barcodeAttempts = 500
	// opCodeAttempts bounds operation code retries against the used set.
	opCodeAttempts = 1000
)

// NewID returns "<prefix>_<micros base36>_<8 hex chars>". No uniqueness
// check is performed; the time component plus 4 random bytes make
// collisions negligible.
func NewID(prefix string) string {
	micros := time.Now().UnixMicro()
	return prefix + "_" + strconv.FormatInt(micros, 36) + "_" + randomHex(4)
}

// RawOperationCode returns an unchecked "OP-XXXX" candidate code.
func RawOperationCode() string {
	return "OP-" + strings.ToUpper(randomHex(2))
}

// NewOperationCode returns a candidate operation code not present in used,
// retrying up to 1000 times. After the retry budget is exhausted the last
// candidate is returned even if it collides; callers must re-check and treat
// a remaining collision as a fatal conflict.
func NewOperationCode(used map[string]struct{}) string {
	code := RawOperationCode()
	for attempt := 0; attempt < opCodeAttempts; attempt++ {
		if _, taken := used[code]; !taken {
			break
		}
		code = RawOperationCode()
	}
	return code
}

// EAN13CheckDigit computes the standard EAN-13 check digit for a 12-digit
// base string: digits at odd 1-based positions weight 1, even positions
// weight 3, check digit = (10 - total mod 10) mod 10.
func EAN13CheckDigit(base12 string) byte {
	sumOdd, sumEven := 0, 0
	for i := 0; i < 12; i++ {
		digit := int(base12[i] - '0')
		if (i+1)%2 == 0 {
			sumEven += digit
		} else {
			sumOdd += digit
		}
	}
	mod := (sumOdd + sumEven*3) % 10
	return byte('0' + (10-mod)%10)
}

// NewBarcode returns a 13-digit EAN-13 barcode avoiding the used set,
// retrying up to 500 times before returning a possibly-colliding value as a
// last resort.
func NewBarcode(used map[string]struct{}) string {
	for attempt := 0; attempt < barcodeAttempts; attempt++ {
		code := randomEAN13()
		if _, taken := used[code]; !taken {
			return code
		}
	}
	return randomEAN13()
}

func randomEAN13() string {
	var b strings.Builder
	b.Grow(13)
	for i := 0; i < 12; i++ {
		b.WriteByte(randomDigit())
	}
	base := b.String()
	return base + string(EAN13CheckDigit(base))
}

func randomDigit() byte {
	n, err := rand.Int(rand.Reader, big.NewInt(10))
	if err != nil {
		// crypto/rand failing means the process has no entropy source at
		// all; fall back to the clock rather than panic.
		return byte('0' + time.Now().UnixNano()%10)
	}
	return byte('0' + n.Int64())
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 16)[:n*2]
	}
	return hex.EncodeToString(buf)
}
