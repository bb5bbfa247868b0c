package security

import (
	"crypto/rand"
	"math/big"
)

// RandomDigits returns a uniformly random n-digit numeric string with a
// non-zero leading digit, e.g. n=6 yields a value in [100000, 999999].
func RandomDigits(n int) (string, error) {
	if n <= 0 {
		n = 6
	}
	low := big.NewInt(1)
	for i := 1; i < n; i++ {
		low.Mul(low, big.NewInt(10))
	}
	span := new(big.Int).Mul(low, big.NewInt(9))
	v, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return v.Add(v, low).String(), nil
}

const referralAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// ReferralCode returns an 8-character code over an alphabet that avoids
// the easily confused characters.
func ReferralCode() (string, error) {
	out := make([]byte, 8)
	for i := range out {
		v, err := rand.Int(rand.Reader, big.NewInt(int64(len(referralAlphabet))))
		if err != nil {
			return "", err
		}
		out[i] = referralAlphabet[v.Int64()]
	}
	return string(out), nil
}
