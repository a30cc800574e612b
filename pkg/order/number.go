package order

import (
	"crypto/rand"
	"math/big"
)

const (
	numberPrefix   = "ORD"
	numberLength   = 10
	numberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NumberGenerator produces candidate order numbers. Uniqueness is enforced
// by the store; callers retry on collision.
type NumberGenerator func() (string, error)

// RandomNumber returns "ORD" followed by 10 random characters from [A-Z0-9].
func RandomNumber() (string, error) {
	max := big.NewInt(int64(len(numberAlphabet)))
	buf := make([]byte, numberLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = numberAlphabet[n.Int64()]
	}
	return numberPrefix + string(buf), nil
}
