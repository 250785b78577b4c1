package pkg

import (
	"crypto/rand"
	"time"
)

const CODE_ALPHABET = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// largest multiple of len(CODE_ALPHABET) that fits in a byte
const codeByteCeiling = 252

// GenVoucherCode returns a random code of the given length drawn uniformly
// from CODE_ALPHABET.
func GenVoucherCode(length int) (string, error) {
	code := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(code) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= codeByteCeiling {
				continue
			}
			code = append(code, CODE_ALPHABET[int(b)%len(CODE_ALPHABET)])
			if len(code) == length {
				break
			}
		}
	}
	return string(code), nil
}

func GetFirstTimeOfCurrentDay(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
