package rides

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"fmt"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

const otpIssuer = "SchoolRun"

// HOTPGenerator issues six digit pickup codes from a fresh random secret
// and counter per ride
type HOTPGenerator struct{}

// NewCode returns a new six digit code
func (HOTPGenerator) NewCode() (string, error) {
	key, err := hotp.Generate(hotp.GenerateOpts{
		Issuer:      otpIssuer,
		AccountName: "pickup",
		SecretSize:  20,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate otp secret: %w", err)
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("failed to generate otp counter: %w", err)
	}

	code, err := hotp.GenerateCodeCustom(key.Secret(), binary.BigEndian.Uint64(buf[:]), hotp.ValidateOpts{
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return code, nil
}

func codesEqual(a, b string) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
