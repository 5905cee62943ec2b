package provider

import (
	"fmt"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTP implements TOTPProvider on pquerna/otp with the parameters every
// mainstream authenticator app expects: 30 second period, 6 digits, SHA1.
type TOTP struct {
	Issuer string // shown in the authenticator app (e.g., "Copperline")
}

func (p *TOTP) GenerateSecret(accountName string) (TOTPSecret, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      p.Issuer,
		AccountName: accountName,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return TOTPSecret{}, fmt.Errorf("%w: generate totp key: %v", ErrUnavailable, err)
	}

	return TOTPSecret{
		Secret: key.Secret(),
		URL:    key.URL(),
	}, nil
}

func (p *TOTP) CheckCode(secret, code string) error {
	if !totp.Validate(code, secret) {
		return ErrVerificationFailed
	}
	return nil
}
