package provider

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/duo-labs/webauthn/protocol"
	"github.com/duo-labs/webauthn/webauthn"
)

// SecurityKey implements SecurityKeyProvider on duo-labs/webauthn.
type SecurityKey struct {
	wa *webauthn.WebAuthn
}

func NewSecurityKey(rpID, rpOrigin, rpDisplayName string) (*SecurityKey, error) {
	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: rpDisplayName,
		RPID:          rpID,
		RPOrigin:      rpOrigin,
	})
	if err != nil {
		return nil, fmt.Errorf("configure webauthn: %w", err)
	}
	return &SecurityKey{wa: wa}, nil
}

// waUser adapts a KeyAccount to the library's user interface.
type waUser struct {
	id    string
	name  string
	creds []webauthn.Credential
}

func (u *waUser) WebAuthnID() []byte                         { return []byte(u.id) }
func (u *waUser) WebAuthnName() string                       { return u.name }
func (u *waUser) WebAuthnDisplayName() string                { return u.name }
func (u *waUser) WebAuthnIcon() string                       { return "" }
func (u *waUser) WebAuthnCredentials() []webauthn.Credential { return u.creds }

func (p *SecurityKey) user(acct KeyAccount) (*waUser, error) {
	u := &waUser{id: acct.ID, name: acct.Username}
	for _, raw := range acct.Credentials {
		var cred webauthn.Credential
		if err := json.Unmarshal(raw, &cred); err != nil {
			return nil, fmt.Errorf("%w: decode stored credential: %v", ErrUnavailable, err)
		}
		u.creds = append(u.creds, cred)
	}
	return u, nil
}

func (p *SecurityKey) BeginRegistration(acct KeyAccount) (json.RawMessage, []byte, error) {
	u, err := p.user(acct)
	if err != nil {
		return nil, nil, err
	}

	options, session, err := p.wa.BeginRegistration(u)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: begin registration: %v", ErrUnavailable, err)
	}

	return marshalCeremony(options, session)
}

func (p *SecurityKey) FinishRegistration(acct KeyAccount, sessionData []byte, response []byte) ([]byte, error) {
	u, err := p.user(acct)
	if err != nil {
		return nil, err
	}

	var session webauthn.SessionData
	if err := json.Unmarshal(sessionData, &session); err != nil {
		return nil, fmt.Errorf("%w: decode session data: %v", ErrUnavailable, err)
	}

	// A response that fails to parse is the caller's fault, not ours.
	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(response))
	if err != nil {
		return nil, fmt.Errorf("%w: parse attestation response: %v", ErrVerificationFailed, err)
	}

	cred, err := p.wa.CreateCredential(u, session, parsed)
	if err != nil {
		return nil, fmt.Errorf("%w: validate attestation: %v", ErrVerificationFailed, err)
	}

	out, err := json.Marshal(cred)
	if err != nil {
		return nil, fmt.Errorf("%w: encode credential: %v", ErrUnavailable, err)
	}
	return out, nil
}

func (p *SecurityKey) BeginAssertion(acct KeyAccount) (json.RawMessage, []byte, error) {
	u, err := p.user(acct)
	if err != nil {
		return nil, nil, err
	}

	options, session, err := p.wa.BeginLogin(u)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: begin assertion: %v", ErrUnavailable, err)
	}

	return marshalCeremony(options, session)
}

func (p *SecurityKey) FinishAssertion(acct KeyAccount, sessionData []byte, response []byte) ([]byte, error) {
	u, err := p.user(acct)
	if err != nil {
		return nil, err
	}

	var session webauthn.SessionData
	if err := json.Unmarshal(sessionData, &session); err != nil {
		return nil, fmt.Errorf("%w: decode session data: %v", ErrUnavailable, err)
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(response))
	if err != nil {
		return nil, fmt.Errorf("%w: parse assertion response: %v", ErrVerificationFailed, err)
	}

	cred, err := p.wa.ValidateLogin(u, session, parsed)
	if err != nil {
		return nil, fmt.Errorf("%w: validate assertion: %v", ErrVerificationFailed, err)
	}

	// The credential comes back with an updated sign count; hand it to the
	// caller so the stored key handle stays current.
	out, err := json.Marshal(cred)
	if err != nil {
		return nil, fmt.Errorf("%w: encode credential: %v", ErrUnavailable, err)
	}
	return out, nil
}

func marshalCeremony(options any, session *webauthn.SessionData) (json.RawMessage, []byte, error) {
	opts, err := json.Marshal(options)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: encode options: %v", ErrUnavailable, err)
	}
	sess, err := json.Marshal(session)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: encode session data: %v", ErrUnavailable, err)
	}
	return opts, sess, nil
}
