package secrets

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// Kind identifies which secret is being requested.
type Kind string

const (
	// LDAPBind is the directory service bind password.
	LDAPBind Kind = "LDAP"
	// KadminPassword is the realm admin password.
	KadminPassword Kind = "kadmin"
)

// Provider supplies secrets on demand so business logic never talks to
// a terminal directly.
type Provider interface {
	Get(kind Kind) (string, error)
}

// TerminalProvider prompts for secrets on the controlling terminal and
// caches each answer so a batch run asks at most once per kind.
type TerminalProvider struct {
	cache map[Kind]string
}

func NewTerminalProvider() *TerminalProvider {
	return &TerminalProvider{cache: make(map[Kind]string)}
}

func (p *TerminalProvider) Get(kind Kind) (string, error) {
	if v, ok := p.cache[kind]; ok {
		return v, nil
	}

	fmt.Printf("Enter the %s password: ", kind)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read %s password: %w", kind, err)
	}

	p.cache[kind] = string(b)
	return string(b), nil
}

// Static returns a provider backed by a fixed map, for configured
// passwords and for tests.
type Static map[Kind]string

func (s Static) Get(kind Kind) (string, error) {
	v, ok := s[kind]
	if !ok {
		return "", fmt.Errorf("no %s secret configured", kind)
	}
	return v, nil
}

// Layered consults providers in order until one succeeds. It is used to
// prefer config-file passwords and fall back to the terminal prompt.
type Layered []Provider

func (l Layered) Get(kind Kind) (string, error) {
	var lastErr error
	for _, p := range l {
		v, err := p.Get(kind)
		if err == nil && v != "" {
			return v, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", fmt.Errorf("no provider supplied a %s secret", kind)
}
