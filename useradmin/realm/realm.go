package realm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/m-217/useradmin/logger"
	cm "github.com/m-217/useradmin/useradmin/commandmanager"
	"github.com/m-217/useradmin/useradmin/secrets"
)

// Manager encompasses principal operations against the realm
// credential store.
type Manager interface {
	// AddPrincipal creates username@REALM with the given password.
	AddPrincipal(ctx context.Context, username, password string) error

	// DeletePrincipal removes username@REALM. A missing principal is
	// not an error.
	DeletePrincipal(ctx context.Context, username string) error

	// CheckPrincipal reports whether username@REALM exists. It never
	// errors; absence and tool failures are both false.
	CheckPrincipal(ctx context.Context, username string) bool
}

// KadminManager drives the kadmin tool. When check_method is
// kadmin.local and the process runs as root, existence checks go
// through kadmin.local and need no admin credentials.
type KadminManager struct {
	Runner         cm.Runner
	Realm          string
	AdminPrincipal string
	CheckMethod    string
	Secrets        secrets.Provider

	// euid is swappable in tests.
	euid func() int
}

func NewKadminManager(runner cm.Runner, realm, adminPrincipal, checkMethod string, provider secrets.Provider) *KadminManager {
	return &KadminManager{
		Runner:         runner,
		Realm:          realm,
		AdminPrincipal: adminPrincipal,
		CheckMethod:    checkMethod,
		Secrets:        provider,
		euid:           os.Geteuid,
	}
}

// Principal returns the full principal name for a username.
func (m *KadminManager) Principal(username string) string {
	return fmt.Sprintf("%s@%s", username, m.Realm)
}

func (m *KadminManager) AddPrincipal(ctx context.Context, username, password string) error {
	log := logger.L()

	result, err := m.runKadmin(ctx, fmt.Sprintf("addprinc -pw %q %s", password, m.Principal(username)))
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("adding principal %s: %s", m.Principal(username), result.STDERR)
	}

	log.Infof("principal %s created", m.Principal(username))
	return nil
}

func (m *KadminManager) DeletePrincipal(ctx context.Context, username string) error {
	log := logger.L()

	result, err := m.runKadmin(ctx, fmt.Sprintf("delprinc -force %s", m.Principal(username)))
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		// kadmin exits non-zero for a principal that never existed;
		// deletion treats that as a no-op.
		log.Debugf("delprinc %s: %s", m.Principal(username), result.STDERR)
	} else {
		log.Infof("principal %s deleted", m.Principal(username))
	}
	return nil
}

func (m *KadminManager) CheckPrincipal(ctx context.Context, username string) bool {
	log := logger.L()
	principal := m.Principal(username)
	query := fmt.Sprintf("getprinc %s", principal)

	var result cm.CommandResult
	var err error
	if m.CheckMethod == "kadmin.local" && m.euid() == 0 {
		result, err = m.Runner.Run(ctx, cm.CommandConfig{
			Command: "kadmin.local",
			Args:    []string{"-q", query},
		})
	} else {
		result, err = m.runKadmin(ctx, query)
	}
	if err != nil {
		log.Debugf("principal check for %s failed: %v", principal, err)
		return false
	}
	if result.ExitCode != 0 {
		log.Debugf("principal check for %s exited %d: %s", principal, result.ExitCode, result.STDERR)
		return false
	}

	// A zero exit alone is not proof: a misformatted query can succeed
	// with an empty body. Require the principal line in the response.
	marker := fmt.Sprintf("Principal: %s", principal)
	return strings.Contains(result.STDOUT, marker)
}

func (m *KadminManager) runKadmin(ctx context.Context, query string) (cm.CommandResult, error) {
	password, err := m.Secrets.Get(secrets.KadminPassword)
	if err != nil {
		return cm.CommandResult{}, fmt.Errorf("getting kadmin password: %w", err)
	}

	// The admin password goes on stdin, where kadmin prompts for it;
	// passing it via -w would expose it in the process table.
	return m.Runner.Run(ctx, cm.CommandConfig{
		Command: "kadmin",
		Args:    []string{"-p", m.AdminPrincipal, "-q", query},
		Stdin:   password + "\n",
	})
}
