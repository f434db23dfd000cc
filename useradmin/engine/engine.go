package engine

import (
	"context"
	"fmt"
	"os"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/m-217/useradmin/logger"
	"github.com/m-217/useradmin/useradmin/directory"
	"github.com/m-217/useradmin/useradmin/quota"
)

// Step names one provisioning subsystem.
type Step string

const (
	StepLDAP     Step = "ldap"
	StepKerberos Step = "kerberos"
	StepHome     Step = "home"
	StepQuota    Step = "quota"
)

// stepOrder is the fixed execution order; the order steps were
// requested in never matters.
var stepOrder = []Step{StepLDAP, StepKerberos, StepHome, StepQuota}

// AllSteps returns every provisioning step in execution order.
func AllSteps() []Step {
	return append([]Step(nil), stepOrder...)
}

// ParseStep validates a step name from the CLI or a manifest.
func ParseStep(name string) (Step, error) {
	s := Step(name)
	for _, known := range stepOrder {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown step %q", name)
}

// Outcome is the per-step result of a provisioning attempt.
type Outcome string

const (
	Succeeded Outcome = "succeeded"
	Failed    Outcome = "failed"
	Skipped   Outcome = "skipped"
)

// Result maps every step to its outcome for one provisioning attempt.
type Result map[Step]Outcome

// Overall reports whether every requested (non-skipped) step succeeded.
func (r Result) Overall() bool {
	for _, outcome := range r {
		if outcome == Failed {
			return false
		}
	}
	return true
}

// Err aggregates the failed steps into one error, or nil when the
// attempt succeeded.
func (r Result) Err() error {
	var result *multierror.Error
	for _, step := range stepOrder {
		if r[step] == Failed {
			result = multierror.Append(result, fmt.Errorf("step %s failed", step))
		}
	}
	return result.ErrorOrNil()
}

// Spec describes one provisioning attempt. It is consumed exactly once.
type Spec struct {
	UID       int
	Username  string
	Surname   string
	Firstname string
	Password  string
	Groups    []string
	Steps     []Step
}

// HomeManager is the home directory collaborator the engine needs.
type HomeManager interface {
	Create(username string, mode os.FileMode) error
	Exists(username string) bool
	Remove(username string) error
}

// RealmManager is the credential store collaborator the engine needs.
type RealmManager interface {
	AddPrincipal(ctx context.Context, username, password string) error
	DeletePrincipal(ctx context.Context, username string) error
	CheckPrincipal(ctx context.Context, username string) bool
}

// Engine orchestrates provisioning steps across the four subsystems.
// The subsystems are independent, so a failing step never aborts the
// later ones: when one subsystem is down, the others still converge and
// a re-run completes the rest.
type Engine struct {
	Directory directory.Manager
	Realm     RealmManager
	Home      HomeManager
	Quota     quota.Manager

	// HomeMode is the permission mode applied to new home directories.
	HomeMode os.FileMode
}

// Provision runs the requested steps for one user in the fixed order
// and returns the per-step outcomes. Steps not requested are recorded
// as skipped.
func (e *Engine) Provision(ctx context.Context, spec Spec) Result {
	log := logger.L()
	log.Infof("provisioning user %s", spec.Username)

	requested := make(map[Step]bool, len(spec.Steps))
	for _, s := range spec.Steps {
		requested[s] = true
	}

	operations := []struct {
		step Step
		run  func() error
	}{
		{StepLDAP, func() error { return e.provisionDirectory(spec) }},
		{StepKerberos, func() error { return e.Realm.AddPrincipal(ctx, spec.Username, spec.Password) }},
		{StepHome, func() error { return e.Home.Create(spec.Username, e.HomeMode) }},
		{StepQuota, func() error { return e.provisionQuota(ctx, spec.Username) }},
	}

	result := Result{}
	for _, op := range operations {
		if !requested[op.step] {
			result[op.step] = Skipped
			continue
		}
		if err := op.run(); err != nil {
			log.Errorf("step %s failed for %s: %v", op.step, spec.Username, err)
			result[op.step] = Failed
			continue
		}
		result[op.step] = Succeeded
	}

	if result.Overall() {
		log.Infof("user %s provisioned", spec.Username)
	}
	return result
}

// provisionDirectory creates the primary group, the user entry, and the
// secondary group memberships. It is idempotent: an existing user is a
// logged no-op, and secondary groups that do not exist are skipped
// rather than created.
func (e *Engine) provisionDirectory(spec Spec) error {
	log := logger.L()

	exists, err := e.Directory.UserExists(spec.Username)
	if err != nil {
		return fmt.Errorf("checking user %s: %w", spec.Username, err)
	}
	if exists {
		log.Warnf("user %s already exists in the directory", spec.Username)
		return nil
	}

	groupExists, err := e.Directory.GroupExists(spec.Username)
	if err != nil {
		return fmt.Errorf("checking group %s: %w", spec.Username, err)
	}
	if !groupExists {
		if err := e.Directory.AddGroup(spec.Username, spec.UID, spec.Username); err != nil {
			return fmt.Errorf("creating primary group %s: %w", spec.Username, err)
		}
	}

	if err := e.Directory.AddUser(directory.NewUser{
		UID:       spec.UID,
		Username:  spec.Username,
		Surname:   spec.Surname,
		Firstname: spec.Firstname,
	}); err != nil {
		return fmt.Errorf("creating user %s: %w", spec.Username, err)
	}

	for _, group := range spec.Groups {
		if group == spec.Username {
			continue
		}
		if err := e.Directory.AddGroupMember(group, spec.Username); err != nil {
			return fmt.Errorf("adding %s to group %s: %w", spec.Username, group, err)
		}
	}
	return nil
}

func (e *Engine) provisionQuota(ctx context.Context, username string) error {
	if !e.Quota.SetUserQuota(ctx, username) {
		return fmt.Errorf("quota backend reported failure for %s", username)
	}
	return nil
}
