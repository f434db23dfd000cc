package engine

import (
	"context"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/m-217/useradmin/logger"
)

// DeleteUser removes an account from every subsystem, best effort.
// Resources that are already gone are no-ops; failures are collected
// and reported together so one stuck subsystem does not leave the rest
// provisioned.
func (e *Engine) DeleteUser(ctx context.Context, username string) error {
	log := logger.L()
	log.Infof("deleting user %s", username)

	var result *multierror.Error

	if err := e.Directory.DeleteUser(username); err != nil {
		result = multierror.Append(result, err)
	}
	if err := e.Directory.DeleteGroup(username); err != nil {
		result = multierror.Append(result, err)
	}
	if err := e.Realm.DeletePrincipal(ctx, username); err != nil {
		result = multierror.Append(result, err)
	}
	if err := e.Home.Remove(username); err != nil {
		result = multierror.Append(result, err)
	}

	if err := result.ErrorOrNil(); err != nil {
		return err
	}
	log.Infof("user %s deleted", username)
	return nil
}
