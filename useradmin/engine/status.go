package engine

import (
	"context"

	"github.com/m-217/useradmin/logger"
	"github.com/m-217/useradmin/useradmin/directory"
)

// UserStatus is the composite read-only view of one account across the
// subsystems, assembled only for detailed listings.
type UserStatus struct {
	Entry directory.UserEntry

	// Detailed-only fields.
	Kerberos bool
	HomeDir  bool
	Quota    string
}

// ListUsers returns every directory account. With detailed set, each
// entry also carries the credential, home directory, and quota status.
// The quota report is fetched once for the whole listing, never
// per-user.
func (e *Engine) ListUsers(ctx context.Context, detailed bool) ([]UserStatus, error) {
	log := logger.L()

	entries, err := e.Directory.ListUsers()
	if err != nil {
		return nil, err
	}
	log.Infof("found %d directory entries", len(entries))

	var report map[string]string
	if detailed {
		quotas := e.Quota.FetchAllQuotas(ctx)
		report = make(map[string]string, len(entries))
		for _, entry := range entries {
			report[entry.Username] = quotas.Render(entry.Username)
		}
	}

	statuses := make([]UserStatus, 0, len(entries))
	for _, entry := range entries {
		status := UserStatus{Entry: entry}
		if detailed {
			status.Kerberos = e.Realm.CheckPrincipal(ctx, entry.Username)
			status.HomeDir = e.Home.Exists(entry.Username)
			status.Quota = report[entry.Username]
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
