package quota

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-217/useradmin/logger"
	cm "github.com/m-217/useradmin/useradmin/commandmanager"
)

// xfsManager drives xfs_quota. Limits are set in one combined command;
// usage reporting needs two invocations because block and inode reports
// are separate subcommands.
type xfsManager struct {
	runner cm.Runner
	path   string
	limits Limits
}

// Header and separator tokens in xfs_quota report output, plus the
// superuser row, none of which describe a managed account.
var xfsSkipTokens = map[string]bool{
	"User":       true,
	"----------": true,
	"root":       true,
}

func (m *xfsManager) SetUserQuota(ctx context.Context, username string) bool {
	log := logger.L()

	limitCmd := fmt.Sprintf("limit bsoft=%s bhard=%s isoft=%s ihard=%s %s",
		m.limits.Soft, m.limits.Hard, m.limits.InodeSoft, m.limits.InodeHard, username)

	result, err := m.runner.Run(ctx, cm.CommandConfig{
		Command: "xfs_quota",
		Args:    []string{"-x", "-c", limitCmd, m.path},
	})
	if err != nil {
		log.Errorf("failed to run xfs_quota: %v", err)
		return false
	}
	if result.ExitCode != 0 {
		log.Errorf("failed to set quota for %s: %s", username, result.STDERR)
		return false
	}

	log.Infof("quota set for user %s on xfs", username)
	return true
}

func (m *xfsManager) FetchAllQuotas(ctx context.Context) Report {
	report := Report{}
	m.mergeReport(ctx, "report -h", report, func(rec *Record, u Usage) { rec.Blocks = &u })
	m.mergeReport(ctx, "report -h -i", report, func(rec *Record, u Usage) { rec.Inodes = &u })
	return report
}

func (m *xfsManager) FetchUserQuota(ctx context.Context, username string) string {
	return m.FetchAllQuotas(ctx).Render(username)
}

// mergeReport runs one xfs_quota report subcommand and folds its rows
// into the shared report via assign.
func (m *xfsManager) mergeReport(ctx context.Context, reportCmd string, report Report, assign func(*Record, Usage)) {
	log := logger.L()

	result, err := m.runner.Run(ctx, cm.CommandConfig{
		Command: "xfs_quota",
		Args:    []string{"-x", "-c", reportCmd, m.path},
	})
	if err != nil || result.ExitCode != 0 {
		log.Debugf("xfs_quota %q failed on %s: %v %s", reportCmd, m.path, err, result.STDERR)
		return
	}

	for _, line := range strings.Split(strings.TrimSpace(result.STDOUT), "\n") {
		username, usage, ok := parseXFSRow(line)
		if !ok {
			continue
		}
		rec := report[username]
		rec.Username = username
		rec.Kind = KindXFS
		assign(&rec, usage)
		report[username] = rec
	}
}

// parseXFSRow extracts a used/soft/hard triple from one report row.
// Rows with fewer than 5 columns, header rows, and the root row are
// skipped.
func parseXFSRow(line string) (string, Usage, bool) {
	fields := strings.Fields(line)
	if len(fields) < 5 || xfsSkipTokens[fields[0]] {
		return "", Usage{}, false
	}
	return fields[0], Usage{Used: fields[1], Soft: fields[2], Hard: fields[3]}, true
}
