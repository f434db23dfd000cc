package quota

import (
	"context"
	"strings"

	"github.com/m-217/useradmin/logger"
	cm "github.com/m-217/useradmin/useradmin/commandmanager"
)

// genericManager drives setquota/quota, which cover ext2/3/4 and any
// other filesystem with standard quota support. A single report call
// exposes both block and inode usage.
type genericManager struct {
	runner cm.Runner
	path   string
	limits Limits
}

var genericSkipTokens = map[string]bool{
	"Filesystem": true,
	"root":       true,
}

func (m *genericManager) SetUserQuota(ctx context.Context, username string) bool {
	log := logger.L()

	result, err := m.runner.Run(ctx, cm.CommandConfig{
		Command: "setquota",
		Args: []string{
			"-u", username,
			m.limits.Soft, m.limits.Hard, m.limits.InodeSoft, m.limits.InodeHard,
			m.path,
		},
	})
	if err != nil {
		log.Errorf("failed to run setquota: %v", err)
		return false
	}
	if result.ExitCode != 0 {
		log.Errorf("failed to set quota for %s: %s", username, result.STDERR)
		return false
	}

	log.Infof("quota set for user %s", username)
	return true
}

func (m *genericManager) FetchAllQuotas(ctx context.Context) Report {
	log := logger.L()
	report := Report{}

	result, err := m.runner.Run(ctx, cm.CommandConfig{
		Command: "quota",
		Args:    []string{"-a"},
	})
	if err != nil || result.ExitCode != 0 {
		log.Debugf("quota -a failed: %v %s", err, result.STDERR)
		return report
	}

	for _, line := range strings.Split(strings.TrimSpace(result.STDOUT), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 6 || genericSkipTokens[fields[0]] {
			continue
		}
		report[fields[0]] = Record{
			Username: fields[0],
			Kind:     KindGeneric,
			Blocks:   &Usage{Used: fields[1], Soft: fields[2]},
			Inodes:   &Usage{Used: fields[4], Soft: fields[5]},
		}
	}
	return report
}

func (m *genericManager) FetchUserQuota(ctx context.Context, username string) string {
	log := logger.L()

	result, err := m.runner.Run(ctx, cm.CommandConfig{
		Command: "quota",
		Args:    []string{"-u", username},
	})
	if err != nil || result.ExitCode != 0 {
		log.Debugf("quota -u %s failed: %v %s", username, err, result.STDERR)
		return NotSet
	}

	// The per-user tool prints two header lines, then one row per
	// filesystem; the first row covers the home filesystem.
	lines := strings.Split(strings.TrimSpace(result.STDOUT), "\n")
	if len(lines) < 3 {
		return NotSet
	}

	fields := strings.Fields(lines[2])
	switch {
	case len(fields) >= 6:
		rec := Record{
			Username: username,
			Kind:     KindGeneric,
			Blocks:   &Usage{Used: fields[1], Soft: fields[2]},
			Inodes:   &Usage{Used: fields[4], Soft: fields[5]},
		}
		return rec.String()
	case len(fields) >= 4:
		rec := Record{
			Username: username,
			Kind:     KindGeneric,
			Blocks:   &Usage{Used: fields[1], Soft: fields[2]},
		}
		return rec.String()
	}
	return NotSet
}
