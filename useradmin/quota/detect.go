package quota

import (
	"context"
	"strings"

	"github.com/m-217/useradmin/logger"
	cm "github.com/m-217/useradmin/useradmin/commandmanager"
)

// DefaultFilesystemType is assumed whenever detection fails or reports
// a filesystem the quota backends do not support.
const DefaultFilesystemType = "ext4"

var supportedFilesystems = map[string]bool{
	"xfs":  true,
	"ext4": true,
	"ext3": true,
	"ext2": true,
}

// DetectFilesystemType queries the mount table for path and returns the
// filesystem type, falling back to DefaultFilesystemType on any tool or
// parse failure.
func DetectFilesystemType(ctx context.Context, runner cm.Runner, path string) string {
	log := logger.L()

	result, err := runner.Run(ctx, cm.CommandConfig{
		Command: "df",
		Args:    []string{"-T", path},
	})
	if err == nil && result.ExitCode == 0 {
		lines := strings.Split(strings.TrimSpace(result.STDOUT), "\n")
		if len(lines) >= 2 {
			fields := strings.Fields(lines[1])
			if len(fields) >= 2 {
				fsType := strings.ToLower(fields[1])
				if supportedFilesystems[fsType] {
					log.Debugf("detected filesystem type %s for %s", fsType, path)
					return fsType
				}
				log.Debugf("unsupported filesystem type %s for %s", fsType, path)
			}
		}
	} else if err != nil {
		log.Debugf("filesystem type detection failed for %s: %v", path, err)
	} else {
		log.Debugf("filesystem type detection failed for %s: df exited %d: %s",
			path, result.ExitCode, strings.TrimSpace(result.STDERR))
	}

	log.Debugf("using default filesystem type %s for %s", DefaultFilesystemType, path)
	return DefaultFilesystemType
}
