package engine

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/m-217/useradmin/logger"
)

// ProcessFile streams a user manifest through Provision, one line at a
// time. Blank lines and #-comments are ignored; malformed lines are
// skipped with a warning and never stop the run. An unreadable file is
// reported and yields an empty result map.
//
// Manifest line format (whitespace separated):
//
//	uid groups username surname firstname password
//
// where groups is a comma-separated list.
func (e *Engine) ProcessFile(ctx context.Context, path string, steps []Step) map[string]bool {
	log := logger.L()
	results := map[string]bool{}

	f, err := os.Open(path)
	if err != nil {
		log.Errorf("cannot read user file %s: %v", path, err)
		return results
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		spec, ok := parseManifestLine(line, lineNum, steps)
		if !ok {
			continue
		}

		result := e.Provision(ctx, spec)
		results[spec.Username] = result.Overall()
	}
	if err := scanner.Err(); err != nil {
		log.Errorf("error reading user file %s: %v", path, err)
	}

	return results
}

func parseManifestLine(line string, lineNum int, steps []Step) (Spec, bool) {
	log := logger.L()

	parts := strings.Fields(line)
	if len(parts) != 6 {
		log.Warnf("line %d: expected 6 fields, got %d", lineNum, len(parts))
		return Spec{}, false
	}

	uid, err := strconv.Atoi(parts[0])
	if err != nil {
		log.Warnf("line %d: uid %q is not an integer", lineNum, parts[0])
		return Spec{}, false
	}

	groups := []string{}
	for _, g := range strings.Split(parts[1], ",") {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}

	return Spec{
		UID:       uid,
		Groups:    groups,
		Username:  parts[2],
		Surname:   parts[3],
		Firstname: parts[4],
		Password:  parts[5],
		Steps:     steps,
	}, true
}
