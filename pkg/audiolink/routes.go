package audiolink

import (
	"strings"

	"github.com/thoas/go-funk"
)

// Route declares which applications should be linked into which capture targets.
// Entries are name patterns, see matchNodeToPattern.
type Route struct {
	Sources []string `mapstructure:"sources"`
	Targets []string `mapstructure:"targets"`
}

const matchAllPattern = "*"

// ApplyRoutes links currently present nodes according to routes and returns the
// number of links created. Links that already exist are skipped.
func (rc *RoutingController) ApplyRoutes(routes []Route) int {
	if len(routes) == 0 {
		return 0
	}

	snapshot := rc.querier.Snapshot()
	applications := snapshot.Applications()
	targets := snapshot.CaptureTargets()

	created := 0

	for idx, route := range routes {
		sourceIDs := matchNodes(applications, route.Sources)
		targetIDs := matchNodes(targets, route.Targets)

		if len(sourceIDs) == 0 || len(targetIDs) == 0 {
			rc.logger.Debugw("Route has nothing to link right now",
				"route", idx, "sources", len(sourceIDs), "targets", len(targetIDs))
			continue
		}

		created += rc.BatchCreate(sourceIDs, targetIDs)
	}

	rc.logger.Infow("Applied routes", "routes", len(routes), "created", created)

	return created
}

func normalizePatterns(patterns []string) []string {
	normalized := make([]string, 0, len(patterns))

	for _, pattern := range patterns {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern != "" {
			normalized = append(normalized, pattern)
		}
	}

	return funk.UniqString(normalized)
}

func matchNodes(nodes []Node, patterns []string) []NodeID {
	patterns = normalizePatterns(patterns)
	ids := []NodeID{}

	for _, node := range nodes {
		for _, pattern := range patterns {
			if matchNodeToPattern(node, pattern) {
				ids = append(ids, node.ID)
				break
			}
		}
	}

	return funk.Uniq(ids).([]NodeID)
}

// patterns are expected to be lowercased already
func matchNodeToPattern(node Node, pattern string) bool {
	if pattern == matchAllPattern {
		return true
	}

	name := strings.ToLower(node.Name)
	displayName := strings.ToLower(node.DisplayName())

	return name == pattern || strings.Contains(displayName, pattern)
}
