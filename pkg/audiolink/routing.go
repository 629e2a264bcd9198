package audiolink

import (
	"sync"

	"go.uber.org/zap"
)

// NodeEntry is a node as presented to a picker
type NodeEntry struct {
	ID          NodeID
	DisplayName string
}

// ManagedLink is a managed link together with the names of both ends
type ManagedLink struct {
	Link       Link
	OutputName string
	InputName  string
}

// RoutingController turns user intents that span many links into sequential
// LinkManager calls
type RoutingController struct {
	logger  *zap.SugaredLogger
	querier GraphQuerier
	links   *LinkManager

	shutdownOnce sync.Once
}

func NewRoutingController(logger *zap.SugaredLogger, querier GraphQuerier, links *LinkManager) *RoutingController {
	logger = logger.Named("routing")

	rc := &RoutingController{
		logger:  logger,
		querier: querier,
		links:   links,
	}

	logger.Debug("Created routing controller instance")

	return rc
}

// BatchCreate links every source to every target and returns how many links
// were created. There is no rollback on partial failure.
func (rc *RoutingController) BatchCreate(sources, targets []NodeID) int {
	created := 0

	for _, source := range sources {
		for _, target := range targets {
			if rc.links.Create(source, target).Succeeded {
				created++
			}
		}
	}

	rc.logger.Infow("Batch create finished",
		"sources", len(sources), "targets", len(targets), "created", created)

	return created
}

// BatchRemove removes the selected links and returns, in input order, the ones
// whose removal succeeded
func (rc *RoutingController) BatchRemove(selected []Link) []Link {
	removed := []Link{}

	for _, link := range selected {
		if rc.links.Remove(link.Output, link.Input).Succeeded {
			removed = append(removed, link)
		}
	}

	rc.logger.Infow("Batch remove finished", "selected", len(selected), "removed", len(removed))

	return removed
}

// ShutdownCleanup removes all managed links. Only the first call does anything.
func (rc *RoutingController) ShutdownCleanup() {
	rc.shutdownOnce.Do(func() {
		rc.logger.Info("Cleaning up managed links before exit")
		rc.links.RemoveAll()
	})
}

func (rc *RoutingController) ListApplications() []NodeEntry {
	entries := []NodeEntry{}

	for _, node := range rc.querier.Snapshot().Applications() {
		entries = append(entries, NodeEntry{ID: node.ID, DisplayName: node.DisplayName()})
	}

	return entries
}

func (rc *RoutingController) ListCaptureTargets() []NodeEntry {
	entries := []NodeEntry{}

	for _, node := range rc.querier.Snapshot().CaptureTargets() {
		entries = append(entries, NodeEntry{ID: node.ID, DisplayName: node.Name})
	}

	return entries
}

// ListManagedLinks returns managed links in creation order. Names come from a
// single fresh snapshot; nodes that have gone away get a placeholder.
func (rc *RoutingController) ListManagedLinks() []ManagedLink {
	managed := rc.links.Links()
	if len(managed) == 0 {
		return []ManagedLink{}
	}

	snapshot := rc.querier.Snapshot()
	nameOf := func(id NodeID) string {
		if node, ok := snapshot.Node(id); ok {
			return node.Name
		}

		return unknownNodeName(id)
	}

	entries := make([]ManagedLink, 0, len(managed))
	for _, link := range managed {
		entries = append(entries, ManagedLink{
			Link:       link,
			OutputName: nameOf(link.Output),
			InputName:  nameOf(link.Input),
		})
	}

	return entries
}
