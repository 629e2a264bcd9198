package audiolink

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrLinkExists means the graph already holds the requested link
	ErrLinkExists = errors.New("link already exists")

	// ErrCommandFailed means the link tool ran but exited non-zero
	ErrCommandFailed = errors.New("link command failed")

	// ErrCommandSpawn means the link tool could not be started
	ErrCommandSpawn = errors.New("link command could not be started")

	// ErrClosed means RemoveAll already ran and no new links are accepted
	ErrClosed = errors.New("link manager is closed")
)

// Result is the outcome of a single link mutation. Cause is diagnostic only
// and is nil when Succeeded is true.
type Result struct {
	Succeeded bool
	Cause     error
}

func succeeded() Result {
	return Result{Succeeded: true}
}

func failed(cause error) Result {
	return Result{Cause: cause}
}

// LinkManager owns the registry of application-managed links and is the only
// thing that mutates the graph
type LinkManager struct {
	logger *zap.SugaredLogger

	querier  GraphQuerier
	runner   CommandRunner
	linkTool string

	registry *LinkRegistry
	lock     sync.Locker

	// set by RemoveAll, nothing may be created afterwards
	closed bool
}

func NewLinkManager(logger *zap.SugaredLogger, querier GraphQuerier, runner CommandRunner, linkTool string) *LinkManager {
	logger = logger.Named("links")

	m := &LinkManager{
		logger:   logger,
		querier:  querier,
		runner:   runner,
		linkTool: linkTool,
		registry: newLinkRegistry(),
		lock:     &sync.Mutex{},
	}

	logger.Debugw("Created link manager instance", "linkTool", linkTool)

	return m
}

// Exists reports whether the graph currently holds the exact link.
// A failed graph query reads as false.
func (m *LinkManager) Exists(output, input NodeID) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.exists(output, input)
}

func (m *LinkManager) exists(output, input NodeID) bool {
	return m.querier.Snapshot().HasLink(output, input)
}

// Create links output to input unless that link is already present in the graph
func (m *LinkManager) Create(output, input NodeID) Result {
	m.lock.Lock()
	defer m.lock.Unlock()

	link := Link{Output: output, Input: input}

	if m.closed {
		m.logger.Debugw("Link manager closed, not creating", "link", link)
		return failed(fmt.Errorf("create %s: %w", link, ErrClosed))
	}

	if m.exists(output, input) {
		m.logger.Debugw("Link already present, not creating", "link", link)
		return failed(fmt.Errorf("create %s: %w", link, ErrLinkExists))
	}

	if err := m.runLinkTool(nodeArg(output), nodeArg(input)); err != nil {
		m.logger.Warnw("Failed to create link", "link", link, "error", err)
		return failed(fmt.Errorf("create %s: %w", link, err))
	}

	m.registry.Add(link)
	m.logger.Infow("Created link", "link", link, "registry", m.registry)

	return succeeded()
}

// Remove deletes the link from the graph. A registry entry is dropped if
// there is one; the link does not have to be managed by us.
func (m *LinkManager) Remove(output, input NodeID) Result {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.remove(Link{Output: output, Input: input})
}

func (m *LinkManager) remove(link Link) Result {
	if err := m.runLinkTool("-d", nodeArg(link.Output), nodeArg(link.Input)); err != nil {
		m.logger.Warnw("Failed to remove link", "link", link, "error", err)
		return failed(fmt.Errorf("remove %s: %w", link, err))
	}

	if !m.registry.Erase(link) {
		m.logger.Debugw("Removed link was not managed by us", "link", link)
	}

	m.logger.Infow("Removed link", "link", link, "registry", m.registry)

	return succeeded()
}

// RemoveAll attempts to remove every managed link in insertion order and then
// forgets all of them, whether or not their removal worked. The manager is
// closed afterwards: Create fails with ErrClosed, Remove still works.
func (m *LinkManager) RemoveAll() {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.closed = true

	links := m.registry.Links()
	m.logger.Debugw("Removing all managed links", "count", len(links))

	failures := 0
	for _, link := range links {
		if result := m.remove(link); !result.Succeeded {
			failures++
		}
	}

	m.registry.Clear()

	if failures > 0 {
		m.logger.Warnw("Some managed links could not be removed", "failed", failures, "total", len(links))
	} else {
		m.logger.Infow("Removed all managed links", "total", len(links))
	}
}

// Links returns the managed links in insertion order
func (m *LinkManager) Links() []Link {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.registry.Links()
}

func (m *LinkManager) runLinkTool(args ...string) error {
	result, err := m.runner.Run(m.linkTool, args...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCommandSpawn, err)
	}

	if !result.Success() {
		return fmt.Errorf("%w: exit status %d: %s",
			ErrCommandFailed, result.ExitCode, strings.TrimSpace(string(result.Stderr)))
	}

	return nil
}

func nodeArg(id NodeID) string {
	return strconv.FormatUint(uint64(id), 10)
}
