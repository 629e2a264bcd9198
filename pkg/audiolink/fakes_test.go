package audiolink

import (
	"errors"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

type runnerCall struct {
	Name string
	Args []string
}

// fakeGraph is an in-memory PipeWire graph that answers both snapshot queries
// and pw-link invocations
type fakeGraph struct {
	mu sync.Mutex

	nodes []Node
	links []Link

	queryDown  bool
	spawnFails bool
	failCreate map[Link]bool
	failRemove map[Link]bool

	calls     []runnerCall
	snapshots int
}

func newFakeGraph(nodes ...Node) *fakeGraph {
	return &fakeGraph{
		nodes:      nodes,
		failCreate: map[Link]bool{},
		failRemove: map[Link]bool{},
	}
}

func (g *fakeGraph) Snapshot() *Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.snapshots++

	if g.queryDown {
		return &Snapshot{Nodes: []Node{}, Links: []Link{}}
	}

	return &Snapshot{
		Nodes: append([]Node{}, g.nodes...),
		Links: append([]Link{}, g.links...),
	}
}

func (g *fakeGraph) Run(name string, args ...string) (*CommandResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, runnerCall{Name: name, Args: args})

	if g.spawnFails {
		return nil, errors.New("exec: not found")
	}

	remove := len(args) == 3 && args[0] == "-d"
	if remove {
		args = args[1:]
	}

	link := Link{Output: parseNodeArg(args[0]), Input: parseNodeArg(args[1])}

	if remove {
		if g.failRemove[link] || !g.hasLink(link) {
			return &CommandResult{ExitCode: 1, Stderr: []byte("failed to unlink ports")}, nil
		}

		for idx, existing := range g.links {
			if existing == link {
				g.links = append(g.links[:idx], g.links[idx+1:]...)
				break
			}
		}

		return &CommandResult{}, nil
	}

	if g.failCreate[link] || g.hasLink(link) {
		return &CommandResult{ExitCode: 1, Stderr: []byte("failed to link ports: File exists")}, nil
	}

	g.links = append(g.links, link)

	return &CommandResult{}, nil
}

func (g *fakeGraph) hasLink(link Link) bool {
	for _, existing := range g.links {
		if existing == link {
			return true
		}
	}

	return false
}

func parseNodeArg(arg string) NodeID {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		panic(err)
	}

	return NodeID(id)
}

// scriptedRunner returns a fixed result for every call
type scriptedRunner struct {
	result *CommandResult
	err    error
	calls  []runnerCall
}

func (r *scriptedRunner) Run(name string, args ...string) (*CommandResult, error) {
	r.calls = append(r.calls, runnerCall{Name: name, Args: args})

	return r.result, r.err
}
