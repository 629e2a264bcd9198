package audiolink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(graph *fakeGraph) (*RoutingController, *LinkManager) {
	links := newTestLinkManager(graph)

	return NewRoutingController(testLogger(), graph, links), links
}

func testNodes() []Node {
	return []Node{
		{ID: 48, Name: "Firefox", Title: "Lofi Radio", MediaClass: MediaClassAppAudioOutput},
		{ID: 52, Name: "mpv", MediaClass: MediaClassAppAudioOutput},
		{ID: 61, Name: "alsa_input.usb-Blue_Yeti", MediaClass: MediaClassAudioSource},
		{ID: 62, Name: "virtual-mic", Title: "ignored", MediaClass: MediaClassAudioSource},
		{ID: 75, Name: "alsa_output.speakers", MediaClass: MediaClassOther},
	}
}

func TestBatchCreateCartesianProduct(t *testing.T) {
	graph := newFakeGraph(testNodes()...)
	rc, links := newTestRouter(graph)

	created := rc.BatchCreate([]NodeID{48, 52}, []NodeID{61})

	assert.Equal(t, 2, created)
	require.Len(t, graph.calls, 2)
	assert.Equal(t, []string{"48", "61"}, graph.calls[0].Args)
	assert.Equal(t, []string{"52", "61"}, graph.calls[1].Args)
	assert.Equal(t, []Link{{Output: 48, Input: 61}, {Output: 52, Input: 61}}, links.Links())
}

func TestBatchCreateCountsOnlySuccesses(t *testing.T) {
	graph := newFakeGraph(testNodes()...)
	graph.links = []Link{{Output: 48, Input: 62}}
	graph.failCreate[Link{Output: 52, Input: 61}] = true
	rc, links := newTestRouter(graph)

	created := rc.BatchCreate([]NodeID{48, 52}, []NodeID{61, 62})

	assert.Equal(t, 2, created)
	assert.Equal(t, []Link{{Output: 48, Input: 61}, {Output: 52, Input: 62}}, links.Links())
}

func TestBatchCreateNothingSelected(t *testing.T) {
	graph := newFakeGraph(testNodes()...)
	rc, _ := newTestRouter(graph)

	assert.Zero(t, rc.BatchCreate(nil, []NodeID{61}))
	assert.Zero(t, rc.BatchCreate([]NodeID{48}, nil))
	assert.Empty(t, graph.calls)
}

func TestBatchRemoveReportsSucceededSubsetInOrder(t *testing.T) {
	graph := newFakeGraph(testNodes()...)
	rc, links := newTestRouter(graph)

	require.Equal(t, 4, rc.BatchCreate([]NodeID{48, 52}, []NodeID{61, 62}))
	graph.failRemove[Link{Output: 48, Input: 62}] = true

	removed := rc.BatchRemove([]Link{
		{Output: 52, Input: 62},
		{Output: 48, Input: 62},
		{Output: 48, Input: 61},
	})

	assert.Equal(t, []Link{{Output: 52, Input: 62}, {Output: 48, Input: 61}}, removed)
	assert.Equal(t, []Link{{Output: 48, Input: 62}, {Output: 52, Input: 61}}, links.Links())
}

func TestBatchRemoveEmptySelection(t *testing.T) {
	graph := newFakeGraph(testNodes()...)
	rc, _ := newTestRouter(graph)

	assert.Empty(t, rc.BatchRemove(nil))
	assert.NotNil(t, rc.BatchRemove(nil))
}

func TestShutdownCleanupRunsOnce(t *testing.T) {
	graph := newFakeGraph(testNodes()...)
	rc, links := newTestRouter(graph)

	require.Equal(t, 2, rc.BatchCreate([]NodeID{48, 52}, []NodeID{61}))
	graph.failRemove[Link{Output: 48, Input: 61}] = true
	graph.calls = nil

	rc.ShutdownCleanup()
	assert.Empty(t, links.Links())
	assert.Len(t, graph.calls, 2)

	rc.ShutdownCleanup()
	assert.Len(t, graph.calls, 2)
}

func TestNoLinksCreatedAfterShutdownCleanup(t *testing.T) {
	graph := newFakeGraph(testNodes()...)
	rc, links := newTestRouter(graph)

	require.Equal(t, 1, rc.BatchCreate([]NodeID{48}, []NodeID{61}))

	rc.ShutdownCleanup()
	graph.calls = nil

	created := rc.ApplyRoutes([]Route{{Sources: []string{"*"}, Targets: []string{"*"}}})
	assert.Zero(t, created)
	assert.Zero(t, rc.BatchCreate([]NodeID{52}, []NodeID{62}))

	result := links.Create(52, 61)
	assert.False(t, result.Succeeded)
	assert.ErrorIs(t, result.Cause, ErrClosed)

	rc.ShutdownCleanup()

	assert.Empty(t, links.Links())
	assert.Empty(t, graph.links)
	assert.Empty(t, graph.calls)
}

func TestListApplicationsAndCaptureTargets(t *testing.T) {
	graph := newFakeGraph(testNodes()...)
	rc, _ := newTestRouter(graph)

	assert.Equal(t, []NodeEntry{
		{ID: 48, DisplayName: "Firefox - Lofi Radio"},
		{ID: 52, DisplayName: "mpv"},
	}, rc.ListApplications())

	assert.Equal(t, []NodeEntry{
		{ID: 61, DisplayName: "alsa_input.usb-Blue_Yeti"},
		{ID: 62, DisplayName: "virtual-mic"},
	}, rc.ListCaptureTargets())
}

func TestListingsWhenGraphUnavailable(t *testing.T) {
	graph := newFakeGraph(testNodes()...)
	graph.queryDown = true
	rc, _ := newTestRouter(graph)

	assert.Empty(t, rc.ListApplications())
	assert.Empty(t, rc.ListCaptureTargets())
}

func TestListManagedLinksResolvesNames(t *testing.T) {
	graph := newFakeGraph(testNodes()...)
	rc, links := newTestRouter(graph)

	assert.Empty(t, rc.ListManagedLinks())

	require.True(t, links.Create(48, 61).Succeeded)
	require.True(t, links.Create(99, 62).Succeeded)

	assert.Equal(t, []ManagedLink{
		{Link: Link{Output: 48, Input: 61}, OutputName: "Firefox", InputName: "alsa_input.usb-Blue_Yeti"},
		{Link: Link{Output: 99, Input: 62}, OutputName: "Unknown Node (99)", InputName: "virtual-mic"},
	}, rc.ListManagedLinks())
}
