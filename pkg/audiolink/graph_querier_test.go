package audiolink

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDumpFixture(t *testing.T) []byte {
	t.Helper()

	raw, err := os.ReadFile("testdata/pw-dump.json")
	require.NoError(t, err)

	return raw
}

func TestSnapshotParsesNodesAndLinks(t *testing.T) {
	runner := &scriptedRunner{result: &CommandResult{Stdout: loadDumpFixture(t)}}
	q := newPWDumpQuerier(testLogger(), runner, "pw-dump")

	snapshot := q.Snapshot()

	require.Len(t, runner.calls, 1)
	assert.Equal(t, runnerCall{Name: "pw-dump"}, runner.calls[0])

	assert.Equal(t, []Node{
		{ID: 48, Name: "Firefox", Title: "Lofi Radio", MediaClass: MediaClassAppAudioOutput},
		{ID: 52, Name: "mpv", MediaClass: MediaClassAppAudioOutput},
		{ID: 61, Name: "alsa_input.usb-Blue_Yeti-00.analog-stereo", MediaClass: MediaClassAudioSource},
		{ID: 70, Name: "Unknown Node (70)", MediaClass: MediaClassAudioSource},
		{ID: 75, Name: "alsa_output.pci-0000_00_1f.3.analog-stereo", MediaClass: MediaClassOther},
	}, snapshot.Nodes)

	assert.Equal(t, []Link{{Output: 48, Input: 75}, {Output: 52, Input: 61}}, snapshot.Links)

	assert.True(t, snapshot.HasLink(52, 61))
	assert.False(t, snapshot.HasLink(61, 52))
}

func TestSnapshotFailuresYieldEmptySnapshot(t *testing.T) {
	cases := []struct {
		name   string
		result *CommandResult
		err    error
	}{
		{name: "non-zero exit", result: &CommandResult{ExitCode: 1, Stderr: []byte("can't connect: Host is down")}},
		{name: "spawn failure", err: errors.New("exec: \"pw-dump\": executable file not found in $PATH")},
		{name: "not json", result: &CommandResult{Stdout: []byte("pw-dump: oops")}},
		{name: "not an array", result: &CommandResult{Stdout: []byte(`{"id": 1}`)}},
		{name: "wrong field type", result: &CommandResult{Stdout: []byte(`[{"id": "one", "type": "PipeWire:Interface:Node"}]`)}},
		{name: "wrong link shape", result: &CommandResult{Stdout: []byte(`[{"id": 3, "type": "PipeWire:Interface:Link", "info": {"output-node-id": "x"}}]`)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runner := &scriptedRunner{result: tc.result, err: tc.err}
			q := newPWDumpQuerier(testLogger(), runner, "pw-dump")

			snapshot := q.Snapshot()

			require.NotNil(t, snapshot)
			assert.Empty(t, snapshot.Nodes)
			assert.Empty(t, snapshot.Links)
		})
	}
}

func TestParseDumpEmptyArray(t *testing.T) {
	snapshot, err := parseDump([]byte(`[]`))

	require.NoError(t, err)
	assert.Empty(t, snapshot.Nodes)
	assert.Empty(t, snapshot.Links)
}

func TestParseDumpReportsMalformed(t *testing.T) {
	_, err := parseDump([]byte(`[{"type": 5}]`))

	assert.ErrorIs(t, err, errMalformedDump)
}

func TestClassifyMediaClass(t *testing.T) {
	assert.Equal(t, MediaClassAppAudioOutput, classifyMediaClass("Stream/Output/Audio"))
	assert.Equal(t, MediaClassAudioSource, classifyMediaClass("Audio/Source"))
	assert.Equal(t, MediaClassAudioSource, classifyMediaClass("Audio/Source/Virtual"))
	assert.Equal(t, MediaClassOther, classifyMediaClass("Stream/Input/Audio"))
	assert.Equal(t, MediaClassOther, classifyMediaClass("Audio/Sink"))
	assert.Equal(t, MediaClassOther, classifyMediaClass(""))
}

func TestNodeDisplayName(t *testing.T) {
	assert.Equal(t, "Firefox - Lofi Radio", Node{Name: "Firefox", Title: "Lofi Radio"}.DisplayName())
	assert.Equal(t, "mpv", Node{Name: "mpv"}.DisplayName())
}
