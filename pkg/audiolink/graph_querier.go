package audiolink

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"go.uber.org/zap"
)

// GraphQuerier provides read-only snapshots of the audio graph
type GraphQuerier interface {
	// Snapshot never fails; an unavailable graph yields an empty snapshot
	Snapshot() *Snapshot
}

const (
	pwTypeNode = "PipeWire:Interface:Node"
	pwTypeLink = "PipeWire:Interface:Link"

	mediaClassAppOutputMarker = "Stream/Output/Audio"
	mediaClassSourceMarker    = "Audio/Source"
)

var errMalformedDump = errors.New("malformed graph dump")

// the subset of a pw-dump object we read
type dumpObject struct {
	ID   uint32                 `mapstructure:"id"`
	Type string                 `mapstructure:"type"`
	Info map[string]interface{} `mapstructure:"info"`
}

type dumpNodeInfo struct {
	Props struct {
		MediaClass      string `mapstructure:"media.class"`
		ApplicationName string `mapstructure:"application.name"`
		NodeName        string `mapstructure:"node.name"`
		MediaName       string `mapstructure:"media.name"`
	} `mapstructure:"props"`
}

type dumpLinkInfo struct {
	OutputNodeID uint32 `mapstructure:"output-node-id"`
	InputNodeID  uint32 `mapstructure:"input-node-id"`
}

type pwDumpQuerier struct {
	logger  *zap.SugaredLogger
	runner  CommandRunner
	command string
}

func newPWDumpQuerier(logger *zap.SugaredLogger, runner CommandRunner, command string) *pwDumpQuerier {
	q := &pwDumpQuerier{
		logger:  logger.Named("graph"),
		runner:  runner,
		command: command,
	}

	q.logger.Debugw("Created graph querier", "command", command)

	return q
}

func (q *pwDumpQuerier) Snapshot() *Snapshot {
	snapshot, err := q.query()
	if err != nil {
		q.logger.Warnw("Graph query failed, treating graph as unavailable", "error", err)
		return &Snapshot{Nodes: []Node{}, Links: []Link{}}
	}

	return snapshot
}

func (q *pwDumpQuerier) query() (*Snapshot, error) {
	result, err := q.runner.Run(q.command)
	if err != nil {
		return nil, fmt.Errorf("spawn graph query: %w", err)
	}

	if !result.Success() {
		return nil, fmt.Errorf("graph query exited with status %d: %s",
			result.ExitCode, strings.TrimSpace(string(result.Stderr)))
	}

	return parseDump(result.Stdout)
}

func parseDump(raw []byte) (*Snapshot, error) {
	var entries []map[string]interface{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedDump, err)
	}

	snapshot := &Snapshot{Nodes: []Node{}, Links: []Link{}}

	for idx, entry := range entries {
		var obj dumpObject
		if err := decodeDumpValue(entry, &obj); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", errMalformedDump, idx, err)
		}

		switch obj.Type {
		case pwTypeNode:
			var info dumpNodeInfo
			if err := decodeDumpValue(obj.Info, &info); err != nil {
				return nil, fmt.Errorf("%w: node %d: %w", errMalformedDump, obj.ID, err)
			}

			snapshot.Nodes = append(snapshot.Nodes, nodeFromDump(NodeID(obj.ID), info))

		case pwTypeLink:
			var info dumpLinkInfo
			if err := decodeDumpValue(obj.Info, &info); err != nil {
				return nil, fmt.Errorf("%w: link %d: %w", errMalformedDump, obj.ID, err)
			}

			snapshot.Links = append(snapshot.Links, Link{
				Output: NodeID(info.OutputNodeID),
				Input:  NodeID(info.InputNodeID),
			})
		}
	}

	return snapshot, nil
}

func decodeDumpValue(input interface{}, output interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		WeaklyTypedInput: false,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}

func nodeFromDump(id NodeID, info dumpNodeInfo) Node {
	props := info.Props

	name := props.ApplicationName
	if name == "" {
		name = props.NodeName
	}
	if name == "" {
		name = unknownNodeName(id)
	}

	return Node{
		ID:         id,
		Name:       name,
		Title:      props.MediaName,
		MediaClass: classifyMediaClass(props.MediaClass),
	}
}

func classifyMediaClass(mediaClass string) MediaClass {
	switch {
	case strings.Contains(mediaClass, mediaClassAppOutputMarker):
		return MediaClassAppAudioOutput
	case strings.Contains(mediaClass, mediaClassSourceMarker):
		return MediaClassAudioSource
	default:
		return MediaClassOther
	}
}
