package audiolink

import (
	"fmt"
)

// NodeID identifies a PipeWire graph object. It is only meaningful while the
// object it was read from is still alive.
type NodeID uint32

// MediaClass is the coarse classification audiolink cares about
type MediaClass int

const (
	MediaClassOther MediaClass = iota
	MediaClassAppAudioOutput
	MediaClassAudioSource
)

func (mc MediaClass) String() string {
	switch mc {
	case MediaClassAppAudioOutput:
		return "app-audio-output"
	case MediaClassAudioSource:
		return "audio-source"
	default:
		return "other"
	}
}

// Node is a single graph node as seen in one snapshot
type Node struct {
	ID         NodeID
	Name       string
	Title      string
	MediaClass MediaClass
}

// DisplayName combines the process name with the stream title, if there is one
func (n Node) DisplayName() string {
	if n.Title == "" {
		return n.Name
	}

	return fmt.Sprintf("%s - %s", n.Name, n.Title)
}

// Link is a directed connection from one node's output to another node's input.
// (a, b) and (b, a) are different links.
type Link struct {
	Output NodeID
	Input  NodeID
}

func (l Link) String() string {
	return fmt.Sprintf("%d -> %d", l.Output, l.Input)
}

// Snapshot is a point-in-time read of the graph. An empty snapshot means
// "unknown", not "the graph is empty".
type Snapshot struct {
	Nodes []Node
	Links []Link
}

// HasLink reports whether the exact (output, input) pair is present
func (s *Snapshot) HasLink(output, input NodeID) bool {
	for _, link := range s.Links {
		if link.Output == output && link.Input == input {
			return true
		}
	}

	return false
}

// Node looks up a node by id
func (s *Snapshot) Node(id NodeID) (Node, bool) {
	for _, node := range s.Nodes {
		if node.ID == id {
			return node, true
		}
	}

	return Node{}, false
}

// Applications returns nodes that are application playback streams
func (s *Snapshot) Applications() []Node {
	return s.nodesOfClass(MediaClassAppAudioOutput)
}

// CaptureTargets returns nodes that are audio sources (microphones, virtual sources)
func (s *Snapshot) CaptureTargets() []Node {
	return s.nodesOfClass(MediaClassAudioSource)
}

func (s *Snapshot) nodesOfClass(class MediaClass) []Node {
	nodes := []Node{}

	for _, node := range s.Nodes {
		if node.MediaClass == class {
			nodes = append(nodes, node)
		}
	}

	return nodes
}

func unknownNodeName(id NodeID) string {
	return fmt.Sprintf("Unknown Node (%d)", id)
}
