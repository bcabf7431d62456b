package queue

import "time"

// RebuildMsg asks the worker to rebuild the citation network.
type RebuildMsg struct {
	Reason      string    `json:"reason"`
	RequestedBy string    `json:"requested_by,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// NetworkRebuiltEvent is published on TopicNetworkRebuilt after a rebuilt
// network has been saved.
type NetworkRebuiltEvent struct {
	Nodes    int       `json:"nodes"`
	Edges    int       `json:"edges"`
	Directed bool      `json:"directed"`
	BuiltAt  time.Time `json:"built_at"`
}
