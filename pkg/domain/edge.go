package domain

// Edge is a directed connection between two nodes.
type Edge struct {
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	// SourceHandle discriminates between the logical exits of a multi-exit node
	// (e.g. "button_0", "condition_2", "default"). Empty means unlabeled.
	SourceHandle string `json:"source_handle,omitempty" yaml:"source_handle,omitempty"`
}
