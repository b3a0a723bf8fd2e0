package models

// RefreshReport summarizes one metadata refresh.
type RefreshReport struct {
	RefreshID    string         `json:"refresh_id"`
	StartedAt    string         `json:"started_at"`
	FinishedAt   string         `json:"finished_at"`
	Counts       map[string]int `json:"counts"`
	GraphNodes   int            `json:"graph_nodes"`
	GraphEdges   int            `json:"graph_edges"`
	Documents    int            `json:"documents"`
	IndexedCount int            `json:"indexed_count"`
	Stages       []StageReport  `json:"stages"`
}

// Degraded reports whether any stage did not finish cleanly.
func (r *RefreshReport) Degraded() bool {
	for _, s := range r.Stages {
		if s.Status != StageOK {
			return true
		}
	}
	return false
}
