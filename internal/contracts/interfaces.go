package contracts

import "context"

// Planner produces a season plan from a complete request
// ⭐ SSOT: both the MILP optimizer and the rank strategy implement this
type Planner interface {
	Plan(ctx context.Context, req *PlanRequest) (*Plan, error)
}

// SnapshotSource provides the latest collected snapshot
type SnapshotSource interface {
	Latest(ctx context.Context) (*Snapshot, error)
}

// SnapshotSink stores a collected snapshot
type SnapshotSink interface {
	Save(ctx context.Context, snap *Snapshot) error
}
