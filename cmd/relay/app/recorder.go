package app

import (
	"context"

	"github.com/roman-kulish/rf-relay/internal/scan"
	"github.com/roman-kulish/rf-relay/internal/storage"
)

// storeRecorder writes every cycle to the flight recorder session.
type storeRecorder struct {
	store     storage.Store
	sessionID int64
}

func (r *storeRecorder) Record(ctx context.Context, c scan.Cycle) error {
	return r.store.StoreCycle(ctx, r.sessionID, c.Number, c.Samples[:], c.Packets[:])
}
