package dropoff

import (
	"context"
	"sync"

	"ecodrop-backend/internal/models"
)

// MemoryBins is the degraded-mode BinSource: a static bin set served from
// memory when no database is configured, mirroring the hardcoded bin data
// the app ships with.
type MemoryBins struct {
	mu   sync.RWMutex
	bins map[string]models.Bin
}

func NewMemoryBins(bins []models.Bin) *MemoryBins {
	m := &MemoryBins{bins: make(map[string]models.Bin, len(bins))}
	for _, b := range bins {
		m.bins[b.ID] = b
	}
	return m
}

func (m *MemoryBins) GetBin(ctx context.Context, binID string) (*models.Bin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bin, ok := m.bins[binID]
	if !ok {
		return nil, ErrBinNotFound
	}
	return &bin, nil
}

// All returns the full bin set, for the degraded-mode listing endpoint
func (m *MemoryBins) All() []models.Bin {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Bin, 0, len(m.bins))
	for _, b := range m.bins {
		out = append(out, b)
	}
	return out
}
