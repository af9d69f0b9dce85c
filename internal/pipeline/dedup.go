package pipeline

import "github.com/hydrolab/lindas-hydro-etl/internal/domain"

// Deduplicator filters measurements whose (station, measurement time) key
// already exists in the dataset. Lookups are against a key set, so a run
// costs O(existing + new) regardless of dataset size.
type Deduplicator struct {
	seen map[string]struct{}
}

// NewDeduplicator builds the key set from the existing dataset.
func NewDeduplicator(existing []domain.Measurement) *Deduplicator {
	seen := make(map[string]struct{}, len(existing))
	for _, m := range existing {
		seen[m.Key()] = struct{}{}
	}
	return &Deduplicator{seen: seen}
}

// Filter returns the genuinely new measurements from the batch, in batch
// order. When the batch itself repeats a key, the last occurrence wins.
// Keys of accepted measurements are remembered, so feeding the same batch
// twice yields nothing the second time.
func (d *Deduplicator) Filter(batch []domain.Measurement) []domain.Measurement {
	batch = collapseBatch(batch)

	out := make([]domain.Measurement, 0, len(batch))
	for _, m := range batch {
		key := m.Key()
		if _, dup := d.seen[key]; dup {
			continue
		}
		d.seen[key] = struct{}{}
		out = append(out, m)
	}
	return out
}

// collapseBatch resolves intra-batch duplicates with last-write-wins,
// keeping each surviving record at the position of its last occurrence.
func collapseBatch(batch []domain.Measurement) []domain.Measurement {
	counts := make(map[string]int, len(batch))
	for _, m := range batch {
		counts[m.Key()]++
	}

	out := make([]domain.Measurement, 0, len(counts))
	for _, m := range batch {
		key := m.Key()
		counts[key]--
		if counts[key] == 0 {
			out = append(out, m)
		}
	}
	return out
}
