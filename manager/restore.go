package manager

import "context"

// ReinitializeAfterCacheRestore repairs the instance table after the document
// has been swapped back in from a rendered-page cache. Cached HTML carries
// the bookkeeping attributes of instances whose listeners no longer exist, so
// each tracked instance is checked against the live document: instances whose
// element is gone, or whose real listener count disagrees with the recorded
// bookkeeping count, are destroyed. A discovery pass then re-creates
// components for every marked element left unclaimed.
func (m *Manager) ReinitializeAfterCacheRestore(ctx context.Context) {
	for _, inst := range m.Instances() {
		el := inst.Element()
		if el == nil {
			continue
		}
		if !m.doc.Contains(el) {
			m.logger.Info("instance element no longer in document, destroying",
				"name", inst.Name(), "id", inst.ID())
			m.Destroy(inst.ID())
			continue
		}
		if el.ListenerCount() != el.BookkeepingCount() {
			m.logger.Info("instance listeners out of sync with bookkeeping, destroying",
				"name", inst.Name(), "id", inst.ID(),
				"listeners", el.ListenerCount(), "recorded", el.BookkeepingCount())
			m.Destroy(inst.ID())
		}
	}

	m.DiscoverAndLoad(ctx)
}
