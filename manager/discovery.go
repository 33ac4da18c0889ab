package manager

import (
	"context"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/milodocs/pagekit/component"
	"github.com/milodocs/pagekit/dom"
)

// DiscoverAndLoad scans the document for elements carrying the marker
// attribute and creates one instance per distinct marker value. Elements
// already claimed by an instance or mid-initialization are skipped, so the
// pass is idempotent. Markers naming unregistered components are ignored.
func (m *Manager) DiscoverAndLoad(ctx context.Context) {
	if m.metrics != nil {
		m.metrics.Core.DiscoveryPasses.Inc()
	}

	seen := make(map[string]bool)
	for _, el := range m.doc.ElementsWithAttr(MarkerAttr) {
		if el.HasAttr(component.AttrInstance) || el.HasAttr(component.AttrProcessing) {
			continue
		}
		name := strings.TrimSpace(el.Attr(MarkerAttr))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		if _, ok := m.registry.Lookup(name); !ok {
			m.logger.Debug("marker names unregistered component", "name", name)
			continue
		}

		if _, err := m.Create(ctx, name, CreateConfig{}); err != nil {
			m.logger.Error("discovery create failed", "name", name, "error", err)
		}
	}
}

// EnableReactiveDiscovery watches the document for mutations that could
// introduce new marked elements and re-runs discovery, at most once per rate
// interval. Mutation bursts inside one interval coalesce into a single
// trailing pass, so a marker added during a blocked window is still picked
// up. No-op if already enabled.
func (m *Manager) EnableReactiveDiscovery(ctx context.Context) {
	m.mu.Lock()
	if m.reactive {
		m.mu.Unlock()
		return
	}
	m.reactive = true

	ctx, cancel := context.WithCancel(ctx)
	m.reactiveCancel = cancel
	m.obs = m.doc.Observe(256)
	obs := m.obs
	m.mu.Unlock()

	limiter := rate.NewLimiter(rate.Every(m.rateInterval), 1)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		var trailing *time.Timer
		var trailingC <-chan time.Time
		pending := false

		runPass := func() {
			pending = false
			m.DiscoverAndLoad(ctx)
		}

		for {
			select {
			case <-ctx.Done():
				if trailing != nil {
					trailing.Stop()
				}
				return

			case rec, ok := <-obs.Records():
				if !ok {
					return
				}
				if !qualifies(rec) {
					continue
				}
				if limiter.Allow() {
					runPass()
					continue
				}
				if m.metrics != nil {
					m.metrics.Core.DiscoveryRateLimited.Inc()
				}
				if !pending {
					pending = true
					delay := limiter.Reserve().Delay()
					trailing = time.NewTimer(delay)
					trailingC = trailing.C
				}

			case <-trailingC:
				trailingC = nil
				trailing = nil
				if pending {
					runPass()
				}
			}
		}
	}()
}

// disableReactive stops the reactive goroutine and its observer.
func (m *Manager) disableReactive() {
	m.mu.Lock()
	if !m.reactive {
		m.mu.Unlock()
		return
	}
	m.reactive = false
	cancel := m.reactiveCancel
	obs := m.obs
	m.reactiveCancel = nil
	m.obs = nil
	m.mu.Unlock()

	cancel()
	obs.Close()
	m.wg.Wait()
}

// qualifies reports whether a mutation could have introduced a new marked
// element. Attribute writes only qualify when they touch the marker attribute
// itself; child additions qualify when the added subtree carries a marker.
func qualifies(rec dom.MutationRecord) bool {
	switch rec.Type {
	case dom.MutationAttribute:
		return rec.Attr == MarkerAttr
	case dom.MutationChildList:
		for _, el := range rec.Added {
			if el.HasAttr(MarkerAttr) {
				return true
			}
			if matches, err := el.QuerySelectorAll("[" + MarkerAttr + "]"); err == nil && len(matches) > 0 {
				return true
			}
		}
	}
	return false
}
