package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	h := NewHealthy("tabs", "ok")
	assert.True(t, h.IsHealthy())
	assert.True(t, h.Healthy)
	assert.False(t, h.IsDegraded())

	d := NewDegraded("chat", "starting")
	assert.True(t, d.IsDegraded())
	assert.False(t, d.Healthy)

	u := NewUnhealthy("search", "index load failed")
	assert.True(t, u.IsUnhealthy())
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name string
		subs []Status
		want string
	}{
		{"empty", nil, "healthy"},
		{"all healthy", []Status{NewHealthy("a", ""), NewHealthy("b", "")}, "healthy"},
		{"one degraded", []Status{NewHealthy("a", ""), NewDegraded("b", "")}, "degraded"},
		{"unhealthy wins", []Status{NewDegraded("a", ""), NewUnhealthy("b", "")}, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate("runtime", tt.subs)
			assert.Equal(t, tt.want, got.Status)
			assert.Len(t, got.SubStatuses, len(tt.subs))
		})
	}
}

func TestWithSubStatusDoesNotShare(t *testing.T) {
	base := NewHealthy("runtime", "ok")
	a := base.WithSubStatus(NewHealthy("a", ""))
	b := base.WithSubStatus(NewHealthy("b", ""))

	assert.Len(t, a.SubStatuses, 1)
	assert.Len(t, b.SubStatuses, 1)
	assert.Equal(t, "a", a.SubStatuses[0].Component)
	assert.Equal(t, "b", b.SubStatuses[0].Component)
}
