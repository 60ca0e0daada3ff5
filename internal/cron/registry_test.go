package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	audit := &stubJob{name: "ledger-audit"}
	retention := &stubJob{name: "outbox-retention"}
	registry, err := NewRegistry(audit)
	require.NoError(t, err)
	require.NoError(t, registry.Register(retention))

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	assert.Same(t, audit, jobs[0])
	assert.Same(t, retention, jobs[1])

	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0])
}

func TestRegistryRejectsInvalidJobs(t *testing.T) {
	_, err := NewRegistry(&stubJob{name: "ledger-audit"}, &stubJob{name: "ledger-audit"})
	assert.ErrorContains(t, err, "registered twice")

	registry, err := NewRegistry()
	require.NoError(t, err)
	assert.Error(t, registry.Register(nil))
	assert.Error(t, registry.Register(&stubJob{name: "  "}))
	assert.Empty(t, registry.Jobs())
}
