package factory

import (
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/clickergame/internal/dependencies/mocks"
	"github.com/mcoot/clickergame/internal/observability"
	"github.com/mcoot/clickergame/internal/services/auth"
	"github.com/mcoot/clickergame/internal/storage/memory"
	"github.com/mcoot/clickergame/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Memory store for direct state inspection
	MemoryStorage *memory.Storage

	// Mocks for test control
	MockClock *mocks.MockClock
}

// NewTestApp creates an App configured for testing with a pinned clock,
// in-memory storage and the cheapest bcrypt cost
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(testutil.FixedTime)

	authCfg := auth.DefaultConfig()
	authCfg.BcryptCost = bcrypt.MinCost

	registry := prometheus.NewRegistry()
	app := newWithDependencies(store, mockClock, authCfg, testutil.NopLogger(), observability.NewMetrics(registry))
	app.Registry = registry

	return &TestApp{
		App:           app,
		MemoryStorage: store,
		MockClock:     mockClock,
	}
}
