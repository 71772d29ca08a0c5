package factory

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/crickettalent/internal/dependencies/mocks"
	"github.com/mcoot/crickettalent/internal/services/auth"
	"github.com/mcoot/crickettalent/internal/storage"
	"github.com/mcoot/crickettalent/internal/storage/memory"
	"github.com/mcoot/crickettalent/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App backed by memory storage with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithStorage(memory.New())
}

// NewTestAppWithStorage creates a test App over the given storage
func NewTestAppWithStorage(store storage.Storage) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app, err := newWithDependencies(store, mockClock, mockRandom, Config{
		AuthConfig:     auth.Config{Secret: "test-secret", BcryptCost: bcrypt.MinCost},
		StatsCacheSize: 16,
	}, testutil.NopLogger())
	if err != nil {
		panic(err)
	}

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
