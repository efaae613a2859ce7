package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/ruteri/signet-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSnapshotBackend implements interfaces.SnapshotBackend for testing
type MockSnapshotBackend struct {
	mock.Mock
	name string
}

func (m *MockSnapshotBackend) Load(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockSnapshotBackend) Save(ctx context.Context, data []byte) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *MockSnapshotBackend) Available(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockSnapshotBackend) Name() string {
	return m.name
}

func (m *MockSnapshotBackend) LocationURI() string {
	return "mock:" + m.name
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMultiSnapshotBackend_Available(t *testing.T) {
	tests := []struct {
		name     string
		backends []bool
		expected bool
	}{
		{
			name:     "all backends available",
			backends: []bool{true, true, true},
			expected: true,
		},
		{
			name:     "some backends available",
			backends: []bool{false, true, false},
			expected: true,
		},
		{
			name:     "no backends available",
			backends: []bool{false, false, false},
			expected: false,
		},
		{
			name:     "no backends",
			backends: []bool{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var backends []interfaces.SnapshotBackend
			for i, available := range tt.backends {
				mockBackend := &MockSnapshotBackend{name: fmt.Sprintf("mock-A%x", i)}
				mockBackend.On("Available", mock.Anything).Return(available).Maybe()
				backends = append(backends, mockBackend)
			}

			multi := NewMultiSnapshotBackend(backends, discardLogger())
			assert.Equal(t, tt.expected, multi.Available(context.Background()))

			for _, backend := range backends {
				backend.(*MockSnapshotBackend).AssertExpectations(t)
			}
		})
	}
}

func versionedSnapshot(version uint64) []byte {
	return []byte(fmt.Sprintf(`{"version":"0x%x","keys":{},"nonces":{}}`, version))
}

func TestMultiSnapshotBackend_Load(t *testing.T) {
	older := versionedSnapshot(1)
	newer := versionedSnapshot(2)
	testErr := errors.New("test error")

	tests := []struct {
		name          string
		setupMocks    func() []interfaces.SnapshotBackend
		expectedData  []byte
		expectedError error
	}{
		{
			name: "all backends in sync",
			setupMocks: func() []interfaces.SnapshotBackend {
				mock1 := &MockSnapshotBackend{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Load", mock.Anything).Return(newer, nil)

				mock2 := &MockSnapshotBackend{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Load", mock.Anything).Return(newer, nil)

				return []interfaces.SnapshotBackend{mock1, mock2}
			},
			expectedData: newer,
		},
		{
			name: "lagging first backend loses to a newer replica",
			setupMocks: func() []interfaces.SnapshotBackend {
				mock1 := &MockSnapshotBackend{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Load", mock.Anything).Return(older, nil)

				mock2 := &MockSnapshotBackend{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Load", mock.Anything).Return(newer, nil)

				return []interfaces.SnapshotBackend{mock1, mock2}
			},
			expectedData: newer,
		},
		{
			name: "lagging second backend is ignored",
			setupMocks: func() []interfaces.SnapshotBackend {
				mock1 := &MockSnapshotBackend{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Load", mock.Anything).Return(newer, nil)

				mock2 := &MockSnapshotBackend{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Load", mock.Anything).Return(older, nil)

				return []interfaces.SnapshotBackend{mock1, mock2}
			},
			expectedData: newer,
		},
		{
			name: "first backend empty, second has snapshot",
			setupMocks: func() []interfaces.SnapshotBackend {
				mock1 := &MockSnapshotBackend{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Load", mock.Anything).Return(nil, interfaces.ErrSnapshotNotFound)

				mock2 := &MockSnapshotBackend{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Load", mock.Anything).Return(older, nil)

				return []interfaces.SnapshotBackend{mock1, mock2}
			},
			expectedData: older,
		},
		{
			name: "all backends empty",
			setupMocks: func() []interfaces.SnapshotBackend {
				mock1 := &MockSnapshotBackend{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Load", mock.Anything).Return(nil, interfaces.ErrSnapshotNotFound)

				mock2 := &MockSnapshotBackend{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Load", mock.Anything).Return(nil, fmt.Errorf("%w: mock-B", interfaces.ErrSnapshotNotFound))

				return []interfaces.SnapshotBackend{mock1, mock2}
			},
			expectedError: interfaces.ErrSnapshotNotFound,
		},
		{
			name: "failing backend is not mistaken for an empty one",
			setupMocks: func() []interfaces.SnapshotBackend {
				mock1 := &MockSnapshotBackend{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Load", mock.Anything).Return(nil, testErr)

				mock2 := &MockSnapshotBackend{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Load", mock.Anything).Return(nil, interfaces.ErrSnapshotNotFound)

				return []interfaces.SnapshotBackend{mock1, mock2}
			},
			expectedError: testErr,
		},
		{
			name: "failing backend fails the load even if another has a snapshot",
			setupMocks: func() []interfaces.SnapshotBackend {
				mock1 := &MockSnapshotBackend{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Load", mock.Anything).Return(older, nil)

				mock2 := &MockSnapshotBackend{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Load", mock.Anything).Return(nil, testErr)

				return []interfaces.SnapshotBackend{mock1, mock2}
			},
			expectedError: testErr,
		},
		{
			name: "unavailable backend fails the load",
			setupMocks: func() []interfaces.SnapshotBackend {
				mock1 := &MockSnapshotBackend{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(false)

				mock2 := &MockSnapshotBackend{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Load", mock.Anything).Return(older, nil)

				return []interfaces.SnapshotBackend{mock1, mock2}
			},
			expectedError: interfaces.ErrBackendUnavailable,
		},
		{
			name: "nothing reachable",
			setupMocks: func() []interfaces.SnapshotBackend {
				mock1 := &MockSnapshotBackend{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(false)
				return []interfaces.SnapshotBackend{mock1}
			},
			expectedError: interfaces.ErrBackendUnavailable,
		},
		{
			name: "no backends",
			setupMocks: func() []interfaces.SnapshotBackend {
				return nil
			},
			expectedError: interfaces.ErrBackendUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backends := tt.setupMocks()
			multi := NewMultiSnapshotBackend(backends, discardLogger())

			data, err := multi.Load(context.Background())

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectedData, data)

			for _, backend := range backends {
				backend.(*MockSnapshotBackend).AssertExpectations(t)
			}
		})
	}
}

// switchableBackend wraps a file backend that can be taken offline.
type switchableBackend struct {
	*FileBackend
	down bool
}

func (b *switchableBackend) Available(ctx context.Context) bool {
	return !b.down && b.FileBackend.Available(ctx)
}

func (b *switchableBackend) Load(ctx context.Context) ([]byte, error) {
	if b.down {
		return nil, interfaces.ErrBackendUnavailable
	}
	return b.FileBackend.Load(ctx)
}

func (b *switchableBackend) Save(ctx context.Context, data []byte) error {
	if b.down {
		return interfaces.ErrBackendUnavailable
	}
	return b.FileBackend.Save(ctx, data)
}

func TestMultiSnapshotBackend_ReopenAfterPartialReplication(t *testing.T) {
	ctx := context.Background()

	newReplica := func() *switchableBackend {
		backend, err := NewFileBackend(t.TempDir(), discardLogger())
		require.NoError(t, err)
		return &switchableBackend{FileBackend: backend}
	}
	primary, secondary := newReplica(), newReplica()
	multi := NewMultiSnapshotBackend([]interfaces.SnapshotBackend{primary, secondary}, discardLogger())

	store, err := NewSnapshotStore(ctx, multi, discardLogger())
	require.NoError(t, err)
	require.NoError(t, store.Commit(ctx, claimChangeSet(keyA, ownerA, 1)))

	// Only the secondary receives the next two commits
	primary.down = true
	require.NoError(t, store.Commit(ctx, claimChangeSet(keyB, ownerA, 2)))
	cs := &interfaces.ChangeSet{}
	cs.Clear(keyA)
	cs.SetNonce(ownerA, 3)
	require.NoError(t, store.Commit(ctx, cs))

	// The lagging primary cannot be loaded on its own
	_, err = NewSnapshotStore(ctx, multi, discardLogger())
	require.ErrorIs(t, err, interfaces.ErrBackendUnavailable)

	primary.down = false
	reopened, err := NewSnapshotStore(ctx, multi, discardLogger())
	require.NoError(t, err)

	nonce, err := reopened.NonceOf(ctx, ownerA)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), nonce)

	owner, err := reopened.OwnerOf(ctx, keyA)
	require.NoError(t, err)
	assert.True(t, owner.IsNoOwner())

	// The next commit catches the primary up
	require.NoError(t, reopened.Commit(ctx, claimChangeSet(keyA, ownerB, 1)))
	primaryData, err := primary.Load(ctx)
	require.NoError(t, err)
	secondaryData, err := secondary.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, secondaryData, primaryData)

	version, err := snapshotVersion(primaryData)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), version)
}

func TestMultiSnapshotBackend_Save(t *testing.T) {
	testData := []byte(`{"keys":{},"nonces":{}}`)
	testErr := errors.New("test error")

	tests := []struct {
		name          string
		setupMocks    func() []interfaces.SnapshotBackend
		expectedError bool
	}{
		{
			name: "all backends successful",
			setupMocks: func() []interfaces.SnapshotBackend {
				mock1 := &MockSnapshotBackend{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Save", mock.Anything, testData).Return(nil)

				mock2 := &MockSnapshotBackend{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Save", mock.Anything, testData).Return(nil)

				return []interfaces.SnapshotBackend{mock1, mock2}
			},
		},
		{
			name: "some backends fail",
			setupMocks: func() []interfaces.SnapshotBackend {
				mock1 := &MockSnapshotBackend{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Save", mock.Anything, testData).Return(nil)

				mock2 := &MockSnapshotBackend{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Save", mock.Anything, testData).Return(testErr)

				return []interfaces.SnapshotBackend{mock1, mock2}
			},
		},
		{
			name: "all backends fail",
			setupMocks: func() []interfaces.SnapshotBackend {
				mock1 := &MockSnapshotBackend{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Save", mock.Anything, testData).Return(testErr)

				mock2 := &MockSnapshotBackend{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Save", mock.Anything, testData).Return(testErr)

				return []interfaces.SnapshotBackend{mock1, mock2}
			},
			expectedError: true,
		},
		{
			name: "unavailable backends are skipped",
			setupMocks: func() []interfaces.SnapshotBackend {
				mock1 := &MockSnapshotBackend{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(false)

				mock2 := &MockSnapshotBackend{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Save", mock.Anything, testData).Return(nil)

				return []interfaces.SnapshotBackend{mock1, mock2}
			},
		},
		{
			name: "no backend available",
			setupMocks: func() []interfaces.SnapshotBackend {
				mock1 := &MockSnapshotBackend{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(false)
				return []interfaces.SnapshotBackend{mock1}
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backends := tt.setupMocks()
			multi := NewMultiSnapshotBackend(backends, discardLogger())

			err := multi.Save(context.Background(), testData)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			for _, backend := range backends {
				backend.(*MockSnapshotBackend).AssertExpectations(t)
			}
		})
	}
}

func TestMultiSnapshotBackend_LocationURI(t *testing.T) {
	multi := NewMultiSnapshotBackend([]interfaces.SnapshotBackend{
		&MockSnapshotBackend{name: "a"},
		&MockSnapshotBackend{name: "b"},
	}, nil)
	assert.Equal(t, "multi:[mock:a,mock:b]", multi.LocationURI())
	assert.Equal(t, "multi", multi.Name())
}
