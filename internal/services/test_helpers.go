package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"fuelpulse/internal/source"
	"fuelpulse/pkg/contracts/domain"
	"fuelpulse/pkg/contracts/events"
)

// MockPriceSource is a mock for the source.PriceSource interface
type MockPriceSource struct {
	mock.Mock
}

func (m *MockPriceSource) Rows(ctx context.Context, q source.Query) ([]domain.PriceRow, error) {
	args := m.Called(ctx, q)
	rows, _ := args.Get(0).([]domain.PriceRow)
	return rows, args.Error(1)
}

func (m *MockPriceSource) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockPriceSource) Name() string {
	return "mock"
}

func (m *MockPriceSource) Close() error {
	return nil
}

// MockBroadcaster is a mock for the Broadcaster interface
type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) BroadcastEvent(ctx context.Context, messageType events.MessageType, data interface{}) {
	m.Called(ctx, messageType, data)
}

// MockClientCounter is a mock for the ClientCounter interface
type MockClientCounter struct {
	mock.Mock
}

func (m *MockClientCounter) ClientCount() int {
	return m.Called().Int(0)
}
