package services

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockEmailService is a testify mock of EmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendContactMessage(ctx context.Context, msg ContactMessage) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}
