// test/mock/store.go
package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/luishdz04/muscleup-gym/model"
)

// MockPolicyStore is a mock implementation of engine.Store
type MockPolicyStore struct {
	mock.Mock
}

func (m *MockPolicyStore) UserByDeviceCredential(ctx context.Context, deviceUserID string) (*model.User, error) {
	args := m.Called(ctx, deviceUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockPolicyStore) LatestMembership(ctx context.Context, userID string) (*model.Membership, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Membership), args.Error(1)
}

func (m *MockPolicyStore) PlanRestrictions(ctx context.Context, planID string) (*model.PlanRestriction, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PlanRestriction), args.Error(1)
}

func (m *MockPolicyStore) ActiveGrant(ctx context.Context, userID string, now time.Time) (*model.TemporaryAccess, error) {
	args := m.Called(ctx, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TemporaryAccess), args.Error(1)
}

func (m *MockPolicyStore) IncrementCounter(ctx context.Context, grantID string) error {
	args := m.Called(ctx, grantID)
	return args.Error(0)
}

func (m *MockPolicyStore) Config(ctx context.Context) (*model.AccessConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessConfig), args.Error(1)
}

func (m *MockPolicyStore) CountDailyEntries(ctx context.Context, userID string, dayStart, dayEnd time.Time) (int, error) {
	args := m.Called(ctx, userID, dayStart, dayEnd)
	return args.Int(0), args.Error(1)
}
