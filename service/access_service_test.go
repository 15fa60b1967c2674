// service/access_service_test.go
package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/luishdz04/muscleup-gym/audit"
	"github.com/luishdz04/muscleup-gym/broadcast"
	access_errors "github.com/luishdz04/muscleup-gym/errors"
	"github.com/luishdz04/muscleup-gym/model"
	"github.com/luishdz04/muscleup-gym/pdp/engine"
	test_mock "github.com/luishdz04/muscleup-gym/test/mock"
	"github.com/luishdz04/muscleup-gym/util"
)

type relayRecorder struct {
	mu    sync.Mutex
	opens []int
}

func (r *relayRecorder) OpenRelay(durationSeconds int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opens = append(r.opens, durationSeconds)
	return nil
}

func (r *relayRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.opens)
}

// newServiceUnderTest wires an AccessService over a mocked store with
// the global schedule disabled, so assertions are independent of the
// wall clock.
func newServiceUnderTest(t *testing.T, store *test_mock.MockPolicyStore, auditSvc audit.Service, relay *relayRecorder, eventBus *util.EventBus) *AccessService {
	t.Helper()
	cfg := model.DefaultAccessConfig()
	cfg.AccessScheduleEnabled = false
	store.On("Config", mock.Anything).Return(&cfg, nil)

	evaluator := engine.NewEvaluator(store, 300*time.Second, time.UTC)
	require.NoError(t, evaluator.ReloadConfig(context.Background()))

	return NewAccessService(evaluator, relay, auditSvc, eventBus, 5*time.Second)
}

func grantableStore() *test_mock.MockPolicyStore {
	store := new(test_mock.MockPolicyStore)
	store.On("UserByDeviceCredential", mock.Anything, "7").
		Return(&model.User{ID: "u-1", FirstName: "Ana", Fingerprint: true}, nil)
	store.On("LatestMembership", mock.Anything, "u-1").
		Return(&model.Membership{
			ID:          "m-1",
			UserID:      "u-1",
			Status:      model.MembershipActive,
			PaymentType: model.PaymentTypePeriod,
		}, nil)
	store.On("ActiveGrant", mock.Anything, "u-1", mock.Anything).Return(nil, nil)
	return store
}

func subscribe(eventBus *util.EventBus, eventType string) <-chan broadcast.AccessMessage {
	ch := make(chan broadcast.AccessMessage, 1)
	eventBus.Subscribe(eventType, func(ctx context.Context, event util.Event) error {
		ch <- event.Payload.(broadcast.AccessMessage)
		return nil
	})
	return ch
}

func TestProcessEventGrantedOpensRelay(t *testing.T) {
	store := grantableStore()
	auditSvc := new(test_mock.MockAuditService)
	auditSvc.On("LogAccess", mock.Anything, mock.MatchedBy(func(entry audit.Entry) bool {
		return entry.Granted && entry.AccessType == "entry" && entry.AccessMethod == "fingerprint"
	})).Return(nil)
	relay := &relayRecorder{}
	eventBus := util.NewEventBus()
	granted := subscribe(eventBus, util.EventAccessGranted)

	svc := newServiceUnderTest(t, store, auditSvc, relay, eventBus)
	svc.ProcessEvent(context.Background(), model.AccessEvent{
		DeviceUserID: "7",
		Timestamp:    time.Now(),
	})

	assert.Equal(t, 1, relay.count())
	assert.Equal(t, []int{5}, relay.opens)
	auditSvc.AssertExpectations(t)

	select {
	case msg := <-granted:
		assert.Equal(t, broadcast.TypeAccessGranted, msg.Type)
		assert.Equal(t, "u-1", msg.UserID)
	case <-time.After(time.Second):
		t.Fatal("no grant broadcast")
	}
}

func TestProcessEventAuditsTapTimeOnCachedVerdict(t *testing.T) {
	store := grantableStore()
	var entries []audit.Entry
	var mu sync.Mutex
	auditSvc := new(test_mock.MockAuditService)
	auditSvc.On("LogAccess", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			mu.Lock()
			entries = append(entries, args.Get(1).(audit.Entry))
			mu.Unlock()
		}).Return(nil)
	relay := &relayRecorder{}
	svc := newServiceUnderTest(t, store, auditSvc, relay, util.NewEventBus())

	firstTap := time.Date(2025, 3, 11, 12, 0, 0, 0, time.UTC)
	secondTap := firstTap.Add(30 * time.Second)
	svc.ProcessEvent(context.Background(), model.AccessEvent{DeviceUserID: "7", Timestamp: firstTap})
	svc.ProcessEvent(context.Background(), model.AccessEvent{DeviceUserID: "7", Timestamp: secondTap})

	// The second pass is served from the verdict cache; its audit row
	// must still carry the second tap's time.
	store.AssertNumberOfCalls(t, "UserByDeviceCredential", 1)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Timestamp.Equal(firstTap))
	assert.True(t, entries[1].Timestamp.Equal(secondTap))
}

func TestProcessEventDeniedKeepsRelayClosed(t *testing.T) {
	store := new(test_mock.MockPolicyStore)
	store.On("UserByDeviceCredential", mock.Anything, "99").
		Return(nil, access_errors.ErrUserNotFound)
	auditSvc := new(test_mock.MockAuditService)
	auditSvc.On("LogAccess", mock.Anything, mock.MatchedBy(func(entry audit.Entry) bool {
		return !entry.Granted && entry.AccessType == "denied" && entry.DenialReason == "unknown credential"
	})).Return(nil)
	relay := &relayRecorder{}
	eventBus := util.NewEventBus()
	denied := subscribe(eventBus, util.EventAccessDenied)

	svc := newServiceUnderTest(t, store, auditSvc, relay, eventBus)
	svc.ProcessEvent(context.Background(), model.AccessEvent{
		DeviceUserID: "99",
		Timestamp:    time.Now(),
	})

	assert.Equal(t, 0, relay.count())
	auditSvc.AssertExpectations(t)

	select {
	case msg := <-denied:
		assert.Equal(t, broadcast.TypeAccessDenied, msg.Type)
		assert.Equal(t, "unknown credential", msg.Reason)
	case <-time.After(time.Second):
		t.Fatal("no denial broadcast")
	}
}

func TestValidateAccessHasNoSideEffects(t *testing.T) {
	store := grantableStore()
	auditSvc := new(test_mock.MockAuditService)
	relay := &relayRecorder{}

	svc := newServiceUnderTest(t, store, auditSvc, relay, util.NewEventBus())
	verdict := svc.ValidateAccess(context.Background(), "7")

	assert.True(t, verdict.Granted)
	assert.Equal(t, 0, relay.count())
	auditSvc.AssertNotCalled(t, "LogAccess")
}

func TestReloadConfigPublishesEvent(t *testing.T) {
	store := grantableStore()
	eventBus := util.NewEventBus()
	reloaded := make(chan struct{}, 1)
	eventBus.Subscribe(util.EventConfigReloaded, func(ctx context.Context, event util.Event) error {
		reloaded <- struct{}{}
		return nil
	})

	svc := newServiceUnderTest(t, store, new(test_mock.MockAuditService), &relayRecorder{}, eventBus)
	require.NoError(t, svc.ReloadConfig(context.Background()))

	select {
	case <-reloaded:
	case <-time.After(time.Second):
		t.Fatal("no config reload event")
	}
}
