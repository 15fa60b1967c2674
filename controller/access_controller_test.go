// controller/access_controller_test.go
package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/luishdz04/muscleup-gym/broadcast"
	"github.com/luishdz04/muscleup-gym/device"
	"github.com/luishdz04/muscleup-gym/ingest"
	"github.com/luishdz04/muscleup-gym/model"
	"github.com/luishdz04/muscleup-gym/pdp/engine"
	"github.com/luishdz04/muscleup-gym/reconcile"
	"github.com/luishdz04/muscleup-gym/service"
	test_mock "github.com/luishdz04/muscleup-gym/test/mock"
	"github.com/luishdz04/muscleup-gym/util"
)

type emptyEnrollment struct{}

func (emptyEnrollment) EnrolledIdentities(ctx context.Context) ([]model.EnrolledIdentity, error) {
	return nil, nil
}

// newTestServer wires the full admin surface over a simulated terminal
// and a mocked store that grants credential "7".
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := new(test_mock.MockPolicyStore)
	cfg := model.DefaultAccessConfig()
	cfg.AccessScheduleEnabled = false
	store.On("Config", mock.Anything).Return(&cfg, nil)
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

	evaluator := engine.NewEvaluator(store, 300*time.Second, time.UTC)
	require.NoError(t, evaluator.ReloadConfig(context.Background()))

	driver := device.NewMemoryDriver()
	require.NoError(t, driver.Connect())

	auditSvc := new(test_mock.MockAuditService)
	svc := service.NewAccessService(evaluator, driver, auditSvc, util.NewEventBus(), 5*time.Second)

	monitor := ingest.NewMonitor(
		[]ingest.EventSource{ingest.NewRealtimeSource(driver)},
		ingest.NewDedupSet(1000), svc, 10*time.Millisecond, 10*time.Millisecond, nil)
	t.Cleanup(monitor.Stop)

	opts := reconcile.Options{AllowedGroupID: 2, DeniedGroupID: 3, AllowedTimezoneID: 1, DeniedTimezoneID: 2}
	writer := reconcile.NewPincerWriter(driver, opts.AllowedGroupID, opts.DeniedGroupID)
	reconciler := reconcile.NewReconciler(driver, emptyEnrollment{}, writer, evaluator, nil, opts)

	controller := NewAccessController(svc, monitor, reconciler, driver, broadcast.NewHub(), 5*time.Minute)

	r := gin.New()
	controller.RegisterRoutes(r.Group("/api/v1"))

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func dialObserver(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readReply(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func sendAction(t *testing.T, conn *websocket.Conn, req map[string]string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(req))
}

func TestObserverReceivesConnectionStatusOnConnect(t *testing.T) {
	server := newTestServer(t)
	conn := dialObserver(t, server)

	msg := readReply(t, conn)
	assert.Equal(t, broadcast.TypeConnectionStatus, msg["type"])
	assert.Equal(t, false, msg["monitoring"])
}

func TestObserverValidateAccessAction(t *testing.T) {
	server := newTestServer(t)
	conn := dialObserver(t, server)
	readReply(t, conn) // connection status

	sendAction(t, conn, map[string]string{"action": "validate_access", "device_user_id": "7"})

	msg := readReply(t, conn)
	require.Equal(t, "validation_result", msg["type"])
	verdict, ok := msg["verdict"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, verdict["granted"])
	assert.Equal(t, "u-1", verdict["user_id"])
}

func TestObserverValidateAccessWithoutCredential(t *testing.T) {
	server := newTestServer(t)
	conn := dialObserver(t, server)
	readReply(t, conn)

	sendAction(t, conn, map[string]string{"action": "validate_access"})

	msg := readReply(t, conn)
	assert.Equal(t, "error", msg["type"])
	assert.Equal(t, "missing device_user_id", msg["message"])
}

func TestObserverUnknownAction(t *testing.T) {
	server := newTestServer(t)
	conn := dialObserver(t, server)
	readReply(t, conn)

	sendAction(t, conn, map[string]string{"action": "reboot"})

	msg := readReply(t, conn)
	assert.Equal(t, "error", msg["type"])
	assert.Equal(t, "unknown action: reboot", msg["message"])
}

func TestObserverMalformedMessage(t *testing.T) {
	server := newTestServer(t)
	conn := dialObserver(t, server)
	readReply(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	msg := readReply(t, conn)
	assert.Equal(t, "error", msg["type"])
	assert.Equal(t, "invalid message", msg["message"])
}

func TestObserverGetStatusAction(t *testing.T) {
	server := newTestServer(t)
	conn := dialObserver(t, server)
	readReply(t, conn)

	sendAction(t, conn, map[string]string{"action": "get_status"})

	msg := readReply(t, conn)
	assert.Equal(t, "status", msg["type"])
	assert.Equal(t, float64(1), msg["observers"])
	assert.Contains(t, msg, "config")
}

func TestObserverSyncNowAction(t *testing.T) {
	server := newTestServer(t)
	conn := dialObserver(t, server)
	readReply(t, conn)

	sendAction(t, conn, map[string]string{"action": "sync_now"})

	msg := readReply(t, conn)
	assert.Equal(t, broadcast.TypeReconcileCompleted, msg["type"])
	assert.Contains(t, msg, "counts")
}

func TestValidateAccessEndpoint(t *testing.T) {
	server := newTestServer(t)

	body := bytes.NewBufferString(`{"device_user_id":"7"}`)
	resp, err := http.Post(server.URL+"/api/v1/access/validate", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var verdict map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&verdict))
	assert.Equal(t, true, verdict["granted"])
}

func TestValidateAccessEndpointMissingCredential(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/v1/access/validate", "application/json", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetStatusEndpoint(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/device/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "status", status["type"])
	assert.Equal(t, false, status["monitoring"])
}

func TestSyncNowEndpoint(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/v1/device/sync", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
