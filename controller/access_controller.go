// controller/access_controller.go
package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/luishdz04/muscleup-gym/broadcast"
	"github.com/luishdz04/muscleup-gym/device"
	access_errors "github.com/luishdz04/muscleup-gym/errors"
	"github.com/luishdz04/muscleup-gym/ingest"
	logger "github.com/luishdz04/muscleup-gym/logging"
	"github.com/luishdz04/muscleup-gym/reconcile"
	"github.com/luishdz04/muscleup-gym/service"
	"github.com/luishdz04/muscleup-gym/util"
)

// wsRequest is one admin command over the observer socket.
type wsRequest struct {
	Action       string `json:"action"`
	DeviceUserID string `json:"device_user_id,omitempty"`
}

type AccessController struct {
	accessService *service.AccessService
	monitor       *ingest.Monitor
	reconciler    *reconcile.Reconciler
	driver        device.Driver
	hub           *broadcast.Hub
	syncInterval  time.Duration
	upgrader      websocket.Upgrader
}

func NewAccessController(
	accessService *service.AccessService,
	monitor *ingest.Monitor,
	reconciler *reconcile.Reconciler,
	driver device.Driver,
	hub *broadcast.Hub,
	syncInterval time.Duration,
) *AccessController {
	return &AccessController{
		accessService: accessService,
		monitor:       monitor,
		reconciler:    reconciler,
		driver:        driver,
		hub:           hub,
		syncInterval:  syncInterval,
		upgrader: websocket.Upgrader{
			// Observers connect from dashboards on other origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// RegisterRoutes registers the API routes
func (ac *AccessController) RegisterRoutes(r *gin.RouterGroup) {
	access := r.Group("/access")
	{
		access.POST("/validate", ac.ValidateAccess)
		access.POST("/reload-config", ac.ReloadConfig)
		access.GET("/config", ac.GetConfig)
	}
	dev := r.Group("/device")
	{
		dev.GET("/status", ac.GetStatus)
		dev.POST("/sync", ac.SyncNow)
		dev.POST("/monitor/start", ac.StartMonitoring)
		dev.POST("/monitor/stop", ac.StopMonitoring)
	}
	r.GET("/ws", ac.ServeWebSocket)
}

// ValidateAccess endpoint: evaluates a credential without opening the
// relay.
func (ac *AccessController) ValidateAccess(c *gin.Context) {
	var req wsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.DeviceUserID == "" {
		util.RespondWithError(c, http.StatusBadRequest, "Missing device_user_id", access_errors.ErrInvalidCredential)
		return
	}
	verdict := ac.accessService.ValidateAccess(c, req.DeviceUserID)
	c.JSON(http.StatusOK, verdict)
}

// ReloadConfig endpoint
func (ac *AccessController) ReloadConfig(c *gin.Context) {
	if err := ac.accessService.ReloadConfig(c); err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to reload access configuration", err)
		return
	}
	c.JSON(http.StatusOK, ac.accessService.Config())
}

// GetConfig endpoint
func (ac *AccessController) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, ac.accessService.Config())
}

// GetStatus endpoint
func (ac *AccessController) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, ac.statusPayload())
}

// SyncNow endpoint: triggers one reconciliation pass out of schedule.
func (ac *AccessController) SyncNow(c *gin.Context) {
	result, err := ac.reconciler.Reconcile(c)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Reconciliation failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// StartMonitoring endpoint
func (ac *AccessController) StartMonitoring(c *gin.Context) {
	started := ac.monitor.Start(context.Background())
	c.JSON(http.StatusOK, gin.H{"monitoring": true, "started": started})
}

// StopMonitoring endpoint
func (ac *AccessController) StopMonitoring(c *gin.Context) {
	ac.monitor.Stop()
	c.JSON(http.StatusOK, gin.H{"monitoring": false})
}

// ServeWebSocket upgrades an observer connection. The socket carries
// both directions: broadcast verdict/reconcile messages going out, and
// admin commands coming in.
func (ac *AccessController) ServeWebSocket(c *gin.Context) {
	conn, err := ac.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}
	client := ac.hub.Register(conn)
	defer func() {
		ac.hub.Unregister(client)
		conn.Close()
	}()

	logger.Info("Observer connected", zap.String("remote", conn.RemoteAddr().String()))

	if err := client.Send(ac.connectionStatus()); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			logger.Info("Observer disconnected", zap.String("remote", conn.RemoteAddr().String()))
			return
		}
		var req wsRequest
		if err := json.Unmarshal(data, &req); err != nil {
			client.Send(gin.H{"type": "error", "message": "invalid message"})
			continue
		}
		ac.handleAction(c.Request.Context(), client, req)
	}
}

func (ac *AccessController) handleAction(ctx context.Context, client *broadcast.Client, req wsRequest) {
	switch req.Action {
	case "connect":
		if err := ac.driver.Connect(); err != nil {
			client.Send(gin.H{"type": "error", "action": req.Action, "message": err.Error()})
			return
		}
		client.Send(ac.connectionStatus())

	case "disconnect":
		ac.monitor.Stop()
		if err := ac.driver.Disconnect(); err != nil {
			client.Send(gin.H{"type": "error", "action": req.Action, "message": err.Error()})
			return
		}
		client.Send(ac.connectionStatus())

	case "start_monitoring":
		ac.monitor.Start(context.Background())
		client.Send(gin.H{"type": "monitoring_status", "active": true})

	case "stop_monitoring":
		ac.monitor.Stop()
		client.Send(gin.H{"type": "monitoring_status", "active": false})

	case "validate_access":
		if req.DeviceUserID == "" {
			client.Send(gin.H{"type": "error", "action": req.Action, "message": "missing device_user_id"})
			return
		}
		verdict := ac.accessService.ValidateAccess(ctx, req.DeviceUserID)
		client.Send(gin.H{"type": "validation_result", "verdict": verdict})

	case "reload_config":
		if err := ac.accessService.ReloadConfig(ctx); err != nil {
			client.Send(gin.H{"type": "error", "action": req.Action, "message": err.Error()})
			return
		}
		client.Send(gin.H{"type": "config_reloaded", "config": ac.accessService.Config()})

	case "get_status":
		client.Send(ac.statusPayload())

	case "sync_now":
		result, err := ac.reconciler.Reconcile(ctx)
		if err != nil {
			client.Send(gin.H{"type": "error", "action": req.Action, "message": err.Error()})
			return
		}
		client.Send(broadcast.ReconcileMessage{
			Type:      broadcast.TypeReconcileCompleted,
			Counts:    result,
			Timestamp: time.Now().Format(time.RFC3339),
		})

	default:
		client.Send(gin.H{"type": "error", "message": "unknown action: " + req.Action})
	}
}

func (ac *AccessController) connectionStatus() gin.H {
	return gin.H{
		"type":       broadcast.TypeConnectionStatus,
		"monitoring": ac.monitor.IsRunning(),
		"timestamp":  time.Now().Format(time.RFC3339),
	}
}

func (ac *AccessController) statusPayload() gin.H {
	return gin.H{
		"type":          "status",
		"monitoring":    ac.monitor.IsRunning(),
		"observers":     ac.hub.ClientCount(),
		"sync_interval": ac.syncInterval.String(),
		"config":        ac.accessService.Config(),
		"timestamp":     time.Now().Format(time.RFC3339),
	}
}
