package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/KevinKickass/ioplusd/internal/api/websocket"
	"github.com/KevinKickass/ioplusd/internal/auth"
	"github.com/KevinKickass/ioplusd/internal/interfaces"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router      *gin.Engine
	lm          interfaces.LifecycleManager
	logger      *zap.Logger
	server      *http.Server
	wsHub       *websocket.Hub
	authService *auth.AuthService
}

func NewServer(lm interfaces.LifecycleManager, logger *zap.Logger, wsHub *websocket.Hub, authService *auth.AuthService) *Server {
	s := &Server{
		router:      gin.New(),
		lm:          lm,
		logger:      logger,
		wsHub:       wsHub,
		authService: authService,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", lm.Config().Server.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves in the background. errc receives the error if the listener
// fails after startup.
func (s *Server) Start(errc chan<- error) {
	s.logger.Info("Starting REST API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("REST server failed", zap.Error(err))
			if errc != nil {
				errc <- err
			}
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down REST API server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Middleware
	s.router.Use(gin.Recovery())
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(CORSMiddleware())

	// Public routes (no auth required)
	s.router.GET("/health", s.healthCheck)

	v1 := s.router.Group("/api/v1")
	{
		// ==================== AUTH ====================
		v1.POST("/auth/login", s.login)
		v1.GET("/auth/me", s.authService.AuthMiddleware(), s.getCurrentUser)

		// ==================== SYSTEM ====================
		system := v1.Group("/system")
		system.Use(s.authService.AuthMiddleware())
		{
			system.GET("/status", auth.RequirePermission(auth.PermOperator), s.getSystemStatus)
			system.GET("/detect", auth.RequirePermission(auth.PermOperator), s.detectBoards)
			system.POST("/shutdown", auth.RequirePermission(auth.PermAdmin), s.shutdown)
		}

		// ==================== BOARDS ====================
		boards := v1.Group("/boards")
		boards.Use(s.authService.AuthMiddleware())
		{
			// Read: Operator+
			boards.GET("", auth.RequirePermission(auth.PermOperator), s.listBoards)
			boards.GET("/:name", auth.RequirePermission(auth.PermOperator), s.getBoard)
			boards.GET("/:name/units", auth.RequirePermission(auth.PermOperator), s.listUnits)

			// Switch outputs: Technician+
			boards.POST("/:name/units/:unit/command", auth.RequirePermission(auth.PermTechnician), s.commandUnit)

			// Configure: Admin only
			boards.POST("", auth.RequirePermission(auth.PermAdmin), s.createBoard)
			boards.POST("/:name/start", auth.RequirePermission(auth.PermAdmin), s.startBoard)
			boards.DELETE("/:name", auth.RequirePermission(auth.PermAdmin), s.deleteBoard)
		}

		// ==================== RAW REGISTER ACCESS ====================
		stacks := v1.Group("/stacks/:stack")
		stacks.Use(s.authService.AuthMiddleware())
		s.setupStackRoutes(stacks)

		// ==================== WEBSOCKET (auth via first message) ====================
		v1.GET("/ws/live", s.wsLiveConnection)
		v1.GET("/ws/status", s.authService.AuthMiddleware(), auth.RequirePermission(auth.PermOperator), s.wsStatus)
	}
}

func (s *Server) setupStackRoutes(g *gin.RouterGroup) {
	read := auth.RequirePermission(auth.PermOperator)
	write := auth.RequirePermission(auth.PermTechnician)
	admin := auth.RequirePermission(auth.PermAdmin)

	// Relays and opto inputs
	g.GET("/relays", read, s.getRelays)
	g.PUT("/relays", write, s.setRelays)
	g.GET("/relays/:ch", read, s.getRelay)
	g.PUT("/relays/:ch", write, s.setRelay)
	g.GET("/optos", read, s.getOptos)
	g.GET("/optos/:ch", read, s.getOpto)

	// Analog
	g.GET("/adc/:ch", read, s.getADCVolts)
	g.GET("/adc/:ch/raw", read, s.getADCRaw)
	g.GET("/dac/:ch", read, s.getDAC)
	g.PUT("/dac/:ch", write, s.setDAC)
	g.GET("/pwm/:ch", read, s.getPWM)
	g.PUT("/pwm/:ch", write, s.setPWM)

	// GPIO
	g.GET("/gpio", read, s.getGPIOs)
	g.GET("/gpio/direction", read, s.getGPIODirection)
	g.PUT("/gpio/direction", write, s.setGPIODirection)
	g.PUT("/gpio/pins/:ch", write, s.setGPIO)

	// Counters
	g.GET("/optos/:ch/edge", read, s.getOptoEdge)
	g.PUT("/optos/:ch/edge", admin, s.setOptoEdge)
	g.GET("/optos/:ch/count", read, s.getOptoCount)
	g.DELETE("/optos/:ch/count", admin, s.resetOptoCount)
	g.GET("/gpio/pins/:ch/edge", read, s.getGPIOEdge)
	g.PUT("/gpio/pins/:ch/edge", admin, s.setGPIOEdge)
	g.GET("/gpio/pins/:ch/count", read, s.getGPIOCount)
	g.DELETE("/gpio/pins/:ch/count", admin, s.resetGPIOCount)

	// Encoders
	g.GET("/encoders/:ch", read, s.getEncoder)
	g.PUT("/encoders/:ch", admin, s.setEncoder)
	g.GET("/encoders/:ch/count", read, s.getEncoderCount)
	g.DELETE("/encoders/:ch/count", admin, s.resetEncoderCount)

	// One-wire
	g.GET("/onewire", read, s.getOneWireCount)
	g.POST("/onewire/scan", admin, s.scanOneWire)
	g.GET("/onewire/sensors/:ch/id", read, s.getOneWireID)
	g.GET("/onewire/sensors/:ch/temperature", read, s.getOneWireTemperature)

	// Board health
	g.GET("/info", read, s.getBoardInfo)
	g.GET("/watchdog", read, s.getWatchdog)
	g.PUT("/watchdog", admin, s.setWatchdog)
	g.POST("/watchdog/reload", write, s.reloadWatchdog)
	g.GET("/calibration", read, s.getCalibrationStatus)
	g.PUT("/calibration/adc/:ch", admin, s.calibrateADC)
	g.DELETE("/calibration/adc/:ch", admin, s.resetADCCalibration)
	g.PUT("/calibration/dac/:ch", admin, s.calibrateDAC)
	g.DELETE("/calibration/dac/:ch", admin, s.resetDACCalibration)
}

// WebSocket handlers
func (s *Server) wsLiveConnection(c *gin.Context) {
	websocket.ServeWs(s.wsHub, c.Writer, c.Request)
}

func (s *Server) wsStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected_clients": s.wsHub.GetClientCount(),
	})
}

// Health check (public)
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}
