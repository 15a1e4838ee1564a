package rest

import (
	"encoding/hex"
	"net/http"

	"github.com/KevinKickass/ioplusd/internal/ioplus"
	"github.com/KevinKickass/ioplusd/internal/types"
	"github.com/gin-gonic/gin"
)

type stateRequest struct {
	State *bool `json:"state" binding:"required"`
}

type valueRequest struct {
	Value *int `json:"value" binding:"required"`
}

type voltsRequest struct {
	Volts *float64 `json:"volts" binding:"required"`
}

type edgeRequest struct {
	Edge string `json:"edge" binding:"required"`
}

type watchdogRequest struct {
	Period     *int `json:"period"`
	InitPeriod *int `json:"init_period"`
	OffPeriod  *int `json:"off_period"`
}

func (s *Server) driver() *ioplus.Driver {
	return s.lm.Driver()
}

// ==================== RELAYS / OPTOS ====================

// GET /api/v1/stacks/:stack/relays
func (s *Server) getRelays(c *gin.Context) {
	stack, ok := stackParam(c)
	if !ok {
		return
	}
	v, err := s.driver().Relays(stack)
	if err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "value": v})
}

// PUT /api/v1/stacks/:stack/relays
func (s *Server) setRelays(c *gin.Context) {
	stack, ok := stackParam(c)
	if !ok {
		return
	}
	var req valueRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.driver().SetRelays(stack, *req.Value); err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "value": *req.Value})
}

// GET /api/v1/stacks/:stack/relays/:ch
func (s *Server) getRelay(c *gin.Context) {
	stack, ch, ok := stackChannel(c)
	if !ok {
		return
	}
	on, err := s.driver().Relay(stack, ch)
	if err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "channel": ch, "state": on})
}

// PUT /api/v1/stacks/:stack/relays/:ch
func (s *Server) setRelay(c *gin.Context) {
	stack, ch, ok := stackChannel(c)
	if !ok {
		return
	}
	var req stateRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.driver().SetRelay(stack, ch, *req.State); err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "channel": ch, "state": *req.State})
}

// GET /api/v1/stacks/:stack/optos
func (s *Server) getOptos(c *gin.Context) {
	stack, ok := stackParam(c)
	if !ok {
		return
	}
	v, err := s.driver().Optos(stack)
	if err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "value": v})
}

// GET /api/v1/stacks/:stack/optos/:ch
func (s *Server) getOpto(c *gin.Context) {
	stack, ch, ok := stackChannel(c)
	if !ok {
		return
	}
	on, err := s.driver().Opto(stack, ch)
	if err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "channel": ch, "state": on})
}

// ==================== ANALOG ====================

// GET /api/v1/stacks/:stack/adc/:ch
func (s *Server) getADCVolts(c *gin.Context) {
	stack, ch, ok := stackChannel(c)
	if !ok {
		return
	}
	v, err := s.driver().ADCVolts(stack, ch)
	if err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "channel": ch, "volts": v})
}

// GET /api/v1/stacks/:stack/adc/:ch/raw
func (s *Server) getADCRaw(c *gin.Context) {
	stack, ch, ok := stackChannel(c)
	if !ok {
		return
	}
	v, err := s.driver().ADCRaw(stack, ch)
	if err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "channel": ch, "raw": v})
}

// GET /api/v1/stacks/:stack/dac/:ch
func (s *Server) getDAC(c *gin.Context) {
	stack, ch, ok := stackChannel(c)
	if !ok {
		return
	}
	v, err := s.driver().DACVolts(stack, ch)
	if err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "channel": ch, "volts": v})
}

// PUT /api/v1/stacks/:stack/dac/:ch
func (s *Server) setDAC(c *gin.Context) {
	stack, ch, ok := stackChannel(c)
	if !ok {
		return
	}
	var req voltsRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.driver().SetDACVolts(stack, ch, *req.Volts); err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "channel": ch, "volts": *req.Volts})
}

// GET /api/v1/stacks/:stack/pwm/:ch
func (s *Server) getPWM(c *gin.Context) {
	stack, ch, ok := stackChannel(c)
	if !ok {
		return
	}
	v, err := s.driver().PWM(stack, ch)
	if err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "channel": ch, "duty": v})
}

// PUT /api/v1/stacks/:stack/pwm/:ch
func (s *Server) setPWM(c *gin.Context) {
	stack, ch, ok := stackChannel(c)
	if !ok {
		return
	}
	var req valueRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.driver().SetPWM(stack, ch, *req.Value); err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "channel": ch, "duty": *req.Value})
}

// ==================== GPIO ====================

// GET /api/v1/stacks/:stack/gpio
func (s *Server) getGPIOs(c *gin.Context) {
	stack, ok := stackParam(c)
	if !ok {
		return
	}
	v, err := s.driver().GPIOs(stack)
	if err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "value": v})
}

// PUT /api/v1/stacks/:stack/gpio/pins/:ch
func (s *Server) setGPIO(c *gin.Context) {
	stack, pin, ok := stackChannel(c)
	if !ok {
		return
	}
	var req stateRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.driver().SetGPIO(stack, pin, *req.State); err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "pin": pin, "state": *req.State})
}

// GET /api/v1/stacks/:stack/gpio/direction
func (s *Server) getGPIODirection(c *gin.Context) {
	stack, ok := stackParam(c)
	if !ok {
		return
	}
	v, err := s.driver().GPIODirection(stack)
	if err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "value": v})
}

// PUT /api/v1/stacks/:stack/gpio/direction
func (s *Server) setGPIODirection(c *gin.Context) {
	stack, ok := stackParam(c)
	if !ok {
		return
	}
	var req valueRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.driver().SetGPIODirection(stack, *req.Value); err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "value": *req.Value})
}

// ==================== COUNTERS ====================

func parseEdge(c *gin.Context) (ioplus.Edge, bool) {
	var req edgeRequest
	if !bindJSON(c, &req) {
		return ioplus.EdgeNone, false
	}
	edge, ok := ioplus.ParseEdge(req.Edge)
	if !ok {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeInvalidArgument, "Unknown edge, want none, rising, falling or both", req.Edge))
		return ioplus.EdgeNone, false
	}
	return edge, true
}

// GET /api/v1/stacks/:stack/optos/:ch/edge
func (s *Server) getOptoEdge(c *gin.Context) {
	stack, ch, ok := stackChannel(c)
	if !ok {
		return
	}
	edge, err := s.driver().OptoEdge(stack, ch)
	if err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "channel": ch, "edge": edge.String()})
}

// PUT /api/v1/stacks/:stack/optos/:ch/edge
func (s *Server) setOptoEdge(c *gin.Context) {
	stack, ch, ok := stackChannel(c)
	if !ok {
		return
	}
	edge, ok := parseEdge(c)
	if !ok {
		return
	}
	if err := s.driver().SetOptoEdge(stack, ch, edge); err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "channel": ch, "edge": edge.String()})
}

// GET /api/v1/stacks/:stack/optos/:ch/count
func (s *Server) getOptoCount(c *gin.Context) {
	stack, ch, ok := stackChannel(c)
	if !ok {
		return
	}
	n, err := s.driver().OptoCount(stack, ch)
	if err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "channel": ch, "count": n})
}

// DELETE /api/v1/stacks/:stack/optos/:ch/count
func (s *Server) resetOptoCount(c *gin.Context) {
	stack, ch, ok := stackChannel(c)
	if !ok {
		return
	}
	if err := s.driver().ResetOptoCount(stack, ch); err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "channel": ch, "count": 0})
}

// GET /api/v1/stacks/:stack/gpio/pins/:ch/edge
func (s *Server) getGPIOEdge(c *gin.Context) {
	stack, pin, ok := stackChannel(c)
	if !ok {
		return
	}
	edge, err := s.driver().GPIOEdge(stack, pin)
	if err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "pin": pin, "edge": edge.String()})
}

// PUT /api/v1/stacks/:stack/gpio/pins/:ch/edge
func (s *Server) setGPIOEdge(c *gin.Context) {
	stack, pin, ok := stackChannel(c)
	if !ok {
		return
	}
	edge, ok := parseEdge(c)
	if !ok {
		return
	}
	if err := s.driver().SetGPIOEdge(stack, pin, edge); err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "pin": pin, "edge": edge.String()})
}

// GET /api/v1/stacks/:stack/gpio/pins/:ch/count
func (s *Server) getGPIOCount(c *gin.Context) {
	stack, pin, ok := stackChannel(c)
	if !ok {
		return
	}
	n, err := s.driver().GPIOCount(stack, pin)
	if err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "pin": pin, "count": n})
}

// DELETE /api/v1/stacks/:stack/gpio/pins/:ch/count
func (s *Server) resetGPIOCount(c *gin.Context) {
	stack, pin, ok := stackChannel(c)
	if !ok {
		return
	}
	if err := s.driver().ResetGPIOCount(stack, pin); err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "pin": pin, "count": 0})
}

// ==================== ENCODERS ====================

// GET /api/v1/stacks/:stack/encoders/:ch
func (s *Server) getEncoder(c *gin.Context) {
	stack, ch, ok := stackChannel(c)
	if !ok {
		return
	}
	on, err := s.driver().OptoEncoder(stack, ch)
	if err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "channel": ch, "enabled": on})
}

// PUT /api/v1/stacks/:stack/encoders/:ch
func (s *Server) setEncoder(c *gin.Context) {
	stack, ch, ok := stackChannel(c)
	if !ok {
		return
	}
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := s.driver().SetOptoEncoder(stack, ch, *req.Enabled); err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "channel": ch, "enabled": *req.Enabled})
}

// GET /api/v1/stacks/:stack/encoders/:ch/count
func (s *Server) getEncoderCount(c *gin.Context) {
	stack, ch, ok := stackChannel(c)
	if !ok {
		return
	}
	n, err := s.driver().OptoEncoderCount(stack, ch)
	if err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "channel": ch, "count": n})
}

// DELETE /api/v1/stacks/:stack/encoders/:ch/count
func (s *Server) resetEncoderCount(c *gin.Context) {
	stack, ch, ok := stackChannel(c)
	if !ok {
		return
	}
	if err := s.driver().ResetOptoEncoderCount(stack, ch); err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "channel": ch, "count": 0})
}

// ==================== ONE-WIRE ====================

// GET /api/v1/stacks/:stack/onewire
func (s *Server) getOneWireCount(c *gin.Context) {
	stack, ok := stackParam(c)
	if !ok {
		return
	}
	n, err := s.driver().OneWireSensorCount(stack)
	if err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "sensors": n})
}

// POST /api/v1/stacks/:stack/onewire/scan
func (s *Server) scanOneWire(c *gin.Context) {
	stack, ok := stackParam(c)
	if !ok {
		return
	}
	if err := s.driver().OneWireScan(stack); err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"stack": stack, "message": "Scan started"})
}

// GET /api/v1/stacks/:stack/onewire/sensors/:ch/id
func (s *Server) getOneWireID(c *gin.Context) {
	stack, ch, ok := stackChannel(c)
	if !ok {
		return
	}
	id, err := s.driver().OneWireSensorID(stack, ch)
	if err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "channel": ch, "id": hex.EncodeToString(id)})
}

// GET /api/v1/stacks/:stack/onewire/sensors/:ch/temperature
func (s *Server) getOneWireTemperature(c *gin.Context) {
	stack, ch, ok := stackChannel(c)
	if !ok {
		return
	}
	t, err := s.driver().OneWireTemperature(stack, ch)
	if err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "channel": ch, "celsius": t})
}

// ==================== BOARD HEALTH ====================

// GET /api/v1/stacks/:stack/info
func (s *Server) getBoardInfo(c *gin.Context) {
	stack, ok := stackParam(c)
	if !ok {
		return
	}
	info, err := s.driver().BoardInfo(stack)
	if err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stack":           stack,
		"address":         ioplus.Address(stack),
		"hardware":        info.Hardware(),
		"firmware":        info.Firmware(),
		"cpu_temperature": info.CPUTemperature,
		"supply_volts":    info.SupplyVolts,
	})
}

// GET /api/v1/stacks/:stack/watchdog
func (s *Server) getWatchdog(c *gin.Context) {
	stack, ok := stackParam(c)
	if !ok {
		return
	}
	d := s.driver()
	period, err := d.WatchdogPeriod(stack)
	if err != nil {
		driverError(c, err)
		return
	}
	initPeriod, err := d.WatchdogInitPeriod(stack)
	if err != nil {
		driverError(c, err)
		return
	}
	offPeriod, err := d.WatchdogOffPeriod(stack)
	if err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stack":       stack,
		"period":      period,
		"init_period": initPeriod,
		"off_period":  offPeriod,
	})
}

// PUT /api/v1/stacks/:stack/watchdog
func (s *Server) setWatchdog(c *gin.Context) {
	stack, ok := stackParam(c)
	if !ok {
		return
	}
	var req watchdogRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Period == nil && req.InitPeriod == nil && req.OffPeriod == nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeInvalidArgument, "No watchdog period given", nil))
		return
	}

	d := s.driver()
	if req.Period != nil {
		if err := d.SetWatchdogPeriod(stack, *req.Period); err != nil {
			driverError(c, err)
			return
		}
	}
	if req.InitPeriod != nil {
		if err := d.SetWatchdogInitPeriod(stack, *req.InitPeriod); err != nil {
			driverError(c, err)
			return
		}
	}
	if req.OffPeriod != nil {
		if err := d.SetWatchdogOffPeriod(stack, *req.OffPeriod); err != nil {
			driverError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "message": "Watchdog updated"})
}

// POST /api/v1/stacks/:stack/watchdog/reload
func (s *Server) reloadWatchdog(c *gin.Context) {
	stack, ok := stackParam(c)
	if !ok {
		return
	}
	if err := s.driver().WatchdogReload(stack); err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "message": "Watchdog reloaded"})
}

// GET /api/v1/stacks/:stack/calibration
func (s *Server) getCalibrationStatus(c *gin.Context) {
	stack, ok := stackParam(c)
	if !ok {
		return
	}
	st, err := s.driver().CalibrationStatus(stack)
	if err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stack": stack, "status": st.String()})
}

// PUT /api/v1/stacks/:stack/calibration/adc/:ch
func (s *Server) calibrateADC(c *gin.Context) {
	s.calibrate(c, (*ioplus.Driver).CalibrateADC)
}

// PUT /api/v1/stacks/:stack/calibration/dac/:ch
func (s *Server) calibrateDAC(c *gin.Context) {
	s.calibrate(c, (*ioplus.Driver).CalibrateDAC)
}

func (s *Server) calibrate(c *gin.Context, fn func(*ioplus.Driver, int, int, float64) error) {
	stack, ch, ok := stackChannel(c)
	if !ok {
		return
	}
	var req voltsRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := fn(s.driver(), stack, ch, *req.Volts); err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"stack": stack, "channel": ch, "volts": *req.Volts})
}

// DELETE /api/v1/stacks/:stack/calibration/adc/:ch
func (s *Server) resetADCCalibration(c *gin.Context) {
	s.resetCalibration(c, (*ioplus.Driver).ResetADCCalibration)
}

// DELETE /api/v1/stacks/:stack/calibration/dac/:ch
func (s *Server) resetDACCalibration(c *gin.Context) {
	s.resetCalibration(c, (*ioplus.Driver).ResetDACCalibration)
}

func (s *Server) resetCalibration(c *gin.Context, fn func(*ioplus.Driver, int, int) error) {
	stack, ch, ok := stackChannel(c)
	if !ok {
		return
	}
	if err := fn(s.driver(), stack, ch); err != nil {
		driverError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"stack": stack, "channel": ch, "message": "Calibration reset"})
}
