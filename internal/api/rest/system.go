package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KevinKickass/ioplusd/internal/ioplus"
)

// GET /api/v1/system/status
func (s *Server) getSystemStatus(c *gin.Context) {
	status := s.lm.GetCurrentStatus()
	c.JSON(http.StatusOK, status)
}

// GET /api/v1/system/detect
func (s *Server) detectBoards(c *gin.Context) {
	stacks := s.driver().Detect()
	configured := make(map[int]string)
	for _, b := range s.lm.BoardManager().ListBoards() {
		configured[b.Definition.Stack] = b.Definition.Name
	}

	found := make([]gin.H, 0, len(stacks))
	for _, stack := range stacks {
		entry := gin.H{
			"stack":   stack,
			"address": fmt.Sprintf("0x%02X", ioplus.Address(stack)),
		}
		if name, ok := configured[stack]; ok {
			entry["board"] = name
		}
		found = append(found, entry)
	}
	c.JSON(http.StatusOK, gin.H{"count": len(found), "boards": found})
}

// POST /api/v1/system/shutdown
func (s *Server) shutdown(c *gin.Context) {
	c.JSON(http.StatusAccepted, gin.H{
		"message": "Shutdown initiated",
	})

	// the request context ends with this handler
	timeout := s.lm.Config().Server.ShutdownTimeout
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.lm.Shutdown(ctx); err != nil {
			s.logger.Error("Shutdown failed", zap.Error(err))
		}
	}()
}
