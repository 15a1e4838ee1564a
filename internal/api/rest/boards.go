package rest

import (
	"encoding/json"
	"net/http"

	"github.com/KevinKickass/ioplusd/internal/api/websocket"
	"github.com/KevinKickass/ioplusd/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GET /api/v1/boards
func (s *Server) listBoards(c *gin.Context) {
	list := s.lm.BoardManager().ListBoards()
	c.JSON(http.StatusOK, gin.H{
		"boards": list,
		"count":  len(list),
	})
}

// GET /api/v1/boards/:name
func (s *Server) getBoard(c *gin.Context) {
	board, ok := s.lm.BoardManager().GetBoard(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.CodeBoardNotFound, "Board not found", c.Param("name")))
		return
	}
	c.JSON(http.StatusOK, board.Status())
}

// GET /api/v1/boards/:name/units
func (s *Server) listUnits(c *gin.Context) {
	board, ok := s.lm.BoardManager().GetBoard(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.CodeBoardNotFound, "Board not found", c.Param("name")))
		return
	}
	units := board.Registry.Units()
	c.JSON(http.StatusOK, gin.H{
		"board": board.Definition.Name,
		"units": units,
		"count": len(units),
	})
}

// POST /api/v1/boards/:name/units/:unit/command
func (s *Server) commandUnit(c *gin.Context) {
	unit, ok := intParam(c, "unit")
	if !ok {
		return
	}

	var req struct {
		Command string `json:"command" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	name := c.Param("name")
	if err := s.lm.BoardManager().Command(name, unit, req.Command); err != nil {
		boardError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"board":   name,
		"unit":    unit,
		"command": req.Command,
	})
}

// POST /api/v1/boards
func (s *Server) createBoard(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeBoardInvalid, "Invalid request body", err.Error()))
		return
	}

	mgr := s.lm.BoardManager()
	if err := mgr.Validator().Validate(body); err != nil {
		boardError(c, err)
		return
	}

	def := types.BoardDefinition{Enabled: true}
	if err := json.Unmarshal(body, &def); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeBoardInvalid, "Invalid request body", err.Error()))
		return
	}

	board, err := mgr.AddBoard(c.Request.Context(), def)
	if err != nil {
		boardError(c, err)
		return
	}

	response := gin.H{"message": "Board created"}
	if board.Definition.Enabled {
		if err := mgr.StartBoard(board.Definition.Name); err != nil {
			s.logger.Warn("Failed to start board",
				zap.String("name", board.Definition.Name), zap.Error(err))
			response["start_error"] = err.Error()
		}
	}
	response["board"] = board.Status()

	s.wsHub.Broadcast(websocket.NewBoardMessage(websocket.MessageTypeBoardAdded,
		board.Definition.Name, board.Definition.Stack))

	c.JSON(http.StatusCreated, response)
}

// POST /api/v1/boards/:name/start
func (s *Server) startBoard(c *gin.Context) {
	name := c.Param("name")
	if err := s.lm.BoardManager().StartBoard(name); err != nil {
		boardError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Board started", "board": name})
}

// DELETE /api/v1/boards/:name
func (s *Server) deleteBoard(c *gin.Context) {
	name := c.Param("name")
	board, ok := s.lm.BoardManager().GetBoard(name)
	if !ok {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.CodeBoardNotFound, "Board not found", name))
		return
	}
	stack := board.Definition.Stack

	if err := s.lm.BoardManager().RemoveBoard(c.Request.Context(), name); err != nil {
		boardError(c, err)
		return
	}

	s.wsHub.Broadcast(websocket.NewBoardMessage(websocket.MessageTypeBoardRemoved, name, stack))

	c.JSON(http.StatusOK, gin.H{"message": "Board deleted"})
}
