package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/KevinKickass/ioplusd/internal/adapter"
	"github.com/KevinKickass/ioplusd/internal/boards"
	"github.com/KevinKickass/ioplusd/internal/ioplus"
	"github.com/KevinKickass/ioplusd/internal/types"
	"github.com/gin-gonic/gin"
)

// driverError maps the driver's error kinds onto HTTP status codes.
func driverError(c *gin.Context, err error) {
	details := operationDetails(err)
	switch {
	case ioplus.IsInvalidArgument(err):
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeInvalidArgument, "Invalid argument", details))
	case ioplus.IsSpuriousRead(err):
		c.JSON(http.StatusServiceUnavailable, types.NewErrorResponse(types.CodeSpuriousRead, "Unstable register value", details))
	case ioplus.IsTransport(err):
		c.JSON(http.StatusBadGateway, types.NewErrorResponse(types.CodeBusUnreachable, "Board not reachable", details))
	default:
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.CodeDriverFailure, "Driver failure", details))
	}
}

func operationDetails(err error) any {
	var opErr *ioplus.OpError
	if !errors.As(err, &opErr) {
		return err.Error()
	}
	reason := opErr.Kind.Error()
	if opErr.Err != nil {
		reason = opErr.Err.Error()
	}
	return types.OperationDetails{
		Operation: opErr.Op,
		Stack:     opErr.Stack,
		Address:   fmt.Sprintf("0x%02X", ioplus.Address(opErr.Stack)),
		Channel:   opErr.Channel,
		Reason:    reason,
	}
}

func boardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, boards.ErrBoardNotFound):
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.CodeBoardNotFound, "Board not found", err.Error()))
	case errors.Is(err, boards.ErrBoardExists), errors.Is(err, boards.ErrStackInUse):
		c.JSON(http.StatusConflict, types.NewErrorResponse(types.CodeBoardConflict, "Board conflicts with an existing board", err.Error()))
	case errors.Is(err, boards.ErrInvalidDefinition), errors.Is(err, adapter.ErrUnknownCommand):
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeBoardInvalid, "Invalid request", err.Error()))
	default:
		driverError(c, err)
	}
}

func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeInvalidArgument, "Invalid "+name, c.Param(name)))
		return 0, false
	}
	return v, true
}

func stackParam(c *gin.Context) (int, bool) {
	return intParam(c, "stack")
}

func stackChannel(c *gin.Context) (stack, channel int, ok bool) {
	if stack, ok = stackParam(c); !ok {
		return
	}
	channel, ok = intParam(c, "ch")
	return
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeInvalidArgument, "Invalid request body", err.Error()))
		return false
	}
	return true
}
