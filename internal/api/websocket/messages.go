package websocket

import "time"

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Board-related messages
	MessageTypeUnitUpdate   MessageType = "unit_update"
	MessageTypeBoardAdded   MessageType = "board_added"
	MessageTypeBoardRemoved MessageType = "board_removed"

	// System messages
	MessageTypeSystemStatus MessageType = "system_status"

	MessageTypeAuthSuccess MessageType = "auth_success"
	MessageTypeAuthFailed  MessageType = "auth_failed"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// UnitUpdateData is a changed unit value of a board
type UnitUpdateData struct {
	Board  string `json:"board"`
	Unit   int    `json:"unit"`
	NValue int    `json:"n_value"`
	SValue string `json:"s_value"`
}

type BoardData struct {
	Board string `json:"board"`
	Stack int    `json:"stack"`
}

// NewMessage creates a new message with current timestamp
func NewMessage(msgType MessageType, data interface{}) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func NewUnitUpdateMessage(board string, unit, nValue int, sValue string) Message {
	return NewMessage(MessageTypeUnitUpdate, UnitUpdateData{
		Board:  board,
		Unit:   unit,
		NValue: nValue,
		SValue: sValue,
	})
}

func NewBoardMessage(msgType MessageType, board string, stack int) Message {
	return NewMessage(msgType, BoardData{Board: board, Stack: stack})
}
