package discordclient

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by calls that need an open connection.
	ErrNotConnected = errors.New("discord ipc not connected")
	// ErrAlreadyConnected is returned by Connect on an open connection.
	ErrAlreadyConnected = errors.New("discord ipc already connected")
	// ErrNoSocket is returned when no discord-ipc socket accepts a connection.
	ErrNoSocket = errors.New("no discord ipc socket found")
)

// CloseError is returned when Discord closes the connection, for example
// because the application id is unknown.
type CloseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("discord closed the connection: %s (code %d)", e.Message, e.Code)
}

// CommandError is returned when Discord rejects a command.
type CommandError struct {
	Cmd     string `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("discord rejected %s: %s (code %d)", e.Cmd, e.Message, e.Code)
}

type handshake struct {
	Version  int    `json:"v"`
	ClientID string `json:"client_id"`
}

type command struct {
	Cmd   string `json:"cmd"`
	Args  any    `json:"args"`
	Nonce string `json:"nonce"`
}

type setActivityArgs struct {
	PID int `json:"pid"`
	// Activity is sent as null to clear the presence.
	Activity *activity `json:"activity"`
}

type activity struct {
	Details string  `json:"details,omitempty"`
	State   string  `json:"state,omitempty"`
	Assets  *assets `json:"assets,omitempty"`
}

type assets struct {
	LargeImage string `json:"large_image,omitempty"`
}

// response is a frame sent by Discord, either a reply to a command or a
// dispatched event.
type response struct {
	Cmd   string          `json:"cmd"`
	Evt   string          `json:"evt"`
	Nonce string          `json:"nonce"`
	Data  json.RawMessage `json:"data"`
}

const (
	cmdDispatch    = "DISPATCH"
	cmdSetActivity = "SET_ACTIVITY"
	evtReady       = "READY"
	evtError       = "ERROR"
)
