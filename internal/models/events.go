package models

import (
	"errors"

	"github.com/goccy/go-json"
)

// Inbound event names, as sent by browser clients.
const (
	EventCreateMessage               = "createMessage"
	EventCreateLocationMessage       = "createLocationMessage"
	EventCreatePrivateMessage        = "createPrivateMessage"
	EventTypingOnPrivateMessage      = "createUserIsTypingOnPrivateMessage"
	EventTypingOnGroupMessage        = "createUserIsTypingOnGroupMessage"
	EventStopsTypingOnPrivateMessage = "createUserStopsTypingOnPrivateMessage"
	EventStopsTypingOnGroupMessage   = "createUserStopsTypingOnGroupMessage"
	EventUserOnline                  = "user online"
	EventServerOffline               = "server offline"
)

// Outbound event names.
const (
	EventConnect                   = "connect"
	EventAlreadyConnectedUsers     = "already connected users"
	EventNewMessage                = "newMessage"
	EventNewLocationMessage        = "newLocationMessage"
	EventNewPrivateMessage         = "newPrivateMessage"
	EventNewTypingOnPrivateMessage = "newUserIsTypingOnPrivateMessage"
	EventNewTypingOnGroupMessage   = "newUserIsTypingOnGroupMessage"
	EventNewUserStopsTyping        = "newUserStopsTyping"
	EventChangeUserStatus          = "change user status"
	EventUserOffline               = "user offline"
)

var (
	ErrMissingFrom = errors.New("missing from")
	ErrMissingTo   = errors.New("missing to")
	ErrMissingUser = errors.New("missing userId")
)

// Frame is the unit exchanged over the socket. Inbound frames may carry an
// Ack id; the server answers with a frame holding only that id.
type Frame struct {
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ack   *int64          `json:"ack,omitempty"`
}

// Envelope is an outbound event addressed to every connection, or to Target
// when it is set. It is what travels over the Redis backplane.
// Connections named by Except never receive it.
type Envelope struct {
	Event  string          `json:"event"`
	Target string          `json:"target,omitempty"`
	Except string          `json:"except,omitempty"`
	Data   json.RawMessage `json:"data"`
}

// NewEnvelope encodes data into an envelope for event.
func NewEnvelope(event string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: raw}, nil
}

// Frame renders the envelope as it is written to a socket.
func (e Envelope) Frame() ([]byte, error) {
	return json.Marshal(Frame{Event: e.Event, Data: e.Data})
}

// Reaches reports whether the connection identified by socketID should
// receive the envelope.
func (e Envelope) Reaches(socketID string) bool {
	if e.Except != "" && e.Except == socketID {
		return false
	}
	return e.Target == "" || e.Target == socketID
}

// ChatMessage is the payload of group messages and group typing notices.
type ChatMessage struct {
	From   string `json:"from"`
	Text   string `json:"text"`
	RoomID string `json:"roomId,omitempty"`
}

func (m ChatMessage) Validate() error {
	if m.From == "" {
		return ErrMissingFrom
	}
	return nil
}

type LocationMessage struct {
	From      string  `json:"from"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (m LocationMessage) Validate() error {
	if m.From == "" {
		return ErrMissingFrom
	}
	return nil
}

// PrivateMessage is the payload of private messages and private typing
// notices. To is the recipient's socket id, not a user id.
type PrivateMessage struct {
	From  string            `json:"from"`
	To    string            `json:"to"`
	Text  string            `json:"text"`
	Files []json.RawMessage `json:"files,omitempty"`
}

func (m PrivateMessage) Validate() error {
	if m.From == "" {
		return ErrMissingFrom
	}
	if m.To == "" {
		return ErrMissingTo
	}
	return nil
}

// Presence pairs a socket with the user behind it. On inbound "user online"
// frames the socket id is taken from the connection, not the payload.
type Presence struct {
	SocketID string `json:"socketId"`
	UserID   string `json:"userId"`
}

func (p Presence) Validate() error {
	if p.UserID == "" {
		return ErrMissingUser
	}
	return nil
}

type UserOffline struct {
	SocketID string `json:"socketId"`
}

type Connected struct {
	SocketID string `json:"socketId"`
}
