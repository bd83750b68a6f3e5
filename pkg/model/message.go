package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Message is the unit exchanged between machines: the sender's Lamport
// timestamp at the moment of the send, plus the sender's machine ID.
type Message struct {
	Timestamp int64
	SenderID  int
}

// Encode serializes the message in the wire format: "<timestamp>:<senderId>"
// terminated by a newline. The newline is the record boundary — without it
// two back-to-back sends could be read as one fragment on the far side.
func (m Message) Encode() []byte {
	return []byte(strconv.FormatInt(m.Timestamp, 10) + ":" + strconv.Itoa(m.SenderID) + "\n")
}

// ParseMessage parses one wire record (without its trailing newline).
func ParseMessage(line string) (Message, error) {
	tsStr, idStr, ok := strings.Cut(strings.TrimSpace(line), ":")
	if !ok {
		return Message{}, fmt.Errorf("malformed message %q: missing separator", line)
	}
	ts, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil || ts < 0 {
		return Message{}, fmt.Errorf("malformed message %q: bad timestamp", line)
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return Message{}, fmt.Errorf("malformed message %q: bad sender id", line)
	}
	return Message{Timestamp: ts, SenderID: id}, nil
}
