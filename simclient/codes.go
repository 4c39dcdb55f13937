// Package simclient coordinates one optimization run's potential
// evaluations: it owns a pool of worker goroutines, each holding its own
// potential oracle, and a request/response protocol that matches replies to
// requests by id so out-of-order, late or duplicate responses cannot corrupt
// an evaluation round.
package simclient

import "time"

// MsgKind enumerates the message kinds exchanged between the coordinator and
// the workers.
type MsgKind uint8

const (
	EvaluateRequestMsg MsgKind = iota
	EvaluateResponseMsg
	HeartbeatMsg
	ShutdownRequestMsg
	ErrorReportMsg
)

var msgKindNames = []string{
	"EvaluateRequest",
	"EvaluateResponse",
	"Heartbeat",
	"ShutdownRequest",
	"ErrorReport",
}

func (k MsgKind) String() string {
	if int(k) < len(msgKindNames) {
		return msgKindNames[k]
	}
	return "Unknown"
}

// SchemaVersion is carried by every message; a reply with a different
// version is treated as undeliverable and dropped.
const SchemaVersion = 1

type EvaluateRequest struct {
	Schema    int
	RequestID string
	NodeIndex int
	Position  []float64
}

type EvaluateResponse struct {
	Schema    int
	RequestID string
	V         float64
	Gradient  []float64
}

type ErrorReport struct {
	Schema    int
	RequestID string
	Reason    string
}

type Heartbeat struct {
	Schema    int
	WorkerID  string
	Timestamp time.Time
}

type ShutdownRequest struct {
	Schema int
}

// envelope is the transport frame moving between coordinator and workers.
// Exactly one payload field is set, selected by Kind; replyTo is the
// per-round channel the worker answers on.
type envelope struct {
	Kind     MsgKind
	Request  EvaluateRequest
	Response EvaluateResponse
	Report   ErrorReport
	Shutdown ShutdownRequest
	replyTo  chan envelope
}
