// Package wire defines the WebSocket protocol of the console and serves it.
// A client drives entity pages with request messages; the server pushes
// list, form and option snapshots whenever a page changes.
package wire

import (
	"encoding/json"

	"github.com/matthewbaird/streamconsole/internal/console"
	"github.com/matthewbaird/streamconsole/internal/types"
)

// ── Client → Server messages ────────────────────────────────────────────────

// Client message types.
const (
	TypeMount          = "mount"
	TypeFilter         = "filter"
	TypePage           = "page"
	TypeSort           = "sort"
	TypeRefetch        = "refetch"
	TypeOpenCreate     = "open_create"
	TypeOpenEdit       = "open_edit"
	TypeChange         = "change"
	TypeCommit         = "commit"
	TypeCancel         = "cancel"
	TypeDelete         = "delete"
	TypeRefreshOptions = "refresh_options"
	TypeAddRow         = "add_row"
	TypeUpdateRow      = "update_row"
	TypeRemoveRow      = "remove_row"
	TypePing           = "ping"
)

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"`
	ID   string          `json:"id"`   // Client-assigned request ID
	Kind string          `json:"kind"` // Entity kind the request targets
	Data json.RawMessage `json:"data,omitempty"`
}

// FilterData is the payload for "filter" messages.
type FilterData struct {
	Values map[string]any `json:"values"`
}

// PageData is the payload for "page" messages.
type PageData struct {
	PageNum  int `json:"pageNum"`
	PageSize int `json:"pageSize"`
}

// SortData is the payload for "sort" messages. An empty field clears the
// ordering.
type SortData struct {
	Field string          `json:"field"`
	Order types.SortOrder `json:"order"`
}

// OpenCreateData is the payload for "open_create" messages.
type OpenCreateData struct {
	Preset map[string]any `json:"preset,omitempty"`
}

// RecordData names one record; used by "open_edit".
type RecordData struct {
	ID int64 `json:"id"`
}

// ChangeData is the payload for "change" messages.
type ChangeData struct {
	Values map[string]any `json:"values"`
}

// DeleteData is the payload for "delete" messages. A delete without
// Confirmed is answered with a "confirm" prompt and not issued.
type DeleteData struct {
	ID        int64 `json:"id"`
	Confirmed bool  `json:"confirmed,omitempty"`
}

// FieldData is the payload for "refresh_options" messages.
type FieldData struct {
	Field string `json:"field"`
}

// RowData is the payload for the editable table messages.
type RowData struct {
	Field  string         `json:"field"`
	Token  string         `json:"token,omitempty"`
	Values map[string]any `json:"values,omitempty"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// Server message types.
const (
	TypeSession   = "session"
	TypeList      = "list"
	TypeForm      = "form"
	TypeOptions   = "options"
	TypeCommitted = "committed"
	TypeDeleted   = "deleted"
	TypeRow       = "row"
	TypeConfirm   = "confirm"
	TypeNotice    = "notice"
	TypeError     = "error"
	TypePong      = "pong"
)

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Kind      string `json:"kind,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// SessionData carries session information.
type SessionData struct {
	SessionID string   `json:"session_id"`
	Kinds     []string `json:"kinds"`
}

// ListData is a list snapshot.
type ListData = console.ListView

// FormData is a form snapshot.
type FormData = console.FormView

// OptionsData holds the option lists of the open form.
type OptionsData = console.OptionsView

// CommittedData reports a saved record.
type CommittedData struct {
	ID int64 `json:"id"`
}

// RowTokenData reports the token of an added row.
type RowTokenData struct {
	Field string `json:"field"`
	Token string `json:"token"`
}

// ConfirmData asks the client to confirm a delete and resend it.
type ConfirmData struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// NoticeData is a user-facing notification.
type NoticeData struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// ErrorData carries an error message. Fields is set for validation
// failures.
type ErrorData struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}
