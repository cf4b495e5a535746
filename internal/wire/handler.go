package wire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/streamconsole/internal/console"
	"github.com/matthewbaird/streamconsole/internal/crud"
	"github.com/matthewbaird/streamconsole/internal/form"
	"github.com/matthewbaird/streamconsole/internal/modal"
	"github.com/matthewbaird/streamconsole/internal/rowstore"
	"github.com/matthewbaird/streamconsole/internal/session"
	"github.com/matthewbaird/streamconsole/internal/types"
)

var errInvalidData = errors.New("invalid message data")

// Handler manages WebSocket connections for the console.
type Handler struct {
	sessions *session.Manager
	deps     console.Deps
	pageOpts []console.Option
	origins  []string
	logger   *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithPageOptions applies opts to every page the handler creates.
func WithPageOptions(opts ...console.Option) Option {
	return func(h *Handler) { h.pageOpts = append(h.pageOpts, opts...) }
}

// WithOriginPatterns sets the origins allowed to open a connection. Without
// patterns only same-origin requests are accepted.
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Handler) { h.origins = patterns }
}

// WithLogger sets the handler logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// NewHandler creates a WebSocket handler whose sessions build pages from
// deps.
func NewHandler(sessions *session.Manager, deps console.Deps, opts ...Option) *Handler {
	h := &Handler{sessions: sessions, deps: deps, logger: slog.Default()}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Routes registers the WebSocket endpoint and the session listing.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/ws", h.ServeHTTP)
	r.Get("/sessions", h.listSessions)
}

// sessionInfo is one row of the session listing.
type sessionInfo struct {
	ID           string    `json:"id"`
	Pages        []string  `json:"pages"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

func (h *Handler) listSessions(w http.ResponseWriter, _ *http.Request) {
	all := h.sessions.All()
	out := make([]sessionInfo, 0, len(all))
	for _, s := range all {
		info := sessionInfo{ID: s.ID, Pages: []string{}, CreatedAt: s.CreatedAt, LastActiveAt: s.LastActiveAt()}
		if s.Console != nil {
			for _, p := range s.Console.Pages() {
				info.Pages = append(info.Pages, p.Kind())
			}
		}
		out = append(out, info)
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		h.logger.Error("wire: encode sessions", slog.Any("error", err))
	}
}

// ServeHTTP upgrades to WebSocket and runs the message loop.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.logger.Warn("wire: websocket accept", slog.Any("error", err))
		return
	}
	defer ws.CloseNow()

	ctx := r.Context()
	c := &conn{h: h, ws: ws, ctx: ctx, watched: make(map[string]bool)}
	opts := append(append([]console.Option(nil), h.pageOpts...),
		console.WithConfirmer(crud.ConfirmFunc(c.confirm)),
		console.WithNotifier(crud.NotifyFunc(c.notify)),
	)
	sess := h.sessions.Create(console.New(h.deps, opts...))
	c.sess = sess
	logger := h.logger.With(slog.String("session", sess.ID))
	logger.Info("wire: session opened")
	defer func() {
		for _, p := range sess.Console.Pages() {
			p.Cancel()
		}
		h.sessions.Remove(sess.ID)
		logger.Info("wire: session closed")
	}()

	c.send(ServerMessage{
		Type: TypeSession,
		Data: SessionData{SessionID: sess.ID, Kinds: sess.Console.Kinds()},
	})

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, ws, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 {
				logger.Debug("wire: connection closed", slog.Any("status", websocket.CloseStatus(err)))
			}
			return
		}
		if h.sessions.Get(sess.ID) == nil {
			c.sendError(msg.ID, msg.Kind, ErrorData{Code: "session_expired", Message: "session expired"})
			ws.Close(websocket.StatusPolicyViolation, "session expired")
			return
		}
		sess.Touch()
		c.handle(ctx, msg)
	}
}

type requestKey struct{}

type confirmedKey struct{}

// conn is one connected client.
type conn struct {
	h    *Handler
	ws   *websocket.Conn
	ctx  context.Context
	sess *session.Session

	mu      sync.Mutex
	watched map[string]bool
}

func (c *conn) handle(ctx context.Context, msg ClientMessage) {
	if msg.Type == TypePing {
		c.send(ServerMessage{Type: TypePong, RequestID: msg.ID})
		return
	}
	p, err := c.page(msg.Kind)
	if err != nil {
		c.fail(msg, err)
		return
	}
	ctx = context.WithValue(ctx, requestKey{}, msg.ID)

	switch msg.Type {
	case TypeMount:
		err = p.Mount(ctx)
	case TypeRefetch:
		err = p.Refetch(ctx)
	case TypeFilter:
		var d FilterData
		if err = decode(msg, &d); err == nil {
			err = p.Filter(ctx, d.Values)
		}
	case TypePage:
		var d PageData
		if err = decode(msg, &d); err == nil {
			err = p.Paginate(ctx, d.PageNum, d.PageSize)
		}
	case TypeSort:
		var d SortData
		if err = decode(msg, &d); err == nil {
			var s *types.Sort
			if d.Field != "" {
				s = &types.Sort{Field: d.Field, Order: d.Order}
			}
			err = p.Sort(ctx, s)
		}
	case TypeOpenCreate:
		var d OpenCreateData
		if err = decode(msg, &d); err == nil {
			err = p.OpenCreate(ctx, d.Preset)
		}
	case TypeOpenEdit:
		var d RecordData
		if err = decode(msg, &d); err == nil {
			err = p.OpenEdit(ctx, d.ID)
		}
	case TypeChange:
		var d ChangeData
		if err = decode(msg, &d); err == nil {
			err = p.Change(ctx, d.Values)
		}
	case TypeCommit:
		var id int64
		if id, err = p.Commit(ctx); err == nil {
			c.reply(msg, TypeCommitted, CommittedData{ID: id})
		}
	case TypeCancel:
		p.Cancel()
	case TypeDelete:
		var d DeleteData
		if err = decode(msg, &d); err == nil {
			var ok bool
			ok, err = p.Delete(context.WithValue(ctx, confirmedKey{}, d.Confirmed), d.ID)
			if ok {
				c.reply(msg, TypeDeleted, RecordData{ID: d.ID})
			}
		}
	case TypeRefreshOptions:
		var d FieldData
		if err = decode(msg, &d); err == nil {
			err = p.RefreshOptions(ctx, d.Field)
		}
	case TypeAddRow:
		var d RowData
		if err = decode(msg, &d); err == nil {
			var token string
			if token, err = p.AddRow(d.Field, d.Values); err == nil {
				c.reply(msg, TypeRow, RowTokenData{Field: d.Field, Token: token})
			}
		}
	case TypeUpdateRow:
		var d RowData
		if err = decode(msg, &d); err == nil {
			err = p.UpdateRow(d.Field, d.Token, d.Values)
		}
	case TypeRemoveRow:
		var d RowData
		if err = decode(msg, &d); err == nil {
			err = p.RemoveRow(d.Field, d.Token)
		}
	default:
		c.sendError(msg.ID, msg.Kind, ErrorData{Code: "unknown_type", Message: fmt.Sprintf("unknown message type: %s", msg.Type)})
		return
	}
	if err != nil {
		c.fail(msg, err)
	}
}

func decode(msg ClientMessage, v any) error {
	if len(msg.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidData, err)
	}
	return nil
}

// page returns the session's page of kind and starts pushing its changes
// to the client the first time it is used.
func (c *conn) page(kind string) (*console.Page, error) {
	p, err := c.sess.Console.Page(kind)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	watched := c.watched[kind]
	c.watched[kind] = true
	c.mu.Unlock()
	if !watched {
		p.OnChange(func(part console.Part) { c.push(p, part) })
	}
	return p, nil
}

func (c *conn) push(p *console.Page, part console.Part) {
	msg := ServerMessage{Kind: p.Kind()}
	switch part {
	case console.PartList:
		msg.Type, msg.Data = TypeList, p.ListView()
	case console.PartForm:
		msg.Type, msg.Data = TypeForm, p.FormView()
	case console.PartOptions:
		msg.Type, msg.Data = TypeOptions, p.OptionsView()
	default:
		return
	}
	c.send(msg)
}

// confirm affirms deletes the client already confirmed and otherwise asks
// the client to confirm and resend.
func (c *conn) confirm(ctx context.Context, p crud.Prompt) (bool, error) {
	if ok, _ := ctx.Value(confirmedKey{}).(bool); ok {
		return true, nil
	}
	id, _ := ctx.Value(requestKey{}).(string)
	c.send(ServerMessage{
		Type:      TypeConfirm,
		RequestID: id,
		Kind:      p.Kind,
		Data:      ConfirmData{ID: p.ID, Title: p.Title, Message: p.Message},
	})
	return false, nil
}

func (c *conn) notify(ctx context.Context, n crud.Notice) {
	id, _ := ctx.Value(requestKey{}).(string)
	c.send(ServerMessage{
		Type:      TypeNotice,
		RequestID: id,
		Data:      NoticeData{Level: string(n.Level), Message: n.Message},
	})
}

func (c *conn) reply(msg ClientMessage, typ string, data any) {
	c.send(ServerMessage{Type: typ, RequestID: msg.ID, Kind: msg.Kind, Data: data})
}

func (c *conn) fail(msg ClientMessage, err error) {
	c.sendError(msg.ID, msg.Kind, errorData(err))
}

func (c *conn) sendError(requestID, kind string, data ErrorData) {
	c.send(ServerMessage{Type: TypeError, RequestID: requestID, Kind: kind, Data: data})
}

func (c *conn) send(msg ServerMessage) {
	if err := wsjson.Write(c.ctx, c.ws, msg); err != nil {
		c.h.logger.Debug("wire: write error", slog.String("type", msg.Type), slog.Any("error", err))
	}
}

// errorData maps page errors to protocol error codes.
func errorData(err error) ErrorData {
	var verrs form.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return ErrorData{Code: "validation", Message: err.Error(), Fields: verrs.ByField()}
	case errors.Is(err, errInvalidData):
		return ErrorData{Code: "invalid_data", Message: err.Error()}
	case errors.Is(err, console.ErrUnknownKind):
		return ErrorData{Code: "unknown_kind", Message: err.Error()}
	case errors.Is(err, modal.ErrNotOpen):
		return ErrorData{Code: "form_closed", Message: err.Error()}
	case errors.Is(err, modal.ErrCommitInFlight):
		return ErrorData{Code: "commit_in_flight", Message: err.Error()}
	case errors.Is(err, crud.ErrDeleteInFlight):
		return ErrorData{Code: "delete_in_flight", Message: err.Error()}
	case errors.Is(err, crud.ErrConflict):
		return ErrorData{Code: "conflict", Message: err.Error()}
	case errors.Is(err, crud.ErrNetwork):
		return ErrorData{Code: "network", Message: err.Error()}
	case errors.Is(err, types.ErrNotFound), errors.Is(err, rowstore.ErrTokenNotFound):
		return ErrorData{Code: "not_found", Message: err.Error()}
	}
	return ErrorData{Code: "failed", Message: err.Error()}
}
