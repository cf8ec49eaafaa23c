package httpapi

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pkt.systems/webchat/internal/logx"
	"pkt.systems/webchat/internal/version"
	"pkt.systems/webchat/schema"
)

const (
	keepaliveInterval = 15 * time.Second
	maxMessageSize    = 1 << 20
)

// Coordinator is the subset of the relay the HTTP transport drives.
type Coordinator interface {
	HandleMessage(ctx context.Context, msg schema.InboundMessage) (schema.Reply, error)
	Status() schema.CoordinatorStatus
	OnConsumerClosed(ctx context.Context)
}

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	Status       schema.CoordinatorStatus `json:"status"`
	Version      version.Info             `json:"version"`
	Subscribers  map[schema.Audience]int  `json:"subscribers"`
	// PanelVersion is the version stamped into the served panel page.
	PanelVersion string                   `json:"panel_version,omitempty"`
}

// Server serves the relay API, the event streams and the panel page.
type Server struct {
	cfg      Config
	coord    Coordinator
	hub      *Hub
	basePath string
	baseHref string
}

// NewServer constructs an HTTP server.
func NewServer(cfg Config, coord Coordinator, hub *Hub) *Server {
	if hub == nil {
		hub = NewHub(cfg.HistorySize, nil)
	}
	return &Server{
		cfg:      cfg,
		coord:    coord,
		hub:      hub,
		basePath: normalizeBasePath(cfg.BasePath),
		baseHref: buildBaseHref(cfg.BaseURL, cfg.BasePath),
	}
}

// Hub returns the event hub backing the streams.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.Handle("/assets/", http.StripPrefix("/assets/", http.FileServer(http.FS(assetsFS))))

	mux.HandleFunc("/api/messages", s.requireToken(s.handleMessage))
	mux.HandleFunc("/api/stream", s.requireToken(s.handleStream))
	mux.HandleFunc("/api/status", s.requireToken(s.handleStatus))

	handler := withRequestLogging(mux)
	if s.basePath == "" {
		return handler
	}
	prefix := s.basePath
	root := http.NewServeMux()
	root.Handle(prefix+"/", http.StripPrefix(prefix, handler))
	root.HandleFunc(prefix, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != prefix {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, prefix+"/", http.StatusTemporaryRedirect)
	})
	return root
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data, err := fs.ReadFile(assetsFS, "index.html")
	if err != nil {
		http.Error(w, "index not found", http.StatusInternalServerError)
		return
	}
	stat, err := fs.Stat(assetsFS, "index.html")
	if err != nil {
		http.Error(w, "index not found", http.StatusInternalServerError)
		return
	}
	data = applyBaseHref(data, s.baseHref)
	http.ServeContent(w, r, "index.html", stat.ModTime(), bytes.NewReader(data))
}

const baseHrefPlaceholder = "<!-- BASE_HREF -->"

func applyBaseHref(data []byte, baseHref string) []byte {
	replacement := ""
	if strings.TrimSpace(baseHref) != "" {
		replacement = fmt.Sprintf(`<base href="%s" />`, html.EscapeString(baseHref))
	}
	return bytes.ReplaceAll(data, []byte(baseHrefPlaceholder), []byte(replacement))
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.Ctx(r.Context()).With("remote", clientIP(r))
	var msg schema.InboundMessage
	if err := decodeJSON(io.LimitReader(r.Body, maxMessageSize), &msg); err != nil {
		log.Warn("http message decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if msg.Producer == "" {
		msg.Producer = schema.ProducerID("http:" + clientIP(r))
	}
	log = log.With("producer", msg.Producer)
	ctx := logx.ContextWithProducerLogger(r.Context(), log, msg.Producer)
	reply, err := s.coord.HandleMessage(ctx, msg)
	if err != nil {
		log.Warn("http message failed", "kind", msg.Kind, "err", err)
		noteMessage(w, msg.Kind, "")
		writeError(w, statusForError(err), err)
		return
	}
	noteMessage(w, msg.Kind, reply.Outcome)
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:       s.coord.Status(),
		Version:      version.Describe(),
		PanelVersion: embeddedPanelVersion,
		Subscribers: map[schema.Audience]int{
			schema.AudienceConsumer: s.hub.Subscribers(schema.AudienceConsumer),
			schema.AudienceProducer: s.hub.Subscribers(schema.AudienceProducer),
		},
	})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	audience, err := schema.ParseAudience(r.URL.Query().Get("audience"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: audience must be consumer or producer", err))
		return
	}
	log := logx.WithAudience(logx.Ctx(r.Context()).With("remote", clientIP(r)), audience)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	lastID := parseUint(r.Header.Get("Last-Event-ID"))
	if lastID == 0 {
		lastID = parseUint(r.URL.Query().Get("last_event_id"))
	}

	ch, unsubscribe, replay := s.hub.Subscribe(audience, lastID)
	defer func() {
		unsubscribe()
		s.consumerDisconnected(r.Context(), audience)
	}()

	_, _ = fmt.Fprint(w, ": connected\n\n")
	for _, msg := range replay {
		_ = writeSSEvent(w, msg)
	}
	flusher.Flush()

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()
	notify := r.Context().Done()
	log.Info("http stream opened", "last_id", lastID, "replay", len(replay))
	for {
		select {
		case <-notify:
			log.Info("http stream closed")
			return
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_ = writeSSEvent(w, msg)
			flusher.Flush()
		}
	}
}

// consumerDisconnected reports consumerClosed once the last consumer stream
// has gone away.
func (s *Server) consumerDisconnected(ctx context.Context, audience schema.Audience) {
	if audience != schema.AudienceConsumer || !s.cfg.CloseOnConsumerDisconnect {
		return
	}
	if s.hub.Subscribers(schema.AudienceConsumer) > 0 {
		return
	}
	logx.Ctx(ctx).Info("http consumer stream gone")
	s.coord.OnConsumerClosed(context.WithoutCancel(ctx))
}

func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		want := s.cfg.AuthToken
		if want == "" {
			next(w, r)
			return
		}
		got := requestToken(r)
		if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			logx.Ctx(r.Context()).Warn("http unauthorized", "remote", clientIP(r), "path", r.URL.Path)
			writeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}
		next(w, r)
	}
}

func requestToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	// EventSource cannot set headers.
	return r.URL.Query().Get("token")
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, schema.ErrInvalidRequest),
		errors.Is(err, schema.ErrInvalidAction),
		errors.Is(err, schema.ErrInvalidQuote),
		errors.Is(err, schema.ErrInvalidTool),
		errors.Is(err, schema.ErrUnknownMessage):
		return http.StatusBadRequest
	case errors.Is(err, schema.ErrToolNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(body io.Reader, target any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeSSEvent(w io.Writer, msg schema.OutboundMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if msg.Seq > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", msg.Seq)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", strings.TrimSpace(string(data)))
	return nil
}

func parseUint(value string) uint64 {
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
