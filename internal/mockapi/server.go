// Package mockapi is an in-memory stand-in for the school chat backend. It
// serves the REST endpoints and the realtime websocket the client talks to,
// and is used by integration tests and the schoolmock command.
package mockapi

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/matheus3301/schoolchat/internal/api"
	"github.com/matheus3301/schoolchat/internal/auth"
	"github.com/matheus3301/schoolchat/internal/chat"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// Endpoint names used as call counter keys.
const (
	EndpointLinkedParents = "teacher-linked-parents"
	EndpointThreads       = "threads"
	EndpointCheckThread   = "check-existing-thread"
	EndpointStart         = "start-conversation"
	EndpointSendMessage   = "send-message"
	EndpointListMessages  = "list-messages"
	EndpointRealtime      = "ws"
)

var (
	errNotFound   = errors.New("not found")
	errForbidden  = errors.New("forbidden")
	errBadRequest = errors.New("bad request")
)

const userKey = "user"

// Server is the fake backend.
type Server struct {
	secret []byte
	store  *Store
	hub    *Hub
	logger *zap.Logger
	engine *gin.Engine

	mu    sync.Mutex
	calls map[string]int
	fail  map[string]int
}

// New builds a server over ds. Tokens must be HS256-signed with secret.
func New(secret []byte, ds Dataset, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	store := NewStore(ds, nil)
	s := &Server{
		secret: secret,
		store:  store,
		hub:    NewHub(store, logger.Named("hub")),
		logger: logger,
		calls:  make(map[string]int),
		fail:   make(map[string]int),
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	r.GET("/api/chat/ws", s.count(EndpointRealtime), s.handleRealtime)

	g := r.Group("/api", s.authenticate())
	g.GET("/users/teacher-linked-parents", s.count(EndpointLinkedParents), s.handleLinkedParents)
	g.GET("/chat/threads", s.count(EndpointThreads), s.handleThreads)
	g.POST("/chat/check-existing-thread", s.count(EndpointCheckThread), s.handleCheckThread)
	g.POST("/chat/start-conversation", s.count(EndpointStart), s.handleStart)
	g.POST("/chat/messages", s.count(EndpointSendMessage), s.handleSendMessage)
	g.GET("/chat/messages", s.count(EndpointListMessages), s.handleListMessages)

	s.engine = r
	return s
}

// Handler returns the HTTP handler serving every endpoint.
func (s *Server) Handler() http.Handler { return s.engine }

// Store exposes the backing store.
func (s *Server) Store() *Store { return s.store }

// Hub exposes the realtime hub.
func (s *Server) Hub() *Hub { return s.hub }

// Calls returns how many requests endpoint has received.
func (s *Server) Calls(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[endpoint]
}

// FailNext makes the next n requests to endpoint answer 500.
func (s *Server) FailNext(endpoint string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[endpoint] = n
}

// TokenFor issues a day-long token for a known user.
func (s *Server) TokenFor(userID string) (string, error) {
	u, ok := s.store.User(userID)
	if !ok {
		return "", errNotFound
	}
	return auth.Sign(chat.Identity{UserID: u.ID, Role: u.Role, Name: u.FullName}, s.secret, 24*time.Hour)
}

// Close disconnects realtime clients.
func (s *Server) Close() { s.hub.Close() }

func (s *Server) count(endpoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		s.calls[endpoint]++
		failing := s.fail[endpoint] > 0
		if failing {
			s.fail[endpoint]--
		}
		s.mu.Unlock()
		if failing {
			fail(c, http.StatusInternalServerError, "injected failure")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			fail(c, http.StatusUnauthorized, "missing token")
			c.Abort()
			return
		}
		id, err := auth.Verify(strings.TrimPrefix(h, "Bearer "), s.secret)
		if err != nil {
			fail(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}
		c.Set(userKey, id)
		c.Next()
	}
}

func caller(c *gin.Context) chat.Identity {
	return c.MustGet(userKey).(chat.Identity)
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"status": "success", "data": data})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"status": "error", "message": msg})
}

func failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, errForbidden):
		fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, errBadRequest):
		fail(c, http.StatusBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleLinkedParents(c *gin.Context) {
	me := caller(c)
	teacherID := c.DefaultQuery("teacher_id", me.UserID)
	ok(c, http.StatusOK, s.store.LinkedParents(teacherID, me.UserID))
}

func (s *Server) handleThreads(c *gin.Context) {
	ok(c, http.StatusOK, api.ThreadsResponse{Threads: s.store.ThreadsFor(caller(c).UserID)})
}

type checkThreadBody struct {
	Participants []string `json:"participants" binding:"required,min=1,dive,required"`
	ThreadType   string   `json:"thread_type"`
}

func (s *Server) handleCheckThread(c *gin.Context) {
	var body checkThreadBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if body.ThreadType != "" && body.ThreadType != api.ThreadDirect {
		ok(c, http.StatusOK, api.CheckExistingThreadResponse{})
		return
	}
	t, found := s.store.FindDirect(caller(c).UserID, body.Participants[0])
	if !found {
		ok(c, http.StatusOK, api.CheckExistingThreadResponse{})
		return
	}
	ok(c, http.StatusOK, api.CheckExistingThreadResponse{Exists: true, Thread: &t})
}

type startBody struct {
	Participants   []string `json:"participants" binding:"required,min=1,dive,required"`
	MessageContent string   `json:"message_content" binding:"required"`
	ThreadType     string   `json:"thread_type" binding:"omitempty,oneof=direct group"`
	Title          string   `json:"title"`
}

func (s *Server) handleStart(c *gin.Context) {
	var body startBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if body.ThreadType == "" {
		body.ThreadType = api.ThreadDirect
	}
	t, m, err := s.store.StartConversation(caller(c).UserID, body.Participants, body.ThreadType, body.Title, body.MessageContent)
	if err != nil {
		failErr(c, err)
		return
	}
	s.hub.Publish(m)
	ok(c, http.StatusCreated, api.StartConversationResponse{Thread: t, Message: m})
}

type sendBody struct {
	ThreadID string `json:"thread_id" binding:"required"`
	Content  string `json:"content" binding:"required"`
}

func (s *Server) handleSendMessage(c *gin.Context) {
	var body sendBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	m, _, err := s.store.PostMessage(caller(c).UserID, body.ThreadID, body.Content)
	if err != nil {
		failErr(c, err)
		return
	}
	s.hub.Publish(m)
	ok(c, http.StatusCreated, m)
}

func (s *Server) handleListMessages(c *gin.Context) {
	threadID := c.Query("thread_id")
	if threadID == "" {
		fail(c, http.StatusBadRequest, "thread_id is required")
		return
	}
	msgs, err := s.store.Messages(caller(c).UserID, threadID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, api.MessagesResponse{Messages: msgs})
}

// handleRealtime authenticates with the token query parameter since
// websocket clients cannot always set headers.
func (s *Server) handleRealtime(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		fail(c, http.StatusUnauthorized, "missing token")
		return
	}
	id, err := auth.Verify(token, s.secret)
	if err != nil {
		fail(c, http.StatusUnauthorized, "invalid token")
		return
	}
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return
	}
	s.hub.Serve(c.Request.Context(), id.UserID, conn)
}
