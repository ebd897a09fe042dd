// Package gateway is the development chat backend: REST history and send
// endpoints, a per-course websocket feed, token auth and attachment
// storage, all behind one HTTP server.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"coursechat/internal/common"
	"coursechat/internal/config"
	"coursechat/internal/dbmysql"
	"coursechat/internal/media"
	"coursechat/internal/transport/wire"
)

type contextKey string

const claimsKey contextKey = "claims"

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
)

type Server struct {
	cfg     *config.Config
	store   MessageStore
	storage media.Storage
	users   *UserDirectory
	hub     *Hub

	access  *common.TokenIssuer
	refresh *common.TokenIssuer

	upgrader websocket.Upgrader
	router   *mux.Router
}

func NewServer(cfg *config.Config, store MessageStore, storage media.Storage, users *UserDirectory) *Server {
	s := &Server{
		cfg:     cfg,
		store:   store,
		storage: storage,
		users:   users,
		hub:     NewHub(),
		access:  common.NewTokenIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.AccessTTL),
		refresh: common.NewTokenIssuer([]byte(cfg.Auth.JWTSecret+"/refresh"), cfg.Auth.RefreshTTL),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/auth/login", s.handleLogin).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/auth/refresh", s.handleRefresh).Methods(http.MethodPost)

	api := router.PathPrefix("/api/v1/courses").Subrouter()
	api.Use(s.authMiddleware)
	api.HandleFunc("/{courseId}/messages", s.handleListMessages).Methods(http.MethodGet)
	api.HandleFunc("/{courseId}/messages", s.handleSendMessage).Methods(http.MethodPost)
	api.HandleFunc("/{courseId}/files", s.handleUpload).Methods(http.MethodPost)

	ws := router.PathPrefix("/ws/courses").Subrouter()
	ws.Use(s.authMiddleware)
	ws.HandleFunc("/{courseId}", s.handleWebSocket).Methods(http.MethodGet)

	media.NewHandler(s.storage).Register(router)

	return router
}

// auth

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing token")
			return
		}

		claims, err := s.access.Validate(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func claimsFrom(r *http.Request) *common.Claims {
	claims, _ := r.Context().Value(claimsKey).(*common.Claims)
	return claims
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		UserID   string `json:"userId"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.users.Authenticate(creds.UserID, creds.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	s.writeTokenPair(w, user)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims, err := s.refresh.Validate(body.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	user, ok := s.users.Lookup(claims.UserID)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown user")
		return
	}
	s.writeTokenPair(w, user)
}

func (s *Server) writeTokenPair(w http.ResponseWriter, user *User) {
	access, err := s.access.Issue(user.ID, user.Name, user.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token issue failed")
		return
	}
	refresh, err := s.refresh.Issue(user.ID, user.Name, user.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token issue failed")
		return
	}
	writeJSON(w, http.StatusOK, wire.TokenPair{AccessToken: access, RefreshToken: refresh})
}

// messages

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	courseID := mux.Vars(r)["courseId"]
	if err := common.ValidateCourseID(courseID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	size := s.cfg.Chat.PageSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid size")
			return
		}
		size = n
	}

	records, err := s.store.ListBefore(r.Context(), courseID, size, r.URL.Query().Get("before"))
	if errors.Is(err, dbmysql.ErrCursorNotFound) {
		writeError(w, http.StatusBadRequest, "unknown cursor")
		return
	}
	if err != nil {
		log.Printf("list messages: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	writeJSON(w, http.StatusOK, wire.MessagesPage{Messages: toWireSlice(records)})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	courseID := mux.Vars(r)["courseId"]
	if err := common.ValidateCourseID(courseID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var msg wire.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !common.MessageType(msg.Type).IsValid() {
		writeError(w, http.StatusBadRequest, "invalid message type")
		return
	}
	if common.MessageType(msg.Type) == common.MessageTypeText {
		if err := common.ValidateMessageContent(msg.Content); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else if msg.FileURL == "" {
		writeError(w, http.StatusBadRequest, "attachment message requires a file URL")
		return
	}

	// The sender identity always comes from the token, not the body.
	claims := claimsFrom(r)
	msg.CourseID = courseID
	msg.SenderID = claims.UserID
	msg.SenderName = claims.Name
	msg.SenderRole = claims.Role
	msg.ID = uuid.NewString()
	msg.Status = common.StatusSent.String()
	msg.CreatedAt = time.Now().UTC()

	if err := s.store.Save(r.Context(), toRecord(msg)); err != nil {
		log.Printf("save message: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to save message")
		return
	}

	s.hub.Broadcast(courseID, msg)

	writeJSON(w, http.StatusOK, wire.SendResponse{
		TempID:    msg.TempID,
		ID:        msg.ID,
		Status:    msg.Status,
		CreatedAt: msg.CreatedAt,
	})
}

// files

const maxUploadBytes = 50 << 20

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	courseID := mux.Vars(r)["courseId"]
	if err := common.ValidateCourseID(courseID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	mimeType := r.FormValue("mimeType")
	if mimeType == "" {
		mimeType = header.Header.Get("Content-Type")
	}

	claims := claimsFrom(r)
	fileID, err := s.storage.Save(r.Context(), media.File{
		CourseID:   courseID,
		Filename:   header.Filename,
		MimeType:   mimeType,
		UploadedBy: claims.UserID,
	}, file)
	if err != nil {
		log.Printf("store upload: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to store file")
		return
	}

	writeJSON(w, http.StatusOK, wire.UploadResponse{
		URL:  fmt.Sprintf("%s/%s", strings.TrimRight(s.cfg.Server.MediaBaseURL, "/"), fileID),
		Size: header.Size,
	})
}

// websocket feed

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	courseID := mux.Vars(r)["courseId"]
	if err := common.ValidateCourseID(courseID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	claims := claimsFrom(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrade failed: %v", err)
		return
	}

	client := s.hub.Join(courseID, claims.UserID)
	go s.writePump(conn, client)
	s.readPump(conn)
	s.hub.Leave(courseID, client)
}

// writePump forwards hub frames to the connection until the client's
// channel is closed by Leave.
func (s *Server) writePump(conn *websocket.Conn, c *client) {
	for msg := range c.send {
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(wsWriteWait))
	conn.Close()
}

// readPump consumes client frames only to observe pings and the close.
func (s *Server) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(4 << 10)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(wsWriteWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// helpers

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, wire.ErrorResponse{Error: msg})
}
