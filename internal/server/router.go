package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/shepherd/internal/master"
	"github.com/loykin/shepherd/internal/notify"
)

// Router exposes the control-plane operations over HTTP for external views
// (status dashboards, tray UIs). Endpoints under basePath:
//
//	POST /register       body: {"name":..., "path":...}
//	GET  /list
//	GET  /enabled        query: name=...
//	POST /toggle         query: name=... [&value=true|false]
//	POST /log            body: {"level":..., "source":..., "message":...}
//	GET  /notifications  query: level=..., source=..., format=text|json
//	POST /launch         query: name=...
//	POST /shutdown
//	GET  /state
type Router struct {
	m        *master.Master
	basePath string
}

// NewRouter constructs a Router with a configurable basePath,
// e.g. "/api" results in /api/register, /api/toggle, ...
func NewRouter(m *master.Master, basePath string) *Router {
	return &Router{m: m, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin, mountable in any mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.POST("/register", r.handleRegister)
	group.GET("/list", r.handleList)
	group.GET("/enabled", r.handleEnabled)
	group.POST("/toggle", r.handleToggle)
	group.POST("/log", r.handleLog)
	group.GET("/notifications", r.handleNotifications)
	group.POST("/launch", r.handleLaunch)
	group.POST("/shutdown", r.handleShutdown)
	group.GET("/state", r.handleState)
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, m *master.Master) (*http.Server, error) {
	r := NewRouter(m, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type registerReq struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

func (r *Router) handleRegister(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if !isSafeName(req.Name) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid name: allowed [A-Za-z0-9._-] and no '..' or path separators"})
		return
	}
	if !isSafeAbsPath(req.Path) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid path: must be absolute without traversal"})
		return
	}
	if err := r.m.Register(req.Name, req.Path); err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleList(c *gin.Context) {
	descs, err := r.m.List()
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, descs)
}

func (r *Router) handleEnabled(c *gin.Context) {
	name := c.Query("name")
	if !isSafeName(name) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "name required"})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"name": name, "enabled": r.m.IsEnabled(name)})
}

func (r *Router) handleToggle(c *gin.Context) {
	name := c.Query("name")
	if !isSafeName(name) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "name required"})
		return
	}
	if raw := c.Query("value"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "value must be a boolean"})
			return
		}
		if err := r.m.SetEnabled(name, v); err != nil {
			writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
			return
		}
		writeJSON(c, http.StatusOK, gin.H{"name": name, "enabled": v})
		return
	}
	next, err := r.m.Toggle(name)
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"name": name, "enabled": next})
}

type logReq struct {
	Level   string `json:"level"`
	Source  string `json:"source"`
	Message string `json:"message"`
}

func (r *Router) handleLog(c *gin.Context) {
	var req logReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	lvl := notify.Level(req.Level)
	switch lvl {
	case notify.LevelInfo, notify.LevelWarning, notify.LevelError:
	default:
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "level must be info, warning or error"})
		return
	}
	if req.Source == "" {
		req.Source = notify.SourceMaster
	}
	r.m.Log(lvl, req.Source, req.Message)
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleNotifications(c *gin.Context) {
	f := notify.Filter{
		Level:  notify.Level(c.Query("level")),
		Source: c.Query("source"),
	}
	entries := r.m.GetFiltered(f)
	if c.Query("format") == "text" {
		c.String(http.StatusOK, r.m.Format(entries))
		return
	}
	writeJSON(c, http.StatusOK, entries)
}

func (r *Router) handleLaunch(c *gin.Context) {
	name := c.Query("name")
	if !isSafeName(name) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "name required"})
		return
	}
	if err := r.m.Launch(name); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleShutdown(c *gin.Context) {
	// The escalation blocks for the grace and reclaim windows; run it off
	// the request goroutine so the caller gets an immediate ack.
	go func() { _ = r.m.RequestShutdown() }()
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleState(c *gin.Context) {
	handles := r.m.Handles()
	writeJSON(c, http.StatusOK, gin.H{
		"state":   r.m.State().String(),
		"handles": handles,
	})
}
