// Package server exposes the scan engine over a JSON HTTP API.
package server

import (
	"io"
	"net/http"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	guda "github.com/LynnColeArt/gudascan"
	"github.com/LynnColeArt/gudascan/internal/logger"
	"github.com/LynnColeArt/gudascan/literal"
	"github.com/LynnColeArt/gudascan/scan"
)

// ScanRequest is the body of POST /v1/scan. Omitted tunables fall back to
// the server defaults.
type ScanRequest struct {
	Input         []int32 `json:"input"`
	GroupSize     *int    `json:"group_size,omitempty"`
	NumGroups     *int    `json:"num_groups,omitempty"`
	LockstepWidth *int    `json:"lockstep_width,omitempty"`
	Addend        *int32  `json:"addend,omitempty"`
	Verify        bool    `json:"verify,omitempty"`
}

// ScanResponse is the result of a scan.
type ScanResponse struct {
	ID       string        `json:"id"`
	Object   string        `json:"object"`
	Output   []int32       `json:"output"`
	Length   int           `json:"length"`
	Literal  string        `json:"literal"`
	Geometry scan.Geometry `json:"geometry"`
	Verified *bool         `json:"verified,omitempty"`
}

// DeviceInfo describes a device profile.
type DeviceInfo struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Vendor        string `json:"vendor"`
	Type          string `json:"type"`
	Memory        string `json:"memory"`
	MaxGroupSize  int    `json:"max_group_size"`
	LocalMemory   string `json:"local_memory"`
	LockstepWidth int    `json:"lockstep_width"`
	Active        bool   `json:"active"`
}

// ResponseError is the error object of a failed request.
type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Server serves scans on a single guda context. Scans are serialized
// because the context has a single ordered queue.
type Server struct {
	ctx      *guda.Context
	defaults scan.Config
	log      logger.Logger

	mu sync.Mutex
}

// NewServer creates a server scanning on ctx with the given defaults.
func NewServer(ctx *guda.Context, defaults scan.Config, log logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	return &Server{
		ctx:      ctx,
		defaults: defaults,
		log:      log,
	}
}

// Register installs the routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/scan", s.handleScan)
	e.GET("/v1/devices", s.handleDevices)
	e.GET("/healthz", s.handleHealth)
}

func (s *Server) handleScan(c *echo.Context) error {
	req, err := decodeJSON[ScanRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, "invalid JSON body: "+err.Error())
	}

	cfg := s.defaults
	if req.GroupSize != nil {
		cfg.GroupSize = *req.GroupSize
	}
	if req.NumGroups != nil {
		cfg.NumGroups = *req.NumGroups
	}
	if req.LockstepWidth != nil {
		cfg.LockstepWidth = *req.LockstepWidth
	}
	if req.Addend != nil {
		cfg.Addend = *req.Addend
	}

	engine, err := scan.NewEngine(s.ctx, cfg)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}

	s.mu.Lock()
	if err := s.ctx.Queue().Err(); err != nil {
		s.mu.Unlock()
		return writeError(c, http.StatusServiceUnavailable, "device_error", "device failed: "+err.Error())
	}
	out, err := engine.ScanInt32(req.Input)
	s.mu.Unlock()
	if err != nil {
		s.log.Error("scan failed", "n", len(req.Input), "error", err)
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}

	resp := ScanResponse{
		ID:       "scan_" + uuid.NewString(),
		Object:   "scan",
		Output:   out,
		Length:   len(out),
		Literal:  literal.Format(out),
		Geometry: engine.Geometry(len(req.Input)),
	}
	if req.Verify {
		ok := guda.VerifyInt32(scan.Reference(req.Input, cfg.Addend), out).OK()
		resp.Verified = &ok
	}
	s.log.Debug("scan served", "id", resp.ID, "n", resp.Length)
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDevices(c *echo.Context) error {
	active := s.ctx.Device()
	devices := guda.ListDevices()
	data := make([]DeviceInfo, 0, len(devices))
	for _, d := range devices {
		data = append(data, DeviceInfo{
			ID:            d.ID,
			Name:          d.Name,
			Vendor:        d.Vendor,
			Type:          d.Type.String(),
			Memory:        humanize.IBytes(d.TotalMem),
			MaxGroupSize:  d.MaxGroupSize,
			LocalMemory:   humanize.IBytes(uint64(d.LocalMemSize)),
			LockstepWidth: guda.LockstepFor(d),
			Active:        d.ID == active.ID,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"object": "list",
		"data":   data,
	})
}

func (s *Server) handleHealth(c *echo.Context) error {
	status := "ok"
	code := http.StatusOK
	if err := s.ctx.Queue().Err(); err != nil {
		status = "device failed: " + err.Error()
		code = http.StatusServiceUnavailable
	}
	version, _ := guda.Version()
	return c.JSON(code, map[string]any{
		"status":  status,
		"device":  s.ctx.Device().Name,
		"version": version,
	})
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg)
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return c.JSON(status, map[string]any{
		"error": ResponseError{
			Message: msg,
			Type:    errType,
		},
	})
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}
