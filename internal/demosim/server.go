package demosim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BasePath is where the graph endpoints are mounted.
const BasePath = "/mobsinet/graph"

const (
	csrfCookie = "csrftoken"
	csrfHeader = "X-CSRFToken"

	// RequestIDHeader is echoed back on every response.
	RequestIDHeader = "X-Request-ID"
)

// handler serves the graph endpoints for one simulation.
type handler struct {
	sim *Simulation
	log *slog.Logger
}

// NewRouter creates the gin engine serving sim under BasePath.
func NewRouter(sim *Simulation, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	h := &handler{sim: sim, log: log}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLog(log))

	g := r.Group(BasePath)
	g.GET("/", h.graphPage)
	g.GET("/update_graph/", h.updateGraph)
	g.GET("/init_simulation/", h.initSimulation)
	g.GET("/run_simulation/", h.runSimulation)
	g.GET("/stop_simulation/", h.stopSimulation)
	g.GET("/projects_names/", h.projectNames)
	g.GET("/get_config/", h.getConfig)
	g.GET("/calculate_degree/", h.degree)
	g.GET("/calculate_diameter/", h.diameter)
	g.GET("/calculate_eccentricity/", h.eccentricity)
	g.GET("/calculate_distance/", h.distance)
	g.GET("/calculate_shortest_path_between_two_nodes/", h.shortestPath)
	g.GET("/node2vec_algorithm/", h.node2vec)
	g.GET("/reevaluate_connections/", h.reevaluate)

	forms := g.Group("", csrfProtect())
	forms.POST("/update_config/", h.updateConfig)
	forms.POST("/add_nodes/", h.addNodes)
	return r
}

// requestID echoes the client's X-Request-ID, or mints one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func requestLog(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"request_id", c.GetString("request_id"),
			"duration", time.Since(start))
	}
}

// csrfProtect rejects POSTs whose X-CSRFToken header does not match the
// csrftoken cookie handed out by the graph page.
func csrfProtect() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(csrfCookie)
		if err != nil || cookie == "" || c.GetHeader(csrfHeader) != cookie {
			respondError(c, http.StatusForbidden, "CSRF verification failed")
			c.Abort()
			return
		}
		c.Next()
	}
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

// statusFor maps simulation errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNodeNotFound), errors.Is(err, ErrUnknownProject), errors.Is(err, ErrNoPath):
		return http.StatusNotFound
	case errors.Is(err, ErrRunning):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func (h *handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	h.log.Warn("request failed", "path", c.FullPath(), "status", status, "err", err)
	respondError(c, status, err.Error())
}

func (h *handler) graphPage(c *gin.Context) {
	token, err := c.Cookie(csrfCookie)
	if err != nil || token == "" {
		token = strings.ReplaceAll(uuid.NewString(), "-", "")
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(csrfCookie, token, 0, "/", "", false, false)
	}
	c.String(http.StatusOK, "mobsinet graph (%s)", h.sim.Project())
}

func (h *handler) updateGraph(c *gin.Context) {
	withLogs, _ := strconv.ParseBool(c.DefaultQuery("with_logs", "false"))
	c.JSON(http.StatusOK, h.sim.Snapshot(withLogs))
}

func (h *handler) initSimulation(c *gin.Context) {
	if err := h.sim.Init(c.Query("project")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "initialized"})
}

func (h *handler) runSimulation(c *gin.Context) {
	rounds, err := strconv.Atoi(c.Query("rounds"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "rounds must be an integer")
		return
	}
	rate, err := strconv.ParseFloat(c.DefaultQuery("refresh_rate", "0"), 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "refresh_rate must be a number")
		return
	}
	if err := h.sim.Run(rounds, rate); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "running"})
}

func (h *handler) stopSimulation(c *gin.Context) {
	h.sim.Stop()
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (h *handler) projectNames(c *gin.Context) {
	c.JSON(http.StatusOK, Projects)
}

func (h *handler) getConfig(c *gin.Context) {
	cfg, err := h.sim.Config(c.Query("project"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func queryNode(c *gin.Context, key string) (int, bool) {
	id, err := strconv.Atoi(c.Query(key))
	if err != nil {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("%s must be a node id", key))
		return 0, false
	}
	return id, true
}

func (h *handler) degree(c *gin.Context) {
	id, ok := queryNode(c, "node_id")
	if !ok {
		return
	}
	d, err := h.sim.Degree(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"degree": d})
}

func (h *handler) diameter(c *gin.Context) {
	d, err := h.sim.Diameter()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"diameter": d})
}

func (h *handler) eccentricity(c *gin.Context) {
	id, ok := queryNode(c, "node_id")
	if !ok {
		return
	}
	e, err := h.sim.Eccentricity(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"eccentricity": e})
}

func (h *handler) distance(c *gin.Context) {
	a, ok := queryNode(c, "node1")
	if !ok {
		return
	}
	b, ok := queryNode(c, "node2")
	if !ok {
		return
	}
	d, err := h.sim.Distance(a, b)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"distance": d})
}

func (h *handler) shortestPath(c *gin.Context) {
	a, ok := queryNode(c, "node1_id")
	if !ok {
		return
	}
	b, ok := queryNode(c, "node2_id")
	if !ok {
		return
	}
	path, err := h.sim.ShortestPath(a, b)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shortest_path": path})
}

func (h *handler) node2vec(c *gin.Context) {
	dims, err := strconv.Atoi(c.Query("dimensions"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "dimensions must be an integer")
		return
	}
	words, vectors, err := h.sim.Embed(dims)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"words": words, "vectors": vectors})
}

func (h *handler) reevaluate(c *gin.Context) {
	n := h.sim.Reevaluate()
	c.JSON(http.StatusOK, gin.H{"status": "reevaluated", "links": n})
}

// updateConfig applies options-form fields to the simulation parameters.
func (h *handler) updateConfig(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		respondError(c, http.StatusBadRequest, "invalid form")
		return
	}
	p := h.sim.Params()
	for key, vals := range c.Request.PostForm {
		if len(vals) == 0 {
			continue
		}
		if err := applyParam(&p, key, vals[0]); err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	if err := h.sim.SetParams(p); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	h.log.Info("config updated", "project", c.Query("project"))
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func applyParam(p *Params, key, val string) error {
	switch key {
	case "simulation_name", "mobility_model", "connectivity_model":
		// Fixed for the demo backend.
		return nil
	}
	v, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fmt.Errorf("%s must be a number", key)
	}
	switch key {
	case "number_of_nodes":
		p.Nodes = int(v)
	case "simulation_rounds":
		p.Rounds = int(v)
	case "simulation_refresh_rate":
		p.RefreshRate = v
	case "dim_x":
		p.DimX = v
	case "dim_y":
		p.DimY = v
	case "mobility_model_parameters[speed]":
		p.Speed = v
	case "connectivity_model_parameters[radius]":
		p.Radius = v
	case "connectivity_model_parameters[low_power_every]":
		p.LowPowerEvery = int(v)
	default:
		return fmt.Errorf("unknown field %q", key)
	}
	return nil
}

func (h *handler) addNodes(c *gin.Context) {
	count, err := strconv.Atoi(c.PostForm("number_of_nodes"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "number_of_nodes must be an integer")
		return
	}
	if err := h.sim.AddNodes(count, c.PostForm("color")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "added"})
}

// Serve runs the demo backend on addr until ctx is done.
func Serve(ctx context.Context, addr string, sim *Simulation, log *slog.Logger) error {
	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(sim, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("demo backend listening", "addr", addr, "base", BasePath+"/")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sim.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown demo backend: %w", err)
	}
	return nil
}
