package remote

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zeu5/grid-rl-env/grid"
	"github.com/zeu5/grid-rl-env/util"
	"go.uber.org/zap"
)

// SimulatorHandler serves a backend to grid.RemoteBackend clients
type SimulatorHandler struct {
	backend grid.Backend
	logger  *zap.Logger
}

func NewSimulatorHandler(backend grid.Backend, logger *zap.Logger) *SimulatorHandler {
	return &SimulatorHandler{backend: backend, logger: util.OrNop(logger)}
}

// Register adds the /load, /apply and /seed routes
func (h *SimulatorHandler) Register(r gin.IRoutes) {
	r.POST("/load", h.handleLoad)
	r.POST("/apply", h.handleApply)
	r.POST("/seed", h.handleSeed)
}

// Engine is a router serving only the simulator
func (h *SimulatorHandler) Engine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	h.Register(r)
	return r
}

func (h *SimulatorHandler) handleLoad(c *gin.Context) {
	desc := &grid.Description{}
	if err := c.ShouldBindJSON(desc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to unmarshal request"})
		return
	}
	if err := desc.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.backend.Load(desc); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.logger.Debug("grid loaded", zap.String("name", desc.Name))
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (h *SimulatorHandler) handleApply(c *gin.Context) {
	in := &grid.BackendInput{}
	if err := c.ShouldBindJSON(in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to unmarshal request"})
		return
	}
	state, err := h.backend.Apply(in)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *SimulatorHandler) handleSeed(c *gin.Context) {
	req := struct {
		Seed uint64 `json:"seed"`
	}{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to unmarshal request"})
		return
	}
	if seeder, ok := h.backend.(grid.Seeder); ok {
		if err := seeder.Seed(req.Seed); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}
