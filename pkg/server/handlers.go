package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/finsim/finsim/pkg/simulation"
)

// Default simulation inputs, used when query parameters are omitted so
// that a bare GET /simular-financiamento still produces a proposal.
const (
	defaultPropertyValue = 500000.0
	defaultDownPayment   = 100000.0
	defaultTermMonths    = 360
)

func (s *Server) handleRoot(c *gin.Context) {
	s.logger.Info(c.Request.Context(), "root endpoint accessed")
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": s.serviceName,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.store != nil {
		if err := s.store.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"detail": "database unreachable",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleSimulate(c *gin.Context) {
	req, err := parseSimulationRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	result, err := s.simulator.Simulate(c.Request.Context(), RequestIDFrom(c), req)
	if err != nil {
		if errors.Is(err, simulation.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal simulation error"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListSimulations(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "simulation history disabled"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	sims, err := s.store.ListSimulations(c.Request.Context(), limit)
	if err != nil {
		s.logger.WithException(err).Error(c.Request.Context(), "failed to list simulation history")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to list simulations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"simulacoes": sims,
		"count":      len(sims),
	})
}

// parseSimulationRequest reads the simulation inputs from query
// parameters (valor, entrada, prazo_meses), applying defaults for
// omitted ones.
func parseSimulationRequest(c *gin.Context) (simulation.Request, error) {
	req := simulation.Request{
		PropertyValue: defaultPropertyValue,
		DownPayment:   defaultDownPayment,
		TermMonths:    defaultTermMonths,
	}

	if raw := c.Query("valor"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, errors.New("valor must be a number")
		}
		req.PropertyValue = v
	}
	if raw := c.Query("entrada"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, errors.New("entrada must be a number")
		}
		req.DownPayment = v
	}
	if raw := c.Query("prazo_meses"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return req, errors.New("prazo_meses must be an integer")
		}
		req.TermMonths = v
	}

	return req, nil
}
