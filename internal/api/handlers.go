package api

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"gharsense/config"
	"gharsense/internal/database"
	"gharsense/internal/inference"
	"gharsense/internal/models"
	"gharsense/internal/training"
)

type Handler struct {
	db        *database.Database
	logger    *logrus.Logger
	predictor *inference.Predictor
	modelsDir string
}

// PredictRequest is the JSON body of POST /api/predict. The optional
// model field selects a persisted artifact by file name; the best
// model answers when it is empty.
type PredictRequest struct {
	BHK               int     `json:"bhk" binding:"required"`
	AreaSqFt          float64 `json:"area_sqft" binding:"required"`
	Locality          string  `json:"locality" binding:"required"`
	SellerType        string  `json:"seller_type" binding:"required"`
	PropertyType      string  `json:"property_type" binding:"required"`
	FurnishingStatus  string  `json:"furnishing_status" binding:"required"`
	UnderConstruction bool    `json:"under_construction"`
	AmenitiesCount    int     `json:"amenities_count"`
	Model             string  `json:"model"`
}

// ModelInfo describes one persisted artifact for GET /api/models.
type ModelInfo struct {
	Rank       int               `json:"rank"`
	Name       string            `json:"name"`
	Kind       string            `json:"kind"`
	Score      models.ModelScore `json:"score"`
	Components []string          `json:"components,omitempty"`
	FileName   string            `json:"file_name"`
}

func NewHandler(db *database.Database, cfg *config.Config, localities *config.Localities, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		db:        db,
		logger:    logger,
		predictor: inference.NewPredictor(cfg, localities, logger),
		modelsDir: cfg.Pipeline.ModelsDir,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	count, err := h.db.CountProperties()
	if err != nil {
		h.logger.WithError(err).Error("Failed to reach listing store")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "listing store unreachable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"properties": count,
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "20")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 20
	}

	stats, err := h.db.GetStoreStats()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get store stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get store stats"})
		return
	}

	localities, err := h.db.GetLocalityStats(limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get locality stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get locality stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"store":      stats,
		"localities": localities,
	})
}

func (h *Handler) GetModels(c *gin.Context) {
	infos, err := h.listModels()
	if err != nil {
		h.logger.WithError(err).Error("Failed to list model artifacts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list models"})
		return
	}
	if len(infos) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No trained models found"})
		return
	}

	c.JSON(http.StatusOK, infos)
}

func (h *Handler) Predict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Failed to parse predict request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request parameters"})
		return
	}

	record := models.PropertyRecord{
		BHK:               req.BHK,
		AreaSqFt:          req.AreaSqFt,
		Locality:          req.Locality,
		SellerType:        req.SellerType,
		PropertyType:      req.PropertyType,
		FurnishingStatus:  req.FurnishingStatus,
		UnderConstruction: req.UnderConstruction,
		AmenitiesCount:    req.AmenitiesCount,
	}

	prediction, err := h.predictor.PredictWithModel(record, req.Model)
	if err != nil {
		switch {
		case errors.Is(err, inference.ErrModelNotTrained):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		case strings.Contains(err.Error(), "invalid property attributes"):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.WithError(err).Error("Prediction failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Prediction failed"})
		}
		return
	}

	c.JSON(http.StatusOK, prediction)
}

// listModels scans the models directory for ranked artifacts and
// returns their metadata ordered by rank.
func (h *Handler) listModels() ([]ModelInfo, error) {
	entries, err := os.ReadDir(h.modelsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var infos []ModelInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "model_") || !strings.HasSuffix(name, ".gob") {
			continue
		}
		artifact, err := training.LoadArtifact(filepath.Join(h.modelsDir, name))
		if err != nil {
			h.logger.WithError(err).WithField("file", name).Warn("Skipping unreadable artifact")
			continue
		}
		infos = append(infos, ModelInfo{
			Rank:       artifact.Rank,
			Name:       artifact.Name,
			Kind:       string(artifact.Kind),
			Score:      artifact.Score,
			Components: artifact.Components,
			FileName:   name,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Rank < infos[j].Rank })
	return infos, nil
}
