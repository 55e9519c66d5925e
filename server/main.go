package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"video_narrator/assembler/engine"
	"video_narrator/assembler/models"
	"video_narrator/assembler/providers"
	"video_narrator/assembler/utils"
)

// Job status values
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// AssembleRequest starts an assembly run for a prepared project
// directory containing script.json and audio/.
type AssembleRequest struct {
	ProjectDir string `json:"project_dir" binding:"required"`
	Resolution string `json:"resolution"`
	Scenes     bool   `json:"scenes"`
	NoMusic    bool   `json:"no_music"`
	Workers    int    `json:"workers"`
}

func main() {
	godotenv.Load()

	if err := initializeMongoDB(); err != nil {
		log.Fatalf("Failed to initialize MongoDB: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())

	if err := utils.ValidateFFmpegInstalled(); err != nil {
		log.Fatalf("%v", err)
	}

	r := gin.Default()
	r.Use(corsMiddleware())

	r.GET("/health", healthCheck)
	r.POST("/api/assemble", startAssembly)
	r.GET("/api/status/:jobId", getJobStatus)
	r.GET("/api/jobs", listJobs)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8087"
	}

	log.Printf("🎬 Segment Assembly API starting on port %s", port)
	log.Fatal(r.Run(":" + port))
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}

func startAssembly(c *gin.Context) {
	var req AssembleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	scriptPath := filepath.Join(req.ProjectDir, "script.json")
	script, err := models.LoadScript(scriptPath)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot load script: " + err.Error()})
		return
	}

	config, err := models.LoadConfig(filepath.Join(req.ProjectDir, "project.json"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot load config: " + err.Error()})
		return
	}
	if err := config.ApplyResolution(req.Resolution); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Scenes {
		config.Settings.AllowGeneratedScene = true
	}
	if req.Workers > 0 {
		config.Settings.MaxWorkers = req.Workers
	}

	jobID := uuid.New().String()
	record := &RunRecord{
		JobID:      jobID,
		ProjectDir: req.ProjectDir,
		Resolution: req.Resolution,
		Status:     StatusPending,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := insertRun(record); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create job: " + err.Error()})
		return
	}

	go runAssembly(jobID, req, script, config)

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":   jobID,
		"status":   StatusPending,
		"segments": len(script.Segments),
	})
}

// runAssembly executes one job in the background and records the
// outcome in MongoDB.
func runAssembly(jobID string, req AssembleRequest, script *models.Script, config *models.AssemblyConfig) {
	if err := updateRunStatus(jobID, StatusProcessing, "", nil); err != nil {
		log.Printf("❌ Job %s: failed to mark processing: %v", jobID, err)
	}

	ctx := context.Background()
	run := providers.NewRunContext()
	downloader := providers.NewMediaDownloader()
	compositor := engine.NewCompositor(config)

	backendDelay := time.Duration(config.Settings.BackendDelayMillis) * time.Millisecond
	pexels := providers.NewPexelsBackend(os.Getenv("PEXELS_API_KEY"))
	pexels.Interval = backendDelay
	unsplash := providers.NewUnsplashBackend(os.Getenv("UNSPLASH_ACCESS_KEY"))
	unsplash.Interval = backendDelay

	workDir := filepath.Join(req.ProjectDir, "work")
	assembler := engine.NewAssembler(config, compositor, run, workDir)
	assembler.Downloader = downloader
	assembler.Images = []providers.Backend{pexels, unsplash}
	footage := providers.NewFootageBackend(config.Settings.MaxClipMinutes)
	footage.Interval = backendDelay
	assembler.Footage = footage
	assembler.Portraits = &providers.PortraitSearch{Run: run, Sources: assembler.Images}
	assembler.Stills = providers.NewStillImageGenerator(os.Getenv("OPENAI_API_KEY"), downloader)

	if config.Settings.AllowGeneratedScene {
		scene, err := providers.NewSceneVideoGenerator(ctx, os.Getenv("GEMINI_API_KEY"))
		if err != nil {
			log.Printf("⚠️ Job %s: scene generation disabled: %v", jobID, err)
			config.Settings.AllowGeneratedScene = false
		} else {
			assembler.Scene = scene
		}
	}

	timeline := &engine.Timeline{
		Cfg:       config,
		Producer:  assembler,
		Stitcher:  compositor,
		AudioDir:  filepath.Join(req.ProjectDir, "audio"),
		WorkDir:   workDir,
		OutputDir: filepath.Join(req.ProjectDir, "output"),
	}
	if !req.NoMusic {
		timeline.MusicPath = filepath.Join(req.ProjectDir, "music.mp3")
	}

	report, err := timeline.Run(ctx, script)
	if err != nil {
		log.Printf("❌ Job %s failed: %v", jobID, err)
		updateRunStatus(jobID, StatusFailed, err.Error(), report)
		return
	}

	log.Printf("✓ Job %s completed: %d produced, %d failed", jobID, report.Produced, report.Failed)
	updateRunStatus(jobID, StatusCompleted, "", report)
}

func getJobStatus(c *gin.Context) {
	jobID := c.Param("jobId")

	record, err := findRun(jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	c.JSON(http.StatusOK, record)
}

func listJobs(c *gin.Context) {
	records, err := listRuns(50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(records),
		"jobs":  records,
	})
}
