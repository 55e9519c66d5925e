package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"video_narrator/assembler/engine"
	"video_narrator/assembler/models"
	"video_narrator/assembler/providers"
	"video_narrator/assembler/utils"
)

func main() {
	projectDir := flag.String("project", ".", "project directory containing script.json and audio/")
	scriptPath := flag.String("script", "", "script file (default <project>/script.json)")
	audioDir := flag.String("audio", "", "narration directory (default <project>/audio)")
	outputDir := flag.String("out", "", "output directory (default <project>/output)")
	musicPath := flag.String("music", "", "background music file (default <project>/music.mp3)")
	resolution := flag.String("resolution", "hd", "output resolution: hd or 4k")
	workers := flag.Int("workers", 0, "concurrent segment workers (default from config)")
	useScenes := flag.Bool("scenes", false, "enable generated scenes for abstract segments")
	noMusic := flag.Bool("no-music", false, "skip background music")
	noOutro := flag.Bool("no-outro", false, "skip the outro card")
	analyze := flag.Bool("analyze", false, "print routing decisions without rendering")
	flag.Parse()

	fmt.Println("🎬 Starting Visual Segment Assembler...")

	godotenv.Load()

	if *scriptPath == "" {
		*scriptPath = filepath.Join(*projectDir, "script.json")
	}
	if *audioDir == "" {
		*audioDir = filepath.Join(*projectDir, "audio")
	}
	if *outputDir == "" {
		*outputDir = filepath.Join(*projectDir, "output")
	}
	if *musicPath == "" {
		*musicPath = filepath.Join(*projectDir, "music.mp3")
	}

	script, err := models.LoadScript(*scriptPath)
	if err != nil {
		log.Fatalf("Failed to load script: %v", err)
	}

	config, err := models.LoadConfig(filepath.Join(*projectDir, "project.json"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := config.ApplyResolution(*resolution); err != nil {
		log.Fatalf("Invalid resolution: %v", err)
	}
	if *workers > 0 {
		config.Settings.MaxWorkers = *workers
	}
	if *useScenes {
		config.Settings.AllowGeneratedScene = true
	}
	if *noOutro {
		config.Settings.IncludeOutro = false
	}

	if *analyze {
		analyzeRouting(script, config)
		return
	}

	if err := utils.ValidateFFmpegInstalled(); err != nil {
		log.Fatalf("%v", err)
	}

	ctx := context.Background()
	run := providers.NewRunContext()
	downloader := providers.NewMediaDownloader()
	compositor := engine.NewCompositor(config)

	backendDelay := time.Duration(config.Settings.BackendDelayMillis) * time.Millisecond

	workDir := filepath.Join(*projectDir, "work")
	assembler := engine.NewAssembler(config, compositor, run, workDir)
	assembler.Downloader = downloader
	assembler.Images = imageBackends(backendDelay)
	footage := providers.NewFootageBackend(config.Settings.MaxClipMinutes)
	footage.Interval = backendDelay
	assembler.Footage = footage
	assembler.Portraits = &providers.PortraitSearch{Run: run, Sources: assembler.Images}
	assembler.Stills = providers.NewStillImageGenerator(os.Getenv("OPENAI_API_KEY"), downloader)

	if config.Settings.AllowGeneratedScene {
		scene, err := providers.NewSceneVideoGenerator(ctx, os.Getenv("GEMINI_API_KEY"))
		if err != nil {
			log.Printf("⚠️ Scene generation disabled: %v", err)
			config.Settings.AllowGeneratedScene = false
		} else {
			assembler.Scene = scene
		}
	}

	timeline := &engine.Timeline{
		Cfg:         config,
		Producer:    assembler,
		Stitcher:    compositor,
		AudioDir:    *audioDir,
		WorkDir:     workDir,
		OutputDir:   *outputDir,
		ChannelName: getChannelName(),
		OutroAudio:  filepath.Join(*projectDir, "outro.mp3"),
	}
	if !*noMusic {
		timeline.MusicPath = *musicPath
	}

	started := time.Now()
	report, err := timeline.Run(ctx, script)
	if err != nil {
		log.Fatalf("❌ Run failed: %v", err)
	}

	fmt.Printf("\n✅ Done in %s\n", time.Since(started).Round(time.Second))
	fmt.Printf("   Output:   %s\n", report.OutputPath)
	if report.CaptionsPath != "" {
		fmt.Printf("   Captions: %s\n", report.CaptionsPath)
	}
	fmt.Printf("   Segments: %d produced, %d failed\n", report.Produced, report.Failed)
	for _, r := range report.Results {
		marker := "✓"
		note := r.Strategy
		if r.Status != models.StatusDone {
			marker = "❌"
			note = r.Error
		} else if r.FallbackUsed {
			note = note + " (fallback)"
		}
		fmt.Printf("   %s %2d. %s\n", marker, r.Index+1, note)
	}
}

// analyzeRouting prints the router's verdict per segment without
// touching any backend.
func analyzeRouting(script *models.Script, config *models.AssemblyConfig) {
	fmt.Printf("📋 Routing analysis for %d segments:\n\n", len(script.Segments))
	for i, seg := range script.Segments {
		d := engine.Route(seg, config.Settings.AllowGeneratedScene)
		fmt.Printf("%2d. %-18s conf=%.2f fallback=%-18s rule=%s\n",
			i+1, d.Primary, d.Confidence, d.Fallback, d.Rule)
		if len(d.SearchQueries) > 0 {
			fmt.Printf("    queries: %v\n", d.SearchQueries)
		}
		if d.SpeakerName != "" {
			fmt.Printf("    quote by %s\n", d.SpeakerName)
		}
	}
}

func imageBackends(delay time.Duration) []providers.Backend {
	pexels := providers.NewPexelsBackend(os.Getenv("PEXELS_API_KEY"))
	pexels.Interval = delay
	unsplash := providers.NewUnsplashBackend(os.Getenv("UNSPLASH_ACCESS_KEY"))
	unsplash.Interval = delay
	return []providers.Backend{pexels, unsplash}
}

func getChannelName() string {
	if name := os.Getenv("CHANNEL_NAME"); name != "" {
		return name
	}
	return "F1 BURNOUTS"
}
