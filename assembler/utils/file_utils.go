package utils

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// GetNarrationFiles returns the per-segment narration files from the
// audio directory, sorted by name so index order matches the script.
func GetNarrationFiles(audioDir string) ([]string, error) {
	var narrationFiles []string

	err := filepath.Walk(audioDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() {
			filename := strings.ToLower(info.Name())
			if strings.HasPrefix(filename, "segment") &&
				(strings.HasSuffix(filename, ".mp3") ||
					strings.HasSuffix(filename, ".wav") ||
					strings.HasSuffix(filename, ".m4a")) {
				narrationFiles = append(narrationFiles, path)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(narrationFiles)
	return narrationFiles, nil
}

// CreateConcatFile creates a temporary file for FFmpeg concat demuxer
func CreateConcatFile(files []string, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer file.Close()

	for _, f := range files {
		// Escape single quotes in file paths
		escapedPath := strings.ReplaceAll(f, "'", "\\'")
		fmt.Fprintf(file, "file '%s'\n", escapedPath)
	}

	return nil
}

// GetMediaDuration returns the duration of a media file in seconds using ffprobe
func GetMediaDuration(filePath string) (float64, error) {
	cmd := exec.Command("ffprobe", "-v", "quiet", "-show_entries",
		"format=duration", "-of", "csv=p=0", filePath)

	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("failed to get media duration: %v", err)
	}

	durationStr := strings.TrimSpace(string(output))
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %v", err)
	}

	return duration, nil
}

// ValidateFFmpegInstalled checks if FFmpeg and FFprobe are installed
func ValidateFFmpegInstalled() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found in PATH. Please install FFmpeg")
	}

	if _, err := exec.LookPath("ffprobe"); err != nil {
		return fmt.Errorf("ffprobe not found in PATH. Please install FFmpeg")
	}

	return nil
}

// EnsureDirectoryExists creates a directory if it doesn't exist
func EnsureDirectoryExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, 0755)
	}
	return nil
}

// CleanupTempFiles removes temporary files created during processing
func CleanupTempFiles(files []string) {
	for _, file := range files {
		if err := os.Remove(file); err != nil {
			fmt.Printf("Warning: failed to remove temp file %s: %v\n", file, err)
		}
	}
}

// GetFileSize returns the size of a file in bytes
func GetFileSize(filePath string) (int64, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// FileExists checks if a file exists
func FileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return !os.IsNotExist(err)
}
