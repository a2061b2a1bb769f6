//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/himanishpuri/PoseCurve/pkg/posecurve"
)

var (
	port           int
	dbPath         string
	tempDir        string
	openPoseDir    string
	settingsPath   string
	allowedOrigins string
)

func init() {
	// flag defaults read the environment, so .env has to be loaded first
	_ = godotenv.Load()

	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&dbPath, "db", getEnvOrDefault("POSECURVE_DB_PATH", "posecurve.sqlite3"), "Path to SQLite database")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("POSECURVE_TEMP_DIR", filepath.Join(os.TempDir(), "posecurve")), "Working directory for videos and pose files")
	flag.StringVar(&openPoseDir, "openpose", os.Getenv("POSECURVE_OPENPOSE_DIR"), "OpenPose installation directory")
	flag.StringVar(&settingsPath, "settings", os.Getenv("POSECURVE_SETTINGS"), "YAML settings file (bones and thresholds)")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseOrigins(s string) []string {
	if s == "*" {
		return []string{"*"}
	}
	origins := strings.Split(s, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}

func main() {
	flag.Parse()

	var settings *posecurve.Settings
	if settingsPath != "" {
		var err error
		if settings, err = posecurve.LoadSettings(settingsPath); err != nil {
			log.Fatalf("Failed to load settings: %v", err)
		}
	}

	service, err := posecurve.NewService(
		posecurve.WithDBPath(dbPath),
		posecurve.WithTempDir(tempDir),
		posecurve.WithSettings(settings),
		posecurve.WithOpenPoseDir(openPoseDir),
	)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	config := &ServerConfig{
		Port:           port,
		DBPath:         dbPath,
		TempDir:        tempDir,
		AllowedOrigins: parseOrigins(allowedOrigins),
	}

	server := NewServer(service, config)
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
