package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/himanishpuri/PoseCurve/pkg/logger"
	"github.com/himanishpuri/PoseCurve/pkg/posecurve"
)

// Global flags
var (
	dbPath       string
	tempDir      string
	openPoseDir  string
	settingsPath string
)

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func registerGlobalFlags(fs *flag.FlagSet) {
	fs.StringVar(&dbPath, "db", getEnvOrDefault("POSECURVE_DB_PATH", "posecurve.sqlite3"), "Path to the SQLite database file")
	fs.StringVar(&tempDir, "temp", getEnvOrDefault("POSECURVE_TEMP_DIR", filepath.Join(os.TempDir(), "posecurve")), "Directory for downloaded videos and pose files")
	fs.StringVar(&openPoseDir, "openpose", os.Getenv("POSECURVE_OPENPOSE_DIR"), "OpenPose installation directory")
	fs.StringVar(&settingsPath, "settings", os.Getenv("POSECURVE_SETTINGS"), "YAML settings file (bones and thresholds)")
}

// loadSettings returns nil when no settings file is configured.
func loadSettings() (*posecurve.Settings, error) {
	if settingsPath == "" {
		return nil, nil
	}
	return posecurve.LoadSettings(settingsPath)
}

// createService creates a new PoseCurve service with configured options
func createService() (posecurve.Service, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	return posecurve.NewService(
		posecurve.WithDBPath(dbPath),
		posecurve.WithTempDir(tempDir),
		posecurve.WithSettings(settings),
		posecurve.WithOpenPoseDir(openPoseDir),
	)
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	log := logger.GetLogger()

	registerGlobalFlags(flag.CommandLine)
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]
	log.Debugf("Executing command: %s", command)

	var err error
	switch command {
	case "convert":
		err = handleConvert(args)
	case "poses":
		err = handlePoses(args)
	case "simplify":
		err = handleSimplify(args, os.Stdout)
	case "list":
		err = handleList(os.Stdout)
	case "show":
		err = handleShow(args, os.Stdout)
	case "export":
		err = handleExport(args)
	case "delete":
		err = handleDelete(args)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "\n❌ %v\n", err)
		log.Debugf("%s failed: %v", command, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("PoseCurve - pose video to animation keyframes")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  --db <path>         Path to SQLite database (env: POSECURVE_DB_PATH, default: posecurve.sqlite3)")
	fmt.Println("  --temp <dir>        Working directory for videos and pose files (env: POSECURVE_TEMP_DIR)")
	fmt.Println("  --openpose <dir>    OpenPose installation (env: POSECURVE_OPENPOSE_DIR)")
	fmt.Println("  --settings <file>   YAML settings: bones and thresholds (env: POSECURVE_SETTINGS)")
	fmt.Println("\nUsage:")
	fmt.Println("  posecurve [global-options] convert <video> [--person N] [--out file.anim]")
	fmt.Println("  posecurve [global-options] convert --youtube-url <url> [--person N] [--out file.anim]")
	fmt.Println("  posecurve [global-options] poses <dir> --fps <rate> [--name N] [--person N] [--out file.anim]")
	fmt.Println("  posecurve [global-options] simplify <samples.json> [--min-freq N] [--ratio R] [--keys-per-sec K]")
	fmt.Println("  posecurve [global-options] list")
	fmt.Println("  posecurve [global-options] show <clip_id>")
	fmt.Println("  posecurve [global-options] export <clip_id> <file.anim>")
	fmt.Println("  posecurve [global-options] delete <clip_id>")
	fmt.Println("\nExamples:")
	fmt.Println("  # Convert a local video with OpenPose")
	fmt.Println("  posecurve --openpose ~/openpose convert dance.mp4 --out Animations/dance0.anim")
	fmt.Println()
	fmt.Println("  # Convert existing OpenPose output recorded at 30 fps, second person")
	fmt.Println("  posecurve poses output/dance --fps 30 --person 1")
	fmt.Println()
	fmt.Println("  # Simplify a single curve and print keyframes as JSON")
	fmt.Println("  posecurve simplify samples.json --ratio 0.05")
}
