package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/himanishpuri/PoseCurve/pkg/logger"
	"github.com/himanishpuri/PoseCurve/pkg/models"
	"github.com/himanishpuri/PoseCurve/pkg/posecurve"
	"github.com/himanishpuri/PoseCurve/pkg/posecurve/curve"
	"github.com/himanishpuri/PoseCurve/pkg/posecurve/video"
	"github.com/himanishpuri/PoseCurve/pkg/utils"
)

// parseInterleaved parses flags that may appear before, between or after
// positional arguments and returns the positionals in order.
func parseInterleaved(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

func handleConvert(args []string) error {
	log := logger.GetLogger()

	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	youtubeURL := fs.String("youtube-url", "", "YouTube URL to download and convert (alternative to a video file)")
	person := fs.Int("person", 0, "Index of the person to animate")
	out := fs.String("out", "", "Output .anim path (default: <name>.anim)")
	timeout := fs.Duration("timeout", time.Hour, "Overall time limit")

	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}

	var videoPath string
	switch {
	case *youtubeURL != "" && len(positional) > 0:
		return errors.New("cannot specify both a video file and --youtube-url")
	case *youtubeURL == "" && len(positional) != 1:
		return errors.New("usage: posecurve convert <video> | --youtube-url <url> [--person N] [--out file.anim]")
	case *youtubeURL == "":
		videoPath = positional[0]
		if !utils.FileExists(videoPath) {
			return fmt.Errorf("video not found: %s", videoPath)
		}
	}

	fmt.Println("\n🔧 Initializing service...")
	svc, err := createService()
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var clip *models.Clip
	if *youtubeURL != "" {
		id, _ := video.ExtractYouTubeID(*youtubeURL)
		fmt.Printf("📥 Downloading video %s from YouTube...\n", id)
		clip, err = svc.ConvertYouTube(ctx, *youtubeURL, *person)
	} else {
		fmt.Println("🕺 Detecting poses and fitting curves...")
		fmt.Println("   OpenPose may take a while on long videos")
		clip, err = svc.ConvertVideo(ctx, videoPath, *person)
	}
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}

	log.Infof("Converted clip %s", clip.ID)
	return exportAndReport(ctx, svc, clip, *out)
}

func handlePoses(args []string) error {
	fs := flag.NewFlagSet("poses", flag.ContinueOnError)
	fps := fs.Float64("fps", 0, "Frame rate the poses were recorded at (required)")
	name := fs.String("name", "", "Clip name (default: <dir><person>)")
	person := fs.Int("person", 0, "Index of the person to animate")
	out := fs.String("out", "", "Output .anim path (default: <name>.anim)")

	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 || *fps <= 0 {
		return errors.New("usage: posecurve poses <dir> --fps <rate> [--name N] [--person N] [--out file.anim]")
	}

	svc, err := createService()
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	ctx := context.Background()
	clip, err := svc.ConvertPoses(ctx, positional[0], *fps, *name, *person)
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}
	return exportAndReport(ctx, svc, clip, *out)
}

func exportAndReport(ctx context.Context, svc posecurve.Service, clip *models.Clip, out string) error {
	if out == "" {
		out = clip.Name + ".anim"
	}
	if err := utils.MakeDir(filepath.Dir(out)); err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := svc.ExportAnim(ctx, clip.ID, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	raw := 0
	for _, c := range clip.Curves {
		raw += c.RawCount
	}

	fmt.Println("\n✅ Animation created!")
	fmt.Printf("   ID:        %s\n", clip.ID)
	fmt.Printf("   Name:      %s\n", clip.Name)
	fmt.Printf("   Duration:  %.2fs at %s fps\n", clip.DurationSec, humanize.Ftoa(clip.FrameRate))
	fmt.Printf("   Keyframes: %s (from %s samples)\n", humanize.Comma(int64(clip.KeyframeCount())), humanize.Comma(int64(raw)))
	fmt.Printf("   File:      %s (%s)\n", out, fileSize(out))
	return nil
}

func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "?"
	}
	return humanize.Bytes(uint64(info.Size()))
}

// simplifyInput accepts either a bare sample array or an object with
// samples and an optional pipeline config.
type simplifyInput struct {
	Samples []models.Sample `json:"samples"`
	Config  *curve.Config   `json:"config"`
}

func readSimplifyInput(r io.Reader) (simplifyInput, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return simplifyInput{}, err
	}

	var in simplifyInput
	if err := json.Unmarshal(data, &in.Samples); err == nil {
		return in, nil
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return simplifyInput{}, fmt.Errorf("expected a sample array or {\"samples\": [...]}: %w", err)
	}
	return in, nil
}

func handleSimplify(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("simplify", flag.ContinueOnError)
	minFreq := fs.Int("min-freq", -1, "Minimum trembling frequency (0 disables)")
	ratio := fs.Float64("ratio", -1, "MLF maximum error ratio in [0, 1] (0 disables)")
	keysPerSec := fs.Float64("keys-per-sec", -1, "Average keys per second (0 disables)")
	stats := fs.Bool("stats", false, "Print stage counts to stderr")

	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return errors.New("usage: posecurve simplify <samples.json|-> [--min-freq N] [--ratio R] [--keys-per-sec K]")
	}

	var r io.Reader = os.Stdin
	if positional[0] != "-" {
		f, err := os.Open(positional[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	in, err := readSimplifyInput(r)
	if err != nil {
		return err
	}

	cfg := curve.DefaultConfig()
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if settings != nil {
		cfg = settings.Pipeline
	}
	if in.Config != nil {
		cfg = *in.Config
	}
	if *minFreq >= 0 {
		cfg.MinTremblingFreq = *minFreq
	}
	if *ratio >= 0 {
		cfg.MLFMaxErrorRatio = *ratio
	}
	if *keysPerSec >= 0 {
		cfg.AvgKeysPerSec = *keysPerSec
	}

	keys, st, err := curve.ProcessWithStats(in.Samples, cfg)
	if err != nil {
		return err
	}
	if *stats {
		fmt.Fprintf(os.Stderr, "%s (%.1f%% kept)\n", st, st.Ratio()*100)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(keys)
}

func handleList(w io.Writer) error {
	svc, err := createService()
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	clips, err := svc.ListClips()
	if err != nil {
		return fmt.Errorf("failed to list clips: %w", err)
	}

	if len(clips) == 0 {
		fmt.Fprintln(w, "\n📭 No clips in database")
		return nil
	}

	fmt.Fprintf(w, "\n📚 Found %d clip(s):\n\n", len(clips))
	for i, c := range clips {
		fmt.Fprintf(w, "%d. %s (ID: %s)\n", i+1, c.Name, c.ID)
		fmt.Fprintf(w, "   Source:    %s\n", c.Source)
		fmt.Fprintf(w, "   Duration:  %.2fs, %d bones, %s keyframes\n", c.DurationSec, c.BoneCount, humanize.Comma(int64(c.KeyframeCount)))
		fmt.Fprintf(w, "   Created:   %s\n\n", humanize.Time(c.CreatedAt))
	}
	return nil
}

func handleShow(args []string, w io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: posecurve show <clip_id>")
	}

	svc, err := createService()
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	clip, err := svc.GetClip(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\n🎬 %s (ID: %s)\n", clip.Name, clip.ID)
	fmt.Fprintf(w, "   Source:   %s (person %d)\n", clip.Source, clip.PersonIdx)
	fmt.Fprintf(w, "   Duration: %.2fs at %s fps\n", clip.DurationSec, humanize.Ftoa(clip.FrameRate))
	fmt.Fprintf(w, "   Pipeline: trembling %d, mlf ratio %s, %s keys/s\n",
		clip.MinTremblingFreq, humanize.Ftoa(clip.MLFMaxErrorRatio), humanize.Ftoa(clip.AvgKeysPerSec))
	fmt.Fprintf(w, "   Created:  %s\n\n", humanize.Time(clip.CreatedAt))

	for _, c := range clip.Curves {
		fmt.Fprintf(w, "   %-32s %5d -> %4d keys\n", c.Path, c.RawCount, len(c.Keys))
	}
	return nil
}

func handleExport(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: posecurve export <clip_id> <file.anim>")
	}

	svc, err := createService()
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	clip, err := svc.GetClip(args[0])
	if err != nil {
		return err
	}
	return exportAndReport(context.Background(), svc, clip, args[1])
}

func handleDelete(args []string) error {
	log := logger.GetLogger()

	if len(args) != 1 {
		return errors.New("usage: posecurve delete <clip_id>")
	}
	if !utils.IsUUID(args[0]) {
		return fmt.Errorf("invalid clip ID: %s", args[0])
	}

	svc, err := createService()
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	clip, err := svc.GetClip(args[0])
	if err != nil {
		return err
	}
	if err := svc.DeleteClip(clip.ID); err != nil {
		return fmt.Errorf("failed to delete clip: %w", err)
	}

	fmt.Printf("\n✅ Successfully deleted clip:\n")
	fmt.Printf("   ID:   %s\n", clip.ID)
	fmt.Printf("   Name: %s\n", clip.Name)
	log.Infof("Deleted clip %s (%s)", clip.ID, clip.Name)
	return nil
}
