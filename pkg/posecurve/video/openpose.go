package video

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/himanishpuri/PoseCurve/pkg/utils"
)

type OpenPoseConfig struct {
	// Dir is the OpenPose installation; it must contain the models folder.
	Dir string
	// Binary is relative to Dir. Defaults to the platform's demo binary.
	Binary  string
	Timeout time.Duration
	// NumberPeople limits detection; 0 leaves OpenPose's default.
	NumberPeople int
}

func defaultBinary() string {
	if runtime.GOOS == "windows" {
		return filepath.Join("bin", "OpenPoseDemo.exe")
	}
	return filepath.Join("build", "examples", "openpose", "openpose.bin")
}

func (c OpenPoseConfig) binaryPath() string {
	bin := c.Binary
	if bin == "" {
		bin = defaultBinary()
	}
	if filepath.IsAbs(bin) {
		return bin
	}
	return filepath.Join(c.Dir, bin)
}

// CheckOpenPose verifies that the configured OpenPose binary exists.
func CheckOpenPose(cfg OpenPoseConfig) error {
	if cfg.Dir == "" {
		return fmt.Errorf("openpose directory not configured")
	}
	bin := cfg.binaryPath()
	if _, err := os.Stat(bin); err != nil {
		return fmt.Errorf("openpose binary not found at %s: %w", bin, err)
	}
	return nil
}

func openPoseArgs(cfg OpenPoseConfig, videoPath, outDir string) []string {
	args := []string{
		"--video", videoPath,
		"--write_json", outDir,
		"--keypoint_scale", "3",
		"--display", "0",
		"--render_pose", "0",
	}
	if cfg.NumberPeople > 0 {
		args = append(args, "--number_people_max", fmt.Sprint(cfg.NumberPeople))
	}
	return args
}

// RunOpenPose detects BODY_25 poses in videoPath and writes one JSON file per
// frame into outDir, with coordinates normalised to [0, 1].
func RunOpenPose(ctx context.Context, cfg OpenPoseConfig, videoPath, outDir string) error {
	if err := CheckOpenPose(cfg); err != nil {
		return err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Minute
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// OpenPose resolves its models folder relative to the working directory.
	absVideo, err := filepath.Abs(videoPath)
	if err != nil {
		return err
	}
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return err
	}
	if err := utils.MakeDir(absOut); err != nil {
		return fmt.Errorf("failed to create poses directory: %w", err)
	}

	cmd := exec.CommandContext(ctx, cfg.binaryPath(), openPoseArgs(cfg, absVideo, absOut)...)
	cmd.Dir = cfg.Dir

	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("openpose failed: %v (%s)", err, out)
	}
	return nil
}
