//go:build !js && !wasm

package posecurve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/PoseCurve/pkg/logger"
	"github.com/himanishpuri/PoseCurve/pkg/models"
	"github.com/himanishpuri/PoseCurve/pkg/posecurve/anim"
	"github.com/himanishpuri/PoseCurve/pkg/posecurve/curve"
	"github.com/himanishpuri/PoseCurve/pkg/posecurve/pose"
	"github.com/himanishpuri/PoseCurve/pkg/posecurve/video"
	"github.com/himanishpuri/PoseCurve/pkg/utils"
)

// poseService is the default implementation of the Service interface.
type poseService struct {
	storage Storage
	log     Logger
	config  *Config
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Pipeline.Validate(); err != nil {
		return nil, err
	}
	if cfg.MinConfidence < 0 || cfg.MinConfidence > 1 {
		return nil, fmt.Errorf("%w: min confidence must be in [0, 1], got %g", ErrConfigOutOfRange, cfg.MinConfidence)
	}
	bones, err := pose.SortBoneDefs(cfg.Bones)
	if err != nil {
		return nil, err
	}
	cfg.Bones = bones
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	var stor Storage
	if cfg.Storage != nil {
		stor = cfg.Storage
	} else {
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	return &poseService{
		storage: stor,
		log:     cfg.Logger,
		config:  cfg,
	}, nil
}

// withPrefix derives a prefixed logger when the logger supports it.
func withPrefix(l Logger, prefix string) Logger {
	if pl, ok := l.(*logger.Logger); ok {
		return pl.With(prefix)
	}
	return l
}

// ConvertVideo detects poses in a local video and converts them into a clip.
// A clip stored for the same video, person and thresholds is returned as is;
// otherwise pose files from an earlier run on the same video are reused.
func (s *poseService) ConvertVideo(ctx context.Context, videoPath string, personIdx int) (*models.Clip, error) {
	absPath, err := filepath.Abs(videoPath)
	if err != nil {
		return nil, err
	}
	if clip := s.storedClip(absPath, personIdx); clip != nil {
		return clip, nil
	}
	return s.convertVideoFile(ctx, absPath, utils.BaseName(videoPath), absPath, personIdx)
}

// ConvertYouTube downloads a YouTube video into the temp directory and
// converts it like ConvertVideo.
func (s *poseService) ConvertYouTube(ctx context.Context, youtubeURL string, personIdx int) (*models.Clip, error) {
	if !video.IsYouTubeURL(youtubeURL) {
		return nil, fmt.Errorf("not a YouTube URL: %s", youtubeURL)
	}
	if clip := s.storedClip(youtubeURL, personIdx); clip != nil {
		return clip, nil
	}

	s.log.Infof("Downloading %s", youtubeURL)
	path, meta, err := video.DownloadYouTubeVideo(ctx, youtubeURL, filepath.Join(s.config.TempDir, "videos"))
	if err != nil {
		return nil, fmt.Errorf("youtube download failed: %w", err)
	}
	s.log.Infof("Downloaded %q (%s)", meta.Title, meta.ID)

	return s.convertVideoFile(ctx, path, meta.ID, youtubeURL, personIdx)
}

// storedClip returns the newest clip converted from source for personIdx
// with the service's current thresholds, or nil.
func (s *poseService) storedClip(source string, personIdx int) *models.Clip {
	clip, err := s.storage.FindClipBySource(source, personIdx)
	if err != nil {
		if !IsNotFound(err) {
			s.log.Warnf("Looking up stored clip for %s: %v", source, err)
		}
		return nil
	}

	p := s.config.Pipeline
	if clip.MinTremblingFreq != p.MinTremblingFreq || clip.MLFMaxErrorRatio != p.MLFMaxErrorRatio || clip.AvgKeysPerSec != p.AvgKeysPerSec {
		s.log.Debugf("Stored clip %s for %s used other thresholds", clip.ID, source)
		return nil
	}
	s.log.Infof("Reusing stored clip %s (%s) for %s", clip.Name, clip.ID, source)
	return clip
}

func (s *poseService) convertVideoFile(ctx context.Context, path, baseName, source string, personIdx int) (*models.Clip, error) {
	meta, err := video.ProbeVideo(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("probing video: %w", err)
	}
	s.log.Infof("Video %s: %.3f fps, %.2fs, %dx%d", meta.Filename, meta.FrameRate, meta.DurationSec, meta.Width, meta.Height)

	posesDir := filepath.Join(s.config.TempDir, "poses", baseName)
	if existing, _ := utils.ListFilesWithExt(posesDir, ".json"); len(existing) > 0 {
		s.log.Infof("Reusing %d pose files in %s", len(existing), posesDir)
	} else {
		s.log.Infof("Running OpenPose on %s", path)
		cfg := video.OpenPoseConfig{Dir: s.config.OpenPoseDir, Binary: s.config.OpenPoseBinary}
		if err := video.RunOpenPose(ctx, cfg, path, posesDir); err != nil {
			// partial output would be reused next time
			utils.DeleteDir(posesDir)
			return nil, fmt.Errorf("pose detection failed: %w", err)
		}
	}

	frames, err := pose.ReadFrames(posesDir)
	if err != nil {
		return nil, err
	}

	return s.buildClip(ctx, frames, meta.FrameRate, clipName(baseName, personIdx), source, personIdx)
}

// ConvertPoses converts a directory of OpenPose JSON files recorded at
// frameRate. An empty name defaults to the directory name plus the person index.
func (s *poseService) ConvertPoses(ctx context.Context, posesDir string, frameRate float64, name string, personIdx int) (*models.Clip, error) {
	frames, err := pose.ReadFrames(posesDir)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no pose files in %s", ErrNoPoseData, posesDir)
	}

	if name == "" {
		name = clipName(filepath.Base(filepath.Clean(posesDir)), personIdx)
	}
	source, err := filepath.Abs(posesDir)
	if err != nil {
		source = posesDir
	}
	return s.buildClip(ctx, frames, frameRate, name, source, personIdx)
}

func clipName(base string, personIdx int) string {
	return base + strconv.Itoa(personIdx)
}

func (s *poseService) buildClip(ctx context.Context, frames []pose.Frame, frameRate float64, name, source string, personIdx int) (*models.Clip, error) {
	extractor := pose.Extractor{
		Bones:           s.config.Bones,
		BodyOrientation: s.config.BodyOrientation,
		MinConfidence:   s.config.MinConfidence,
		FrameRate:       frameRate,
		PersonIdx:       personIdx,
	}
	tracks, duration, err := extractor.Extract(frames)
	if err != nil {
		return nil, fmt.Errorf("extracting bone angles: %w", err)
	}

	clipLog := withPrefix(s.log, "["+name+"]")
	clipLog.Infof("Read %d frames, %.2fs of pose data", len(frames), duration)

	curves := make([]models.BoneCurve, len(tracks))
	measured := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for i, track := range tracks {
		curves[i] = models.BoneCurve{Path: track.Bone.Path, RawCount: len(track.Samples)}
		if len(track.Samples) == 0 {
			clipLog.Warnf("Bone %s was never detected", track.Bone.Path)
			continue
		}
		measured++
		if len(track.Samples) < 2 {
			// a single sample is its own curve
			r := track.Samples[0]
			curves[i].Keys = []models.Keyframe{{T: r.T, Value: r.Angle}}
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			keys, stats, err := curve.ProcessWithStats(models.Samples(track.Samples), s.config.Pipeline)
			if err != nil {
				return fmt.Errorf("bone %s: %w", track.Bone.Path, err)
			}
			curves[i].Keys = keys
			withPrefix(clipLog, "["+track.Bone.Path+"]").Debugf("%s", stats)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if measured == 0 {
		return nil, fmt.Errorf("%w: person %d not found in %d frames", ErrNoPoseData, personIdx, len(frames))
	}

	clip := &models.Clip{
		Name:             name,
		Source:           source,
		PersonIdx:        personIdx,
		FrameRate:        frameRate,
		DurationSec:      duration,
		MinTremblingFreq: s.config.Pipeline.MinTremblingFreq,
		MLFMaxErrorRatio: s.config.Pipeline.MLFMaxErrorRatio,
		AvgKeysPerSec:    s.config.Pipeline.AvgKeysPerSec,
		Curves:           curves,
	}

	id, err := s.storage.SaveClip(clip)
	if err != nil {
		return nil, fmt.Errorf("failed to store clip: %w", err)
	}
	clip.ID = id

	clipLog.Infof("Stored clip %s: %d bones, %d keyframes", id, measured, clip.KeyframeCount())
	return clip, nil
}

// SimplifyCurve runs the reduction pipeline on a single curve. A nil config
// uses the service's pipeline settings; a zero config disables every
// reduction stage.
func (s *poseService) SimplifyCurve(ctx context.Context, samples []models.Sample, cfg *curve.Config) ([]models.Keyframe, curve.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, curve.Stats{}, err
	}
	pipeline := s.config.Pipeline
	if cfg != nil {
		pipeline = *cfg
	}
	return curve.ProcessWithStats(samples, pipeline)
}

func (s *poseService) GetClip(clipID string) (*models.Clip, error) {
	return s.storage.GetClip(clipID)
}

func (s *poseService) ListClips() ([]models.ClipSummary, error) {
	return s.storage.ListClips()
}

func (s *poseService) DeleteClip(clipID string) error {
	keys, err := s.storage.GetKeyframeCount(clipID)
	if err != nil {
		return err
	}
	if err := s.storage.DeleteClipByID(clipID); err != nil {
		return err
	}
	s.log.Infof("Deleted clip %s with %d keyframes", clipID, keys)
	return nil
}

// ExportAnim writes a stored clip as a Unity .anim document.
func (s *poseService) ExportAnim(ctx context.Context, clipID string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clip, err := s.storage.GetClip(clipID)
	if err != nil {
		return err
	}
	if err := anim.Write(w, clip); err != nil {
		return fmt.Errorf("writing anim: %w", err)
	}
	return nil
}

// Close releases all resources held by the service.
func (s *poseService) Close() error {
	return s.storage.Close()
}

// IsNotFound reports whether err means a clip id did not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrClipNotFound)
}
