package posecurve

import (
	"context"
	"io"

	"github.com/himanishpuri/PoseCurve/pkg/models"
	"github.com/himanishpuri/PoseCurve/pkg/posecurve/curve"
)

type Service interface {
	ConvertVideo(ctx context.Context, videoPath string, personIdx int) (*models.Clip, error)
	ConvertYouTube(ctx context.Context, youtubeURL string, personIdx int) (*models.Clip, error)
	ConvertPoses(ctx context.Context, posesDir string, frameRate float64, name string, personIdx int) (*models.Clip, error)
	SimplifyCurve(ctx context.Context, samples []models.Sample, cfg *curve.Config) ([]models.Keyframe, curve.Stats, error)
	GetClip(clipID string) (*models.Clip, error)
	ListClips() ([]models.ClipSummary, error)
	DeleteClip(clipID string) error
	ExportAnim(ctx context.Context, clipID string, w io.Writer) error
	Close() error
}

type Storage interface {
	SaveClip(clip *models.Clip) (string, error)
	GetClip(clipID string) (*models.Clip, error)
	FindClipBySource(source string, personIdx int) (*models.Clip, error)
	ListClips() ([]models.ClipSummary, error)
	DeleteClipByID(clipID string) error
	GetKeyframeCount(clipID string) (int, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
