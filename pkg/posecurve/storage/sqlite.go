//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/himanishpuri/PoseCurve/pkg/models"
	"github.com/himanishpuri/PoseCurve/pkg/utils"
)

const DefaultDBFile = "posecurve.sqlite3"
const errDBClientNil = "db client is nil"

// ErrNotFound is returned when a clip id has no row.
var ErrNotFound = errors.New("clip not found")

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

type ClipRow struct {
	ID               string `gorm:"primaryKey;type:varchar(36)"`
	Name             string `gorm:"index:idx_clip_name"`
	Source           string `gorm:"index:idx_clip_source"`
	PersonIdx        int
	FrameRate        float64
	DurationSec      float64
	MinTremblingFreq int
	MLFMaxErrorRatio float64
	AvgKeysPerSec    float64
	CreatedAt        time.Time
}

func (ClipRow) TableName() string { return "clips" }

type BoneCurveRow struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"`
	ClipID   string `gorm:"type:varchar(36);index:idx_curve_clip"`
	Ordinal  int
	Path     string
	RawCount int
}

func (BoneCurveRow) TableName() string { return "bone_curves" }

type KeyframeRow struct {
	ID      uint   `gorm:"primaryKey;autoIncrement"`
	CurveID uint   `gorm:"index:idx_key_curve"`
	ClipID  string `gorm:"type:varchar(36);index:idx_key_clip"`
	Ordinal int
	T       float64
	Value   float64
	Slope   float64
}

func (KeyframeRow) TableName() string { return "keyframe_rows" }

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("POSECURVE_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := utils.MakeDir(dir); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// sqlite serialises writers; one connection avoids SQLITE_BUSY under the server
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&ClipRow{}, &BoneCurveRow{}, &KeyframeRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// SaveClip stores a clip with all its curves and keyframes in one
// transaction and returns the new clip id.
func (c *DBClient) SaveClip(clip *models.Clip) (string, error) {
	if c == nil || c.DB == nil {
		return "", errors.New(errDBClientNil)
	}
	if clip == nil {
		return "", errors.New("nil clip")
	}

	row := ClipRow{
		ID:               utils.GenerateUUID(),
		Name:             clip.Name,
		Source:           clip.Source,
		PersonIdx:        clip.PersonIdx,
		FrameRate:        clip.FrameRate,
		DurationSec:      clip.DurationSec,
		MinTremblingFreq: clip.MinTremblingFreq,
		MLFMaxErrorRatio: clip.MLFMaxErrorRatio,
		AvgKeysPerSec:    clip.AvgKeysPerSec,
	}

	err := c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("creating clip: %w", err)
		}

		for i, curve := range clip.Curves {
			cr := BoneCurveRow{ClipID: row.ID, Ordinal: i, Path: curve.Path, RawCount: curve.RawCount}
			if err := tx.Create(&cr).Error; err != nil {
				return fmt.Errorf("creating curve %s: %w", curve.Path, err)
			}
			if len(curve.Keys) == 0 {
				continue
			}

			keys := make([]KeyframeRow, len(curve.Keys))
			for j, k := range curve.Keys {
				keys[j] = KeyframeRow{CurveID: cr.ID, ClipID: row.ID, Ordinal: j, T: k.T, Value: k.Value, Slope: k.Slope}
			}
			if err := tx.CreateInBatches(keys, 500).Error; err != nil {
				return fmt.Errorf("batch insert keyframes for %s: %w", curve.Path, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	clip.ID = row.ID
	clip.CreatedAt = row.CreatedAt
	return row.ID, nil
}

func (c *DBClient) getClipRow(id string) (*ClipRow, error) {
	var row ClipRow
	if err := c.DB.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("querying clip: %w", err)
	}
	return &row, nil
}

// GetClip loads a clip with its curves in bone order and keys in time order.
func (c *DBClient) GetClip(id string) (*models.Clip, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	row, err := c.getClipRow(id)
	if err != nil {
		return nil, err
	}

	var curves []BoneCurveRow
	if err := c.DB.Where("clip_id = ?", id).Order("ordinal").Find(&curves).Error; err != nil {
		return nil, fmt.Errorf("querying curves: %w", err)
	}

	var keys []KeyframeRow
	if err := c.DB.Where("clip_id = ?", id).Order("curve_id, ordinal").Find(&keys).Error; err != nil {
		return nil, fmt.Errorf("querying keyframes: %w", err)
	}

	byCurve := make(map[uint][]models.Keyframe, len(curves))
	for _, k := range keys {
		byCurve[k.CurveID] = append(byCurve[k.CurveID], models.Keyframe{T: k.T, Value: k.Value, Slope: k.Slope})
	}

	clip := clipFromRow(row)
	clip.Curves = make([]models.BoneCurve, len(curves))
	for i, cr := range curves {
		clip.Curves[i] = models.BoneCurve{Path: cr.Path, RawCount: cr.RawCount, Keys: byCurve[cr.ID]}
	}
	return clip, nil
}

func clipFromRow(row *ClipRow) *models.Clip {
	return &models.Clip{
		ID:               row.ID,
		Name:             row.Name,
		Source:           row.Source,
		PersonIdx:        row.PersonIdx,
		FrameRate:        row.FrameRate,
		DurationSec:      row.DurationSec,
		MinTremblingFreq: row.MinTremblingFreq,
		MLFMaxErrorRatio: row.MLFMaxErrorRatio,
		AvgKeysPerSec:    row.AvgKeysPerSec,
		CreatedAt:        row.CreatedAt,
	}
}

// ListClips returns summaries of all clips, newest first.
func (c *DBClient) ListClips() ([]models.ClipSummary, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var rows []ClipRow
	if err := c.DB.Order("created_at DESC, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing clips: %w", err)
	}

	type countRow struct {
		ClipID string
		N      int
	}
	var boneCounts, keyCounts []countRow
	if err := c.DB.Model(&BoneCurveRow{}).Select("clip_id, count(*) as n").Group("clip_id").Scan(&boneCounts).Error; err != nil {
		return nil, fmt.Errorf("counting curves: %w", err)
	}
	if err := c.DB.Model(&KeyframeRow{}).Select("clip_id, count(*) as n").Group("clip_id").Scan(&keyCounts).Error; err != nil {
		return nil, fmt.Errorf("counting keyframes: %w", err)
	}

	bones := make(map[string]int, len(boneCounts))
	for _, r := range boneCounts {
		bones[r.ClipID] = r.N
	}
	keys := make(map[string]int, len(keyCounts))
	for _, r := range keyCounts {
		keys[r.ClipID] = r.N
	}

	out := make([]models.ClipSummary, len(rows))
	for i, r := range rows {
		out[i] = models.ClipSummary{
			ID:            r.ID,
			Name:          r.Name,
			Source:        r.Source,
			DurationSec:   r.DurationSec,
			BoneCount:     bones[r.ID],
			KeyframeCount: keys[r.ID],
			CreatedAt:     r.CreatedAt,
		}
	}
	return out, nil
}

// DeleteClipByID removes a clip and everything it owns.
func (c *DBClient) DeleteClipByID(id string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("clip_id = ?", id).Delete(&KeyframeRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("clip_id = ?", id).Delete(&BoneCurveRow{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&ClipRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil
	})
}

func (c *DBClient) GetKeyframeCount(id string) (int, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errDBClientNil)
	}
	if _, err := c.getClipRow(id); err != nil {
		return 0, err
	}
	var count int64
	if err := c.DB.Model(&KeyframeRow{}).Where("clip_id = ?", id).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting keyframes: %w", err)
	}
	return int(count), nil
}

// FindClipBySource returns the newest clip converted from source for the
// given person, or ErrNotFound.
func (c *DBClient) FindClipBySource(source string, personIdx int) (*models.Clip, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var row ClipRow
	err := c.DB.Where("source = ? AND person_idx = ?", source, personIdx).Order("created_at DESC").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: source %s", ErrNotFound, source)
		}
		return nil, fmt.Errorf("querying clip by source: %w", err)
	}
	return c.GetClip(row.ID)
}
