// Package store persists calibration results to disk. The on-disk
// format is generic object serialization (gob) of the calibration
// structs, one file per camera role plus one for the stereo rig, with
// optional JSON siblings for inspection by other tools.
package store

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/camtk/stereocam/pkg/calib"
)

var (
	// ErrNotFound indicates the requested calibration file does not
	// exist. Calibrate first, then retry.
	ErrNotFound = errors.New("store: calibration not found")

	// ErrBadFormat indicates a file that is not a calibration written
	// by this tool, or one written by an incompatible version.
	ErrBadFormat = errors.New("store: unrecognized calibration file")
)

// Role selects which camera a mono calibration belongs to.
type Role string

const (
	// RoleDefault is the single-camera file, camera-calibration.gob.
	RoleDefault Role = ""
	// RoleLeft is the left camera of a stereo pair.
	RoleLeft Role = "left"
	// RoleRight is the right camera of a stereo pair.
	RoleRight Role = "right"
)

// File names in the store directory.
const (
	monoBase   = "camera-calibration"
	stereoBase = "stereo-calibration"
	gobExt     = ".gob"
	jsonExt    = ".json"
)

const formatVersion = 1

// envelope is the serialized file layout. Exactly one of Camera or
// Stereo is set, per Kind.
type envelope struct {
	Version int
	Kind    string
	Camera  *calib.Calibration
	Stereo  *calib.StereoCalibration
}

// Store is the persistence interface for calibration results.
type Store interface {
	SaveCamera(role Role, cal *calib.Calibration) error
	LoadCamera(role Role) (*calib.Calibration, error)
	SaveStereo(sc *calib.StereoCalibration) error
	LoadStereo() (*calib.StereoCalibration, error)
	CameraExists(role Role) bool
	StereoExists() bool
}

// FileStore implements Store on a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the store directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// CameraPath returns the mono calibration path for a role.
func (s *FileStore) CameraPath(role Role) string {
	name := monoBase
	if role != RoleDefault {
		name += "-" + string(role)
	}
	return filepath.Join(s.dir, name+gobExt)
}

// StereoPath returns the stereo calibration path.
func (s *FileStore) StereoPath() string {
	return filepath.Join(s.dir, stereoBase+gobExt)
}

// SaveCamera writes a mono calibration for the given role.
func (s *FileStore) SaveCamera(role Role, cal *calib.Calibration) error {
	return s.write(s.CameraPath(role), envelope{
		Version: formatVersion,
		Kind:    "camera",
		Camera:  cal,
	})
}

// LoadCamera reads the mono calibration for the given role.
func (s *FileStore) LoadCamera(role Role) (*calib.Calibration, error) {
	env, err := s.read(s.CameraPath(role))
	if err != nil {
		return nil, err
	}
	if env.Kind != "camera" || env.Camera == nil {
		return nil, ErrBadFormat
	}
	return env.Camera, nil
}

// SaveStereo writes the stereo calibration.
func (s *FileStore) SaveStereo(sc *calib.StereoCalibration) error {
	return s.write(s.StereoPath(), envelope{
		Version: formatVersion,
		Kind:    "stereo",
		Stereo:  sc,
	})
}

// LoadStereo reads the stereo calibration.
func (s *FileStore) LoadStereo() (*calib.StereoCalibration, error) {
	env, err := s.read(s.StereoPath())
	if err != nil {
		return nil, err
	}
	if env.Kind != "stereo" || env.Stereo == nil {
		return nil, ErrBadFormat
	}
	return env.Stereo, nil
}

// CameraExists reports whether a mono calibration file is present.
func (s *FileStore) CameraExists(role Role) bool {
	_, err := os.Stat(s.CameraPath(role))
	return err == nil
}

// StereoExists reports whether the stereo calibration file is present.
func (s *FileStore) StereoExists() bool {
	_, err := os.Stat(s.StereoPath())
	return err == nil
}

// ExportCameraJSON writes a JSON sibling of the mono calibration file.
func (s *FileStore) ExportCameraJSON(role Role, cal *calib.Calibration) error {
	path := jsonSibling(s.CameraPath(role))
	return writeJSON(path, cal)
}

// ExportStereoJSON writes a JSON sibling of the stereo calibration
// file.
func (s *FileStore) ExportStereoJSON(sc *calib.StereoCalibration) error {
	return writeJSON(jsonSibling(s.StereoPath()), sc)
}

func (s *FileStore) write(path string, env envelope) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}
	return atomicWrite(path, buf.Bytes())
}

func (s *FileStore) read(path string) (*envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("store: read file: %w", err)
	}
	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	if env.Version != formatVersion {
		return nil, fmt.Errorf("%w: version %d", ErrBadFormat, env.Version)
	}
	return &env, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal JSON: %w", err)
	}
	return atomicWrite(path, data)
}

// atomicWrite writes to a temp file and renames so readers never see a
// partial file.
func atomicWrite(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("store: rename temp file: %w", err)
	}
	return nil
}

func jsonSibling(gobPath string) string {
	return gobPath[:len(gobPath)-len(gobExt)] + jsonExt
}
