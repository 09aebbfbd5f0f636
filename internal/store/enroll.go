package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/zynqcloud/face-enroll/internal/apperr"
)

// Angles is the fixed capture order of an enrollment batch. Image i of a
// batch is always saved as Angles[i]+".jpg", whatever the payload contains.
var Angles = [...]string{"frontal", "left", "right", "up", "down"}

// BatchSize is the number of images an enrollment must carry.
const BatchSize = len(Angles)

// StagingDir is the root-relative directory batches are staged in before
// commit. Stale entries are reclaimed by the cleanup package.
const StagingDir = ".staging"

// File describes one committed enrollment image.
type File struct {
	Angle string
	Path  string // logical path relative to the storage root
	Size  int64
	MIME  string // sniffed content type; informational
}

// Result describes a committed enrollment.
type Result struct {
	Group string
	Key   string
	Dir   string
	Files []File
	Bytes int64
}

// Enroller validates image batches and commits them under group/key.
//
// A batch is decoded in full and written to a private staging directory
// first; files are only renamed into the enrollment directory once all of
// them are staged. A decode or staging failure therefore leaves a previous
// enrollment untouched. A rename failure part-way through the commit can
// still leave a mixed set and is reported as an IO error.
//
// Enrollments for the same key are serialised; different keys proceed in
// parallel.
type Enroller struct {
	backend      Backend
	requireImage bool
	locks        keyLocks
	newID        func() string
}

// EnrollerOption configures an Enroller.
type EnrollerOption func(*Enroller)

// WithImageCheck rejects payloads whose sniffed content type is not an image.
func WithImageCheck(on bool) EnrollerOption {
	return func(e *Enroller) { e.requireImage = on }
}

// NewEnroller returns an Enroller writing through backend.
func NewEnroller(backend Backend, opts ...EnrollerOption) *Enroller {
	e := &Enroller{
		backend: backend,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enroll validates images and persists them as group/key/<angle>.jpg.
//
// The enrollment directory is created before the count check, so a rejected
// batch may leave an empty directory behind but never any files.
func (e *Enroller) Enroll(ctx context.Context, group, key string, images []string) (Result, error) {
	if !isSafeSegment(group) {
		return Result{}, apperr.Newf(apperr.KindValidation, "invalid storage group %q", group)
	}
	if key == "" {
		return Result{}, apperr.New(apperr.KindValidation, "cannot derive a storage key from this email")
	}
	if !isSafeSegment(key) {
		return Result{}, apperr.Newf(apperr.KindValidation, "invalid storage key %q", key)
	}

	dir := path.Join(group, key)
	unlock := e.locks.lock(dir)
	defer unlock()

	if err := e.backend.MkdirAll(dir); err != nil {
		return Result{}, apperr.Wrap(apperr.KindIO, fmt.Errorf("create enrollment dir: %w", err))
	}

	if len(images) != BatchSize {
		return Result{}, apperr.Newf(apperr.KindValidation, "Expected %d images, got %d", BatchSize, len(images))
	}

	decoded := make([][]byte, BatchSize)
	mimes := make([]string, BatchSize)
	for i, img := range images {
		b, err := DecodeImage(img)
		if err != nil {
			return Result{}, apperr.AtIndex(apperr.KindIO, i, Angles[i], err)
		}
		mimes[i] = sniffMIME(b)
		if e.requireImage && !isImageMIME(mimes[i]) {
			return Result{}, apperr.AtIndex(apperr.KindValidation, i, Angles[i],
				fmt.Errorf("payload is %q, not an image", mimes[i]))
		}
		decoded[i] = b
	}

	if err := ctx.Err(); err != nil {
		return Result{}, apperr.Wrap(apperr.KindIO, err)
	}

	stage := path.Join(StagingDir, e.newID())
	defer e.backend.Delete(stage) //nolint:errcheck

	for i, b := range decoded {
		if _, err := e.backend.Write(path.Join(stage, Angles[i]+".jpg"), bytes.NewReader(b)); err != nil {
			return Result{}, apperr.AtIndex(apperr.KindIO, i, Angles[i], err)
		}
	}

	res := Result{Group: group, Key: key, Dir: dir, Files: make([]File, 0, BatchSize)}
	for i, angle := range Angles {
		name := angle + ".jpg"
		dst := path.Join(dir, name)
		if err := e.backend.Rename(path.Join(stage, name), dst); err != nil {
			return Result{}, apperr.AtIndex(apperr.KindIO, i, angle, fmt.Errorf("commit: %w", err))
		}
		size := int64(len(decoded[i]))
		res.Files = append(res.Files, File{Angle: angle, Path: dst, Size: size, MIME: mimes[i]})
		res.Bytes += size
	}
	return res, nil
}

// DecodeImage decodes one transport-encoded image. A data-URL style prefix
// ("data:image/jpeg;base64,") is dropped by keeping everything after the
// first comma; a string without a comma is decoded as-is.
func DecodeImage(s string) ([]byte, error) {
	if _, after, ok := strings.Cut(s, ","); ok {
		s = after
	}
	return base64.StdEncoding.DecodeString(s)
}

// isSafeSegment reports whether s can be used as a single path element under
// the storage root. Leading dots are reserved for service-internal
// directories such as StagingDir.
func isSafeSegment(s string) bool {
	return s != "" &&
		!strings.HasPrefix(s, ".") &&
		!strings.ContainsAny(s, "/\\\x00") &&
		!strings.Contains(s, "..")
}
