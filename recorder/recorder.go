package recorder

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/lixenwraith/neurolink/mindwave"
	"github.com/lixenwraith/neurolink/parameter"
	"github.com/lixenwraith/neurolink/status"
)

// Header is the first CSV row; columns match the classifier feature order
var Header = []string{
	"Delta", "Theta", "LowAlpha", "HighAlpha", "LowBeta", "HighBeta", "LowGamma", "HighGamma",
	"Attention", "Meditation", "EEGValue", "BlinkStrength",
}

// maxSessions bounds the search for a free session number
const maxSessions = 100000

// ErrClosed is returned by Write after Close
var ErrClosed = errors.New("recorder: closed")

// Recorder appends one CSV row per record with the latest raw EEG and blink
type Recorder struct {
	id   uuid.UUID
	path string
	log  *log.Logger

	mu     sync.Mutex
	file   *os.File
	csv    *csv.Writer
	closed bool

	rawEEG atomic.Int64
	blink  atomic.Int64

	statRows *atomic.Int64
}

// Open creates mindwave_session{N}.csv in dir with the first unused N
func Open(dir string, logger *log.Logger, metrics *status.Registry) (*Recorder, error) {
	if logger == nil {
		logger = log.Default()
	}
	if metrics == nil {
		metrics = status.NewRegistry()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("recorder: %w", err)
	}

	file, path, err := createSessionFile(dir)
	if err != nil {
		return nil, err
	}

	r := &Recorder{
		id:       uuid.New(),
		path:     path,
		log:      logger,
		file:     file,
		csv:      csv.NewWriter(file),
		statRows: metrics.Ints.Get(status.KeyRows),
	}
	r.statRows.Store(0)
	metrics.Strings.Get(status.KeyRecorderFile).Store(filepath.Base(path))

	if err := r.writeRow(Header); err != nil {
		file.Close()
		return nil, err
	}
	logger.Printf("recorder: session %s writing %s", r.id, path)
	return r, nil
}

// createSessionFile claims the first free session number with O_EXCL
func createSessionFile(dir string) (*os.File, string, error) {
	for n := 1; n <= maxSessions; n++ {
		path := filepath.Join(dir, SessionFileName(n))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("recorder: %w", err)
		}
	}
	return nil, "", fmt.Errorf("recorder: no free session number in %s", dir)
}

// SessionFileName returns the file name of session n
func SessionFileName(n int) string {
	return parameter.RecorderFilePrefix + strconv.Itoa(n) + parameter.RecorderFileExt
}

// Listener returns the hub subscription feeding this recorder
// Write errors are logged; the subscription stays active
func (r *Recorder) Listener() mindwave.Listener {
	return mindwave.Listener{
		OnRecord: func(rec mindwave.Record) {
			if err := r.Write(rec); err != nil && !errors.Is(err, ErrClosed) {
				r.log.Printf("recorder: %v", err)
			}
		},
		OnRawEEG: func(v int) { r.rawEEG.Store(int64(v)) },
		OnBlink:  func(v int) { r.blink.Store(int64(v)) },
	}
}

// Write appends rec; an all-zero record carries no data and is skipped
func (r *Recorder) Write(rec mindwave.Record) error {
	if rec == (mindwave.Record{}) {
		return nil
	}

	row := make([]string, 0, len(Header))
	for _, v := range rec.EegPower.Values() {
		row = append(row, strconv.Itoa(v))
	}
	row = append(row,
		strconv.Itoa(rec.ESense.Attention),
		strconv.Itoa(rec.ESense.Meditation),
		strconv.FormatInt(r.rawEEG.Load(), 10),
		strconv.FormatInt(r.blink.Load(), 10),
	)

	if err := r.writeRow(row); err != nil {
		return err
	}
	r.statRows.Add(1)
	return nil
}

// writeRow flushes every row so a crash loses at most the row in flight
func (r *Recorder) writeRow(row []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if err := r.csv.Write(row); err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	r.csv.Flush()
	if err := r.csv.Error(); err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	return nil
}

// Close flushes and closes the file; idempotent
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	r.csv.Flush()
	return errors.Join(r.csv.Error(), r.file.Close())
}

// ID returns the session identifier logged on open
func (r *Recorder) ID() uuid.UUID {
	return r.id
}

// Path returns the CSV file path
func (r *Recorder) Path() string {
	return r.path
}

// Rows returns the number of data rows written
func (r *Recorder) Rows() int64 {
	return r.statRows.Load()
}
