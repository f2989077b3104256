package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Exporter writes export files into a directory.
type Exporter struct {
	dir    string
	logger *zerolog.Logger
	now    func() time.Time
}

func NewExporter(dir string, logger *zerolog.Logger) *Exporter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Exporter{dir: dir, logger: logger, now: time.Now}
}

// Save creates dir/<prefix>_<timestamp>.<ext> and fills it with write.
func (e *Exporter) Save(prefix, ext string, write func(w io.Writer) error) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}
	name := fmt.Sprintf("%s_%s.%s", prefix, e.now().Format("20060102_150405"), ext)
	path := filepath.Join(e.dir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("error creating export file: %w", err)
	}
	if err := write(file); err != nil {
		file.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("error closing export file: %w", err)
	}

	e.logger.Info().Str("file_path", path).Msg("export file created")
	return path, nil
}

func cents(v int64) float64 {
	return float64(v) / 100
}
