package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/lychee-technology/tca"
	"go.uber.org/zap"
)

// FileSource loads one document per table from a directory. The file name
// without extension is the table name: pages.yaml, tt_content.json.
type FileSource struct {
	directory string
	decoder   documentDecoder
}

func NewFileSource(directory string, validate bool) *FileSource {
	return &FileSource{directory: directory, decoder: documentDecoder{validate: validate}}
}

func (s *FileSource) Name() string { return "file:" + s.directory }

func (s *FileSource) Load(ctx context.Context) (tca.RawTCA, error) {
	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return nil, tca.NewSourceError(tca.ErrCodeSourceLoadFailed,
			fmt.Sprintf("failed to read configuration directory %s", s.directory), err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	result := make(tca.RawTCA, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		table, format, ok := documentName(name)
		if !ok {
			zap.S().Debugw("skipping non configuration file", "directory", s.directory, "file", name)
			continue
		}
		file := filepath.Join(s.directory, name)
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, tca.NewSourceError(tca.ErrCodeSourceLoadFailed,
				fmt.Sprintf("failed to read configuration file %s", file), err)
		}
		config, err := s.decoder.decode(table, format, data)
		if err != nil {
			return nil, err
		}
		if err := collect(result, table, file, config); err != nil {
			return nil, err
		}
	}
	zap.S().Infow("loaded table configuration from files", "directory", s.directory, "tables", len(result))
	return result, nil
}
