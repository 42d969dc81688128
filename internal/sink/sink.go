package sink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Sink receives one assembled payload. Close must be called exactly once;
// it finalizes the destination and reports any deferred write error.
type Sink interface {
	io.WriteCloser
}

// New picks a sink for the output path: s3://bucket/key uploads to S3,
// anything else writes a local file.
func New(outputPath string) (Sink, error) {
	if strings.HasPrefix(outputPath, "s3://") {
		return NewS3Sink(outputPath)
	}
	return NewFileSink(outputPath)
}

type FileSink struct {
	file *os.File
}

func NewFileSink(outputPath string) (*FileSink, error) {
	outputDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("error creating output directory: %v", err)
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("error creating output file: %v", err)
	}
	return &FileSink{file: file}, nil
}

func (f *FileSink) Write(p []byte) (int, error) {
	return f.file.Write(p)
}

func (f *FileSink) Close() error {
	return f.file.Close()
}
