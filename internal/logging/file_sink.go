package logging

import (
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// newFileSink mirrors log output to path. The file is rolled once it would
// grow past maxMB and a single backup is kept.
func newFileSink(path string, maxMB int) (*lumberjack.Logger, error) {
	if maxMB <= 0 {
		maxMB = 10
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// lumberjack opens lazily; fail here rather than on the first write.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	_ = f.Close()
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxMB,
		MaxBackups: 1,
	}, nil
}
