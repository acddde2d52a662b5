package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	t.Run("非法级别回退为info", func(t *testing.T) {
		log, err := NewLogger(Config{Level: "bogus"})
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("debug级别生效", func(t *testing.T) {
		log, err := NewLogger(Config{Level: "debug", Development: true})
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("配置日志文件时写入文件", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "logs", "agent.log")
		log, err := NewLogger(Config{Level: "info", LogFile: logFile})
		require.NoError(t, err)

		log.Info("pipeline started")
		// stdout 的 Sync 在部分平台会报错，这里只关心文件落盘
		_ = log.Sync()

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), "pipeline started")
	})
}

func TestRotatingWriter(t *testing.T) {
	t.Run("零值字段使用缺省参数", func(t *testing.T) {
		w := rotatingWriter(Config{LogFile: "agent.log"})
		assert.Equal(t, defaultMaxSizeMB, w.MaxSize)
		assert.Equal(t, defaultMaxBackups, w.MaxBackups)
		assert.Equal(t, defaultMaxAgeDays, w.MaxAge)
		assert.False(t, w.Compress)
	})

	t.Run("显式配置覆盖缺省参数", func(t *testing.T) {
		w := rotatingWriter(Config{
			LogFile:    "agent.log",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 7,
			Compress:   true,
		})
		assert.Equal(t, 10, w.MaxSize)
		assert.Equal(t, 5, w.MaxBackups)
		assert.Equal(t, 7, w.MaxAge)
		assert.True(t, w.Compress)
	})
}
