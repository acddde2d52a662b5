package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	// 保存原始环境变量
	originalEnvs := make(map[string]string)
	envKeys := []string{
		"MAILAGENT_SERVER_HOST",
		"MAILAGENT_SERVER_PORT",
		"MAILAGENT_LLM_MODEL",
		"MAILAGENT_LLM_TEMPERATURE",
		"MAILAGENT_LLM_MAX_TOKENS",
		"MAILAGENT_WORKFLOW_AUTO_REPLY_ENABLED",
		"MAILAGENT_WORKFLOW_TASK_PROVIDER",
		"MAILAGENT_STORAGE_ATTACHMENTS_PATH",
		"MAILAGENT_LOG_LEVEL",
		"MAILAGENT_LOG_DEVELOPMENT",
	}

	for _, key := range envKeys {
		originalEnvs[key] = os.Getenv(key)
	}

	// 测试后恢复环境变量
	defer func() {
		for key, value := range originalEnvs {
			if value == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, value)
			}
		}
	}()

	t.Run("加载默认配置成功", func(t *testing.T) {
		for _, key := range envKeys {
			os.Unsetenv(key)
		}

		cfg, err := Load()

		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		// 验证默认值
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "gpt-4", cfg.LLM.Model)
		assert.Equal(t, 0.3, cfg.LLM.Temperature)
		assert.Equal(t, 1000, cfg.LLM.MaxTokens)
		assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
		assert.True(t, cfg.Workflow.AutoReplyEnabled)
		assert.True(t, cfg.Workflow.AutoTaskCreationEnabled)
		assert.True(t, cfg.Workflow.SaveAttachmentsEnabled)
		assert.Equal(t, "notion", cfg.Workflow.TaskProvider)
		assert.Equal(t, "storage/attachments", cfg.Storage.AttachmentsPath)
		assert.Equal(t, 4, cfg.Agent.MaxConcurrency)
		assert.Equal(t, 10, cfg.Agent.FetchLimit)
		assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.False(t, cfg.Log.Development)
		assert.Equal(t, 100, cfg.Log.MaxSizeMB)
		assert.Equal(t, 3, cfg.Log.MaxBackups)
		assert.Equal(t, 28, cfg.Log.MaxAgeDays)
		assert.True(t, cfg.Log.Compress)
	})

	t.Run("环境变量覆盖默认值", func(t *testing.T) {
		for _, key := range envKeys {
			os.Unsetenv(key)
		}

		os.Setenv("MAILAGENT_LLM_MODEL", "gpt-4o-mini")
		os.Setenv("MAILAGENT_WORKFLOW_AUTO_REPLY_ENABLED", "false")
		os.Setenv("MAILAGENT_WORKFLOW_TASK_PROVIDER", "trello")
		os.Setenv("MAILAGENT_STORAGE_ATTACHMENTS_PATH", "/tmp/attachments")

		cfg, err := Load()

		assert.NoError(t, err)
		assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
		assert.False(t, cfg.Workflow.AutoReplyEnabled)
		assert.Equal(t, "trello", cfg.Workflow.TaskProvider)
		assert.Equal(t, "/tmp/attachments", cfg.Storage.AttachmentsPath)
	})

	t.Run("非法任务系统标识报错", func(t *testing.T) {
		for _, key := range envKeys {
			os.Unsetenv(key)
		}

		os.Setenv("MAILAGENT_WORKFLOW_TASK_PROVIDER", "jira")

		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
	})
}
