package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailagent/backend/internal/config"
	"mailagent/backend/internal/domain"
	"mailagent/backend/internal/engine"
	"mailagent/backend/internal/llm"
	"mailagent/backend/internal/mail"
	"mailagent/backend/internal/monitoring"
	"mailagent/backend/internal/service"
	"mailagent/backend/internal/storage/memory"
	"mailagent/backend/internal/workflow"
)

func newTestRouter(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zap.NewNop()
	store := memory.NewStore()
	transport := mail.NewMockTransport(log)

	// 补全服务不可用，分类和回复都走确定性降级路径
	eng := engine.New(&llm.Stub{Err: llm.ErrCompletion}, log)

	wfCfg := config.WorkflowConfig{
		AutoReplyEnabled:        true,
		AutoTaskCreationEnabled: true,
		SaveAttachmentsEnabled:  true,
		TaskProvider:            "notion",
	}
	executor := workflow.NewExecutor(wfCfg, t.TempDir(), eng, transport, transport, store,
		workflow.NewExternalProvider("notion", log), log)

	agent := service.NewAgent(
		config.AgentConfig{MaxConcurrency: 2, FetchLimit: 5},
		eng, executor, transport, store, nil, nil, log,
	)

	cfg := &config.Config{
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
	router := NewRouter(RouterDependencies{
		Config:  cfg,
		Agent:   agent,
		Store:   store,
		Health:  monitoring.NewHealthChecker(store, nil, log),
		Metrics: nil,
		Logger:  log,
	})
	return router, store
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestProcessEmailEndpoint(t *testing.T) {
	t.Run("完整处理单封邮件", func(t *testing.T) {
		router, _ := newTestRouter(t)

		w := doJSON(router, http.MethodPost, "/api/v1/emails/process", map[string]interface{}{
			"id":      "msg_200",
			"sender":  "jane.doe@client.com",
			"subject": "Question about billing",
			"body":    "I have a question, can you help?",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Code int `json:"code"`
			Data struct {
				Decision struct {
					Intent     string  `json:"intent"`
					Confidence float64 `json:"confidence"`
				} `json:"decision"`
				Execution struct {
					ActionsExecuted []struct {
						Action string `json:"action"`
					} `json:"actionsExecuted"`
				} `json:"execution"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, CodeSuccess, resp.Code)
		assert.Equal(t, "reply", resp.Data.Decision.Intent)
		assert.InDelta(t, 0.7, resp.Data.Decision.Confidence, 1e-9)
		require.Len(t, resp.Data.Execution.ActionsExecuted, 1)
		assert.Equal(t, "reply", resp.Data.Execution.ActionsExecuted[0].Action)

		// 处理历史可查
		hw := doJSON(router, http.MethodGet, "/api/v1/history", nil)
		require.Equal(t, http.StatusOK, hw.Code)
		var hist struct {
			Data []struct {
				MessageID string `json:"messageId"`
				Processed bool   `json:"processed"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(hw.Body.Bytes(), &hist))
		require.Len(t, hist.Data, 1)
		assert.Equal(t, "msg_200", hist.Data[0].MessageID)
		assert.True(t, hist.Data[0].Processed)
	})

	t.Run("缺少发件人返回400", func(t *testing.T) {
		router, _ := newTestRouter(t)

		w := doJSON(router, http.MethodPost, "/api/v1/emails/process", map[string]interface{}{
			"subject": "no sender",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("非法请求体返回400", func(t *testing.T) {
		router, _ := newTestRouter(t)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/emails/process",
			bytes.NewBufferString("not json"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRunAgentEndpoint(t *testing.T) {
	t.Run("批处理返回汇总", func(t *testing.T) {
		router, store := newTestRouter(t)

		w := doJSON(router, http.MethodPost, "/api/v1/agent/run", map[string]interface{}{
			"max_emails": 2,
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data struct {
				Fetched   int `json:"fetched"`
				Processed int `json:"processed"`
				Failed    int `json:"failed"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Data.Fetched)
		assert.Equal(t, 2, resp.Data.Processed)
		assert.Equal(t, 0, resp.Data.Failed)

		history, err := store.ListHistory(context.Background(), 10)
		require.NoError(t, err)
		assert.Len(t, history, 2)
	})

	t.Run("空请求体使用默认参数", func(t *testing.T) {
		router, _ := newTestRouter(t)

		w := doJSON(router, http.MethodPost, "/api/v1/agent/run", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data struct {
				Fetched int `json:"fetched"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 5, resp.Data.Fetched) // FetchLimit 默认值
	})
}

func TestListEndpoints(t *testing.T) {
	t.Run("非法任务状态返回400", func(t *testing.T) {
		router, _ := newTestRouter(t)

		w := doJSON(router, http.MethodGet, "/api/v1/tasks?status=bogus", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("limit非法返回400", func(t *testing.T) {
		router, _ := newTestRouter(t)

		for _, path := range []string{
			"/api/v1/history?limit=0",
			"/api/v1/logs?limit=-1",
			"/api/v1/logs?limit=abc",
		} {
			w := doJSON(router, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, path)
		}
	})

	t.Run("空库查询返回空列表", func(t *testing.T) {
		router, _ := newTestRouter(t)

		for _, path := range []string{"/api/v1/history", "/api/v1/tasks", "/api/v1/logs"} {
			w := doJSON(router, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusOK, w.Code, path)
		}
	})
}

func TestGetTaskEndpoint(t *testing.T) {
	t.Run("按ID查询任务", func(t *testing.T) {
		router, store := newTestRouter(t)

		require.NoError(t, store.UpsertTask(context.Background(), &domain.Task{
			TaskID:          "task_abc",
			Title:           "Support Request: billing",
			Priority:        domain.PriorityHigh,
			SourceMessageID: "msg_1",
			Status:          domain.TaskStatusPending,
			CreatedAt:       time.Now(),
		}))

		w := doJSON(router, http.MethodGet, "/api/v1/tasks/task_abc", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Code int `json:"code"`
			Data struct {
				TaskID string `json:"taskId"`
				Title  string `json:"title"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, CodeSuccess, resp.Code)
		assert.Equal(t, "task_abc", resp.Data.TaskID)
		assert.Equal(t, "Support Request: billing", resp.Data.Title)
	})

	t.Run("未知ID返回404", func(t *testing.T) {
		router, _ := newTestRouter(t)

		w := doJSON(router, http.MethodGet, "/api/v1/tasks/task_missing", nil)
		require.Equal(t, http.StatusNotFound, w.Code)

		var resp struct {
			Code int `json:"code"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, CodeNotFound, resp.Code)
	})
}

func TestHealthzEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "OK", resp.Data["store"])
	assert.Equal(t, "NOT_ENABLED", resp.Data["dedup_cache"])
}
