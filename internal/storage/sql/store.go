package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"mailagent/backend/internal/domain"
	"mailagent/backend/internal/storage"
)

// Store SQL 审计库存储实现（支持 MySQL 5.7+ 和 PostgreSQL）
type Store struct {
	db         *sql.DB
	gormDB     *gorm.DB
	driverName string // "mysql" or "postgres"
}

// NewStore 创建 SQL 审计库存储
func NewStore(
	driverName string,
	dsn string,
	maxOpenConns int,
	maxIdleConns int,
	connMaxLifetime time.Duration,
) (*Store, error) {
	// 验证驱动类型
	if driverName != "mysql" && driverName != "postgres" {
		return nil, fmt.Errorf("unsupported database driver: %s (supported: mysql, postgres)", driverName)
	}

	// 打开数据库连接
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 设置连接池参数
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	// 测试连接
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 初始化 GORM
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var gormDB *gorm.DB
	if driverName == "mysql" {
		gormDB, err = gorm.Open(mysql.New(mysql.Config{Conn: db}), gormConfig)
	} else {
		gormDB, err = gorm.Open(postgres.New(postgres.Config{Conn: db}), gormConfig)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize GORM: %w", err)
	}

	store := &Store{
		db:         db,
		gormDB:     gormDB,
		driverName: driverName,
	}

	// 自动执行数据库迁移
	if err := store.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Migrate 创建或更新审计库表结构。
func (s *Store) Migrate() error {
	return s.gormDB.AutoMigrate(
		&domain.WorkflowLogEntry{},
		&domain.Task{},
		&domain.ProcessedEmail{},
	)
}

// AppendWorkflowLog 追加一条动作审计日志（永不覆盖）。
func (s *Store) AppendWorkflowLog(ctx context.Context, entry *domain.WorkflowLogEntry) error {
	if err := s.gormDB.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append workflow log: %w", err)
	}
	return nil
}

// ListWorkflowLogs 按时间倒序返回最多 limit 条审计日志。
func (s *Store) ListWorkflowLogs(ctx context.Context, limit int) ([]domain.WorkflowLogEntry, error) {
	if limit < 1 {
		return nil, storage.ErrInvalidLimit
	}

	var logs []domain.WorkflowLogEntry
	err := s.gormDB.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow logs: %w", err)
	}
	return logs, nil
}

// UpsertTask 保存任务记录，相同 TaskID 覆盖旧值。
func (s *Store) UpsertTask(ctx context.Context, task *domain.Task) error {
	err := s.gormDB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "task_id"}},
			UpdateAll: true,
		}).
		Create(task).Error
	if err != nil {
		return fmt.Errorf("failed to upsert task: %w", err)
	}
	return nil
}

// GetTask 按 TaskID 查询任务，未命中返回 ErrTaskNotFound。
func (s *Store) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	var task domain.Task
	err := s.gormDB.WithContext(ctx).
		Where("task_id = ?", taskID).
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

// ListTasks 按创建时间倒序返回任务，可按状态过滤。
func (s *Store) ListTasks(ctx context.Context, status *domain.TaskStatus) ([]domain.Task, error) {
	query := s.gormDB.WithContext(ctx).Order("created_at DESC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var tasks []domain.Task
	if err := query.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// UpsertProcessedEmail 保存邮件处理记录，相同 MessageID 覆盖旧值。
func (s *Store) UpsertProcessedEmail(ctx context.Context, rec *domain.ProcessedEmail) error {
	err := s.gormDB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}},
			UpdateAll: true,
		}).
		Create(rec).Error
	if err != nil {
		return fmt.Errorf("failed to upsert processed email: %w", err)
	}
	return nil
}

// ListHistory 按处理时间倒序返回最多 limit 条历史记录。
func (s *Store) ListHistory(ctx context.Context, limit int) ([]domain.ProcessedEmail, error) {
	if limit < 1 {
		return nil, storage.ErrInvalidLimit
	}

	var history []domain.ProcessedEmail
	err := s.gormDB.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&history).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return history, nil
}

// Close 关闭数据库连接。
func (s *Store) Close() error {
	return s.db.Close()
}

// Health 检查数据库连接健康状态。
func (s *Store) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
