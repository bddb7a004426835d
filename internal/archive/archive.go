package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/MugzLord/WIB/internal/game"
	"github.com/MugzLord/WIB/internal/models"
)

// ErrNotFound 归档记录不存在
var ErrNotFound = errors.New("归档记录不存在")

// Store 完局归档存储（独立SQLite文件）
// 与在线库分离，会话表被复用开新局后历史仍可查询。
type Store struct {
	db   *sql.DB
	path string
}

// Record 归档记录
type Record struct {
	ID           string                 `json:"id"`
	Community    string                 `json:"community"`
	Room         string                 `json:"room"`
	Seed         int64                  `json:"seed"`
	CompletedAt  time.Time              `json:"completed_at"`
	Participants []*models.Participant  `json:"participants,omitempty"`
	Ownerships   []*models.BoxOwnership `json:"ownerships,omitempty"`
	Prizes       []*models.Prize        `json:"prizes,omitempty"`
}

// NewStore 创建归档存储
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "./data/wib-archive.db"
	}
	return &Store{path: path}, nil
}

// Open 打开数据库并初始化表结构
func (s *Store) Open(ctx context.Context) error {
	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return fmt.Errorf("open archive database: %w", err)
	}

	// SQLite不支持并发写入
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		return fmt.Errorf("enable WAL mode: %w", err)
	}

	s.db = db

	if err := s.initSchema(ctx); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	return nil
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping 测试连接
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ArchiveSession 写入完局快照
func (s *Store) ArchiveSession(ctx context.Context, snapshot *game.ArchiveSnapshot) error {
	participants, err := json.Marshal(snapshot.Participants)
	if err != nil {
		return fmt.Errorf("marshal participants: %w", err)
	}
	ownerships, err := json.Marshal(snapshot.Ownerships)
	if err != nil {
		return fmt.Errorf("marshal ownerships: %w", err)
	}
	prizes, err := json.Marshal(snapshot.Prizes)
	if err != nil {
		return fmt.Errorf("marshal prizes: %w", err)
	}

	query := `
		INSERT INTO archived_sessions (id, community, room, seed, completed_at, participants, ownerships, prizes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		uuid.New().String(), snapshot.Community, snapshot.Room, snapshot.Seed,
		snapshot.CompletedAt, string(participants), string(ownerships), string(prizes),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("archive session: %w", err)
	}

	return nil
}

// List 列出归档记录摘要，按完局时间倒序
// community/room 为空时不过滤对应字段。
func (s *Store) List(ctx context.Context, community, room string, offset, limit int) ([]*Record, error) {
	query := `
		SELECT id, community, room, seed, completed_at
		FROM archived_sessions
		WHERE (? = '' OR community = ?) AND (? = '' OR room = ?)
		ORDER BY completed_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, community, community, room, room, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list archived sessions: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record := &Record{}
		err := rows.Scan(
			&record.ID, &record.Community, &record.Room,
			&record.Seed, &record.CompletedAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// Get 获取完整归档记录
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	query := `
		SELECT id, community, room, seed, completed_at, participants, ownerships, prizes
		FROM archived_sessions
		WHERE id = ?
	`

	record := &Record{}
	var participants, ownerships, prizes string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID, &record.Community, &record.Room,
		&record.Seed, &record.CompletedAt,
		&participants, &ownerships, &prizes,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get archived session: %w", err)
	}

	if err := json.Unmarshal([]byte(participants), &record.Participants); err != nil {
		return nil, fmt.Errorf("unmarshal participants: %w", err)
	}
	if err := json.Unmarshal([]byte(ownerships), &record.Ownerships); err != nil {
		return nil, fmt.Errorf("unmarshal ownerships: %w", err)
	}
	if err := json.Unmarshal([]byte(prizes), &record.Prizes); err != nil {
		return nil, fmt.Errorf("unmarshal prizes: %w", err)
	}

	return record, nil
}

// initSchema 初始化数据库表结构
func (s *Store) initSchema(ctx context.Context) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS archived_sessions (
			id TEXT PRIMARY KEY,
			community TEXT NOT NULL,
			room TEXT NOT NULL,
			seed INTEGER NOT NULL,
			completed_at DATETIME NOT NULL,
			participants TEXT NOT NULL,
			ownerships TEXT NOT NULL,
			prizes TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_archived_sessions_key ON archived_sessions(community, room)`,
		`CREATE INDEX IF NOT EXISTS idx_archived_sessions_completed_at ON archived_sessions(completed_at)`,
	}

	for _, schema := range schemas {
		if _, err := s.db.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("execute schema: %w", err)
		}
	}

	return nil
}
