package photolib

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shouni/go-collage-kit/pkg/domain"
)

// ErrNotFound は指定したアセットが存在しない場合に返されます。
var ErrNotFound = errors.New("asset not found")

// Prompter はフォトライブラリへのアクセス許可をユーザーに尋ねます。
type Prompter interface {
	Prompt(ctx context.Context) (bool, error)
}

// PromptFunc は関数を Prompter として扱うためのアダプターです。
type PromptFunc func(ctx context.Context) (bool, error)

// Prompt は f を呼び出します。
func (f PromptFunc) Prompt(ctx context.Context) (bool, error) { return f(ctx) }

// Asset は保存済みアセットのメタデータです。
type Asset struct {
	ID        string
	MimeType  string
	Width     int
	Height    int
	ByteSize  int
	CreatedAt time.Time
}

// Library は sqlite に写真を保存するフォトライブラリです。
// access.Library と asset.Store の両方を満たします。
type Library struct {
	db       *sql.DB
	prompter Prompter
}

// Open は path の sqlite を開き、マイグレーションを適用します。
// prompter が nil の場合、未決定の許可要求はエラーになります。
func Open(path string, prompter Prompter) (*Library, error) {
	if path == "" {
		return nil, fmt.Errorf("library path is required")
	}
	db, err := openDB(path)
	if err != nil {
		return nil, fmt.Errorf("open library: %w", err)
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Library{db: db, prompter: prompter}, nil
}

// Close はデータベースを閉じます。
func (l *Library) Close() error {
	return l.db.Close()
}

// Authorization は保存されている許可状態を返します。記録がなければ未決定です。
func (l *Library) Authorization(ctx context.Context) (domain.AuthStatus, error) {
	var status string
	err := l.db.QueryRowContext(ctx, `SELECT status FROM access_grants WHERE id = 1`).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AuthNotDetermined, nil
	}
	if err != nil {
		return domain.AuthNotDetermined, fmt.Errorf("read access grant: %w", err)
	}
	return domain.ParseAuthStatus(status), nil
}

// RequestAccess はユーザーに許可を求め、その結果を記録します。
func (l *Library) RequestAccess(ctx context.Context) (bool, error) {
	if l.prompter == nil {
		return false, fmt.Errorf("access prompter is not configured")
	}
	granted, err := l.prompter.Prompt(ctx)
	if err != nil {
		return false, fmt.Errorf("access prompt: %w", err)
	}

	status := domain.AuthDenied
	if granted {
		status = domain.AuthAuthorized
	}
	if err := l.setAuthorization(ctx, status); err != nil {
		return false, err
	}
	return granted, nil
}

func (l *Library) setAuthorization(ctx context.Context, status domain.AuthStatus) error {
	_, err := l.db.ExecContext(ctx, `
	INSERT INTO access_grants(id, status, updated_at) VALUES (1, ?, ?)
	ON CONFLICT(id) DO UPDATE SET status=excluded.status, updated_at=excluded.updated_at;
	`, status.String(), now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("write access grant: %w", err)
	}
	return nil
}

// CreateAsset は画像データを1つのトランザクションで保存し、新しい識別子を返します。
func (l *Library) CreateAsset(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("asset data is empty")
	}

	var width, height int
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		width, height = cfg.Width, cfg.Height
	}

	id := uuid.NewString()
	err := withTx(l.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO assets(id, mime_type, width, height, byte_size, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, mimeType, width, height, len(data), data, now().Format(time.RFC3339))
		return err
	})
	if err != nil {
		return "", fmt.Errorf("create asset: %w", err)
	}

	slog.InfoContext(ctx, "アセットを作成しました", "asset_id", id, "bytes", len(data), "width", width, "height", height)
	return id, nil
}

// Get は id のアセットのメタデータと画像データを返します。
func (l *Library) Get(ctx context.Context, id string) (Asset, []byte, error) {
	row := l.db.QueryRowContext(ctx, `
	SELECT id, mime_type, width, height, byte_size, created_at, data FROM assets WHERE id = ?
	`, id)

	var a Asset
	var created string
	var data []byte
	if err := row.Scan(&a.ID, &a.MimeType, &a.Width, &a.Height, &a.ByteSize, &created, &data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Asset{}, nil, ErrNotFound
		}
		return Asset{}, nil, err
	}
	a.CreatedAt = parseTime(created)
	return a, data, nil
}

// List は保存済みアセットを新しい順に返します。
func (l *Library) List(ctx context.Context) ([]Asset, error) {
	rows, err := l.db.QueryContext(ctx, `
	SELECT id, mime_type, width, height, byte_size, created_at FROM assets ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Asset
	for rows.Next() {
		var a Asset
		var created string
		if err := rows.Scan(&a.ID, &a.MimeType, &a.Width, &a.Height, &a.ByteSize, &created); err != nil {
			return nil, err
		}
		a.CreatedAt = parseTime(created)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Count は保存済みアセットの件数を返します。
func (l *Library) Count(ctx context.Context) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assets`).Scan(&n)
	return n, err
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
