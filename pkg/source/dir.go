package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/shouni/go-remote-io/pkg/remoteio"
)

var _ remoteio.InputReader = (*DirReader)(nil)

var imageExts = []string{".jpg", ".jpeg", ".png", ".gif"}

// DirReader はローカルディレクトリを読み込み元とする remoteio.InputReader です。
// 相対パスは root からの相対として解決されます。
type DirReader struct {
	root string
}

// NewDirReader は root を基準とする DirReader を返します。
func NewDirReader(root string) *DirReader {
	return &DirReader{root: root}
}

func (r *DirReader) resolve(uri string) string {
	p := strings.TrimPrefix(uri, "file://")
	if filepath.IsAbs(p) || r.root == "" {
		return p
	}
	return filepath.Join(r.root, p)
}

// Open は uri のファイルを開きます。
func (r *DirReader) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(r.resolve(uri))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}
	return f, nil
}

// List は uri のディレクトリ直下にある画像ファイルを名前順に fn へ渡します。
func (r *DirReader) List(ctx context.Context, uri string, fn func(string) error) error {
	dir := r.resolve(uri)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("list %s: %w", uri, err)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.IsDir() || !IsImageName(e.Name()) {
			continue
		}
		if err := fn(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// IsImageName は拡張子から画像ファイルかどうかを判定します。
func IsImageName(name string) bool {
	return slices.Contains(imageExts, strings.ToLower(filepath.Ext(name)))
}
