package adapters

import (
	"bytes"
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenAIUploader は *genai.Client の Files API を FileUploader として扱うアダプターです。
type GenAIUploader struct {
	client *genai.Client
}

// NewGenAIUploader は client をラップします。
func NewGenAIUploader(client *genai.Client) (*GenAIUploader, error) {
	if client == nil {
		return nil, fmt.Errorf("genai client is required")
	}
	return &GenAIUploader{client: client}, nil
}

// UploadFile は data をアップロードし、参照用の URI と削除用の Name を返します。
func (u *GenAIUploader) UploadFile(ctx context.Context, data []byte, mimeType, displayName string) (string, string, error) {
	file, err := u.client.Files.Upload(ctx, bytes.NewReader(data), &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: displayName,
	})
	if err != nil {
		return "", "", err
	}
	if file == nil {
		return "", "", fmt.Errorf("empty upload response")
	}
	return file.URI, file.Name, nil
}

// DeleteFile は name のファイルを削除します。
func (u *GenAIUploader) DeleteFile(ctx context.Context, name string) error {
	_, err := u.client.Files.Delete(ctx, name, nil)
	return err
}
