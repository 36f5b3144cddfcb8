// Package telegram declares the webhook file-source boundary the raw stage
// depends on (spec.md §6): get_file_bytes(file_id) → bytes. No concrete
// bot-API implementation is in scope (spec.md §1 Non-goals) — only the
// interface, plus a stub for pkg/pipeline's test harness.
package telegram

import "context"

// Source fetches the bytes of an uploaded file by its Telegram file id.
type Source interface {
	GetFileBytes(ctx context.Context, fileID string) ([]byte, error)
}
