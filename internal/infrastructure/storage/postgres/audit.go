package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	appctx "kitanda/internal/core/context"
	"kitanda/internal/core/id"
	"kitanda/internal/domain/audit"
)

// CompressionAlgo specifies how the changes column is stored.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// defaultCompressThreshold is the payload size above which changes go to changes_compressed.
const defaultCompressThreshold = 4 * 1024

// AuditLog writes audit entries to the audit_log table.
// Large change sets (credit notes copying many lines) are zstd-compressed.
type AuditLog struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var (
	_ audit.Logger = (*AuditLog)(nil)
	_ audit.Reader = (*AuditLog)(nil)
)

// NewAuditLog creates an audit log over the given transaction manager.
func NewAuditLog(txManager *TxManager) (*AuditLog, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &AuditLog{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: defaultCompressThreshold,
	}, nil
}

// LogChange implements audit.Logger. It runs in the transaction from ctx,
// so the entry commits or rolls back with the change it describes.
func (l *AuditLog) LogChange(ctx context.Context, entityType string, entityID id.ID, action audit.Action, changes map[string]any) error {
	raw, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}
	plain, compressed, algo := l.encode(raw)

	_, err = l.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO audit_log (
			id, entity_type, entity_id, action, user_id,
			changes, changes_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id.New(), entityType, entityID, string(action), appctx.GetUserID(ctx),
		plain, compressed, string(algo), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// History implements audit.Reader.
func (l *AuditLog) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.txManager.GetQuerier(ctx).Query(ctx, `
		SELECT entity_type, entity_id, action, user_id, changes, changes_compressed, compression_algo, created_at
		FROM audit_log
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3`, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			e          audit.Entry
			action     string
			plain      []byte
			compressed []byte
			algo       string
		)
		if err := rows.Scan(&e.EntityType, &e.EntityID, &action, &e.UserID, &plain, &compressed, &algo, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Action = audit.Action(action)
		raw, err := l.decode(plain, compressed, CompressionAlgo(algo))
		if err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Changes); err != nil {
				return nil, fmt.Errorf("unmarshal changes: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (l *AuditLog) encode(raw []byte) (plain, compressed []byte, algo CompressionAlgo) {
	if len(raw) <= l.compressThreshold {
		return raw, nil, CompressionNone
	}
	return nil, l.encoder.EncodeAll(raw, nil), CompressionZstd
}

func (l *AuditLog) decode(plain, compressed []byte, algo CompressionAlgo) ([]byte, error) {
	if algo != CompressionZstd || len(compressed) == 0 {
		return plain, nil
	}
	out, err := l.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress changes: %w", err)
	}
	return out, nil
}
