package voucher

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ledger/meridian/internal/shared"
)

// pgTemplateStore persists templates in voucher_templates/voucher_events.
type pgTemplateStore struct {
	db *pgxpool.Pool
}

// NewTemplateStore builds the pgx-backed template store.
func NewTemplateStore(db *pgxpool.Pool) TemplateStore {
	return &pgTemplateStore{db: db}
}

func (s *pgTemplateStore) GetTemplate(ctx context.Context, code string) (Template, error) {
	var t Template
	var ruleJSON []byte
	err := s.db.QueryRow(ctx, `SELECT code, name, rule_json, is_active, created_at FROM voucher_templates WHERE code=$1`, code).
		Scan(&t.Code, &t.Name, &ruleJSON, &t.Active, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, shared.NewErrorf(shared.CodeTemplateDisabled, "template not found: %s", code)
		}
		return Template{}, err
	}
	if err := json.Unmarshal(ruleJSON, &t.Rule); err != nil {
		return Template{}, err
	}
	return t, nil
}

func (s *pgTemplateStore) SaveTemplate(ctx context.Context, t Template) error {
	ruleJSON, err := json.Marshal(t.Rule)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO voucher_templates (code, name, rule_json, is_active)
VALUES ($1,$2,$3,$4)
ON CONFLICT (code) DO UPDATE SET name=EXCLUDED.name, rule_json=EXCLUDED.rule_json, is_active=EXCLUDED.is_active`,
		t.Code, t.Name, ruleJSON, t.Active)
	return err
}

func (s *pgTemplateStore) ListTemplates(ctx context.Context) ([]Template, error) {
	rows, err := s.db.Query(ctx, `SELECT code, name, rule_json, is_active, created_at FROM voucher_templates ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Template
	for rows.Next() {
		var t Template
		var ruleJSON []byte
		if err := rows.Scan(&t.Code, &t.Name, &ruleJSON, &t.Active, &t.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(ruleJSON, &t.Rule); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *pgTemplateStore) DisableTemplate(ctx context.Context, code string) error {
	cmd, err := s.db.Exec(ctx, `UPDATE voucher_templates SET is_active=false WHERE code=$1`, code)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NewErrorf(shared.CodeTemplateDisabled, "template not found: %s", code)
	}
	return nil
}

func (s *pgTemplateStore) RecordEvent(ctx context.Context, eventID, templateCode string, voucherID int64) error {
	_, err := s.db.Exec(ctx, `INSERT INTO voucher_events (event_id, template_code, voucher_id) VALUES ($1,$2,$3) ON CONFLICT (event_id) DO NOTHING`,
		eventID, templateCode, voucherID)
	return err
}
