package repository

import (
	"context"
	"database/sql"

	"github.com/rutasur/tour-reservation/internal/model"
)

// ReminderRuleRepo manages the admin-configured payment reminder tiers.
type ReminderRuleRepo struct {
	db *sql.DB
}

// NewReminderRuleRepo returns a ReminderRuleRepo bound to the given database.
func NewReminderRuleRepo(db *sql.DB) *ReminderRuleRepo { return &ReminderRuleRepo{db: db} }

const ruleCols = `id, days_before_deadline, send_time, template_type, enabled, created_at, updated_at`

func scanRule(row interface{ Scan(...any) error }) (*model.ReminderRule, error) {
	var rule model.ReminderRule
	if err := row.Scan(&rule.ID, &rule.DaysBeforeDeadline, &rule.SendTime, &rule.TemplateType,
		&rule.Enabled, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
		return nil, err
	}
	return &rule, nil
}

// Create inserts a new rule and populates its generated ID.
func (r *ReminderRuleRepo) Create(ctx context.Context, rule *model.ReminderRule) error {
	const q = `INSERT INTO reminder_rules (days_before_deadline, send_time, template_type, enabled)
		VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, rule.DaysBeforeDeadline, rule.SendTime, rule.TemplateType, rule.Enabled)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rule.ID = uint64(id)
	return nil
}

// GetByID returns a rule or ErrRuleNotFound.
func (r *ReminderRuleRepo) GetByID(ctx context.Context, id uint64) (*model.ReminderRule, error) {
	rule, err := scanRule(r.db.QueryRowContext(ctx,
		`SELECT `+ruleCols+` FROM reminder_rules WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrRuleNotFound
	}
	return rule, err
}

// List returns every rule, furthest-out tier first.
func (r *ReminderRuleRepo) List(ctx context.Context) ([]model.ReminderRule, error) {
	return r.list(ctx, `SELECT `+ruleCols+` FROM reminder_rules ORDER BY days_before_deadline DESC`)
}

// ListEnabled returns the enabled rules in descending days_before_deadline
// order, the order the rule engine scans them in.
func (r *ReminderRuleRepo) ListEnabled(ctx context.Context) ([]model.ReminderRule, error) {
	return r.list(ctx, `SELECT `+ruleCols+` FROM reminder_rules WHERE enabled = 1 ORDER BY days_before_deadline DESC`)
}

func (r *ReminderRuleRepo) list(ctx context.Context, q string) ([]model.ReminderRule, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.ReminderRule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rule)
	}
	return out, rows.Err()
}

// Update rewrites a rule's configurable fields.
func (r *ReminderRuleRepo) Update(ctx context.Context, rule *model.ReminderRule) error {
	const q = `UPDATE reminder_rules
		SET days_before_deadline = ?, send_time = ?, template_type = ?, enabled = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, rule.DaysBeforeDeadline, rule.SendTime,
		rule.TemplateType, rule.Enabled, rule.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, rule.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a rule.
func (r *ReminderRuleRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reminder_rules WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRuleNotFound
	}
	return nil
}
