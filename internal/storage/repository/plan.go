package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/transcribe-hub/internal/models"
)

// GetPlanByCode возвращает план по коду. Неактивные планы не возвращаются,
// кроме плана по умолчанию.
func (s *Storage) GetPlanByCode(ctx context.Context, code string) (*models.Plan, error) {
	const op = "storage.GetPlanByCode"

	query := `SELECT id, code, name, monthly_minutes, monthly_usage_limit, is_active, is_default, created_at
			  FROM plans
			  WHERE code = upper($1) AND (is_active OR is_default)`
	var plan models.Plan
	err := s.DB.QueryRowContext(ctx, query, code).Scan(&plan.ID, &plan.Code, &plan.Name,
		&plan.MonthlyMinutes, &plan.MonthlyUsageLimit, &plan.IsActive, &plan.IsDefault, &plan.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &plan, nil
}

// GetDefaultPlan возвращает системный план по умолчанию.
// При перекате цикла подписки с удалённым или деактивированным планом
// переснапшочиваются именно с него.
func (s *Storage) GetDefaultPlan(ctx context.Context) (*models.Plan, error) {
	const op = "storage.GetDefaultPlan"

	query := `SELECT id, code, name, monthly_minutes, monthly_usage_limit, is_active, is_default, created_at
			  FROM plans
			  WHERE is_default`
	var plan models.Plan
	err := s.DB.QueryRowContext(ctx, query).Scan(&plan.ID, &plan.Code, &plan.Name,
		&plan.MonthlyMinutes, &plan.MonthlyUsageLimit, &plan.IsActive, &plan.IsDefault, &plan.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &plan, nil
}

// ListActivePlans возвращает список активных планов.
func (s *Storage) ListActivePlans(ctx context.Context) ([]*models.Plan, error) {
	const op = "storage.ListActivePlans"

	query := `SELECT id, code, name, monthly_minutes, monthly_usage_limit, is_active, is_default, created_at
			  FROM plans
			  WHERE is_active
			  ORDER BY monthly_minutes`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Plan
	for rows.Next() {
		var plan models.Plan
		if err := rows.Scan(&plan.ID, &plan.Code, &plan.Name, &plan.MonthlyMinutes,
			&plan.MonthlyUsageLimit, &plan.IsActive, &plan.IsDefault, &plan.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DeactivatePlan мягко отключает план для новых подписок. План по умолчанию
// деактивировать нельзя; жёсткое удаление планов не поддерживается —
// действующие подписки продолжают работать по снапшоту до переката.
func (s *Storage) DeactivatePlan(ctx context.Context, code string) error {
	const op = "storage.DeactivatePlan"

	result, err := s.DB.ExecContext(ctx,
		`UPDATE plans SET is_active = FALSE WHERE code = upper($1) AND NOT is_default`, code)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, sql.ErrNoRows)
	}
	return nil
}
