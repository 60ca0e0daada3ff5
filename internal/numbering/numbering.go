// Package numbering allocates human-facing order numbers from a per-branch counter.
package numbering

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/repairdesk-backend/pkg/db"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
)

// MaxAttempts bounds how many numbers order creation burns through on conflicts.
const MaxAttempts = 3

// Generator hands out order numbers shaped <PREFIX>-<BRANCHCODE>-<YYMMDD>-<seq>.
type Generator struct {
	prefix string
}

func NewGenerator(prefix string) (*Generator, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil, errors.New("order number prefix required")
	}
	if strings.Contains(prefix, "-") {
		return nil, fmt.Errorf("order number prefix %q must not contain '-'", prefix)
	}
	return &Generator{prefix: prefix}, nil
}

// Format renders an order number. The date part is taken in UTC.
func Format(prefix, branchCode string, at time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%s-%05d", prefix, strings.ToUpper(branchCode), at.UTC().Format("060102"), seq)
}

// Next bumps the branch counter on tx and returns the formatted number. The
// increment takes a row lock held until tx ends, so numbers are allocated in
// commit order and a rolled back tx gives its value back.
func (g *Generator) Next(ctx context.Context, tx *gorm.DB, branchID uuid.UUID, at time.Time) (string, error) {
	if tx == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "transaction required for order numbering")
	}
	seq, code, err := allocate(ctx, tx, branchID)
	if err != nil {
		return "", err
	}
	return Format(g.prefix, code, at, seq), nil
}

func allocate(ctx context.Context, tx *gorm.DB, branchID uuid.UUID) (int64, string, error) {
	var branch models.Branch
	if err := tx.WithContext(ctx).Select("id", "code").Where("id = ?", branchID).First(&branch).Error; err != nil {
		return 0, "", db.Classify(err, "branch not found")
	}

	seed := models.OrderSequence{BranchID: branchID, LastValue: 0}
	if err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "branch_id"}}, DoNothing: true}).
		Create(&seed).Error; err != nil {
		return 0, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seed order sequence")
	}

	if err := tx.WithContext(ctx).
		Model(&models.OrderSequence{}).
		Where("branch_id = ?", branchID).
		UpdateColumns(map[string]any{
			"last_value": gorm.Expr("last_value + 1"),
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
		return 0, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order sequence")
	}

	var current models.OrderSequence
	if err := tx.WithContext(ctx).Where("branch_id = ?", branchID).First(&current).Error; err != nil {
		return 0, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read order sequence")
	}
	return current.LastValue, branch.Code, nil
}
