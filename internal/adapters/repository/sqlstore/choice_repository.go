package sqlstore

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vncsmyrnk/ballotbox/internal/core/domain"
	"github.com/vncsmyrnk/ballotbox/internal/core/ports"
)

type choiceRepository struct {
	db *DB
}

func NewChoiceRepository(db *DB) ports.ChoiceRepository {
	return &choiceRepository{
		db: db,
	}
}

// Add appends the choice after the poll's last position.
func (r *choiceRepository) Add(ctx context.Context, choice *domain.Choice) error {
	return r.db.WithinTx(ctx, func(ctx context.Context) error {
		var next int
		err := r.db.queryRow(ctx, `SELECT COALESCE(MAX(position), -1) + 1 FROM choices WHERE poll_id = ?`, choice.PollID).Scan(&next)
		if err != nil {
			return errors.Wrap(err, "failed to compute choice position")
		}
		choice.Position = next

		query := `
			INSERT INTO choices (id, poll_id, text, votes, position)
			VALUES (?, ?, ?, ?, ?)
		`
		if _, err := r.db.exec(ctx, query, choice.ID, choice.PollID, choice.Text, choice.Votes, choice.Position); err != nil {
			return errors.Wrap(err, "failed to insert choice")
		}
		return nil
	})
}

func (r *choiceRepository) IncrementVotes(ctx context.Context, pollID, choiceID uuid.UUID) error {
	res, err := r.db.exec(ctx, `UPDATE choices SET votes = votes + 1 WHERE id = ? AND poll_id = ?`, choiceID, pollID)
	if err != nil {
		return errors.Wrap(err, "failed to increment votes")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return domain.ErrInvalidChoice
	}
	return nil
}

func (r *choiceRepository) ResetVotes(ctx context.Context, pollID uuid.UUID) error {
	if _, err := r.db.exec(ctx, `UPDATE choices SET votes = 0 WHERE poll_id = ?`, pollID); err != nil {
		return errors.Wrap(err, "failed to reset votes")
	}
	return nil
}

func (r *choiceRepository) Ranked(ctx context.Context, pollID uuid.UUID) ([]domain.Choice, error) {
	query := `
		SELECT id, poll_id, text, votes, position
		FROM choices
		WHERE poll_id = ?
		ORDER BY votes DESC, position ASC
	`
	return queryChoices(ctx, r.db, query, pollID)
}
