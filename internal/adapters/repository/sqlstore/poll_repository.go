package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vncsmyrnk/ballotbox/internal/core/domain"
	"github.com/vncsmyrnk/ballotbox/internal/core/ports"
)

type pollRepository struct {
	db *DB
}

func NewPollRepository(db *DB) ports.PollRepository {
	return &pollRepository{
		db: db,
	}
}

const pollColumns = `id, question, pub_date, is_open, created_at`

func (r *pollRepository) Create(ctx context.Context, poll *domain.Poll) error {
	return r.db.WithinTx(ctx, func(ctx context.Context) error {
		queryPoll := `
			INSERT INTO polls (id, question, pub_date, is_open, created_at)
			VALUES (?, ?, ?, ?, ?)
		`
		_, err := r.db.exec(ctx, queryPoll, poll.ID, poll.Question, dbTime(poll.PubDate), poll.IsOpen, dbTime(poll.CreatedAt))
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicateQuestion
			}
			return errors.Wrap(err, "failed to insert poll")
		}

		queryChoice := `
			INSERT INTO choices (id, poll_id, text, votes, position)
			VALUES (?, ?, ?, ?, ?)
		`
		stmt, err := r.db.prepare(ctx, queryChoice)
		if err != nil {
			return errors.Wrap(err, "failed to prepare choice statement")
		}
		defer stmt.Close()

		for _, c := range poll.Choices {
			if _, err := stmt.ExecContext(ctx, c.ID, c.PollID, c.Text, c.Votes, c.Position); err != nil {
				return errors.Wrap(err, "failed to insert choice")
			}
		}
		return nil
	})
}

func (r *pollRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	return r.get(ctx, `SELECT `+pollColumns+` FROM polls WHERE id = ?`, id)
}

func (r *pollRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	return r.get(ctx, `SELECT `+pollColumns+` FROM polls WHERE id = ?`+r.db.lockClause(), id)
}

func (r *pollRepository) get(ctx context.Context, query string, id uuid.UUID) (*domain.Poll, error) {
	var poll domain.Poll
	err := r.db.queryRow(ctx, query, id).Scan(
		&poll.ID, &poll.Question, &poll.PubDate, &poll.IsOpen, &poll.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPollNotFound
		}
		return nil, errors.Wrap(err, "failed to get poll")
	}

	choices, err := r.fetchChoices(ctx, poll.ID)
	if err != nil {
		return nil, err
	}
	poll.Choices = choices

	return &poll, nil
}

func (r *pollRepository) ListPublished(ctx context.Context, now time.Time) ([]*domain.Poll, error) {
	query := `
		SELECT ` + pollColumns + `
		FROM polls
		WHERE pub_date <= ?
		ORDER BY pub_date DESC
	`
	rows, err := r.db.query(ctx, query, dbTime(now))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list published polls")
	}
	defer rows.Close()

	return r.scanPolls(ctx, rows)
}

func (r *pollRepository) ListOpen(ctx context.Context) ([]*domain.Poll, error) {
	query := `
		SELECT ` + pollColumns + `
		FROM polls
		WHERE is_open = ?
		ORDER BY pub_date DESC
	`
	rows, err := r.db.query(ctx, query, true)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list open polls")
	}
	defer rows.Close()

	return r.scanPolls(ctx, rows)
}

func (r *pollRepository) Search(ctx context.Context, limit, offset int, q string) ([]*domain.Poll, error) {
	query := `
		SELECT ` + pollColumns + `
		FROM polls
		WHERE LOWER(question) LIKE LOWER(?)
		ORDER BY pub_date DESC
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.query(ctx, query, "%"+q+"%", limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search polls")
	}
	defer rows.Close()

	return r.scanPolls(ctx, rows)
}

func (r *pollRepository) SetOpen(ctx context.Context, id uuid.UUID, open bool) error {
	res, err := r.db.exec(ctx, `UPDATE polls SET is_open = ? WHERE id = ?`, open, id)
	if err != nil {
		return errors.Wrap(err, "failed to update poll status")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return domain.ErrPollNotFound
	}
	return nil
}

// scanPolls drains rows before loading choices so a single connection is never needed twice at once.
func (r *pollRepository) scanPolls(ctx context.Context, rows *sql.Rows) ([]*domain.Poll, error) {
	var polls []*domain.Poll
	for rows.Next() {
		var poll domain.Poll
		if err := rows.Scan(&poll.ID, &poll.Question, &poll.PubDate, &poll.IsOpen, &poll.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan poll")
		}
		polls = append(polls, &poll)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating polls")
	}
	rows.Close()

	for _, poll := range polls {
		choices, err := r.fetchChoices(ctx, poll.ID)
		if err != nil {
			return nil, err
		}
		poll.Choices = choices
	}
	return polls, nil
}

func (r *pollRepository) fetchChoices(ctx context.Context, pollID uuid.UUID) ([]domain.Choice, error) {
	query := `
		SELECT id, poll_id, text, votes, position
		FROM choices
		WHERE poll_id = ?
		ORDER BY position
	`
	return queryChoices(ctx, r.db, query, pollID)
}

func queryChoices(ctx context.Context, db *DB, query string, args ...any) ([]domain.Choice, error) {
	rows, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get choices")
	}
	defer rows.Close()

	choices := []domain.Choice{}
	for rows.Next() {
		var c domain.Choice
		if err := rows.Scan(&c.ID, &c.PollID, &c.Text, &c.Votes, &c.Position); err != nil {
			return nil, errors.Wrap(err, "failed to scan choice")
		}
		choices = append(choices, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating choices")
	}
	return choices, nil
}
