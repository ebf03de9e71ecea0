package sqlstore

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vncsmyrnk/ballotbox/internal/core/domain"
	"github.com/vncsmyrnk/ballotbox/internal/core/ports"
)

type voterRepository struct {
	db *DB
}

func NewVoterRepository(db *DB) ports.VoterRepository {
	return &voterRepository{
		db: db,
	}
}

const voterSelect = `
	SELECT v.id, v.poll_id, v.user_id, u.username, v.has_voted
	FROM voters v
	JOIN users u ON u.id = v.user_id
`

func (r *voterRepository) Create(ctx context.Context, voter *domain.Voter) (bool, error) {
	query := `
		INSERT INTO voters (id, poll_id, user_id, has_voted)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (poll_id, user_id) DO NOTHING
	`
	res, err := r.db.exec(ctx, query, voter.ID, voter.PollID, voter.UserID, voter.HasVoted)
	if err != nil {
		return false, errors.Wrap(err, "failed to insert voter")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read affected rows")
	}
	return n == 1, nil
}

func (r *voterRepository) ListByPoll(ctx context.Context, pollID uuid.UUID) ([]domain.Voter, error) {
	rows, err := r.db.query(ctx, voterSelect+` WHERE v.poll_id = ? ORDER BY u.username`, pollID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list voters")
	}
	defer rows.Close()

	return scanVoters(rows)
}

func (r *voterRepository) ListByUser(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]domain.Voter, error) {
	rows, err := r.db.query(ctx, voterSelect+` WHERE v.user_id = ?`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list voters of user")
	}
	defer rows.Close()

	voters, err := scanVoters(rows)
	if err != nil {
		return nil, err
	}

	byPoll := make(map[uuid.UUID]domain.Voter, len(voters))
	for _, v := range voters {
		byPoll[v.PollID] = v
	}
	return byPoll, nil
}

func (r *voterRepository) GetByPollAndUser(ctx context.Context, pollID, userID uuid.UUID) (*domain.Voter, error) {
	var v domain.Voter
	err := r.db.queryRow(ctx, voterSelect+` WHERE v.poll_id = ? AND v.user_id = ?`, pollID, userID).Scan(
		&v.ID, &v.PollID, &v.UserID, &v.Username, &v.HasVoted,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get voter")
	}
	return &v, nil
}

func (r *voterRepository) MarkVoted(ctx context.Context, voterID uuid.UUID) (bool, error) {
	res, err := r.db.exec(ctx, `UPDATE voters SET has_voted = ? WHERE id = ? AND has_voted = ?`, true, voterID, false)
	if err != nil {
		return false, errors.Wrap(err, "failed to mark voter")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read affected rows")
	}
	return n == 1, nil
}

func (r *voterRepository) ResetAll(ctx context.Context, pollID uuid.UUID) error {
	if _, err := r.db.exec(ctx, `UPDATE voters SET has_voted = ? WHERE poll_id = ?`, false, pollID); err != nil {
		return errors.Wrap(err, "failed to reset voters")
	}
	return nil
}

func (r *voterRepository) Counts(ctx context.Context, pollID uuid.UUID) (int, int, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN has_voted THEN 1 ELSE 0 END), 0)
		FROM voters
		WHERE poll_id = ?
	`
	var eligible, voted int
	if err := r.db.queryRow(ctx, query, pollID).Scan(&eligible, &voted); err != nil {
		return 0, 0, errors.Wrap(err, "failed to count voters")
	}
	return eligible, voted, nil
}

func scanVoters(rows *sql.Rows) ([]domain.Voter, error) {
	voters := []domain.Voter{}
	for rows.Next() {
		var v domain.Voter
		if err := rows.Scan(&v.ID, &v.PollID, &v.UserID, &v.Username, &v.HasVoted); err != nil {
			return nil, errors.Wrap(err, "failed to scan voter")
		}
		voters = append(voters, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating voters")
	}
	return voters, nil
}
