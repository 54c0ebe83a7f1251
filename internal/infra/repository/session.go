package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"groupbuy-coordinator/internal/domain/session"
	"groupbuy-coordinator/internal/infra"
	"groupbuy-coordinator/internal/infra/repository/converter"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionColumns = `id, product_ref, base_price_cents, tiers, min_participants,
	max_participants, participants, status, current_price_cents, expires_at, created_at, version`

// SessionRepository persists each session as a single row. Tiers and the
// participant set live in JSONB columns so the version-checked UPDATE covers
// the whole aggregate in one atomic statement.
type SessionRepository struct {
	db *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, sess *session.Session) error {
	tiers, err := converter.TiersToJSON(sess.Tiers())
	if err != nil {
		return infra.WrapRepoErr(infra.KindDBFailure, "failed to encode tiers", err)
	}
	participants, err := converter.ParticipantsToJSON(sess.Participants())
	if err != nil {
		return infra.WrapRepoErr(infra.KindDBFailure, "failed to encode participants", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO group_buy_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		sess.ID(), sess.ProductRef(), sess.BasePrice().Cents(), tiers,
		sess.MinParticipants(), sess.MaxParticipants(), participants,
		sess.Status().String(), sess.CurrentPrice().Cents(),
		sess.ExpiresAt(), sess.CreatedAt(), sess.Version(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return infra.WrapRepoErr(infra.KindDuplicateKey, "session already exists", err)
		}
		return infra.WrapRepoErr(infra.KindDBFailure, "failed to insert session", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM group_buy_sessions
		WHERE id = $1`, id)

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr(infra.KindNotFound, "session not found", err)
		}
		return nil, infra.WrapRepoErr(infra.KindDBFailure, "failed to read session", err)
	}
	return sess, nil
}

// ConditionalUpdate commits the mutated aggregate iff the stored version
// still equals expectedVersion. This is the single atomicity primitive the
// join path and the sweeper coordinate through.
func (r *SessionRepository) ConditionalUpdate(ctx context.Context, sess *session.Session, expectedVersion int64) error {
	participants, err := converter.ParticipantsToJSON(sess.Participants())
	if err != nil {
		return infra.WrapRepoErr(infra.KindDBFailure, "failed to encode participants", err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE group_buy_sessions
		SET participants = $1, status = $2, current_price_cents = $3, version = version + 1
		WHERE id = $4 AND version = $5`,
		participants, sess.Status().String(), sess.CurrentPrice().Cents(),
		sess.ID(), expectedVersion,
	)
	if err != nil {
		return infra.WrapRepoErr(infra.KindDBFailure, "failed to update session", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr(infra.KindConflict, "session version conflict", nil)
	}

	sess.SetVersion(expectedVersion + 1)
	return nil
}

func (r *SessionRepository) FindExpiredOpen(ctx context.Context, now time.Time, limit int) ([]*session.Session, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM group_buy_sessions
		WHERE status = $1 AND expires_at <= $2
		ORDER BY expires_at
		LIMIT $3`,
		session.StatusOpen.String(), now, limit)
	if err != nil {
		return nil, infra.WrapRepoErr(infra.KindDBFailure, "failed to scan expired sessions", err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

func (r *SessionRepository) FindByParticipant(ctx context.Context, userRef uuid.UUID) ([]*session.Session, error) {
	member, err := json.Marshal([]map[string]uuid.UUID{{"user_ref": userRef}})
	if err != nil {
		return nil, infra.WrapRepoErr(infra.KindDBFailure, "failed to encode participant filter", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM group_buy_sessions
		WHERE participants @> $1::jsonb
		ORDER BY created_at DESC`, member)
	if err != nil {
		return nil, infra.WrapRepoErr(infra.KindDBFailure, "failed to query sessions by participant", err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

func collectSessions(rows pgx.Rows) ([]*session.Session, error) {
	var sessions []*session.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, infra.WrapRepoErr(infra.KindDBFailure, "failed to scan session row", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr(infra.KindDBFailure, "failed to iterate session rows", err)
	}
	return sessions, nil
}

func scanSession(row pgx.Row) (*session.Session, error) {
	var (
		id, productRef               uuid.UUID
		basePriceCents, priceCents   int64
		tiersRaw, participantsRaw    []byte
		minParticipants, maxParts    int
		statusRaw                    string
		expiresAt, createdAt         time.Time
		version                      int64
	)
	if err := row.Scan(
		&id, &productRef, &basePriceCents, &tiersRaw, &minParticipants,
		&maxParts, &participantsRaw, &statusRaw, &priceCents,
		&expiresAt, &createdAt, &version,
	); err != nil {
		return nil, err
	}

	tiers, err := converter.TiersFromJSON(tiersRaw)
	if err != nil {
		return nil, err
	}
	participants, err := converter.ParticipantsFromJSON(participantsRaw)
	if err != nil {
		return nil, err
	}
	status, err := session.NewStatus(statusRaw)
	if err != nil {
		return nil, err
	}
	basePrice, err := session.NewMoney(basePriceCents)
	if err != nil {
		return nil, err
	}
	currentPrice, err := session.NewMoney(priceCents)
	if err != nil {
		return nil, err
	}

	return session.ReconstructSession(
		id, productRef, basePrice, tiers,
		minParticipants, maxParts, participants,
		status, currentPrice, expiresAt, createdAt, version,
	), nil
}
