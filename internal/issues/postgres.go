package issues

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store on PostgreSQL. Image URLs and suggestions are
// kept as jsonb columns.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const issueColumns = `id, title, description, category, lng, lat, address,
	status, images, reporter_id, ai_score, ai_suggestions, votes_count,
	created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, issue *Issue) error {
	images, err := json.Marshal(issue.Images)
	if err != nil {
		return issueStoreErr(err)
	}
	suggestions, err := json.Marshal(issue.AISuggestions)
	if err != nil {
		return issueStoreErr(err)
	}
	_, err = s.db.ExecContext(ctx,
		`insert into issues(id, title, description, category, lng, lat, address,
		   status, images, reporter_id, ai_score, ai_suggestions, votes_count)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		issue.ID, issue.Title, issue.Description, string(issue.Category),
		issue.Location.Lng(), issue.Location.Lat(), issue.Address,
		string(issue.Status), images, issue.ReporterID,
		issue.AIScore, suggestions, issue.VotesCount,
	)
	return issueStoreErr(err)
}

func (s *PGStore) FindByID(ctx context.Context, id string) (*Issue, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`select %s from issues where id = $1`, issueColumns), id)
	issue, err := scanIssue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, issueStoreErr(err)
	}
	return issue, nil
}

var sortColumns = map[string]string{
	"createdAt":  "created_at",
	"aiScore":    "ai_score",
	"votesCount": "votes_count",
}

func (s *PGStore) List(ctx context.Context, filter Filter) ([]*Issue, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Category != "" {
		where = append(where, "category = "+arg(string(filter.Category)))
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(string(filter.Status)))
	}
	if box := filter.BBox; box != nil {
		where = append(where, "lng between "+arg(box.MinLng)+" and "+arg(box.MaxLng))
		where = append(where, "lat between "+arg(box.MinLat)+" and "+arg(box.MaxLat))
	}

	order := filter.Sort
	if order.Field == "" {
		order = DefaultSort
	}
	column, ok := sortColumns[order.Field]
	if !ok {
		column = "created_at"
		order.Descending = true
	}
	direction := "asc"
	if order.Descending {
		direction = "desc"
	}

	query := fmt.Sprintf(`select %s from issues`, issueColumns)
	if len(where) > 0 {
		query += " where " + strings.Join(where, " and ")
	}
	query += fmt.Sprintf(" order by %s %s, id %s", column, direction, direction)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, issueStoreErr(err)
	}
	defer rows.Close()

	var listed []*Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, issueStoreErr(err)
		}
		listed = append(listed, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, issueStoreErr(err)
	}
	return listed, nil
}

func (s *PGStore) Save(ctx context.Context, issue *Issue) error {
	images, err := json.Marshal(issue.Images)
	if err != nil {
		return issueStoreErr(err)
	}
	suggestions, err := json.Marshal(issue.AISuggestions)
	if err != nil {
		return issueStoreErr(err)
	}
	res, err := s.db.ExecContext(ctx,
		`update issues
		 set title = $2, description = $3, category = $4, lng = $5, lat = $6,
		     address = $7, status = $8, images = $9, ai_score = $10,
		     ai_suggestions = $11, votes_count = $12, updated_at = now()
		 where id = $1`,
		issue.ID, issue.Title, issue.Description, string(issue.Category),
		issue.Location.Lng(), issue.Location.Lat(), issue.Address,
		string(issue.Status), images, issue.AIScore, suggestions, issue.VotesCount,
	)
	if err != nil {
		return issueStoreErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return issueStoreErr(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssue(row rowScanner) (*Issue, error) {
	var (
		issue            Issue
		category, status string
		lng, lat         float64
		images           []byte
		suggestions      []byte
	)
	err := row.Scan(&issue.ID, &issue.Title, &issue.Description, &category,
		&lng, &lat, &issue.Address, &status, &images, &issue.ReporterID,
		&issue.AIScore, &suggestions, &issue.VotesCount,
		&issue.CreatedAt, &issue.UpdatedAt)
	if err != nil {
		return nil, err
	}
	issue.Category = Category(category)
	issue.Status = Status(status)
	issue.Location = NewLocation(lng, lat)
	if len(images) > 0 {
		if err := json.Unmarshal(images, &issue.Images); err != nil {
			return nil, err
		}
	}
	if len(suggestions) > 0 {
		if err := json.Unmarshal(suggestions, &issue.AISuggestions); err != nil {
			return nil, err
		}
	}
	return &issue, nil
}

func issueStoreErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
