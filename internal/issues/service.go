package issues

import (
	"context"
	"fmt"
	"io"
	"unicode/utf8"

	"voiceup.org/internal/auth"
	"voiceup.org/internal/ids"
)

// MaxPhotos caps how many photos a single report may attach.
const MaxPhotos = 5

// Upload is one photo attached to a report.
type Upload struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

// Uploader relays photo bytes to object storage and returns a public URL.
type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, content io.Reader) (string, error)
}

// Scorer estimates issue severity from the description text.
type Scorer interface {
	Assess(ctx context.Context, description string) (score int, suggestions []string, err error)
}

// Service owns issue creation, listing and updates. Uploader and Scorer
// are optional collaborators; when absent, reports carry no photos and a
// zero severity score.
type Service struct {
	store    Store
	uploader Uploader
	scorer   Scorer
}

type ServiceOption func(*Service)

func WithUploader(u Uploader) ServiceOption {
	return func(s *Service) { s.uploader = u }
}

func WithScorer(sc Scorer) ServiceOption {
	return func(s *Service) { s.scorer = sc }
}

func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput carries a new report. Field limits mirror the public form.
type CreateInput struct {
	Title       string   `validate:"required,min=5,max=100"`
	Description string   `validate:"required,min=10,max=1000"`
	Category    Category `validate:"required"`
	Address     string   `validate:"required,min=5,max=200"`
	Location    Location
	Photos      []Upload
}

// Create uploads the attached photos, scores the description and persists
// the issue. A scoring failure degrades to score zero rather than losing
// the report.
func (s *Service) Create(ctx context.Context, reporter *auth.Account, input CreateInput) (*Issue, error) {
	if !input.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, input.Category)
	}
	if !input.Location.Valid() {
		return nil, fmt.Errorf("%w: location must be a point with lng in [-180,180] and lat in [-90,90]", ErrInvalidInput)
	}
	if len(input.Photos) > MaxPhotos {
		return nil, fmt.Errorf("%w: at most %d photos", ErrInvalidInput, MaxPhotos)
	}

	images := make([]string, 0, len(input.Photos))
	if s.uploader != nil {
		for _, photo := range input.Photos {
			url, err := s.uploader.Upload(ctx, photo.Filename, photo.ContentType, photo.Content)
			if err != nil {
				return nil, fmt.Errorf("upload photo: %w", err)
			}
			images = append(images, url)
		}
	}

	var (
		score       int
		suggestions []string
	)
	if s.scorer != nil {
		if got, actions, err := s.scorer.Assess(ctx, input.Description); err == nil {
			score, suggestions = got, actions
		}
	}

	issue := &Issue{
		ID:            ids.New(),
		Title:         input.Title,
		Description:   input.Description,
		Category:      input.Category,
		Location:      input.Location,
		Address:       input.Address,
		Status:        StatusReported,
		Images:        images,
		ReporterID:    reporter.ID,
		AIScore:       score,
		AISuggestions: suggestions,
	}
	if err := s.store.Create(ctx, issue); err != nil {
		return nil, err
	}
	return issue, nil
}

func (s *Service) List(ctx context.Context, filter Filter) ([]*Issue, error) {
	return s.store.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id string) (*Issue, error) {
	return s.store.FindByID(ctx, id)
}

// Patch is a partial update. Nil fields are left untouched; lng and lat
// travel as a pair. Score, votes and reporter are not patchable.
type Patch struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Address     *string  `json:"address"`
	Status      *string  `json:"status"`
	Lng         *float64 `json:"lng"`
	Lat         *float64 `json:"lat"`
}

// Update applies a patch to the identified issue. The reporter may update
// their own reports; moderator, department and admin roles may update any.
// The returned bool reports whether anything changed.
func (s *Service) Update(ctx context.Context, actor *auth.Account, id string, patch Patch) (*Issue, bool, error) {
	issue, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if issue.ReporterID != actor.ID && !actor.Role.Elevated() {
		return nil, false, ErrForbidden
	}

	changed := false
	if patch.Title != nil {
		if !lengthBetween(*patch.Title, 5, 100) {
			return nil, false, fmt.Errorf("%w: title length is out of range", ErrInvalidPatch)
		}
		if *patch.Title != issue.Title {
			issue.Title = *patch.Title
			changed = true
		}
	}
	if patch.Description != nil {
		if !lengthBetween(*patch.Description, 10, 1000) {
			return nil, false, fmt.Errorf("%w: description length is out of range", ErrInvalidPatch)
		}
		if *patch.Description != issue.Description {
			issue.Description = *patch.Description
			changed = true
		}
	}
	if patch.Address != nil {
		if !lengthBetween(*patch.Address, 5, 200) {
			return nil, false, fmt.Errorf("%w: address length is out of range", ErrInvalidPatch)
		}
		if *patch.Address != issue.Address {
			issue.Address = *patch.Address
			changed = true
		}
	}
	if patch.Category != nil {
		category := Category(*patch.Category)
		if !category.Valid() {
			return nil, false, fmt.Errorf("%w: unknown category %q", ErrInvalidPatch, *patch.Category)
		}
		if category != issue.Category {
			issue.Category = category
			changed = true
		}
	}
	if patch.Status != nil {
		status := Status(*patch.Status)
		if !status.Valid() {
			return nil, false, fmt.Errorf("%w: unknown status %q", ErrInvalidPatch, *patch.Status)
		}
		if status != issue.Status {
			issue.Status = status
			changed = true
		}
	}
	if patch.Lng != nil || patch.Lat != nil {
		if patch.Lng == nil || patch.Lat == nil {
			return nil, false, fmt.Errorf("%w: lng and lat must be provided together", ErrInvalidPatch)
		}
		location := NewLocation(*patch.Lng, *patch.Lat)
		if !location.Valid() {
			return nil, false, fmt.Errorf("%w: coordinates out of range", ErrInvalidPatch)
		}
		if location != issue.Location {
			issue.Location = location
			changed = true
		}
	}

	if !changed {
		return issue, false, nil
	}
	if err := s.store.Save(ctx, issue); err != nil {
		return nil, false, err
	}
	return issue, true, nil
}

// lengthBetween counts runes against the same bounds CreateInput declares.
func lengthBetween(s string, lo, hi int) bool {
	n := utf8.RuneCountInString(s)
	return n >= lo && n <= hi
}
