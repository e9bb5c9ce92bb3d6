package issues

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"voiceup.org/internal/auth"
)

type fakeUploader struct {
	uploaded []string
	err      error
}

func (f *fakeUploader) Upload(ctx context.Context, filename, contentType string, content io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploaded = append(f.uploaded, filename)
	return "https://cdn.example.com/voiceup/" + filename, nil
}

type fakeScorer struct {
	score       int
	suggestions []string
	err         error
}

func (f *fakeScorer) Assess(ctx context.Context, description string) (int, []string, error) {
	if f.err != nil {
		return 0, nil, f.err
	}
	return f.score, f.suggestions, nil
}

func validInput() CreateInput {
	return CreateInput{
		Title:       "Broken streetlight",
		Description: "The light on the corner has been out for a week.",
		Category:    CategoryLighting,
		Address:     "123 Main St",
		Location:    NewLocation(-73.98, 40.75),
	}
}

func reporter() *auth.Account {
	return &auth.Account{ID: "acct-reporter", Role: auth.RoleUser}
}

func TestCreateUploadsAndScores(t *testing.T) {
	uploader := &fakeUploader{}
	scorer := &fakeScorer{score: 72, suggestions: []string{"dispatch crew", "notify utility"}}
	svc := NewService(NewMemoryStore(), WithUploader(uploader), WithScorer(scorer))

	input := validInput()
	input.Photos = []Upload{
		{Filename: "a.jpg", ContentType: "image/jpeg", Content: strings.NewReader("a")},
		{Filename: "b.jpg", ContentType: "image/jpeg", Content: strings.NewReader("b")},
	}

	issue, err := svc.Create(context.Background(), reporter(), input)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if issue.Status != StatusReported {
		t.Fatalf("expected initial status reported, got %s", issue.Status)
	}
	if issue.ReporterID != "acct-reporter" {
		t.Fatalf("unexpected reporter: %s", issue.ReporterID)
	}
	if len(issue.Images) != 2 || !strings.HasSuffix(issue.Images[0], "a.jpg") {
		t.Fatalf("unexpected images: %v", issue.Images)
	}
	if issue.AIScore != 72 || len(issue.AISuggestions) != 2 {
		t.Fatalf("assessment not recorded: %d %v", issue.AIScore, issue.AISuggestions)
	}
}

func TestCreateDegradesWhenScoringFails(t *testing.T) {
	scorer := &fakeScorer{err: errors.New("upstream timeout")}
	svc := NewService(NewMemoryStore(), WithScorer(scorer))

	issue, err := svc.Create(context.Background(), reporter(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if issue.AIScore != 0 || len(issue.AISuggestions) != 0 {
		t.Fatalf("scoring failure must degrade to zero, got %d %v", issue.AIScore, issue.AISuggestions)
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	svc := NewService(NewMemoryStore())

	badCategory := validInput()
	badCategory.Category = "potholes"
	if _, err := svc.Create(context.Background(), reporter(), badCategory); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for category, got %v", err)
	}

	badLocation := validInput()
	badLocation.Location = Location{Type: "Point", Coordinates: [2]float64{200, 40}}
	if _, err := svc.Create(context.Background(), reporter(), badLocation); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for location, got %v", err)
	}

	tooMany := validInput()
	for i := 0; i <= MaxPhotos; i++ {
		tooMany.Photos = append(tooMany.Photos, Upload{
			Filename: fmt.Sprintf("p%d.jpg", i), Content: strings.NewReader("x"),
		})
	}
	if _, err := svc.Create(context.Background(), reporter(), tooMany); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for photo count, got %v", err)
	}
}

func seedIssue(t *testing.T, store *MemoryStore, mutate func(*Issue)) *Issue {
	t.Helper()
	issue := &Issue{
		ID:          "issue-" + fmt.Sprint(time.Now().UnixNano()),
		Title:       "Generic issue",
		Description: "Some description of the issue",
		Category:    CategoryRoad,
		Location:    NewLocation(-73.98, 40.75),
		Address:     "123 Main St",
		Status:      StatusReported,
		ReporterID:  "acct-reporter",
	}
	if mutate != nil {
		mutate(issue)
	}
	if err := store.Create(context.Background(), issue); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return issue
}

func TestListFiltersAndSorts(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)

	seedIssue(t, store, func(i *Issue) {
		i.ID = "inside-low"
		i.Category = CategoryWaste
		i.AIScore = 10
		i.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	})
	seedIssue(t, store, func(i *Issue) {
		i.ID = "inside-high"
		i.Category = CategoryWaste
		i.AIScore = 90
		i.CreatedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	})
	seedIssue(t, store, func(i *Issue) {
		i.ID = "outside"
		i.Category = CategoryWaste
		i.Location = NewLocation(-118.24, 34.05)
	})
	seedIssue(t, store, func(i *Issue) {
		i.ID = "other-category"
		i.Category = CategoryRoad
	})

	box, err := ParseBBox("-74.10,40.60,-73.70,40.90")
	if err != nil {
		t.Fatalf("ParseBBox: %v", err)
	}
	listed, err := svc.List(context.Background(), Filter{
		Category: CategoryWaste,
		BBox:     box,
		Sort:     SortOrder{Field: "aiScore", Descending: true},
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(listed))
	}
	if listed[0].ID != "inside-high" || listed[1].ID != "inside-low" {
		t.Fatalf("unexpected order: %s, %s", listed[0].ID, listed[1].ID)
	}
}

func TestListDefaultSortNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)

	seedIssue(t, store, func(i *Issue) {
		i.ID = "older"
		i.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	})
	seedIssue(t, store, func(i *Issue) {
		i.ID = "newer"
		i.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	})

	listed, err := svc.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if listed[0].ID != "newer" || listed[1].ID != "older" {
		t.Fatalf("unexpected order: %s, %s", listed[0].ID, listed[1].ID)
	}
}

func strptr(v string) *string   { return &v }
func f64ptr(v float64) *float64 { return &v }

func TestUpdateByReporter(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	issue := seedIssue(t, store, nil)

	updated, changed, err := svc.Update(context.Background(), reporter(), issue.ID, Patch{
		Title:   strptr("Updated title"),
		Address: strptr("99 New Address"),
		Status:  strptr("in_progress"),
		Lng:     f64ptr(-73.99),
		Lat:     f64ptr(40.76),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !changed {
		t.Fatal("expected changes to be reported")
	}
	if updated.Title != "Updated title" || updated.Status != StatusInProgress {
		t.Fatalf("patch not applied: %+v", updated)
	}
	if updated.Location.Lng() != -73.99 || updated.Location.Lat() != 40.76 {
		t.Fatalf("location not applied: %+v", updated.Location)
	}

	stored, err := store.FindByID(context.Background(), issue.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if stored.Title != "Updated title" {
		t.Fatal("patch not persisted")
	}
}

func TestUpdatePermissions(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	issue := seedIssue(t, store, nil)

	stranger := &auth.Account{ID: "acct-other", Role: auth.RoleUser}
	if _, _, err := svc.Update(context.Background(), stranger, issue.ID, Patch{Title: strptr("Hacked")}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	moderator := &auth.Account{ID: "acct-mod", Role: auth.RoleModerator}
	updated, _, err := svc.Update(context.Background(), moderator, issue.ID, Patch{Status: strptr("resolved")})
	if err != nil {
		t.Fatalf("moderator update: %v", err)
	}
	if updated.Status != StatusResolved {
		t.Fatalf("expected resolved, got %s", updated.Status)
	}
}

func TestUpdateRejectsInvalidPatch(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	issue := seedIssue(t, store, nil)

	if _, _, err := svc.Update(context.Background(), reporter(), issue.ID, Patch{Status: strptr("done")}); !errors.Is(err, ErrInvalidPatch) {
		t.Fatalf("expected ErrInvalidPatch for status, got %v", err)
	}
	if _, _, err := svc.Update(context.Background(), reporter(), issue.ID, Patch{Lng: f64ptr(-73.9)}); !errors.Is(err, ErrInvalidPatch) {
		t.Fatalf("expected ErrInvalidPatch for lone lng, got %v", err)
	}
	if _, _, err := svc.Update(context.Background(), reporter(), issue.ID, Patch{Lng: f64ptr(200), Lat: f64ptr(40)}); !errors.Is(err, ErrInvalidPatch) {
		t.Fatalf("expected ErrInvalidPatch for out-of-range lng, got %v", err)
	}
}

func TestUpdateEnforcesFieldBounds(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	issue := seedIssue(t, store, nil)

	cases := []Patch{
		{Title: strptr("")},
		{Title: strptr("Fix")},
		{Title: strptr(strings.Repeat("t", 101))},
		{Description: strptr("too short")},
		{Description: strptr(strings.Repeat("d", 1001))},
		{Address: strptr("")},
		{Address: strptr(strings.Repeat("a", 201))},
	}
	for i, patch := range cases {
		if _, _, err := svc.Update(context.Background(), reporter(), issue.ID, patch); !errors.Is(err, ErrInvalidPatch) {
			t.Fatalf("case %d: expected ErrInvalidPatch, got %v", i, err)
		}
	}

	stored, err := store.FindByID(context.Background(), issue.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if stored.Title != issue.Title || stored.Address != issue.Address {
		t.Fatal("rejected patches must leave the issue untouched")
	}
}

func TestUpdateEmptyPatchIsNoop(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	issue := seedIssue(t, store, nil)

	returned, changed, err := svc.Update(context.Background(), reporter(), issue.ID, Patch{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if changed {
		t.Fatal("empty patch must not report changes")
	}
	if returned.ID != issue.ID {
		t.Fatalf("unexpected issue returned: %s", returned.ID)
	}
}

func TestUpdateMissingIssue(t *testing.T) {
	svc := NewService(NewMemoryStore())
	if _, _, err := svc.Update(context.Background(), reporter(), "nope", Patch{Title: strptr("x")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
