package wizard

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetdesk-backend/internal/asset"
	"assetdesk-backend/internal/notification"
)

// mockAPI is a mock implementation of the AssetAPI interface.
type mockAPI struct {
	CreateAssetFunc    func(ctx context.Context, p asset.Payload) (asset.Record, error)
	UpdateAssetFunc    func(ctx context.Context, p asset.Payload) (asset.Record, error)
	DeleteDocumentFunc func(ctx context.Context, id asset.Scalar) error

	creates, updates, deletes int32
}

func (m *mockAPI) CreateAsset(ctx context.Context, p asset.Payload) (asset.Record, error) {
	atomic.AddInt32(&m.creates, 1)
	if m.CreateAssetFunc == nil {
		return asset.Record{ID: "100"}, nil
	}
	return m.CreateAssetFunc(ctx, p)
}

func (m *mockAPI) UpdateAsset(ctx context.Context, p asset.Payload) (asset.Record, error) {
	atomic.AddInt32(&m.updates, 1)
	if m.UpdateAssetFunc == nil {
		return asset.Record{ID: p.ID}, nil
	}
	return m.UpdateAssetFunc(ctx, p)
}

func (m *mockAPI) DeleteDocument(ctx context.Context, id asset.Scalar) error {
	atomic.AddInt32(&m.deletes, 1)
	if m.DeleteDocumentFunc == nil {
		return nil
	}
	return m.DeleteDocumentFunc(ctx, id)
}

// mockDropdowns is a mock implementation of the Dropdowns interface.
type mockDropdowns struct {
	CompaniesErr, PropertiesErr, ProjectsErr error
}

func (m *mockDropdowns) ListCompanies(ctx context.Context) ([]asset.Option, error) {
	return []asset.Option{{ID: "1", Name: "Acme"}}, m.CompaniesErr
}

func (m *mockDropdowns) ListProperties(ctx context.Context) ([]asset.Option, error) {
	return []asset.Option{{ID: "5", Name: "Tower"}}, m.PropertiesErr
}

func (m *mockDropdowns) ListProjects(ctx context.Context) ([]asset.Option, error) {
	return []asset.Option{{ID: "9", Name: "Metro"}}, m.ProjectsErr
}

type mockPublisher struct {
	mu     sync.Mutex
	events []notification.Event
}

func (m *mockPublisher) Dispatch(ev notification.Event) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return true
}

type serverError struct{ msg string }

func (e serverError) Error() string         { return "upstream: " + e.msg }
func (e serverError) ServerMessage() string { return e.msg }

type fixture struct {
	api       *mockAPI
	feed      *notification.Feed
	publisher *mockPublisher
	results   []Result
}

func newFixture() *fixture {
	return &fixture{api: &mockAPI{}, feed: notification.NewFeed(), publisher: &mockPublisher{}}
}

func (f *fixture) open(t *testing.T, existing []asset.Record, record *asset.Record) *Wizard {
	t.Helper()
	return New(context.Background(), Config{
		API:       f.api,
		Dropdowns: &mockDropdowns{},
		Sink:      f.feed,
		Publisher: f.publisher,
		Existing:  existing,
		OnSuccess: func(r Result) { f.results = append(f.results, r) },
	}, record)
}

func fillBasics(t *testing.T, w *Wizard) {
	t.Helper()
	require.NoError(t, w.Set(asset.FieldName, "Laptop"))
	require.NoError(t, w.Set(asset.FieldCompany, "1"))
	require.NoError(t, w.Set(asset.FieldPurchaseDate, "2024-01-01"))
	require.NoError(t, w.Set(asset.FieldProperty, "5"))
}

func toStep(t *testing.T, w *Wizard, step Step) {
	t.Helper()
	for w.View().Step < step {
		require.NoError(t, w.Next(context.Background()))
		require.Empty(t, w.View().Errors)
	}
}

func TestNew(t *testing.T) {
	t.Run("add mode loads dropdowns", func(t *testing.T) {
		f := newFixture()
		w := f.open(t, nil, nil)
		v := w.View()

		assert.Equal(t, ModeAdd, v.Mode)
		assert.Equal(t, StepBasicDetails, v.Step)
		assert.Equal(t, "Basic Details", v.StepName)
		assert.True(t, v.Draft.IsActive)
		assert.Len(t, v.Draft.ServiceSchedule, 1)
		assert.Equal(t, []asset.Option{{ID: "1", Name: "Acme"}}, v.Options.Companies)
		assert.Len(t, v.Options.Properties, 1)
		assert.Len(t, v.Options.Projects, 1)
		assert.Empty(t, f.feed.Peek())
	})

	t.Run("failed lists stay empty with one notification", func(t *testing.T) {
		f := newFixture()
		w := New(context.Background(), Config{
			API:       f.api,
			Dropdowns: &mockDropdowns{PropertiesErr: errors.New("boom"), ProjectsErr: errors.New("boom")},
			Sink:      f.feed,
		}, nil)
		v := w.View()

		assert.Len(t, v.Options.Companies, 1)
		assert.Equal(t, []asset.Option{}, v.Options.Properties)
		assert.Equal(t, []asset.Option{}, v.Options.Projects)
		assert.Equal(t, []notification.Toast{{Message: MsgDropdownsFailed, Severity: notification.SeverityError}}, f.feed.Drain())
	})

	t.Run("edit mode seeds the draft", func(t *testing.T) {
		f := newFixture()
		rec := asset.Record{
			ID: "7", Name: "Laptop", Company: "1", Project: "9", PurchaseDate: "2024-01-01T00:00:00Z",
			Documents: []asset.Document{{ID: "3", URL: "/media/a.pdf"}},
		}
		w := f.open(t, nil, &rec)
		v := w.View()

		assert.Equal(t, ModeEdit, v.Mode)
		assert.Equal(t, asset.LinkProject, v.Draft.LinkType)
		assert.Equal(t, "2024-01-01", v.Draft.PurchaseDate)
		assert.Equal(t, []asset.Document{{ID: "3", URL: "/media/a.pdf"}}, v.ExistingDocuments)
	})
}

func TestNext_BasicDetails(t *testing.T) {
	existing := []asset.Record{{ID: "7", Name: "Desk", TagID: "A100"}}

	tests := []struct {
		name   string
		record *asset.Record
		set    map[asset.Field]string
		want   asset.Errors
	}{
		{
			name: "missing name only",
			set:  map[asset.Field]string{asset.FieldName: "", asset.FieldCompany: "1", asset.FieldPurchaseDate: "2024-01-01", asset.FieldProperty: "5"},
			want: asset.Errors{"name": "Asset Name is required"},
		},
		{
			name: "warranty before purchase",
			set: map[asset.Field]string{asset.FieldName: "Laptop", asset.FieldCompany: "1", asset.FieldPurchaseDate: "2024-06-01",
				asset.FieldWarrantyExpiry: "2024-01-01", asset.FieldProperty: "5"},
			want: asset.Errors{"warranty_expiry": "Warranty must be after purchase date"},
		},
		{
			name: "duplicate tag in create mode",
			set: map[asset.Field]string{asset.FieldName: "Laptop", asset.FieldCompany: "1", asset.FieldPurchaseDate: "2024-01-01",
				asset.FieldProperty: "5", asset.FieldTagID: "A100"},
			want: asset.Errors{"tag_id": "Tag ID must be unique"},
		},
		{
			name:   "same tag in edit mode",
			record: &existing[0],
			set:    map[asset.Field]string{asset.FieldCompany: "1", asset.FieldPurchaseDate: "2024-01-01", asset.FieldProperty: "5"},
			want:   asset.Errors{},
		},
		{
			name: "no link",
			set:  map[asset.Field]string{asset.FieldName: "Laptop", asset.FieldCompany: "1", asset.FieldPurchaseDate: "2024-01-01"},
			want: asset.Errors{asset.KeyProjectProperty: "Either Property or Project is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			w := f.open(t, existing, tt.record)
			for field, value := range tt.set {
				require.NoError(t, w.Set(field, value))
			}

			require.NoError(t, w.Next(context.Background()))
			v := w.View()
			assert.Equal(t, tt.want, v.Errors)
			if len(tt.want) > 0 {
				assert.Equal(t, StepBasicDetails, v.Step)
				for key := range tt.want {
					assert.True(t, v.Touched[key], key)
				}
			} else {
				assert.Equal(t, StepServiceDues, v.Step)
			}
		})
	}
}

func TestSet(t *testing.T) {
	f := newFixture()
	w := f.open(t, nil, nil)

	require.NoError(t, w.Next(context.Background()))
	require.Contains(t, w.View().Errors, "name")
	require.Contains(t, w.View().Errors, asset.KeyProjectProperty)

	require.NoError(t, w.Set(asset.FieldName, "Laptop"))
	assert.NotContains(t, w.View().Errors, "name")
	assert.Contains(t, w.View().Errors, "company")

	require.NoError(t, w.Set(asset.FieldProject, "9"))
	assert.NotContains(t, w.View().Errors, asset.KeyProjectProperty)

	assert.ErrorIs(t, w.Set(asset.Field("serial"), "x"), ErrUnknownField)
	assert.ErrorIs(t, w.Set(asset.FieldIsActive, "maybe"), asset.ErrInvalidValue)
	require.NoError(t, w.Set(asset.FieldIsActive, "false"))
	assert.False(t, w.View().Draft.IsActive)
}

func TestNext_ServiceDuesGate(t *testing.T) {
	f := newFixture()
	w := f.open(t, nil, nil)
	fillBasics(t, w)
	toStep(t, w, StepServiceDues)

	require.NoError(t, w.UpdateEntry(0, asset.ScheduleDueDate, "2024-01-01"))
	require.NoError(t, w.Next(context.Background()))
	v := w.View()
	assert.Equal(t, StepServiceDues, v.Step)
	assert.Equal(t, asset.Errors{"service_0": "Complete both fields for service due"}, v.Errors)

	require.NoError(t, w.UpdateEntry(0, asset.ScheduleDescription, "Oil change"))
	assert.Empty(t, w.View().Errors)
	require.NoError(t, w.Next(context.Background()))
	assert.Equal(t, StepDocuments, w.View().Step)
}

func TestBack(t *testing.T) {
	f := newFixture()
	w := f.open(t, nil, nil)
	require.NoError(t, w.Back())
	assert.Equal(t, StepBasicDetails, w.View().Step)

	fillBasics(t, w)
	toStep(t, w, StepDocuments)
	require.NoError(t, w.Back())
	assert.Equal(t, StepServiceDues, w.View().Step)
}

func TestServiceSchedule(t *testing.T) {
	t.Run("never empty", func(t *testing.T) {
		f := newFixture()
		w := f.open(t, nil, nil)
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 300; i++ {
			if rng.Intn(3) == 0 {
				require.NoError(t, w.AddEntry())
			} else {
				_ = w.RemoveEntry(rng.Intn(len(w.View().Draft.ServiceSchedule)))
			}
			require.GreaterOrEqual(t, len(w.View().Draft.ServiceSchedule), 1)
		}
	})

	t.Run("removing the last entry warns once", func(t *testing.T) {
		f := newFixture()
		w := f.open(t, nil, nil)
		require.NoError(t, w.UpdateEntry(0, asset.ScheduleDescription, "keep me"))

		require.NoError(t, w.RemoveEntry(0))
		assert.Equal(t, []asset.ServiceDue{{Description: "keep me"}}, w.View().Draft.ServiceSchedule)
		assert.Equal(t, []notification.Toast{{Message: asset.LastEntryMessage, Severity: notification.SeverityWarning}}, f.feed.Drain())
	})

	t.Run("out of range", func(t *testing.T) {
		f := newFixture()
		w := f.open(t, nil, nil)
		require.NoError(t, w.AddEntry())
		assert.ErrorIs(t, w.RemoveEntry(5), asset.ErrEntryIndex)
		assert.ErrorIs(t, w.UpdateEntry(5, asset.ScheduleDueDate, "2024-01-01"), asset.ErrEntryIndex)
	})

	t.Run("errors follow their entry", func(t *testing.T) {
		f := newFixture()
		w := f.open(t, nil, nil)
		fillBasics(t, w)
		toStep(t, w, StepServiceDues)
		require.NoError(t, w.AddEntry())
		require.NoError(t, w.AddEntry())
		require.NoError(t, w.UpdateEntry(0, asset.ScheduleDueDate, "2024-01-01"))
		require.NoError(t, w.UpdateEntry(2, asset.ScheduleDescription, "Filter"))

		require.NoError(t, w.Next(context.Background()))
		require.Len(t, w.View().Errors, 2)

		require.NoError(t, w.RemoveEntry(0))
		assert.Equal(t, asset.Errors{"service_1": "Complete both fields for service due"}, w.View().Errors)
	})
}

func TestAttachFiles(t *testing.T) {
	pdf := asset.NewAttachment("invoice.pdf", "application/pdf", []byte("%PDF-1.4"))
	png := asset.NewAttachment("photo.png", "image/png", []byte("\x89PNG"))

	tests := []struct {
		name    string
		batch   []asset.Attachment
		message string
	}{
		{
			name:    "too large",
			batch:   []asset.Attachment{png, asset.NewAttachment("scan.pdf", "application/pdf", make([]byte, 6*1024*1024))},
			message: `File "scan.pdf" exceeds 5MB limit.`,
		},
		{
			name:    "wrong type",
			batch:   []asset.Attachment{asset.NewAttachment("list.csv", "text/csv", []byte("a,b"))},
			message: "Only PDF, JPG, or PNG files are allowed.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			w := f.open(t, nil, nil)
			require.NoError(t, w.AttachFiles([]asset.Attachment{pdf}))

			require.NoError(t, w.AttachFiles(tt.batch))
			assert.Equal(t, []FileInfo{{Name: "invoice.pdf", Size: 8, ContentType: "application/pdf"}}, w.View().Files)
			assert.Equal(t, []notification.Toast{{Message: tt.message, Severity: notification.SeverityError}}, f.feed.Drain())
		})
	}

	t.Run("valid batch replaces the set", func(t *testing.T) {
		f := newFixture()
		w := f.open(t, nil, nil)
		require.NoError(t, w.AttachFiles([]asset.Attachment{pdf}))
		require.NoError(t, w.AttachFiles([]asset.Attachment{png}))
		assert.Equal(t, []FileInfo{{Name: "photo.png", Size: 4, ContentType: "image/png"}}, w.View().Files)
		assert.Empty(t, f.feed.Drain())
	})
}

func TestSubmit(t *testing.T) {
	t.Run("incomplete service entry blocks submit", func(t *testing.T) {
		f := newFixture()
		w := f.open(t, nil, nil)
		fillBasics(t, w)
		require.NoError(t, w.UpdateEntry(0, asset.ScheduleDueDate, "2024-01-01"))

		require.NoError(t, w.Submit(context.Background()))
		assert.Equal(t, asset.Errors{"service_0": "Complete both fields for service due"}, w.View().Errors)
		assert.True(t, w.View().Touched["service_0"])
		assert.Zero(t, atomic.LoadInt32(&f.api.creates))
		assert.False(t, w.Closed())
	})

	t.Run("create without id", func(t *testing.T) {
		f := newFixture()
		var got asset.Payload
		f.api.CreateAssetFunc = func(ctx context.Context, p asset.Payload) (asset.Record, error) {
			got = p
			return asset.Record{ID: "100"}, nil
		}
		w := f.open(t, nil, nil)
		fillBasics(t, w)
		require.NoError(t, w.UpdateEntry(0, asset.ScheduleDueDate, "2024-01-01"))
		require.NoError(t, w.UpdateEntry(0, asset.ScheduleDescription, "Oil change"))
		toStep(t, w, StepDocuments)
		require.NoError(t, w.AttachFiles([]asset.Attachment{asset.NewAttachment("a.pdf", "application/pdf", []byte("%PDF"))}))

		require.NoError(t, w.Next(context.Background()))

		assert.Equal(t, int32(1), atomic.LoadInt32(&f.api.creates))
		assert.Zero(t, atomic.LoadInt32(&f.api.updates))
		assert.Equal(t, asset.ScheduleJSON(`[{"due_date":"2024-01-01","description":"Oil change"}]`), got.ServiceDues)
		assert.Len(t, got.Files, 1)
		assert.True(t, w.Closed())
		assert.Equal(t, []notification.Toast{{Message: MsgCreated, Severity: notification.SeveritySuccess}}, f.feed.Drain())
		require.Len(t, f.results, 1)
		assert.True(t, f.results[0].Created)
		assert.Equal(t, asset.Scalar("100"), f.results[0].Record.ID)
		require.Len(t, f.publisher.events, 1)
		assert.Equal(t, notification.Event{CompanyID: "1", AssetID: "100", Message: MsgCreated, Severity: notification.SeveritySuccess}, f.publisher.events[0])
	})

	t.Run("update with id", func(t *testing.T) {
		f := newFixture()
		rec := asset.Record{ID: "7", Name: "Laptop", Company: "1", Property: "5", PurchaseDate: "2024-01-01", TagID: "A100"}
		w := f.open(t, []asset.Record{rec}, &rec)

		require.NoError(t, w.Submit(context.Background()))
		assert.Equal(t, int32(1), atomic.LoadInt32(&f.api.updates))
		assert.Zero(t, atomic.LoadInt32(&f.api.creates))
		assert.Equal(t, []notification.Toast{{Message: MsgUpdated, Severity: notification.SeveritySuccess}}, f.feed.Drain())
		require.Len(t, f.results, 1)
		assert.False(t, f.results[0].Created)
	})

	t.Run("failure keeps the wizard open", func(t *testing.T) {
		tests := []struct {
			name    string
			err     error
			message string
		}{
			{"server message", serverError{"Tag already used"}, "Tag already used"},
			{"plain error", errors.New("connection refused"), MsgSaveFailed},
			{"empty server message", serverError{""}, MsgSaveFailed},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture()
				f.api.CreateAssetFunc = func(ctx context.Context, p asset.Payload) (asset.Record, error) {
					return asset.Record{}, tt.err
				}
				w := f.open(t, nil, nil)
				fillBasics(t, w)
				toStep(t, w, StepDocuments)
				require.NoError(t, w.AttachFiles([]asset.Attachment{asset.NewAttachment("a.pdf", "application/pdf", []byte("%PDF"))}))
				before := w.View()

				require.NoError(t, w.Next(context.Background()))

				after := w.View()
				assert.Equal(t, before.Step, after.Step)
				assert.Equal(t, before.Files, after.Files)
				assert.False(t, after.Closed)
				assert.False(t, after.Submitting)
				assert.Equal(t, []notification.Toast{{Message: tt.message, Severity: notification.SeverityError}}, f.feed.Drain())
				assert.Empty(t, f.results)
			})
		}
	})

	t.Run("second submit while in flight is busy", func(t *testing.T) {
		f := newFixture()
		started, release := make(chan struct{}), make(chan struct{})
		f.api.CreateAssetFunc = func(ctx context.Context, p asset.Payload) (asset.Record, error) {
			close(started)
			<-release
			return asset.Record{ID: "1"}, nil
		}
		w := f.open(t, nil, nil)
		fillBasics(t, w)

		done := make(chan error, 1)
		go func() { done <- w.Submit(context.Background()) }()
		<-started

		assert.True(t, w.View().Submitting)
		assert.ErrorIs(t, w.Submit(context.Background()), ErrBusy)
		close(release)
		require.NoError(t, <-done)
		assert.Equal(t, int32(1), atomic.LoadInt32(&f.api.creates))
	})

	t.Run("late response after cancel is ignored", func(t *testing.T) {
		f := newFixture()
		started, release := make(chan struct{}), make(chan struct{})
		f.api.CreateAssetFunc = func(ctx context.Context, p asset.Payload) (asset.Record, error) {
			close(started)
			<-release
			return asset.Record{ID: "1"}, nil
		}
		w := f.open(t, nil, nil)
		fillBasics(t, w)

		done := make(chan error, 1)
		go func() { done <- w.Submit(context.Background()) }()
		<-started
		w.Cancel()
		close(release)

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("submit did not return")
		}
		assert.Empty(t, f.feed.Drain())
		assert.Empty(t, f.results)
		assert.ErrorIs(t, w.Submit(context.Background()), ErrClosed)
	})
}

func TestDeleteDocument(t *testing.T) {
	rec := asset.Record{
		ID: "7", Name: "Laptop", Company: "1", Property: "5", PurchaseDate: "2024-01-01",
		Documents: []asset.Document{{ID: "3", URL: "/media/a.pdf"}, {ID: "4", URL: "/media/b.png"}},
	}

	t.Run("success removes the document", func(t *testing.T) {
		f := newFixture()
		w := f.open(t, nil, &rec)

		require.NoError(t, w.DeleteDocument(context.Background(), "3"))
		assert.Equal(t, []asset.Document{{ID: "4", URL: "/media/b.png"}}, w.View().ExistingDocuments)
		assert.Equal(t, []notification.Toast{{Message: MsgDocumentDeleted, Severity: notification.SeveritySuccess}}, f.feed.Drain())
		assert.Len(t, f.publisher.events, 1)
	})

	t.Run("failure keeps the list", func(t *testing.T) {
		f := newFixture()
		f.api.DeleteDocumentFunc = func(ctx context.Context, id asset.Scalar) error { return errors.New("boom") }
		w := f.open(t, nil, &rec)

		require.NoError(t, w.DeleteDocument(context.Background(), "3"))
		assert.Len(t, w.View().ExistingDocuments, 2)
		assert.Equal(t, []notification.Toast{{Message: MsgDocumentFailed, Severity: notification.SeverityError}}, f.feed.Drain())
	})

	t.Run("unknown document", func(t *testing.T) {
		f := newFixture()
		w := f.open(t, nil, &rec)
		assert.ErrorIs(t, w.DeleteDocument(context.Background(), "99"), ErrUnknownDocument)
		assert.Zero(t, atomic.LoadInt32(&f.api.deletes))
	})

	t.Run("concurrent delete of the same document is busy", func(t *testing.T) {
		f := newFixture()
		started, release := make(chan struct{}), make(chan struct{})
		f.api.DeleteDocumentFunc = func(ctx context.Context, id asset.Scalar) error {
			close(started)
			<-release
			return nil
		}
		w := f.open(t, nil, &rec)

		done := make(chan error, 1)
		go func() { done <- w.DeleteDocument(context.Background(), "3") }()
		<-started
		assert.ErrorIs(t, w.DeleteDocument(context.Background(), "3"), ErrBusy)
		close(release)
		require.NoError(t, <-done)
	})
}

func TestClosedWizardRejectsChanges(t *testing.T) {
	f := newFixture()
	w := f.open(t, nil, nil)
	w.Cancel()

	assert.ErrorIs(t, w.Set(asset.FieldName, "x"), ErrClosed)
	assert.ErrorIs(t, w.Next(context.Background()), ErrClosed)
	assert.ErrorIs(t, w.Back(), ErrClosed)
	assert.ErrorIs(t, w.AddEntry(), ErrClosed)
	assert.ErrorIs(t, w.RemoveEntry(0), ErrClosed)
	assert.ErrorIs(t, w.AttachFiles(nil), ErrClosed)
	assert.True(t, w.View().Closed)
	assert.Zero(t, atomic.LoadInt32(&f.api.creates))
}
