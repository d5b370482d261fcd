package wizard

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"assetdesk-backend/internal/asset"
	"assetdesk-backend/internal/notification"
)

var (
	ErrUnknownField    = asset.ErrUnknownField
	ErrUnknownDocument = errors.New("unknown document")
	ErrBusy            = errors.New("operation already in progress")
	ErrClosed          = errors.New("wizard is closed")
)

// User-facing messages.
const (
	MsgCreated         = "Asset created successfully"
	MsgUpdated         = "Asset updated successfully"
	MsgSaveFailed      = "Failed to save asset"
	MsgDocumentDeleted = "Document deleted successfully"
	MsgDocumentFailed  = "Failed to delete document"
	MsgDropdownsFailed = "Failed to load dropdowns"
)

// AssetAPI is the part of the upstream the wizard writes to.
type AssetAPI interface {
	CreateAsset(ctx context.Context, p asset.Payload) (asset.Record, error)
	UpdateAsset(ctx context.Context, p asset.Payload) (asset.Record, error)
	DeleteDocument(ctx context.Context, id asset.Scalar) error
}

// Dropdowns provides the option lists of the Basic Details step.
type Dropdowns interface {
	ListCompanies(ctx context.Context) ([]asset.Option, error)
	ListProperties(ctx context.Context) ([]asset.Option, error)
	ListProjects(ctx context.Context) ([]asset.Option, error)
}

// Publisher receives asset events for push delivery. Dispatch must not block.
type Publisher interface {
	Dispatch(ev notification.Event) bool
}

// Options holds the dropdown lists.
type Options struct {
	Companies  []asset.Option `json:"companies"`
	Properties []asset.Option `json:"properties"`
	Projects   []asset.Option `json:"projects"`
}

// Result describes a saved asset.
type Result struct {
	Record  asset.Record
	Created bool
}

// Config wires a wizard to its collaborators. API and Sink are required.
type Config struct {
	API       AssetAPI
	Dropdowns Dropdowns
	Sink      notification.Sink
	Publisher Publisher
	// Existing is the asset collection tag uniqueness is checked against.
	Existing  []asset.Record
	OnSuccess func(Result)
	Log       *zap.Logger
}

// Wizard drives one draft through the form steps up to submission.
type Wizard struct {
	mu         sync.Mutex
	mode       Mode
	step       Step
	draft      asset.Draft
	errors     asset.Errors
	touched    map[string]bool
	options    Options
	existing   []asset.Record
	submitting bool
	deleting   map[asset.Scalar]bool
	closed     bool

	api       AssetAPI
	sink      notification.Sink
	publisher Publisher
	onSuccess func(Result)
	log       *zap.Logger
}

// New opens a wizard in add mode, or in edit mode when record is non-nil, and loads the dropdowns.
func New(ctx context.Context, cfg Config, record *asset.Record) *Wizard {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	w := &Wizard{
		mode:      ModeAdd,
		step:      StepBasicDetails,
		draft:     asset.NewDraft(),
		errors:    asset.Errors{},
		touched:   map[string]bool{},
		existing:  cfg.Existing,
		deleting:  map[asset.Scalar]bool{},
		api:       cfg.API,
		sink:      cfg.Sink,
		publisher: cfg.Publisher,
		onSuccess: cfg.OnSuccess,
		log:       log,
		options: Options{
			Companies:  []asset.Option{},
			Properties: []asset.Option{},
			Projects:   []asset.Option{},
		},
	}
	if record != nil {
		w.mode = ModeEdit
		w.draft = asset.DraftFromRecord(*record)
	}
	if cfg.Dropdowns != nil {
		w.loadDropdowns(ctx, cfg.Dropdowns)
	}
	return w
}

// loadDropdowns fetches the three lists concurrently. Lists that fail stay empty and a single
// error notification is emitted.
func (w *Wizard) loadDropdowns(ctx context.Context, d Dropdowns) {
	var opts Options
	var g errgroup.Group
	g.Go(func() error {
		list, err := d.ListCompanies(ctx)
		if err == nil {
			opts.Companies = list
		}
		return err
	})
	g.Go(func() error {
		list, err := d.ListProperties(ctx)
		if err == nil {
			opts.Properties = list
		}
		return err
	})
	g.Go(func() error {
		list, err := d.ListProjects(ctx)
		if err == nil {
			opts.Projects = list
		}
		return err
	})
	err := g.Wait()

	w.mu.Lock()
	if opts.Companies != nil {
		w.options.Companies = opts.Companies
	}
	if opts.Properties != nil {
		w.options.Properties = opts.Properties
	}
	if opts.Projects != nil {
		w.options.Projects = opts.Projects
	}
	w.mu.Unlock()

	if err != nil {
		w.log.Warn("failed to load dropdowns", zap.Error(err))
		w.notify(MsgDropdownsFailed, notification.SeverityError)
	}
}

func (w *Wizard) notify(message string, severity notification.Severity) {
	if w.sink != nil {
		w.sink.Notify(message, severity)
	}
}

// Set updates one draft field and clears the errors that field owns.
func (w *Wizard) Set(field asset.Field, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if err := w.draft.Set(field, value); err != nil {
		return err
	}
	w.errors.Clear(field.ErrorKeys()...)
	w.touched[string(field)] = true
	return nil
}

// Next validates the current step and advances. On the last step it submits.
// A validation refusal is not an error: the view carries the error set.
func (w *Wizard) Next(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}

	var errs asset.Errors
	switch w.step {
	case StepBasicDetails:
		errs = asset.ValidateBasicDetails(w.draft, w.existing)
	case StepServiceDues:
		errs = asset.ValidateServiceSchedule(w.draft)
	case StepDocuments:
		w.mu.Unlock()
		return w.Submit(ctx)
	}
	defer w.mu.Unlock()

	if !errs.Empty() {
		w.errors = errs
		w.touch(errs)
		return nil
	}
	w.errors = asset.Errors{}
	w.step++
	return nil
}

// Back moves to the previous step without validating.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.step > StepBasicDetails {
		w.step--
	}
	return nil
}

// Cancel discards the draft. Any request still in flight completes but is ignored.
func (w *Wizard) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

// Closed reports whether the wizard was cancelled or saved.
func (w *Wizard) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// AddEntry appends an empty service due entry.
func (w *Wizard) AddEntry() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.draft.AddEntry()
	return nil
}

// UpdateEntry sets one field of a service due entry.
func (w *Wizard) UpdateEntry(index int, field asset.ScheduleField, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if err := w.draft.UpdateEntry(index, field, value); err != nil {
		return err
	}
	w.errors.Clear(asset.ServiceKey(index))
	return nil
}

// RemoveEntry deletes a service due entry. Removing the last one is refused with a warning
// and is not an error.
func (w *Wizard) RemoveEntry(index int) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	err := w.draft.RemoveEntry(index)
	if err == nil {
		w.shiftServiceErrors(index)
	}
	w.mu.Unlock()

	if errors.Is(err, asset.ErrLastEntry) {
		w.notify(asset.LastEntryMessage, notification.SeverityWarning)
		return nil
	}
	return err
}

// shiftServiceErrors drops the error of a removed entry and renumbers the ones after it.
func (w *Wizard) shiftServiceErrors(removed int) {
	shifted := asset.Errors{}
	for key, msg := range w.errors {
		i, ok := serviceIndex(key)
		switch {
		case !ok || i < removed:
			shifted[key] = msg
		case i > removed:
			shifted[asset.ServiceKey(i-1)] = msg
		}
	}
	w.errors = shifted
}

func serviceIndex(key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, "service_")
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(rest)
	return i, err == nil
}

// AttachFiles validates one batch of new files. A valid batch replaces the current file set;
// an invalid one is rejected whole with one error notification.
func (w *Wizard) AttachFiles(batch []asset.Attachment) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	err := asset.ValidateBatch(batch)
	if err == nil {
		w.draft.Files = append([]asset.Attachment(nil), batch...)
		w.errors.Clear(asset.FormDocuments)
	}
	w.mu.Unlock()

	var attErr *asset.AttachmentError
	if errors.As(err, &attErr) {
		w.log.Info("attachment batch rejected", zap.String("file", attErr.File), zap.String("rule", string(attErr.Rule)))
		w.notify(attErr.Message(), notification.SeverityError)
		return nil
	}
	return err
}

// DeleteDocument removes a persisted document upstream right away. It is not part of submit.
func (w *Wizard) DeleteDocument(ctx context.Context, id asset.Scalar) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if !w.hasDocument(id) {
		w.mu.Unlock()
		return ErrUnknownDocument
	}
	if w.deleting[id] {
		w.mu.Unlock()
		return ErrBusy
	}
	w.deleting[id] = true
	company, assetID := w.draft.Company, w.draft.ID
	w.mu.Unlock()

	err := w.api.DeleteDocument(ctx, id)

	w.mu.Lock()
	delete(w.deleting, id)
	if w.closed {
		w.mu.Unlock()
		w.log.Info("ignoring document delete response for closed wizard", zap.String("document", id.String()))
		return nil
	}
	if err == nil {
		docs := w.draft.ExistingDocuments[:0:0]
		for _, doc := range w.draft.ExistingDocuments {
			if doc.ID != id {
				docs = append(docs, doc)
			}
		}
		w.draft.ExistingDocuments = docs
	}
	w.mu.Unlock()

	if err != nil {
		w.log.Warn("failed to delete document", zap.String("document", id.String()), zap.Error(err))
		w.notify(MsgDocumentFailed, notification.SeverityError)
		return nil
	}
	w.notify(MsgDocumentDeleted, notification.SeveritySuccess)
	w.publish(notification.Event{CompanyID: company, AssetID: assetID.String(), Message: MsgDocumentDeleted, Severity: notification.SeveritySuccess})
	return nil
}

func (w *Wizard) hasDocument(id asset.Scalar) bool {
	for _, doc := range w.draft.ExistingDocuments {
		if doc.ID == id {
			return true
		}
	}
	return false
}

// Submit runs the final validation and saves the asset. Upstream failures are reported as
// notifications and keep the wizard open; only misuse (closed, busy) returns an error.
func (w *Wizard) Submit(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if w.submitting {
		w.mu.Unlock()
		return ErrBusy
	}
	if errs := asset.ValidateSubmit(w.draft, w.existing); !errs.Empty() {
		w.errors = errs
		w.touch(errs)
		w.mu.Unlock()
		return nil
	}
	payload, err := asset.NewPayload(w.draft)
	if err != nil {
		w.mu.Unlock()
		w.log.Error("failed to build asset payload", zap.Error(err))
		w.notify(MsgSaveFailed, notification.SeverityError)
		return nil
	}
	w.submitting = true
	editing := w.draft.Editing()
	company := w.draft.Company
	w.mu.Unlock()

	var rec asset.Record
	if editing {
		rec, err = w.api.UpdateAsset(ctx, payload)
	} else {
		rec, err = w.api.CreateAsset(ctx, payload)
	}

	w.mu.Lock()
	w.submitting = false
	if w.closed {
		w.mu.Unlock()
		w.log.Info("ignoring submit response for closed wizard", zap.Bool("editing", editing))
		return nil
	}
	if err != nil {
		w.mu.Unlock()
		w.log.Warn("failed to save asset", zap.Bool("editing", editing), zap.Error(err))
		w.notify(saveErrorMessage(err), notification.SeverityError)
		return nil
	}
	w.closed = true
	w.errors = asset.Errors{}
	w.mu.Unlock()

	msg := MsgCreated
	if editing {
		msg = MsgUpdated
	}
	if rec.ID == "" {
		rec.ID = payload.ID
	}
	w.log.Info("asset saved", zap.String("asset_id", rec.ID.String()), zap.Bool("editing", editing))
	w.notify(msg, notification.SeveritySuccess)
	w.publish(notification.Event{CompanyID: company, AssetID: rec.ID.String(), Message: msg, Severity: notification.SeveritySuccess})
	if w.onSuccess != nil {
		w.onSuccess(Result{Record: rec, Created: !editing})
	}
	return nil
}

func (w *Wizard) publish(ev notification.Event) {
	if w.publisher != nil {
		w.publisher.Dispatch(ev)
	}
}

// saveErrorMessage prefers the message the server put in its error body.
func saveErrorMessage(err error) string {
	var srv interface{ ServerMessage() string }
	if errors.As(err, &srv) {
		if msg := srv.ServerMessage(); msg != "" {
			return msg
		}
	}
	return MsgSaveFailed
}

func (w *Wizard) touch(errs asset.Errors) {
	for k := range errs {
		w.touched[k] = true
	}
}
