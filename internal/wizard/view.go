package wizard

import "assetdesk-backend/internal/asset"

// Step is a wizard step, in order.
type Step int

const (
	StepBasicDetails Step = iota
	StepServiceDues
	StepDocuments
)

// StepNames are the labels of the steps, indexed by Step.
var StepNames = []string{"Basic Details", "Service Dues", "Documents"}

func (s Step) String() string {
	if s < 0 || int(s) >= len(StepNames) {
		return "Unknown"
	}
	return StepNames[s]
}

// Mode tells whether the wizard creates or edits an asset.
type Mode string

const (
	ModeAdd  Mode = "add"
	ModeEdit Mode = "edit"
)

// FileInfo describes a new file without its content.
type FileInfo struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// View is a snapshot of the wizard for rendering.
type View struct {
	Mode              Mode             `json:"mode"`
	Step              Step             `json:"step"`
	StepName          string           `json:"step_name"`
	Steps             []string         `json:"steps"`
	Draft             asset.Draft      `json:"draft"`
	Errors            asset.Errors     `json:"errors"`
	Touched           map[string]bool  `json:"touched"`
	Files             []FileInfo       `json:"files"`
	ExistingDocuments []asset.Document `json:"existing_documents"`
	Options           Options          `json:"options"`
	Submitting        bool             `json:"submitting"`
	Closed            bool             `json:"closed"`
}

// View returns a copy of the current state.
func (w *Wizard) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	draft := w.draft
	draft.ServiceSchedule = append([]asset.ServiceDue(nil), w.draft.ServiceSchedule...)
	draft.Files = nil
	draft.ExistingDocuments = nil

	errs := make(asset.Errors, len(w.errors))
	for k, v := range w.errors {
		errs[k] = v
	}
	touched := make(map[string]bool, len(w.touched))
	for k, v := range w.touched {
		touched[k] = v
	}
	files := make([]FileInfo, 0, len(w.draft.Files))
	for _, f := range w.draft.Files {
		files = append(files, FileInfo{Name: f.Name, Size: f.Size, ContentType: f.ContentType})
	}
	docs := append([]asset.Document{}, w.draft.ExistingDocuments...)

	return View{
		Mode:              w.mode,
		Step:              w.step,
		StepName:          w.step.String(),
		Steps:             StepNames,
		Draft:             draft,
		Errors:            errs,
		Touched:           touched,
		Files:             files,
		ExistingDocuments: docs,
		Options:           w.options,
		Submitting:        w.submitting,
		Closed:            w.closed,
	}
}

// Draft returns a copy of the draft, files included.
func (w *Wizard) Draft() asset.Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	d := w.draft
	d.ServiceSchedule = append([]asset.ServiceDue(nil), w.draft.ServiceSchedule...)
	d.Files = append([]asset.Attachment(nil), w.draft.Files...)
	d.ExistingDocuments = append([]asset.Document(nil), w.draft.ExistingDocuments...)
	return d
}
