// Package upload holds the image selection state machine that sits in front of
// a prediction request. It knows nothing about the platform delivering files;
// bindings drive it through the Events capability.
package upload

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/dskvich/classifier-bot/pkg/domain"
)

var (
	ErrNotImage = errors.New("please choose an image file")
	ErrNoFile   = errors.New("no file selected")
	ErrBusy     = errors.New("a prediction is already in progress")
	ErrStale    = errors.New("selection changed while the preview was decoding")
)

type State int

const (
	StateEmpty State = iota
	StateSelected
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateSelected:
		return "selected"
	default:
		return "unknown"
	}
}

type DragEvent int

const (
	DragEnter DragEvent = iota
	DragOver
	DragLeave
)

// Events is what a platform binding (chat, file dialog, web input) reports.
type Events interface {
	FileSelected(file domain.ImageFile) error
	DragStateChanged(ev DragEvent)
	Dropped(files []domain.ImageFile) error
}

// PredictFunc receives the raw file when the user asks for classification.
type PredictFunc func(ctx context.Context, file domain.ImageFile) error

type Previewer interface {
	Preview(ctx context.Context, file domain.ImageFile) (*Preview, error)
}

// Control is the platform input that must be reset when the selection is
// removed so the same file can be picked again.
type Control interface {
	Clear()
}

type Widget struct {
	onPredict PredictFunc
	previewer Previewer
	control   Control

	mu         sync.Mutex
	file       *domain.ImageFile
	preview    *Preview
	dragActive bool
	selection  uint64
}

var _ Events = (*Widget)(nil)

type Option func(*Widget)

func WithControl(c Control) Option {
	return func(w *Widget) { w.control = c }
}

func WithPreviewer(p Previewer) Option {
	return func(w *Widget) { w.previewer = p }
}

func NewWidget(onPredict PredictFunc, opts ...Option) *Widget {
	w := &Widget{
		onPredict: onPredict,
		previewer: NewThumbnailPreviewer(DefaultPreviewSide),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Select moves the widget to Selected. Files that are not images leave the
// state untouched.
func (w *Widget) Select(file domain.ImageFile) error {
	if file.MimeType == "" && len(file.Data) > 0 {
		file.MimeType = http.DetectContentType(file.Data)
	}
	if !file.IsImage() {
		return ErrNotImage
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.file = &file
	w.preview = nil
	w.selection++

	return nil
}

func (w *Widget) FileSelected(file domain.ImageFile) error {
	return w.Select(file)
}

func (w *Widget) DragStateChanged(ev DragEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch ev {
	case DragEnter, DragOver:
		w.dragActive = true
	case DragLeave:
		w.dragActive = false
	}
}

func (w *Widget) Dropped(files []domain.ImageFile) error {
	w.mu.Lock()
	w.dragActive = false
	w.mu.Unlock()

	if len(files) == 0 {
		return nil
	}
	return w.Select(files[0])
}

// LoadPreview decodes the current selection into a preview. The result is
// kept only if the selection did not change meanwhile.
func (w *Widget) LoadPreview(ctx context.Context) (*Preview, error) {
	w.mu.Lock()
	file, selection := w.file, w.selection
	w.mu.Unlock()

	if file == nil {
		return nil, ErrNoFile
	}

	p, err := w.previewer.Preview(ctx, *file)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil || w.selection != selection {
		return nil, ErrStale
	}
	w.preview = p

	return p, nil
}

// Remove returns to Empty and clears the platform input.
func (w *Widget) Remove() {
	w.mu.Lock()
	w.file = nil
	w.preview = nil
	w.selection++
	w.mu.Unlock()

	if w.control != nil {
		w.control.Clear()
	}
}

// Submit hands the selected file to the predict callback. It does not change
// the widget state; the caller decides whether to Remove afterwards.
func (w *Widget) Submit(ctx context.Context, busy bool) error {
	w.mu.Lock()
	file := w.file
	w.mu.Unlock()

	if file == nil {
		return ErrNoFile
	}
	if busy {
		return ErrBusy
	}

	return w.onPredict(ctx, *file)
}

func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return StateEmpty
	}
	return StateSelected
}

func (w *Widget) File() (domain.ImageFile, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return domain.ImageFile{}, false
	}
	return *w.file, true
}

func (w *Widget) Preview() (*Preview, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.preview, w.preview != nil
}

func (w *Widget) DragActive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.dragActive
}

func (w *Widget) CanSubmit(busy bool) bool {
	return !busy && w.State() == StateSelected
}
