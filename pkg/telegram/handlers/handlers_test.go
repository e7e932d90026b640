package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dskvich/classifier-bot/pkg/batch"
	"github.com/dskvich/classifier-bot/pkg/domain"
	"github.com/dskvich/classifier-bot/pkg/sessions"
	"github.com/dskvich/classifier-bot/pkg/upload"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	testToken  = "123:test"
	testChatID = int64(42)
)

type sentCall struct {
	method string
	text   string
}

// fakeTelegram answers Bot API calls and serves downloadable files.
type fakeTelegram struct {
	mu    sync.Mutex
	calls []sentCall
	files map[string][]byte
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/file/bot"+testToken+"/") {
		id := strings.TrimPrefix(r.URL.Path, "/file/bot"+testToken+"/files/")
		f.mu.Lock()
		data, ok := f.files[id]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
		return
	}

	method := strings.TrimPrefix(r.URL.Path, "/bot"+testToken+"/")
	_ = r.ParseMultipartForm(10 << 20)

	var result any
	switch method {
	case "getFile":
		id := r.FormValue("file_id")
		result = map[string]any{"file_id": id, "file_unique_id": id, "file_path": "files/" + id}
	case "answerCallbackQuery", "sendChatAction":
		result = true
	default:
		f.mu.Lock()
		f.calls = append(f.calls, sentCall{method: method, text: r.FormValue("text") + r.FormValue("caption")})
		f.mu.Unlock()
		result = map[string]any{"message_id": 1, "date": 0, "chat": map[string]any{"id": testChatID, "type": "private"}}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

func (f *fakeTelegram) sent() []sentCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentCall(nil), f.calls...)
}

func (f *fakeTelegram) last(t *testing.T) sentCall {
	t.Helper()
	calls := f.sent()
	if len(calls) == 0 {
		t.Fatal("expected a message to be sent")
	}
	return calls[len(calls)-1]
}

func newTestBot(t *testing.T) (*bot.Bot, *fakeTelegram) {
	t.Helper()

	tg := &fakeTelegram{files: make(map[string][]byte)}
	srv := httptest.NewServer(tg)
	t.Cleanup(srv.Close)

	b, err := bot.New(testToken, bot.WithServerURL(srv.URL), bot.WithSkipGetMe())
	if err != nil {
		t.Fatalf("creating bot: %v", err)
	}
	return b, tg
}

type fakeAPI struct {
	mu         sync.Mutex
	history    []domain.HistoryEntry
	clearCalls int
	clearErr   error
	infoErr    error
	batchFiles []domain.ImageFile
}

func (f *fakeAPI) GetModelInfo(context.Context) (*domain.ModelInfo, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return &domain.ModelInfo{ModelName: "cifar-cnn", Accuracy: 0.87}, nil
}

func (f *fakeAPI) GetHistory(context.Context) ([]domain.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.HistoryEntry(nil), f.history...), nil
}

func (f *fakeAPI) PredictImage(_ context.Context, file domain.ImageFile) (*domain.PredictionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, domain.HistoryEntry{Filename: file.Name, PredictedClass: "cat", Confidence: 97.5})
	return &domain.PredictionResult{PredictedClass: "cat", Confidence: 97.5}, nil
}

func (f *fakeAPI) ClearHistory(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
	if f.clearErr != nil {
		return f.clearErr
	}
	f.history = nil
	return nil
}

func (f *fakeAPI) PredictBatch(_ context.Context, files []domain.ImageFile) ([]domain.PredictionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchFiles = files
	return []domain.PredictionResult{{Filename: files[0].Name, PredictedClass: "dog", Confidence: 80}}, nil
}

func (f *fakeAPI) CheckHealth(context.Context) (*domain.Health, error) {
	return &domain.Health{Status: "healthy", ModelLoaded: true}, nil
}

type fakeAlbums struct {
	ids   []string
	files []domain.ImageFile
	flush batch.FlushFunc
}

func (f *fakeAlbums) Add(id string, file domain.ImageFile, flush batch.FlushFunc) {
	f.ids = append(f.ids, id)
	f.files = append(f.files, file)
	f.flush = flush
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for x := 0; x < 64; x++ {
		img.Set(x, x%48, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

func messageUpdate(msg *models.Message) *models.Update {
	msg.Chat = models.Chat{ID: testChatID}
	return &models.Update{ID: 1, Message: msg}
}

func callbackUpdate(data string) *models.Update {
	return &models.Update{
		ID: 2,
		CallbackQuery: &models.CallbackQuery{
			ID:   "cb",
			Data: data,
			Message: models.MaybeInaccessibleMessage{
				Message: &models.Message{Chat: models.Chat{ID: testChatID}},
			},
		},
	}
}

func TestReceiveImage_RejectsNonImageDocument(t *testing.T) {
	b, tg := newTestBot(t)
	tg.files["doc"] = []byte("%PDF-1.4")
	api := &fakeAPI{}
	registry := sessions.NewRegistry(api, nil, nil)

	h := ReceiveImage(registry, &fakeAlbums{}, api)
	h(context.Background(), b, messageUpdate(&models.Message{
		Document: &models.Document{FileID: "doc", FileName: "notes.pdf", MimeType: "application/pdf"},
	}))

	if got := tg.last(t).text; got != notImageNotice {
		t.Fatalf("expected notice %q, got %q", notImageNotice, got)
	}
	if st := registry.Get(context.Background(), testChatID, 0).Widget.State(); st != upload.StateEmpty {
		t.Fatalf("expected widget to stay empty, got %s", st)
	}
}

func TestReceiveImage_PhotoSendsPreview(t *testing.T) {
	b, tg := newTestBot(t)
	tg.files["photo-big"] = pngBytes(t)
	api := &fakeAPI{}
	registry := sessions.NewRegistry(api, nil, nil)

	h := ReceiveImage(registry, &fakeAlbums{}, api)
	h(context.Background(), b, messageUpdate(&models.Message{
		Photo: []models.PhotoSize{
			{FileID: "photo-small", FileUniqueID: "small"},
			{FileID: "photo-big", FileUniqueID: "big"},
		},
	}))

	call := tg.last(t)
	if call.method != "sendPhoto" {
		t.Fatalf("expected sendPhoto, got %s", call.method)
	}
	if !strings.Contains(call.text, "big.jpg") {
		t.Fatalf("expected caption with file name, got %q", call.text)
	}

	sess := registry.Get(context.Background(), testChatID, 0)
	if sess.Widget.State() != upload.StateSelected {
		t.Fatalf("expected widget selected, got %s", sess.Widget.State())
	}
	if _, ok := sess.Widget.Preview(); !ok {
		t.Fatal("expected preview to be stored")
	}
}

func TestReceiveImage_AlbumGoesToCollector(t *testing.T) {
	b, tg := newTestBot(t)
	tg.files["p1"] = pngBytes(t)
	api := &fakeAPI{}
	albums := &fakeAlbums{}

	h := ReceiveImage(sessions.NewRegistry(api, nil, nil), albums, api)
	h(context.Background(), b, messageUpdate(&models.Message{
		MediaGroupID: "album-1",
		Photo:        []models.PhotoSize{{FileID: "p1", FileUniqueID: "u1"}},
	}))

	if len(albums.ids) != 1 || albums.ids[0] != "album-1" {
		t.Fatalf("expected file queued under album-1, got %v", albums.ids)
	}
	if len(tg.sent()) != 0 {
		t.Fatalf("expected no reply before the album is flushed, got %v", tg.sent())
	}

	albums.flush(context.Background(), albums.files)

	if len(api.batchFiles) != 1 {
		t.Fatalf("expected one file in batch, got %d", len(api.batchFiles))
	}
	if got := tg.last(t).text; !strings.Contains(got, "Batch results (1)") || !strings.Contains(got, "dog") {
		t.Fatalf("unexpected batch reply %q", got)
	}
}

func TestClassify_ShowsResultAndClearsSelection(t *testing.T) {
	b, tg := newTestBot(t)
	tg.files["photo"] = pngBytes(t)
	api := &fakeAPI{}
	registry := sessions.NewRegistry(api, nil, nil)
	ctx := context.Background()

	ReceiveImage(registry, &fakeAlbums{}, api)(ctx, b, messageUpdate(&models.Message{
		Photo: []models.PhotoSize{{FileID: "photo", FileUniqueID: "cat"}},
	}))
	Classify(registry)(ctx, b, callbackUpdate(domain.ClassifyCallback))

	got := tg.last(t).text
	for _, want := range []string{"cat", "97.50%", "Prediction history (1)"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in screen, got %q", want, got)
		}
	}

	sess := registry.Get(ctx, testChatID, 0)
	if sess.Widget.State() != upload.StateEmpty {
		t.Fatalf("expected selection cleared after success, got %s", sess.Widget.State())
	}
}

func TestClassify_WithoutSelection(t *testing.T) {
	b, tg := newTestBot(t)
	api := &fakeAPI{}

	Classify(sessions.NewRegistry(api, nil, nil))(context.Background(), b, callbackUpdate(domain.ClassifyCallback))

	if got := tg.last(t).text; !strings.Contains(got, "Send an image first") {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestClearHistory_ConfirmFlow(t *testing.T) {
	tests := []struct {
		name       string
		answer     string
		wantCalls  int
		wantInText string
	}{
		{name: "confirmed", answer: domain.ConfirmYes, wantCalls: 1, wantInText: "History cleared"},
		{name: "cancelled", answer: domain.ConfirmNo, wantCalls: 0, wantInText: "History kept"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, tg := newTestBot(t)
			api := &fakeAPI{history: []domain.HistoryEntry{{Filename: "a.png", PredictedClass: "cat"}}}
			registry := sessions.NewRegistry(api, nil, nil)
			ctx := context.Background()

			ClearHistory(registry)(ctx, b, callbackUpdate(domain.ClearHistoryCallback))
			if got := tg.last(t).text; !strings.Contains(got, "Are you sure") {
				t.Fatalf("expected confirmation prompt, got %q", got)
			}

			ConfirmClear(registry)(ctx, b, callbackUpdate(domain.ConfirmClearCallbackPrefix+tt.answer))

			if api.clearCalls != tt.wantCalls {
				t.Fatalf("expected %d clear calls, got %d", tt.wantCalls, api.clearCalls)
			}
			if got := tg.last(t).text; !strings.Contains(got, tt.wantInText) {
				t.Fatalf("expected %q in reply, got %q", tt.wantInText, got)
			}

			// A second answer to the same prompt is ignored.
			ConfirmClear(registry)(ctx, b, callbackUpdate(domain.ConfirmClearCallbackPrefix+domain.ConfirmYes))
			if api.clearCalls != tt.wantCalls {
				t.Fatalf("expected no extra clear request, got %d", api.clearCalls)
			}
		})
	}
}

func TestToggleHistory(t *testing.T) {
	b, tg := newTestBot(t)
	api := &fakeAPI{history: []domain.HistoryEntry{{Filename: "first.png", PredictedClass: "ship", Confidence: 66}}}
	registry := sessions.NewRegistry(api, nil, nil)
	h := ToggleHistory(registry)

	h(context.Background(), b, callbackUpdate(domain.ToggleHistoryCallback))
	if got := tg.last(t).text; !strings.Contains(got, "first.png") {
		t.Fatalf("expected history table after toggling on, got %q", got)
	}

	h(context.Background(), b, callbackUpdate(domain.ToggleHistoryCallback))
	if got := tg.last(t).text; strings.Contains(got, "first.png") {
		t.Fatalf("expected history hidden after toggling off, got %q", got)
	}
}

func TestShowModelInfoAndHealth(t *testing.T) {
	b, tg := newTestBot(t)
	api := &fakeAPI{}

	ShowModelInfo(api)(context.Background(), b, messageUpdate(&models.Message{Text: "/model"}))
	if got := tg.last(t).text; !strings.Contains(got, "cifar-cnn") || !strings.Contains(got, "87.00%") {
		t.Fatalf("unexpected model info %q", got)
	}

	ShowHealth(api)(context.Background(), b, messageUpdate(&models.Message{Text: "/health"}))
	if got := tg.last(t).text; !strings.Contains(got, "healthy") {
		t.Fatalf("unexpected health reply %q", got)
	}
}

func TestStart_SendsHelpAndScreen(t *testing.T) {
	b, tg := newTestBot(t)

	Start(sessions.NewRegistry(&fakeAPI{}, nil, nil))(context.Background(), b, messageUpdate(&models.Message{Text: "/start"}))

	calls := tg.sent()
	if len(calls) != 2 {
		t.Fatalf("expected help and screen, got %d messages", len(calls))
	}
	if !strings.Contains(calls[0].text, "<b>photo</b>") {
		t.Fatalf("expected rendered help, got %q", calls[0].text)
	}
	if !strings.Contains(calls[1].text, fmt.Sprintf("Accuracy: %.2f%%", 87.0)) {
		t.Fatalf("expected accuracy badge, got %q", calls[1].text)
	}
}

func TestHandlers_HideTransportErrors(t *testing.T) {
	transportErr := errors.New(`Delete "http://localhost:8000/history": dial tcp 127.0.0.1:8000: connect: connection refused`)

	t.Run("clear history", func(t *testing.T) {
		b, tg := newTestBot(t)
		api := &fakeAPI{clearErr: transportErr}
		registry := sessions.NewRegistry(api, nil, nil)
		ctx := context.Background()

		ClearHistory(registry)(ctx, b, callbackUpdate(domain.ClearHistoryCallback))
		ConfirmClear(registry)(ctx, b, callbackUpdate(domain.ConfirmClearCallbackPrefix+domain.ConfirmYes))

		got := tg.last(t).text
		if got != "❌ Could not clear history. Please try again later." {
			t.Fatalf("unexpected notice %q", got)
		}
	})

	t.Run("model info", func(t *testing.T) {
		b, tg := newTestBot(t)
		api := &fakeAPI{infoErr: transportErr}

		ShowModelInfo(api)(context.Background(), b, messageUpdate(&models.Message{Text: "/model"}))

		if got := tg.last(t).text; strings.Contains(got, "dial tcp") || !strings.Contains(got, "Could not load model info") {
			t.Fatalf("unexpected notice %q", got)
		}
	})
}

func TestCallbackOnInaccessibleMessageIsIgnored(t *testing.T) {
	b, tg := newTestBot(t)
	registry := sessions.NewRegistry(&fakeAPI{}, nil, nil)
	update := &models.Update{
		ID:            3,
		CallbackQuery: &models.CallbackQuery{ID: "cb", Data: domain.ToggleHistoryCallback},
	}

	ToggleHistory(registry)(context.Background(), b, update)
	Classify(registry)(context.Background(), b, update)

	if n := len(tg.sent()); n != 0 {
		t.Fatalf("expected no replies, got %d", n)
	}
	if n := registry.Len(); n != 0 {
		t.Fatalf("expected no session to be created, got %d", n)
	}
}
