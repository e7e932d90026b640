package shell

import (
	"github.com/dskvich/classifier-bot/pkg/domain"
	"github.com/samber/lo"
)

// State is everything a chat screen is rendered from. It is only ever
// replaced through Reduce.
type State struct {
	Loading         bool
	Prediction      *domain.PredictionResult
	ModelInfo       *domain.ModelInfo
	History         []domain.HistoryEntry
	Error           string
	ShowHistory     bool
	ConfirmingClear bool

	// Latest issued request of each kind; responses from older ones are dropped.
	PredictGen uint64
	HistoryGen uint64
}

type HistoryRow struct {
	Index int
	Entry domain.HistoryEntry
}

// HistoryRows lists entries most recent first, labelled from len down to 1.
func (s State) HistoryRows() []HistoryRow {
	n := len(s.History)
	return lo.Map(s.History, func(_ domain.HistoryEntry, i int) HistoryRow {
		return HistoryRow{Index: n - i, Entry: s.History[n-1-i]}
	})
}

func (s State) HistoryVisible() bool {
	return s.ShowHistory && len(s.History) > 0
}

type Action interface {
	isAction()
}

type PredictStarted struct{ Gen uint64 }

type PredictSucceeded struct {
	Gen    uint64
	Result *domain.PredictionResult
}

type PredictFailed struct {
	Gen     uint64
	Message string
}

type PredictFinished struct{ Gen uint64 }

type ModelInfoLoaded struct{ Info *domain.ModelInfo }

type HistoryRequested struct{ Gen uint64 }

type HistoryLoaded struct {
	Gen     uint64
	Entries []domain.HistoryEntry
}

type ClearRequested struct{}

type ClearCancelled struct{}

// ClearStarted invalidates every history request issued before it.
type ClearStarted struct{ Gen uint64 }

// HistoryCleared empties the history and invalidates every history request
// issued while the clear was in flight.
type HistoryCleared struct{ Gen uint64 }

type HistoryToggled struct{}

type SessionRestored struct {
	ShowHistory bool
	Prediction  *domain.PredictionResult
}

func (PredictStarted) isAction()   {}
func (PredictSucceeded) isAction() {}
func (PredictFailed) isAction()    {}
func (PredictFinished) isAction()  {}
func (ModelInfoLoaded) isAction()  {}
func (HistoryRequested) isAction() {}
func (HistoryLoaded) isAction()    {}
func (ClearRequested) isAction()   {}
func (ClearCancelled) isAction()   {}
func (ClearStarted) isAction()     {}
func (HistoryCleared) isAction()   {}
func (HistoryToggled) isAction()   {}
func (SessionRestored) isAction()  {}

func Reduce(s State, action Action) State {
	switch a := action.(type) {
	case PredictStarted:
		s.PredictGen = a.Gen
		s.Loading = true
		s.Error = ""
	case PredictSucceeded:
		if a.Gen != s.PredictGen {
			break
		}
		s.Prediction = a.Result
		s.Error = ""
	case PredictFailed:
		if a.Gen != s.PredictGen {
			break
		}
		s.Error = a.Message
	case PredictFinished:
		if a.Gen != s.PredictGen {
			break
		}
		s.Loading = false
	case ModelInfoLoaded:
		s.ModelInfo = a.Info
	case HistoryRequested:
		s.HistoryGen = a.Gen
	case HistoryLoaded:
		if a.Gen != s.HistoryGen {
			break
		}
		s.History = lo.Ternary(a.Entries == nil, []domain.HistoryEntry{}, a.Entries)
	case ClearRequested:
		s.ConfirmingClear = true
	case ClearCancelled:
		s.ConfirmingClear = false
	case ClearStarted:
		s.ConfirmingClear = false
		s.HistoryGen = a.Gen
	case HistoryCleared:
		s.History = []domain.HistoryEntry{}
		s.HistoryGen = a.Gen
	case HistoryToggled:
		s.ShowHistory = !s.ShowHistory
	case SessionRestored:
		s.ShowHistory = a.ShowHistory
		if s.Prediction == nil {
			s.Prediction = a.Prediction
		}
	}
	return s
}
