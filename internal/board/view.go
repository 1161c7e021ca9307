package board

import (
	"go.uber.org/zap"

	"factboard/api/internal/category"
	"factboard/api/internal/store"
)

const EmptyMessage = "No facts for this category yet. Create the first one?"

// FactView is one rendered fact.
type FactView struct {
	store.Fact
	Disputed bool
	Color    string
	// Updating disables this fact's vote buttons.
	Updating bool
}

// View is everything a renderer needs for one frame.
type View struct {
	CurrentCategory string
	Loading         bool
	ShowForm        bool
	Uploading       bool
	Remaining       int
	Facts           []FactView
	Message         string
}

func (b *Board) View() View {
	snap := b.state.Snapshot()
	view := View{
		CurrentCategory: snap.CurrentCategory,
		Loading:         snap.IsLoading,
		ShowForm:        snap.ShowForm,
		Uploading:       b.form.Uploading(),
		Remaining:       b.form.Remaining(),
		Facts:           make([]FactView, 0, len(snap.Facts)),
	}
	for _, item := range snap.Facts {
		color, known := category.ColorOK(item.Category)
		if !known {
			b.logger.Warn("fact has unregistered category",
				zap.Int64("fact_id", item.ID),
				zap.String("category", item.Category))
		}
		view.Facts = append(view.Facts, FactView{
			Fact:     item,
			Disputed: item.IsDisputed(),
			Color:    color,
			Updating: b.votes.IsUpdating(item.ID),
		})
	}
	if len(view.Facts) == 0 {
		view.Message = EmptyMessage
	}
	return view
}
