package domain

const (
	ClassifyCallback           = "classify"
	RemoveImageCallback        = "remove_image"
	ToggleHistoryCallback      = "toggle_history"
	ClearHistoryCallback       = "clear_history"
	ConfirmClearCallbackPrefix = "confirm_clear:"
)

const (
	ConfirmYes = "yes"
	ConfirmNo  = "no"
)
