package screens

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"
)

// WaitBar is a modal infinite progress popup shown while a broker
// connection is being established.
type WaitBar struct {
	progressBar      *widget.ProgressBarInfinite
	progressBarPopUp *widget.PopUp
	window           fyne.Window
}

func NewWaitBar(window fyne.Window) *WaitBar {
	w := WaitBar{progressBar: widget.NewProgressBarInfinite(), window: window}
	w.progressBarPopUp = widget.NewModalPopUp(w.progressBar, window.Canvas())
	w.Hide()
	return &w
}

func (w *WaitBar) Show() {
	w.progressBarPopUp.Resize(fyne.NewSize(w.window.Canvas().Size().Width/2,
		w.window.Canvas().Size().Height/20))
	w.progressBar.Start()
	w.progressBarPopUp.Show()
}

func (w *WaitBar) Visible() bool {
	return w.progressBarPopUp.Visible()
}

func (w *WaitBar) Hide() {
	w.progressBar.Stop()
	w.progressBarPopUp.Hide()
}
