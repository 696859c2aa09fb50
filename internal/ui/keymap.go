package ui

const (
	keyQuit    = "q"
	keyCtrlC   = "ctrl+c"
	keySpace   = " "
	keySkip    = "s"
	keyFinish  = "f"
	keyConfirm = "y"
)
