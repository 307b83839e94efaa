package term

// appendRowMsg adds a row at the bottom of the panel.
type appendRowMsg struct {
	row row
}

// removeRowMsg removes the row with the given id, if present.
type removeRowMsg struct {
	id string
}

// scrollBottomMsg scrolls the panel to its last line.
type scrollBottomMsg struct{}

// clearInputMsg empties the text input.
type clearInputMsg struct{}

// submittedMsg reports that a submission ran to completion.
type submittedMsg struct{}
