package tui

import "github.com/maauso/videojoin/internal/cloudinary"

// SubmitDoneMsg is sent when a submission finishes, successfully or not.
type SubmitDoneMsg struct {
	Result *cloudinary.Asset
	Err    error
}
