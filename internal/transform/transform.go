// Package transform builds the Cloudinary incoming transformation used to
// splice clips onto an uploaded video.
package transform

import (
	"errors"
	"fmt"
	"strings"
)

// Canvas dimensions every clip is padded to before splicing (720p).
const (
	CanvasWidth  = 1280
	CanvasHeight = 720
)

// Destination folders.
const (
	// PlainFolder holds single uploads that carry no transformation.
	PlainFolder = "videos/"
	// JoinedFolder holds concatenation outputs.
	JoinedFolder = "concatenated-videos/"
)

const (
	cropPad         = "pad"
	flagSplice      = "splice"
	flagLayerApply  = "layer_apply"
	videoLayerScope = "video"
)

// ErrEmptyClipRef is returned when a clip reference is blank.
var ErrEmptyClipRef = errors.New("transform: clip reference must not be empty")

// ClipRef is the public ID of a video already stored on the media service.
type ClipRef string

// Directive is one step of a transformation chain.
// Zero-valued fields are omitted when rendered.
type Directive struct {
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Crop    string `json:"crop,omitempty"`
	Flags   string `json:"flags,omitempty"`
	Overlay string `json:"overlay,omitempty"`
}

// Pad returns a directive padding the current layer to the canvas.
func Pad() Directive {
	return Directive{Width: CanvasWidth, Height: CanvasHeight, Crop: cropPad}
}

// Splice returns a directive splicing the given clip as a video overlay.
func Splice(clip ClipRef) Directive {
	return Directive{Flags: flagSplice, Overlay: videoLayerScope + ":" + string(clip)}
}

// LayerApply returns the directive that flattens the overlay stack.
func LayerApply() Directive {
	return Directive{Flags: flagLayerApply}
}

// String renders the directive as a single Cloudinary URL component,
// e.g. "c_pad,h_720,w_1280". Parameters are sorted alphabetically by key.
func (d Directive) String() string {
	var parts []string
	if d.Crop != "" {
		parts = append(parts, "c_"+d.Crop)
	}
	if d.Flags != "" {
		parts = append(parts, "fl_"+d.Flags)
	}
	if d.Height > 0 {
		parts = append(parts, fmt.Sprintf("h_%d", d.Height))
	}
	if d.Overlay != "" {
		// Folder separators inside a layer public ID are written as colons.
		parts = append(parts, "l_"+strings.ReplaceAll(d.Overlay, "/", ":"))
	}
	if d.Width > 0 {
		parts = append(parts, fmt.Sprintf("w_%d", d.Width))
	}
	return strings.Join(parts, ",")
}

// List is an ordered transformation chain.
type List []Directive

// String renders the chain in Cloudinary's slash-separated syntax.
// An empty list renders as the empty string.
func (l List) String() string {
	parts := make([]string, 0, len(l))
	for _, d := range l {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, "/")
}

// Build returns the transformation that splices clips, in order, onto the
// uploaded video. Each clip is padded to the canvas before it is spliced,
// and the stack is padded and flattened once at the end. For N clips the
// result has 2N+2 directives; with no clips it is empty.
func Build(clips []ClipRef) (List, error) {
	if len(clips) == 0 {
		return List{}, nil
	}

	list := make(List, 0, 2*len(clips)+2)
	for i, clip := range clips {
		if strings.TrimSpace(string(clip)) == "" {
			return nil, fmt.Errorf("%w (index %d)", ErrEmptyClipRef, i)
		}
		list = append(list, Pad(), Splice(clip))
	}
	list = append(list, Pad(), LayerApply())

	return list, nil
}

// Folder returns the destination folder for an upload splicing clips.
func Folder(clips []ClipRef) string {
	if len(clips) == 0 {
		return PlainFolder
	}
	return JoinedFolder
}
