package document

// NewEmptyDocument returns a document with no elements on a default canvas.
func NewEmptyDocument() *Document {
	return &Document{
		Canvas:   CanvasSize{Width: DefaultCanvasWidth, Height: DefaultCanvasHeight},
		Elements: Elements{},
	}
}

// NewSampleDocument returns a small login form used by new canvases and
// the browser demo.
func NewSampleDocument() *Document {
	return &Document{
		Canvas: CanvasSize{Width: DefaultCanvasWidth, Height: DefaultCanvasHeight},
		Elements: Elements{
			{
				ID:    0,
				Kind:  KindTextInput,
				Label: "Username",
				Props: TextInputProps{Placeholder: "Username"},
				Style: Style{Width: 200, Height: 32, Top: 120, Left: 480, Opacity: 1},
			},
			{
				ID:    1,
				Kind:  KindTextInput,
				Label: "Password",
				Props: TextInputProps{Placeholder: "Password"},
				Style: Style{Width: 200, Height: 32, Top: 170, Left: 480, Opacity: 1},
			},
			{
				ID:    2,
				Kind:  KindButton,
				Label: "Sign in",
				Props: ButtonProps{HTMLType: "submit"},
				Style: Style{
					Width: 100, Height: 32, Top: 230, Left: 530, Opacity: 1,
					Appearance: map[string]any{"color": "#ffffff", "backgroundColor": "#1677ff"},
				},
				Events: Events{{Key: EventMessage, Value: "Signed in"}},
			},
		},
	}
}
