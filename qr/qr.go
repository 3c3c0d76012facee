// Package qr presents a payment URL to the customer. Encoders are tried in
// order and the last tier always succeeds by showing the URL as text.
package qr

import (
	"fmt"

	"go.uber.org/zap"
)

// Widget is what ends up on screen
type Widget struct {
	// Renderer is the name of the tier that produced the widget
	Renderer string
	// PNG holds an encoded image when the tier produces one
	PNG []byte
	// Art is a terminal rendering of the code
	Art string
	// Text is the raw URL, always set so it can be copied
	Text string
}

// IsFallback reports whether the widget is the plain text tier
func (w Widget) IsFallback() bool {
	return w.Renderer == TextRendererName
}

// Renderer turns content into a widget
type Renderer interface {
	Name() string
	Render(content string) (Widget, error)
}

// Presenter shows a URL using the first renderer that succeeds
type Presenter interface {
	Present(content string) Widget
}

// ============================================================================
// Presenter Builder
// ============================================================================

// PresenterBuilder composes renderers into a Presenter.
type PresenterBuilder struct {
	renderers []Renderer
	logger    *zap.Logger
}

// NewPresenterBuilder creates a new PresenterBuilder.
func NewPresenterBuilder() *PresenterBuilder {
	return &PresenterBuilder{}
}

// WithRenderer adds a renderer tier to the builder.
func (b *PresenterBuilder) WithRenderer(renderer Renderer) *PresenterBuilder {
	b.renderers = append(b.renderers, renderer)
	return b
}

// WithLogger sets the logger used to report failed tiers.
func (b *PresenterBuilder) WithLogger(logger *zap.Logger) *PresenterBuilder {
	b.logger = logger
	return b
}

// Build creates a Presenter. A text tier is appended so presenting never fails.
func (b *PresenterBuilder) Build() Presenter {
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	renderers := append([]Renderer{}, b.renderers...)
	renderers = append(renderers, TextRenderer{})
	return &fallbackPresenter{renderers: renderers, logger: logger}
}

type fallbackPresenter struct {
	renderers []Renderer
	logger    *zap.Logger
}

func (p *fallbackPresenter) Present(content string) Widget {
	for _, renderer := range p.renderers {
		widget, err := safeRender(renderer, content)
		if err == nil {
			widget.Renderer = renderer.Name()
			widget.Text = content
			return widget
		}
		p.logger.Warn("qr renderer failed, falling back",
			zap.String("renderer", renderer.Name()),
			zap.Error(err),
		)
	}
	// Unreachable while TextRenderer is last
	return Widget{Renderer: TextRendererName, Text: content}
}

func safeRender(renderer Renderer, content string) (widget Widget, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("renderer %s panicked: %v", renderer.Name(), r)
		}
	}()
	return renderer.Render(content)
}

// DefaultPresenter creates a Presenter with go-qrcode as the primary encoder
// and rsc.io/qr as the secondary one.
func DefaultPresenter(logger *zap.Logger) Presenter {
	return NewPresenterBuilder().
		WithRenderer(NewPrimaryRenderer(DefaultPNGSize)).
		WithRenderer(NewSecondaryRenderer()).
		WithLogger(logger).
		Build()
}
