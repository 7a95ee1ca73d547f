package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type ContentKind string

const (
	ContentTemplate ContentKind = "template"
	ContentInline   ContentKind = "inline"
)

// Payload is fully resolved notification content, ready for delivery and for
// snapshotting into the ledger.
type Payload struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	URL      string `json:"url,omitempty"`
	IconPath string `json:"icon_path,omitempty"`
}

// Content is the notification's content source: either a reference to a
// message template or inline fields. Exactly one mode is set.
type Content struct {
	Kind       ContentKind `json:"kind"`
	TemplateID uuid.UUID   `json:"template_id,omitempty"`
	Inline     Payload     `json:"inline,omitempty"`
}

// NewContent builds a Content from the nullable column shape, failing unless
// exactly one mode is populated.
func NewContent(templateID *uuid.UUID, inline Payload) (Content, error) {
	hasInline := strings.TrimSpace(inline.Title) != "" || strings.TrimSpace(inline.Body) != ""

	if templateID != nil && hasInline {
		return Content{}, fmt.Errorf("content must reference a template or carry inline fields, not both")
	}
	if templateID != nil {
		return Content{Kind: ContentTemplate, TemplateID: *templateID}, nil
	}
	if !hasInline {
		return Content{}, fmt.Errorf("content requires a template id or inline title and body")
	}
	if strings.TrimSpace(inline.Title) == "" || strings.TrimSpace(inline.Body) == "" {
		return Content{}, fmt.Errorf("inline content requires both title and body")
	}
	return Content{Kind: ContentInline, Inline: inline}, nil
}

func TemplateContent(id uuid.UUID) Content {
	return Content{Kind: ContentTemplate, TemplateID: id}
}

func InlineContent(p Payload) Content {
	return Content{Kind: ContentInline, Inline: p}
}

// Resolve produces the deliverable payload. For template content the template
// provides title and body; its url and icon fall back to the row's inline
// fields when the template leaves them empty.
func (c Content) Resolve(tpl *MessageTemplate) (Payload, error) {
	switch c.Kind {
	case ContentInline:
		return c.Inline, nil
	case ContentTemplate:
		if tpl == nil {
			return Payload{}, fmt.Errorf("template %s not resolved", c.TemplateID)
		}
		p := Payload{Title: tpl.Title, Body: tpl.Body, URL: tpl.URL, IconPath: tpl.IconPath}
		if p.URL == "" {
			p.URL = c.Inline.URL
		}
		if p.IconPath == "" {
			p.IconPath = c.Inline.IconPath
		}
		return p, nil
	default:
		return Payload{}, fmt.Errorf("unknown content kind %q", c.Kind)
	}
}
