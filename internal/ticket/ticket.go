// Package ticket defines the support ticket model and the tiered fact store
// that every pipeline stage reads from and writes through.
package ticket

import "strings"

// AttachmentKind classifies an attachment by what it can contribute to
// identification. Photos feed visual search, documents feed receipt checks.
type AttachmentKind string

const (
	KindPhoto    AttachmentKind = "photo"
	KindVideo    AttachmentKind = "video"
	KindDocument AttachmentKind = "document"
	KindOther    AttachmentKind = "other"
)

// Attachment is a file attached to a ticket.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	URL         string `json:"url,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
}

// Kind infers the attachment kind from content type, falling back to the
// filename extension when the content type is missing or generic.
func (a Attachment) Kind() AttachmentKind {
	ct := strings.ToLower(a.ContentType)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return KindPhoto
	case strings.HasPrefix(ct, "video/"):
		return KindVideo
	case strings.HasPrefix(ct, "application/pdf"), strings.HasPrefix(ct, "text/"):
		return KindDocument
	}

	name := strings.ToLower(a.Filename)
	switch {
	case hasAnySuffix(name, ".jpg", ".jpeg", ".png", ".gif", ".webp", ".heic", ".bmp"):
		return KindPhoto
	case hasAnySuffix(name, ".mp4", ".mov", ".avi", ".mkv", ".webm"):
		return KindVideo
	case hasAnySuffix(name, ".pdf", ".doc", ".docx", ".txt", ".csv", ".xls", ".xlsx"):
		return KindDocument
	}
	return KindOther
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

// Ticket is one inbound support request. Category is the routing label the
// helpdesk assigned; the constraint layer resolves aliases itself.
type Ticket struct {
	ID             string       `json:"id"`
	Subject        string       `json:"subject"`
	Text           string       `json:"text"`
	Category       string       `json:"category"`
	RequesterName  string       `json:"requester_name,omitempty"`
	RequesterEmail string       `json:"requester_email,omitempty"`
	Attachments    []Attachment `json:"attachments,omitempty"`
}

// FullText returns subject and body joined for keyword scans.
func (t *Ticket) FullText() string {
	if t.Subject == "" {
		return t.Text
	}
	return t.Subject + "\n" + t.Text
}

// AttachmentCounts returns how many photos, videos and documents the ticket
// carries.
func (t *Ticket) AttachmentCounts() (photos, videos, documents int) {
	for _, a := range t.Attachments {
		switch a.Kind() {
		case KindPhoto:
			photos++
		case KindVideo:
			videos++
		case KindDocument:
			documents++
		}
	}
	return
}
