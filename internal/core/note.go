package core

import (
	"slices"
	"time"
)

const (
	AttachmentImage    AttachmentKind = "image"
	AttachmentAudio    AttachmentKind = "audio"
	AttachmentDrawing  AttachmentKind = "drawing"
	AttachmentDocument AttachmentKind = "document"
)

type (
	AttachmentKind string

	NoteAttachment struct {
		ID        ID             `json:"id"`
		Kind      AttachmentKind `json:"kind"`
		Filename  string         `json:"filename"`
		MediaType string         `json:"media_type"`
		BlobRef   string         `json:"blob_ref"`
		Size      int            `json:"size"`
	}

	Note struct {
		ID          ID               `json:"id"`
		Title       string           `json:"title"`
		Content     string           `json:"content"`
		CreatedAt   time.Time        `json:"created_at"`
		UpdatedAt   time.Time        `json:"updated_at"`
		FolderID    ID               `json:"folder_id,omitempty"`
		Attachments []NoteAttachment `json:"attachments,omitempty"`
	}

	// NoteFolder groups notes. Membership is the FolderID on each note.
	NoteFolder struct {
		ID        ID        `json:"id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"created_at"`
	}
)

func (k AttachmentKind) Validate() error {
	switch k {
	case AttachmentImage, AttachmentAudio, AttachmentDrawing, AttachmentDocument:
		return nil
	default:
		return ErrInvalidAttachment
	}
}

func NewNote(ids IDGenerator, title, content string, now time.Time) Note {
	return Note{ID: ids(), Title: title, Content: content, CreatedAt: now, UpdatedAt: now}
}

func (n Note) RecordID() ID { return n.ID }

func (n Note) Clone() Note {
	c := n
	c.Attachments = slices.Clone(n.Attachments)
	return c
}

func (n Note) Validate() error {
	if err := validateID(n.ID); err != nil {
		return err
	}
	if err := validateDate(n.CreatedAt); err != nil {
		return err
	}
	if n.UpdatedAt.Before(n.CreatedAt) {
		return Invalidf("note updated before it was created")
	}
	seen := make(map[ID]struct{}, len(n.Attachments))
	for _, a := range n.Attachments {
		if a.ID.IsZero() || a.BlobRef == "" || a.Filename == "" {
			return ErrInvalidAttachment
		}
		if err := a.Kind.Validate(); err != nil {
			return err
		}
		if _, dup := seen[a.ID]; dup {
			return Invalidf("duplicate attachment %s", a.ID)
		}
		seen[a.ID] = struct{}{}
	}
	return nil
}

// Attachment looks up an attachment by id.
func (n Note) Attachment(id ID) (NoteAttachment, bool) {
	i := slices.IndexFunc(n.Attachments, func(a NoteAttachment) bool { return a.ID == id })
	if i < 0 {
		return NoteAttachment{}, false
	}
	return n.Attachments[i], true
}

func NewNoteFolder(ids IDGenerator, name string, now time.Time) NoteFolder {
	return NoteFolder{ID: ids(), Name: name, CreatedAt: now}
}

func (f NoteFolder) RecordID() ID      { return f.ID }
func (f NoteFolder) Clone() NoteFolder { return f }

func (f NoteFolder) Validate() error {
	if err := validateID(f.ID); err != nil {
		return err
	}
	return validateName(f.Name)
}
