package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// FolderNotes returns the notes filed in the folder. The zero ID selects notes at
// the root.
func (l *Ledger) FolderNotes(folderID core.ID) []core.Note {
	return slices.Collect(l.Notes.Query(func(n core.Note) bool { return n.FolderID == folderID }))
}

// AddAttachment stores data in the blob store and appends a reference to the note.
func (l *Ledger) AddAttachment(ctx context.Context, noteID core.ID, kind core.AttachmentKind, filename, mediaType string, data []byte) (core.NoteAttachment, error) {
	if l.blobs == nil {
		return core.NoteAttachment{}, errNoBlobStore
	}
	if !l.Notes.Has(noteID) {
		return core.NoteAttachment{}, fmt.Errorf("note %q: %w", noteID, core.ErrNotFound)
	}
	if err := kind.Validate(); err != nil {
		return core.NoteAttachment{}, err
	}
	if strings.TrimSpace(filename) == "" {
		return core.NoteAttachment{}, core.Invalidf("attachment filename is empty")
	}

	att := core.NoteAttachment{
		ID:        l.ids(),
		Kind:      kind,
		Filename:  filename,
		MediaType: mediaType,
		BlobRef:   string(l.ids()),
		Size:      len(data),
	}
	if err := l.blobs.PutBlob(ctx, att.BlobRef, storage.Blob{Filename: filename, MediaType: mediaType, Data: data}); err != nil {
		return core.NoteAttachment{}, fmt.Errorf("store attachment: %w", err)
	}

	err := l.Notes.Update(ctx, noteID, func(n *core.Note) error {
		n.Attachments = append(n.Attachments, att)
		n.UpdatedAt = l.touch(n.CreatedAt)
		return nil
	})
	if !tolerate(err) {
		l.deleteBlob(ctx, att.BlobRef)
		return core.NoteAttachment{}, err
	}
	return att, err
}

// RemoveAttachment drops the reference from the note, then the payload.
func (l *Ledger) RemoveAttachment(ctx context.Context, noteID, attachmentID core.ID) error {
	var removed core.NoteAttachment
	err := l.Notes.Update(ctx, noteID, func(n *core.Note) error {
		i := slices.IndexFunc(n.Attachments, func(a core.NoteAttachment) bool { return a.ID == attachmentID })
		if i < 0 {
			return fmt.Errorf("attachment %q: %w", attachmentID, core.ErrNotFound)
		}
		removed = n.Attachments[i]
		n.Attachments = slices.Delete(n.Attachments, i, i+1)
		n.UpdatedAt = l.touch(n.CreatedAt)
		return nil
	})
	if !tolerate(err) {
		return err
	}
	l.deleteBlob(ctx, removed.BlobRef)
	return err
}

// AttachmentData loads the payload of a note attachment.
func (l *Ledger) AttachmentData(ctx context.Context, noteID, attachmentID core.ID) (storage.Blob, error) {
	if l.blobs == nil {
		return storage.Blob{}, errNoBlobStore
	}
	n, ok := l.Notes.Get(noteID)
	if !ok {
		return storage.Blob{}, fmt.Errorf("note %q: %w", noteID, core.ErrNotFound)
	}
	att, ok := n.Attachment(attachmentID)
	if !ok {
		return storage.Blob{}, fmt.Errorf("attachment %q: %w", attachmentID, core.ErrNotFound)
	}
	return l.blobs.GetBlob(ctx, att.BlobRef)
}

// AttachReceipt stores data as the transaction's receipt, replacing any previous one.
func (l *Ledger) AttachReceipt(ctx context.Context, txID core.ID, filename, mediaType string, data []byte) (core.AttachmentRef, error) {
	if l.blobs == nil {
		return core.AttachmentRef{}, errNoBlobStore
	}
	if !l.Transactions.Has(txID) {
		return core.AttachmentRef{}, fmt.Errorf("transaction %q: %w", txID, core.ErrNotFound)
	}

	ref := core.AttachmentRef{BlobRef: string(l.ids()), Filename: filename, MediaType: mediaType, Size: len(data)}
	if err := l.blobs.PutBlob(ctx, ref.BlobRef, storage.Blob{Filename: filename, MediaType: mediaType, Data: data}); err != nil {
		return core.AttachmentRef{}, fmt.Errorf("store receipt: %w", err)
	}

	var previous *core.AttachmentRef
	err := l.Transactions.Update(ctx, txID, func(tx *core.Transaction) error {
		previous = tx.Receipt
		r := ref
		tx.Receipt = &r
		return nil
	})
	if !tolerate(err) {
		l.deleteBlob(ctx, ref.BlobRef)
		return core.AttachmentRef{}, err
	}
	if previous != nil {
		l.deleteBlob(ctx, previous.BlobRef)
	}
	return ref, err
}

// ReceiptData loads the receipt payload of a transaction.
func (l *Ledger) ReceiptData(ctx context.Context, txID core.ID) (storage.Blob, error) {
	if l.blobs == nil {
		return storage.Blob{}, errNoBlobStore
	}
	tx, ok := l.Transactions.Get(txID)
	if !ok {
		return storage.Blob{}, fmt.Errorf("transaction %q: %w", txID, core.ErrNotFound)
	}
	if tx.Receipt == nil {
		return storage.Blob{}, fmt.Errorf("transaction %q has no receipt: %w", txID, core.ErrNotFound)
	}
	return l.blobs.GetBlob(ctx, tx.Receipt.BlobRef)
}

// touch returns the current time, never earlier than created.
func (l *Ledger) touch(created time.Time) time.Time {
	now := l.now()
	if now.Before(created) {
		return created
	}
	return now
}
