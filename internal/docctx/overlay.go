package docctx

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"sermonscribe/api/internal/document"
	"sermonscribe/api/internal/editor"
	"sermonscribe/api/internal/review"
)

// EditorSyncDebounce coalesces the editor's rapid-fire JSON emissions
// into one conversion-and-commit per quiet period.
const EditorSyncDebounce = 500 * time.Millisecond

// LookupDebounce delays verse lookups while the user is still typing a
// reference.
const LookupDebounce = 300 * time.Millisecond

// LookupResult is what the verse service resolves a valid reference to.
type LookupResult struct {
	Found               bool
	VerseText           string
	NormalizedReference string
	Translation         string
}

// VerseLookup resolves a syntactically valid reference to verse text.
// Implementations must tolerate cancellation via ctx.
type VerseLookup interface {
	Lookup(ctx context.Context, reference string) (LookupResult, error)
}

// EditorSync feeds the rich-text editor's native JSON through the
// converter into the document context. Updates are debounced so a typing
// burst commits once, and they enter the context tagged as editor-sourced
// so the external version does not advance and the editor is never asked
// to re-apply its own write.
type EditorSync struct {
	ctx      *DocumentContext
	debounce *Debouncer

	mu      sync.Mutex
	pending []byte
}

// NewEditorSync wires an editor surface to a document context.
func NewEditorSync(ctx *DocumentContext) *EditorSync {
	return &EditorSync{ctx: ctx, debounce: NewDebouncer(EditorSyncDebounce)}
}

// Push records the editor's latest JSON tree and schedules a debounced
// commit, replacing any pending one.
func (s *EditorSync) Push(raw []byte) {
	s.mu.Lock()
	s.pending = raw
	s.mu.Unlock()
	s.debounce.Trigger(s.commit)
}

// Flush commits any pending editor tree immediately.
func (s *EditorSync) Flush() { s.debounce.Flush() }

// Close drops any pending commit and clears the timer.
func (s *EditorSync) Close() { s.debounce.Cancel() }

func (s *EditorSync) commit() {
	s.mu.Lock()
	raw := s.pending
	s.pending = nil
	s.mu.Unlock()
	if raw == nil {
		return
	}

	tree, err := editor.ParseJSON(raw)
	if err != nil {
		log.Printf("editor sync: discarding malformed tree: %v", err)
		return
	}
	existing := s.ctx.Root()
	opts := editor.DefaultOptions()
	opts.ExistingRoot = existing
	root, warnings, err := editor.FromEditorTree(tree, opts)
	if err != nil {
		log.Printf("editor sync: conversion failed, keeping last good state: %v", err)
		return
	}
	for _, w := range warnings {
		log.Printf("editor sync: %s", w)
	}
	if err := s.ctx.UpdateDocumentState(root, SourceEditor); err != nil {
		log.Printf("editor sync: %v", err)
	}
}

// Render converts the canonical tree to the editor's JSON shape, used
// when the external version advances and the editor must re-sync.
func (s *EditorSync) Render() (editor.Node, error) {
	return editor.ToEditorTree(s.ctx.Root(), editor.DefaultOptions())
}

// QuoteOverlay is the controller behind the quote review surfaces. It
// owns the review state machine, routes committing actions into the AST
// through the document context, and runs the debounced boundary-commit
// and verse-lookup flows. The review state is a derived projection; every
// committing action writes the AST first and re-dispatches into the
// reducer, never the other way around.
type QuoteOverlay struct {
	ctx    *DocumentContext
	lookup VerseLookup

	mu    sync.Mutex
	state review.State

	committer      *review.BoundaryCommitter
	lookupDebounce *Debouncer
}

// NewQuoteOverlay builds the controller. lookup may be nil; reference
// entry then validates locally without fetching verse text.
func NewQuoteOverlay(ctx *DocumentContext, lookup VerseLookup) *QuoteOverlay {
	o := &QuoteOverlay{
		ctx:            ctx,
		lookup:         lookup,
		state:          review.NewState(),
		lookupDebounce: NewDebouncer(LookupDebounce),
	}
	o.committer = review.NewBoundaryCommitter(o.commitBoundary)
	o.Refresh()
	return o
}

// Close clears every pending timer. Nothing commits afterwards.
func (o *QuoteOverlay) Close() {
	o.committer.Cancel()
	o.lookupDebounce.Cancel()
}

// State returns a copy of the current review state.
func (o *QuoteOverlay) State() review.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Dispatch runs a non-committing action (focus, filters, panel
// visibility, mode toggles) through the reducer.
func (o *QuoteOverlay) Dispatch(action review.Action) {
	o.mu.Lock()
	o.state = review.Reduce(o.state, action)
	o.mu.Unlock()
}

// Refresh re-projects the quote list from the canonical tree.
func (o *QuoteOverlay) Refresh() {
	quotes := o.ctx.Quotes()
	o.Dispatch(review.SetQuotes{Quotes: quotes})
}

// Verify writes the verification flag into the quote's metadata and
// reflects it into the review projection.
func (o *QuoteOverlay) Verify(quoteID string, verified bool) error {
	root := o.ctx.Root()
	if !root.SetQuoteVerified(quoteID, verified) {
		return nil // stale id
	}
	if err := o.ctx.updateFromOverlay(root, document.EventQuoteVerified, quoteID); err != nil {
		return err
	}
	o.Dispatch(review.VerifyQuote{ID: quoteID, Verified: verified})
	return nil
}

// SetReference parses the typed reference, writes it into the quote's
// metadata, and updates the projection. Invalid input is returned as a
// validation result on the parse, never sent to the AST.
func (o *QuoteOverlay) SetReference(quoteID, input, verseText, translation string) (review.ParsedReference, error) {
	parsed := review.ParseReference(input)
	if !parsed.Valid {
		return parsed, nil
	}
	ref := document.Reference{
		Book:                parsed.Book,
		Chapter:             parsed.Chapter,
		VerseStart:          parsed.VerseStart,
		VerseEnd:            parsed.VerseEnd,
		OriginalText:        input,
		NormalizedReference: parsed.Normalized,
	}
	root := o.ctx.Root()
	if !root.SetQuoteReference(quoteID, ref, verseText, translation) {
		return parsed, nil
	}
	if err := o.ctx.updateFromOverlay(root, document.EventEdit, quoteID); err != nil {
		return parsed, err
	}
	o.Dispatch(review.UpdateQuote{ID: quoteID, Reference: &ref})
	return parsed, nil
}

// SetNonBiblical flags a quote as intentionally unreferenced.
func (o *QuoteOverlay) SetNonBiblical(quoteID string, nonBiblical bool) error {
	root := o.ctx.Root()
	if !root.SetQuoteNonBiblical(quoteID, nonBiblical) {
		return nil
	}
	if err := o.ctx.updateFromOverlay(root, document.EventEdit, quoteID); err != nil {
		return err
	}
	o.Dispatch(review.UpdateQuote{ID: quoteID, IsNonBiblical: &nonBiblical})
	return nil
}

// SetText replaces a quote's text content.
func (o *QuoteOverlay) SetText(quoteID, text string) error {
	root := o.ctx.Root()
	if !root.SetQuoteText(quoteID, text) {
		return nil
	}
	if err := o.ctx.updateFromOverlay(root, document.EventEdit, quoteID); err != nil {
		return err
	}
	o.Dispatch(review.UpdateQuote{ID: quoteID, Text: &text})
	return nil
}

// Remove converts the quote block back into a plain paragraph and drops
// it from the review list.
func (o *QuoteOverlay) Remove(quoteID string) error {
	root := o.ctx.Root()
	if !root.RemoveQuote(quoteID) {
		return nil
	}
	if err := o.ctx.updateFromOverlay(root, document.EventQuoteDeleted, quoteID); err != nil {
		return err
	}
	o.Dispatch(review.RemoveQuote{ID: quoteID})
	return nil
}

// BeginCreate starts the creation workflow from a captured selection.
func (o *QuoteOverlay) BeginCreate(selectedText string, paragraphs []review.ParagraphSpan, start, end int) {
	o.Dispatch(review.BeginCreate{
		SelectedText: selectedText,
		Paragraphs:   paragraphs,
		StartOffset:  start,
		EndOffset:    end,
	})
}

// SetReferenceInput records reference keystrokes and, once the input
// parses, schedules a debounced verse lookup. A superseding keystroke
// cancels the pending lookup, and a resolved lookup whose input no longer
// matches is dropped by the reducer.
func (o *QuoteOverlay) SetReferenceInput(input string) {
	o.Dispatch(review.SetReferenceInput{Text: input})
	o.lookupDebounce.Cancel()

	if o.lookup == nil || !review.ParseReference(input).Valid {
		return
	}
	o.lookupDebounce.Trigger(func() {
		o.Dispatch(review.LookupStarted{Input: input})
		res, err := o.lookup.Lookup(context.Background(), input)
		if err != nil {
			log.Printf("verse lookup %q: %v", input, err)
			o.Dispatch(review.LookupResolved{Input: input})
			return
		}
		o.Dispatch(review.LookupResolved{
			Input:       input,
			Found:       res.Found,
			VerseText:   res.VerseText,
			Normalized:  res.NormalizedReference,
			Translation: res.Translation,
		})
	})
}

// ConfirmCreate carves the quote block out of the selected paragraphs in
// the AST, then lands the creation in the review state. A selection
// spanning several paragraphs raises the merge negotiation for whatever
// remainders the carve left behind.
func (o *QuoteOverlay) ConfirmCreate() (string, error) {
	o.mu.Lock()
	creation := o.state.Creation
	o.mu.Unlock()
	if creation == nil {
		return "", fmt.Errorf("confirm create: no creation in progress")
	}

	meta := document.QuoteMetadata{
		Detection: document.Detection{Confidence: 1, Translation: creation.Translation, VerseText: creation.VerseText},
	}
	if creation.Parsed.Valid {
		meta.Reference = document.Reference{
			Book:                creation.Parsed.Book,
			Chapter:             creation.Parsed.Chapter,
			VerseStart:          creation.Parsed.VerseStart,
			VerseEnd:            creation.Parsed.VerseEnd,
			OriginalText:        creation.ReferenceInput,
			NormalizedReference: creation.Parsed.Normalized,
		}
		if creation.Normalized != "" {
			meta.Reference.NormalizedReference = creation.Normalized
		}
	} else {
		meta.IsNonBiblical = true
	}

	ids := make([]string, 0, len(creation.Paragraphs))
	for _, p := range creation.Paragraphs {
		ids = append(ids, p.ID)
	}
	localStart, localEnd := creation.StartOffset, creation.EndOffset
	if len(creation.Paragraphs) > 0 {
		first := creation.Paragraphs[0]
		last := creation.Paragraphs[len(creation.Paragraphs)-1]
		localStart -= first.StartOffset
		localEnd -= last.StartOffset
		if localStart < 0 {
			localStart = 0
		}
		if end := len(last.Text); localEnd > end {
			localEnd = end
		}
	}

	root := o.ctx.Root()
	quoteID, err := root.CreateQuoteFromSpan(ids, localStart, localEnd, meta)
	if err != nil {
		return "", fmt.Errorf("confirm create: %w", err)
	}
	if err := o.ctx.updateFromOverlay(root, document.EventQuoteCreated, quoteID); err != nil {
		return "", err
	}
	o.Dispatch(review.ConfirmCreate{QuoteID: quoteID})
	o.Refresh()
	o.retargetPendingMerge(ids)
	o.applyAutoConfirmMerge()
	return quoteID, nil
}

// retargetPendingMerge re-points a merge raised at creation time from the
// spanned paragraphs to whichever remainders survived the carve, since
// the carve may have consumed some of them whole. Fewer than two
// survivors means there is nothing left to merge.
func (o *QuoteOverlay) retargetPendingMerge(ids []string) {
	o.mu.Lock()
	pending := o.state.PendingMerge != nil
	o.mu.Unlock()
	if !pending {
		return
	}
	wanted := map[string]bool{}
	for _, id := range ids {
		wanted[id] = true
	}
	var remainders []review.ParagraphSpan
	for _, p := range o.ctx.Paragraphs() {
		if wanted[p.ID] {
			remainders = append(remainders, p)
		}
	}
	if len(remainders) < 2 {
		o.Dispatch(review.CancelMerge{})
		return
	}
	o.Dispatch(review.RequestMerge{Paragraphs: remainders})
}

// applyAutoConfirmMerge applies a pending merge that does not require
// confirmation. Everything else waits for an explicit ConfirmMerge.
func (o *QuoteOverlay) applyAutoConfirmMerge() {
	o.mu.Lock()
	auto := o.state.PendingMerge != nil && !o.state.PendingMerge.RequiresConfirmation
	o.mu.Unlock()
	if !auto {
		return
	}
	if _, err := o.ConfirmMerge(); err != nil {
		log.Printf("auto-confirm merge: %v", err)
	}
}

// CancelCreate abandons the workflow and its pending lookup.
func (o *QuoteOverlay) CancelCreate() {
	o.lookupDebounce.Cancel()
	o.Dispatch(review.CancelCreate{})
}

// StartDrag begins live boundary tracking on one quote edge.
func (o *QuoteOverlay) StartDrag(quoteID string, edge review.Edge, offset int) {
	o.Dispatch(review.StartDrag{QuoteID: quoteID, Edge: edge, Offset: offset})
}

// UpdateDrag feeds a pointer movement through the reducer, which holds
// the non-dragged edge fixed and flags would-merge paragraph overlap.
func (o *QuoteOverlay) UpdateDrag(offset int) {
	o.Dispatch(review.UpdateDrag{Offset: offset, Paragraphs: o.ctx.Paragraphs()})
}

// EndDrag proposes the current preview range for a debounced commit.
// Ending again within the window replaces the pending proposal.
func (o *QuoteOverlay) EndDrag() {
	o.mu.Lock()
	drag := o.state.Drag
	o.mu.Unlock()
	if drag == nil {
		return
	}
	start, end := drag.PreviewRange()
	var merge []review.ParagraphSpan
	if drag.WouldMergeParagraphs {
		merge = overlapFor(drag, o.ctx.Paragraphs())
	}
	o.committer.Propose(review.Proposal{QuoteID: drag.QuoteID, Start: start, End: end, Merge: merge})
}

// CancelDrag discards the live drag and any pending debounced commit.
func (o *QuoteOverlay) CancelDrag() {
	o.committer.Cancel()
	o.Dispatch(review.CancelDrag{})
}

// commitBoundary lands a settled drag. A boundary that stays within its
// paragraph reslices the quote in the AST right away; one that crosses
// into neighbors raises the merge negotiation and applies on
// confirmation, so the canonical tree never holds a half-committed
// boundary.
func (o *QuoteOverlay) commitBoundary(p review.Proposal) {
	if len(p.Merge) > 1 {
		o.Dispatch(review.CommitBoundary{QuoteID: p.QuoteID, Start: p.Start, End: p.End, Merge: p.Merge})
		o.applyAutoConfirmMerge()
		return
	}

	root := o.ctx.Root()
	if err := root.ResliceQuote(p.QuoteID, p.Start, p.End); err != nil {
		log.Printf("boundary commit %s: %v", p.QuoteID, err)
		o.Dispatch(review.CancelDrag{})
		return
	}
	if err := o.ctx.updateFromOverlay(root, document.EventEdit, p.QuoteID); err != nil {
		log.Printf("boundary commit %s: %v", p.QuoteID, err)
		return
	}
	o.Dispatch(review.CommitBoundary{QuoteID: p.QuoteID, Start: p.Start, End: p.End})
	o.Refresh()
}

// ExitBoundaryEdit leaves keyboard boundary-edit mode. Committing applies
// the previewed extent to the AST before the reducer records it.
func (o *QuoteOverlay) ExitBoundaryEdit(commit bool) error {
	o.mu.Lock()
	edit := o.state.BoundaryEdit
	o.mu.Unlock()
	if commit && edit != nil {
		root := o.ctx.Root()
		if err := root.ResliceQuote(edit.QuoteID, edit.PreviewStart, edit.PreviewEnd); err != nil {
			o.Dispatch(review.ExitBoundaryEdit{})
			return fmt.Errorf("boundary edit %s: %w", edit.QuoteID, err)
		}
		if err := o.ctx.updateFromOverlay(root, document.EventEdit, edit.QuoteID); err != nil {
			return err
		}
	}
	o.Dispatch(review.ExitBoundaryEdit{Commit: commit})
	if commit {
		o.Refresh()
	}
	return nil
}

// ConfirmMerge applies the pending merge to the AST and clears the
// negotiation slot. A merge raised by a boundary commit applies the
// suspended boundary, consuming the overlapped paragraphs into the quote;
// a plain merge collapses the named paragraphs.
func (o *QuoteOverlay) ConfirmMerge() (string, error) {
	o.mu.Lock()
	pending := o.state.PendingMerge
	o.mu.Unlock()
	if pending == nil {
		return "", fmt.Errorf("confirm merge: nothing pending")
	}

	root := o.ctx.Root()
	if pending.QuoteID != "" {
		if err := root.ResliceQuote(pending.QuoteID, pending.QuoteStart, pending.QuoteEnd); err != nil {
			return "", fmt.Errorf("confirm merge: %w", err)
		}
		if err := o.ctx.updateFromOverlay(root, document.EventMerge, pending.QuoteID); err != nil {
			return "", err
		}
		o.Dispatch(review.ConfirmMerge{})
		o.Refresh()
		return pending.QuoteID, nil
	}

	survivor, err := root.MergeParagraphs(pending.ParagraphIDs)
	if err != nil {
		return "", fmt.Errorf("confirm merge: %w", err)
	}
	if err := o.ctx.updateFromOverlay(root, document.EventMerge, survivor); err != nil {
		return "", err
	}
	o.Dispatch(review.ConfirmMerge{})
	o.Refresh()
	return survivor, nil
}

// CancelMerge clears the pending merge without touching the AST.
func (o *QuoteOverlay) CancelMerge() {
	o.Dispatch(review.CancelMerge{})
}

// BeginInterjectionEdit detects candidates in the quote's text and opens
// the edit session. Candidates below the display threshold are hidden
// but never silently confirmed.
func (o *QuoteOverlay) BeginInterjectionEdit(quoteID string) {
	o.mu.Lock()
	var text string
	threshold := o.state.ConfidenceThreshold
	for _, q := range o.state.Quotes {
		if q.ID == quoteID {
			text = q.Text
			break
		}
	}
	o.mu.Unlock()

	candidates := review.FilterByConfidence(review.DetectInterjections(text), threshold)
	o.Dispatch(review.BeginInterjectionEdit{QuoteID: quoteID, Candidates: candidates})
}

// ConfirmInterjection writes the candidate into the quote's metadata as a
// confirmed interjection node, then records the decision in the session.
func (o *QuoteOverlay) ConfirmInterjection(index int) error {
	o.mu.Lock()
	edit := o.state.InterjectionEdit
	o.mu.Unlock()
	if edit == nil || index < 0 || index >= len(edit.Candidates) {
		return nil
	}
	c := edit.Candidates[index]

	root := o.ctx.Root()
	if _, err := root.AddInterjection(edit.QuoteID, c.Text, c.StartOffset); err != nil {
		return fmt.Errorf("confirm interjection: %w", err)
	}
	if err := o.ctx.updateFromOverlay(root, document.EventEdit, edit.QuoteID); err != nil {
		return err
	}
	o.Dispatch(review.ConfirmInterjection{Index: index})
	return nil
}

// RejectInterjection records a rejection. The AST is untouched.
func (o *QuoteOverlay) RejectInterjection(index int) {
	o.Dispatch(review.RejectInterjection{Index: index})
}

// EndInterjectionEdit closes the session.
func (o *QuoteOverlay) EndInterjectionEdit() {
	o.Dispatch(review.EndInterjectionEdit{})
}

func overlapFor(drag *review.DragState, paragraphs []review.ParagraphSpan) []review.ParagraphSpan {
	var out []review.ParagraphSpan
	for _, p := range paragraphs {
		for _, id := range drag.MergeParagraphIDs {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out
}
