package review

import (
	"sermonscribe/api/internal/document"
)

// Reduce applies one action to the state and returns the next state. It
// is pure and never panics: mutating actions that target a quote id
// absent from the current list return the state unchanged, tolerating
// stale UI callbacks that race a deletion.
func Reduce(s State, action Action) State {
	switch a := action.(type) {
	case SetQuotes:
		s.Quotes = cloneQuotes(a.Quotes)
		return s

	case AddQuote:
		quotes := cloneQuotes(s.Quotes)
		s.Quotes = append(quotes, a.Quote)
		return s

	case UpdateQuote:
		i := s.findQuote(a.ID)
		if i < 0 {
			return s
		}
		quotes := cloneQuotes(s.Quotes)
		if a.Text != nil {
			quotes[i].Text = *a.Text
		}
		if a.Reference != nil {
			ref := *a.Reference
			quotes[i].Reference = &ref
			quotes[i].IsNonBiblical = false
		}
		if a.IsNonBiblical != nil {
			quotes[i].IsNonBiblical = *a.IsNonBiblical
		}
		if a.Interjections != nil {
			quotes[i].Interjections = append([]string(nil), a.Interjections...)
		}
		s.Quotes = quotes
		return s

	case RemoveQuote:
		i := s.findQuote(a.ID)
		if i < 0 {
			return s
		}
		quotes := cloneQuotes(s.Quotes)
		s.Quotes = append(quotes[:i], quotes[i+1:]...)
		if s.FocusedID == a.ID {
			s.FocusedID = ""
		}
		if s.InterjectionEdit != nil && s.InterjectionEdit.QuoteID == a.ID {
			s.InterjectionEdit = nil
		}
		if s.BoundaryEdit != nil && s.BoundaryEdit.QuoteID == a.ID {
			s.BoundaryEdit = nil
		}
		if s.Drag != nil && s.Drag.QuoteID == a.ID {
			s.Drag = nil
		}
		return s

	case VerifyQuote:
		i := s.findQuote(a.ID)
		if i < 0 {
			return s
		}
		quotes := cloneQuotes(s.Quotes)
		quotes[i].IsReviewed = a.Verified
		s.Quotes = quotes
		return s

	case SetReviewMode:
		s.ReviewMode = a.Enabled
		if !a.Enabled {
			s.FocusedID = ""
			s.BoundaryEdit = nil
			s.Drag = nil
			s.InterjectionEdit = nil
		}
		return s

	case FocusQuote:
		if a.ID != "" && s.findQuote(a.ID) < 0 {
			return s
		}
		s.FocusedID = a.ID
		return s

	case FocusNext:
		return focusStep(s, 1)

	case FocusPrev:
		return focusStep(s, -1)

	case SetPanelVisible:
		s.PanelVisible = a.Visible
		return s

	case SetFilter:
		s.Filter = a.Filter
		s.FilterBook = a.Book
		return s

	case SetSearchText:
		s.SearchText = a.Text
		return s

	case EnterBoundaryEdit:
		i := s.findQuote(a.QuoteID)
		if i < 0 {
			return s
		}
		q := s.Quotes[i]
		s.BoundaryEdit = &BoundaryEditState{
			QuoteID:       a.QuoteID,
			OriginalStart: q.StartOffset,
			OriginalEnd:   q.EndOffset,
			PreviewStart:  q.StartOffset,
			PreviewEnd:    q.EndOffset,
		}
		return s

	case PreviewBoundary:
		if s.BoundaryEdit == nil || a.Start > a.End {
			return s
		}
		edit := *s.BoundaryEdit
		edit.PreviewStart = a.Start
		edit.PreviewEnd = a.End
		s.BoundaryEdit = &edit
		return s

	case ExitBoundaryEdit:
		edit := s.BoundaryEdit
		s.BoundaryEdit = nil
		if !a.Commit || edit == nil {
			return s
		}
		return Reduce(s, CommitBoundary{QuoteID: edit.QuoteID, Start: edit.PreviewStart, End: edit.PreviewEnd})

	case StartDrag:
		i := s.findQuote(a.QuoteID)
		if i < 0 {
			return s
		}
		q := s.Quotes[i]
		s.Drag = &DragState{
			QuoteID:       a.QuoteID,
			Edge:          a.Edge,
			OriginalStart: q.StartOffset,
			OriginalEnd:   q.EndOffset,
			Current:       a.Offset,
		}
		return s

	case UpdateDrag:
		if s.Drag == nil {
			return s
		}
		drag := *s.Drag
		// The dragged edge may not cross the fixed one.
		if drag.Edge == EdgeStart {
			drag.Current = min(a.Offset, drag.OriginalEnd)
		} else {
			drag.Current = max(a.Offset, drag.OriginalStart)
		}
		start, end := drag.PreviewRange()
		overlap := overlappingSpans(a.Paragraphs, start, end)
		drag.WouldMergeParagraphs = len(overlap) > 1
		drag.MergeParagraphIDs = nil
		for _, span := range overlap {
			drag.MergeParagraphIDs = append(drag.MergeParagraphIDs, span.ID)
		}
		s.Drag = &drag
		return s

	case CommitBoundary:
		i := s.findQuote(a.QuoteID)
		if i < 0 {
			return s
		}
		if a.Start > a.End {
			return s
		}
		if s.Drag != nil && s.Drag.QuoteID == a.QuoteID {
			s.Drag = nil
		}
		if len(a.Merge) > 1 {
			// The boundary crosses paragraphs: the offsets stay put and
			// the whole commit waits on the merge negotiation.
			preview := PreviewMerge(a.Merge, s.AutoConfirmMerge)
			preview.QuoteID = a.QuoteID
			preview.QuoteStart = a.Start
			preview.QuoteEnd = a.End
			s.PendingMerge = &preview
			return s
		}
		quotes := cloneQuotes(s.Quotes)
		quotes[i].StartOffset = a.Start
		quotes[i].EndOffset = a.End
		s.Quotes = quotes
		return s

	case CancelDrag:
		s.Drag = nil
		return s

	case BeginCreate:
		s.Creation = &CreationState{
			SelectedText: a.SelectedText,
			Paragraphs:   append([]ParagraphSpan(nil), a.Paragraphs...),
			StartOffset:  a.StartOffset,
			EndOffset:    a.EndOffset,
		}
		return s

	case SetReferenceInput:
		if s.Creation == nil {
			return s
		}
		creation := *s.Creation
		creation.ReferenceInput = a.Text
		creation.Parsed = ParseReference(a.Text)
		// New input supersedes any in-flight lookup.
		creation.LookupPending = false
		creation.LookupInput = ""
		creation.VerseText = ""
		creation.Normalized = ""
		s.Creation = &creation
		return s

	case LookupStarted:
		if s.Creation == nil || a.Input != s.Creation.ReferenceInput {
			return s
		}
		creation := *s.Creation
		creation.LookupPending = true
		creation.LookupInput = a.Input
		s.Creation = &creation
		return s

	case LookupResolved:
		// Guard: a lookup whose input has since changed must not apply.
		if s.Creation == nil || a.Input != s.Creation.ReferenceInput {
			return s
		}
		creation := *s.Creation
		creation.LookupPending = false
		if a.Found {
			creation.VerseText = a.VerseText
			creation.Normalized = a.Normalized
			creation.Translation = a.Translation
		}
		s.Creation = &creation
		return s

	case ConfirmCreate:
		creation := s.Creation
		if creation == nil {
			return s
		}
		s.Creation = nil

		id := a.QuoteID
		if id == "" {
			id = document.NewNodeID()
		}
		item := QuoteReviewItem{
			ID:          id,
			Text:        creation.SelectedText,
			IsReviewed:  false,
			StartOffset: creation.StartOffset,
			EndOffset:   creation.EndOffset,
		}
		if len(creation.Paragraphs) > 0 {
			item.ParagraphID = creation.Paragraphs[0].ID
		}
		if creation.Parsed.Valid {
			ref := document.Reference{
				Book:                creation.Parsed.Book,
				Chapter:             creation.Parsed.Chapter,
				VerseStart:          creation.Parsed.VerseStart,
				VerseEnd:            creation.Parsed.VerseEnd,
				OriginalText:        creation.ReferenceInput,
				NormalizedReference: creation.Parsed.Normalized,
			}
			if creation.Normalized != "" {
				ref.NormalizedReference = creation.Normalized
			}
			item.Reference = &ref
		} else {
			item.IsNonBiblical = true
		}
		s.Quotes = append(cloneQuotes(s.Quotes), item)

		if len(creation.Paragraphs) > 1 {
			preview := PreviewMerge(creation.Paragraphs, s.AutoConfirmMerge)
			s.PendingMerge = &preview
		}
		return s

	case CancelCreate:
		s.Creation = nil
		return s

	case BeginInterjectionEdit:
		if s.findQuote(a.QuoteID) < 0 {
			return s
		}
		s.InterjectionEdit = &InterjectionEditState{
			QuoteID:    a.QuoteID,
			Candidates: append([]Candidate(nil), a.Candidates...),
			Statuses:   make([]CandidateStatus, len(a.Candidates)),
		}
		return s

	case ConfirmInterjection:
		return setCandidateStatus(s, a.Index, CandidateConfirmed)

	case RejectInterjection:
		return setCandidateStatus(s, a.Index, CandidateRejected)

	case EndInterjectionEdit:
		s.InterjectionEdit = nil
		return s

	case RequestMerge:
		if len(a.Paragraphs) < 2 {
			return s
		}
		preview := PreviewMerge(a.Paragraphs, s.AutoConfirmMerge)
		s.PendingMerge = &preview
		return s

	case ConfirmMerge:
		s.PendingMerge = nil
		return s

	case CancelMerge:
		s.PendingMerge = nil
		return s

	case SetAutoConfirmMerge:
		s.AutoConfirmMerge = a.Enabled
		return s

	default:
		return s
	}
}

func focusStep(s State, delta int) State {
	if len(s.Quotes) == 0 {
		return s
	}
	current := s.findQuote(s.FocusedID)
	next := current + delta
	if current < 0 {
		if delta > 0 {
			next = 0
		} else {
			next = len(s.Quotes) - 1
		}
	}
	if next < 0 || next >= len(s.Quotes) {
		return s
	}
	s.FocusedID = s.Quotes[next].ID
	return s
}

// setCandidateStatus updates one pending candidate; confirming also
// reflects the text into the quote's denormalized interjection list. The
// AST write happens in the overlay's commit path, not here.
func setCandidateStatus(s State, index int, status CandidateStatus) State {
	edit := s.InterjectionEdit
	if edit == nil || index < 0 || index >= len(edit.Candidates) {
		return s
	}
	next := *edit
	next.Statuses = append([]CandidateStatus(nil), edit.Statuses...)
	next.Statuses[index] = status
	s.InterjectionEdit = &next

	if status == CandidateConfirmed {
		if i := s.findQuote(edit.QuoteID); i >= 0 {
			quotes := cloneQuotes(s.Quotes)
			quotes[i].Interjections = append(
				append([]string(nil), quotes[i].Interjections...),
				edit.Candidates[index].Text,
			)
			s.Quotes = quotes
		}
	}
	return s
}
