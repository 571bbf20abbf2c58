// Package review holds the quote review state machine: a reducer over one
// state record driven by a closed action set, plus the reference parser,
// paragraph-merge negotiation, boundary-drag protocol, and interjection
// candidate handling that feed it.
package review

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// referencePattern is the authoritative grammar for verse references:
// optional leading book ordinal (1-3), book name with internal spaces,
// mandatory chapter, mandatory verse, optional verse range end.
var referencePattern = regexp.MustCompile(`^([1-3]?\s*[A-Za-z]+(?:\s+[A-Za-z]+)*)\s*(\d+):(\d+)(?:-(\d+))?$`)

var whitespaceRun = regexp.MustCompile(`\s+`)

// ParsedReference is the validation result for a typed reference string.
// Lookup must never be attempted when Valid is false.
type ParsedReference struct {
	Valid      bool
	Book       string
	Chapter    int
	VerseStart int
	VerseEnd   *int
	Normalized string
}

// ParseReference validates and decomposes a reference of the form
// "Book[ Chapter]:Verse[-Verse]". Anything not matching the grammar is
// invalid, returned as a result rather than an error.
func ParseReference(input string) ParsedReference {
	match := referencePattern.FindStringSubmatch(strings.TrimSpace(input))
	if match == nil {
		return ParsedReference{}
	}

	book := whitespaceRun.ReplaceAllString(strings.TrimSpace(match[1]), " ")
	chapter, err := strconv.Atoi(match[2])
	if err != nil {
		return ParsedReference{}
	}
	verseStart, err := strconv.Atoi(match[3])
	if err != nil {
		return ParsedReference{}
	}

	ref := ParsedReference{
		Valid:      true,
		Book:       book,
		Chapter:    chapter,
		VerseStart: verseStart,
	}
	if match[4] != "" {
		verseEnd, err := strconv.Atoi(match[4])
		if err != nil || verseEnd < verseStart {
			return ParsedReference{}
		}
		ref.VerseEnd = &verseEnd
	}

	ref.Normalized = fmt.Sprintf("%s %d:%d", book, chapter, verseStart)
	if ref.VerseEnd != nil {
		ref.Normalized += fmt.Sprintf("-%d", *ref.VerseEnd)
	}
	return ref
}

// bookAliases maps lowercase book spellings and common abbreviations to
// canonical names, used as the lookup key for the verse service.
var bookAliases = map[string]string{
	"gen": "Genesis", "genesis": "Genesis",
	"exod": "Exodus", "exo": "Exodus", "ex": "Exodus", "exodus": "Exodus",
	"lev": "Leviticus", "leviticus": "Leviticus",
	"num": "Numbers", "numbers": "Numbers",
	"deut": "Deuteronomy", "deu": "Deuteronomy", "deuteronomy": "Deuteronomy",
	"josh": "Joshua", "joshua": "Joshua",
	"judg": "Judges", "judges": "Judges",
	"ruth": "Ruth",
	"1 sam": "1 Samuel", "1 samuel": "1 Samuel",
	"2 sam": "2 Samuel", "2 samuel": "2 Samuel",
	"1 kgs": "1 Kings", "1 kings": "1 Kings",
	"2 kgs": "2 Kings", "2 kings": "2 Kings",
	"1 chr": "1 Chronicles", "1 chronicles": "1 Chronicles",
	"2 chr": "2 Chronicles", "2 chronicles": "2 Chronicles",
	"ezra": "Ezra",
	"neh": "Nehemiah", "nehemiah": "Nehemiah",
	"esth": "Esther", "esther": "Esther",
	"job": "Job",
	"ps": "Psalms", "psa": "Psalms", "psalm": "Psalms", "psalms": "Psalms",
	"prov": "Proverbs", "proverbs": "Proverbs",
	"eccl": "Ecclesiastes", "ecclesiastes": "Ecclesiastes",
	"song": "Song of Solomon", "song of solomon": "Song of Solomon", "song of songs": "Song of Solomon",
	"isa": "Isaiah", "isaiah": "Isaiah",
	"jer": "Jeremiah", "jeremiah": "Jeremiah",
	"lam": "Lamentations", "lamentations": "Lamentations",
	"ezek": "Ezekiel", "ezekiel": "Ezekiel",
	"dan": "Daniel", "daniel": "Daniel",
	"hos": "Hosea", "hosea": "Hosea",
	"joel": "Joel",
	"amos": "Amos",
	"obad": "Obadiah", "obadiah": "Obadiah",
	"jonah": "Jonah",
	"mic": "Micah", "micah": "Micah",
	"nah": "Nahum", "nahum": "Nahum",
	"hab": "Habakkuk", "habakkuk": "Habakkuk",
	"zeph": "Zephaniah", "zephaniah": "Zephaniah",
	"hag": "Haggai", "haggai": "Haggai",
	"zech": "Zechariah", "zechariah": "Zechariah",
	"mal": "Malachi", "malachi": "Malachi",
	"matt": "Matthew", "mat": "Matthew", "mt": "Matthew", "matthew": "Matthew",
	"mark": "Mark", "mk": "Mark",
	"luke": "Luke", "lk": "Luke",
	"john": "John", "jn": "John",
	"acts": "Acts",
	"rom": "Romans", "romans": "Romans",
	"1 cor": "1 Corinthians", "1 corinthians": "1 Corinthians",
	"2 cor": "2 Corinthians", "2 corinthians": "2 Corinthians",
	"gal": "Galatians", "galatians": "Galatians",
	"eph": "Ephesians", "ephesians": "Ephesians",
	"phil": "Philippians", "philippians": "Philippians",
	"col": "Colossians", "colossians": "Colossians",
	"1 thess": "1 Thessalonians", "1 thessalonians": "1 Thessalonians",
	"2 thess": "2 Thessalonians", "2 thessalonians": "2 Thessalonians",
	"1 tim": "1 Timothy", "1 timothy": "1 Timothy",
	"2 tim": "2 Timothy", "2 timothy": "2 Timothy",
	"titus": "Titus",
	"phlm": "Philemon", "philemon": "Philemon",
	"heb": "Hebrews", "hebrews": "Hebrews",
	"jas": "James", "james": "James",
	"1 pet": "1 Peter", "1 peter": "1 Peter",
	"2 pet": "2 Peter", "2 peter": "2 Peter",
	"1 john": "1 John", "2 john": "2 John", "3 john": "3 John",
	"jude": "Jude",
	"rev": "Revelation", "revelation": "Revelation",
}

// CanonicalBook resolves a book name or abbreviation to its canonical
// form. Unrecognized names come back unchanged.
func CanonicalBook(book string) string {
	key := strings.ToLower(whitespaceRun.ReplaceAllString(strings.TrimSpace(book), " "))
	if canonical, ok := bookAliases[key]; ok {
		return canonical
	}
	return book
}
