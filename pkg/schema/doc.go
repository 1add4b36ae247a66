package schema

// Doc carries the free-form description attached to a struct, type,
// attribute or instance via the "doc" key.
type Doc struct {
	Description string
}

// DocRefEntry is one entry of a "doc-ref" list: a URL with optional
// trailing free text, as split by the doc-ref pattern.
type DocRefEntry struct {
	URL           string
	ArbitraryText string
}

// DocRef is the ordered list of doc-ref entries attached to an entity.
type DocRef struct {
	Entries []DocRefEntry
}
