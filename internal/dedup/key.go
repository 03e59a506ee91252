package dedup

// NoElementID stands in for an absent element identifier.
const NoElementID = "no_id"

// DeriveKey builds the dedup key for a captured text:
// sourceID + "_" + elementID + "_" + content.
//
// An empty elementID is treated as absent and replaced by NoElementID.
// Separators inside the parts are not escaped, so distinct triples whose
// concatenations coincide share a key.
func DeriveKey(sourceID, elementID, content string) string {
	if elementID == "" {
		elementID = NoElementID
	}
	return sourceID + "_" + elementID + "_" + content
}
