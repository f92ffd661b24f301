package workflow

import "github.com/xraph/docflow/schema"

// Replay derives the live document set from a history by applying INIT
// additions and REVIEW removals then additions in order. The result maps
// every live id to the hash it was last added with.
func Replay(history []HistoryEntry) map[DocID]Hash {
	live := make(map[DocID]Hash)
	for _, e := range history {
		switch e.Action {
		case schema.Init, schema.Review:
			for _, d := range e.Removed {
				delete(live, d)
			}
			for i, d := range e.Added {
				if i < len(e.Content) {
					live[d] = e.Content[i]
				}
			}
		}
	}
	return live
}
