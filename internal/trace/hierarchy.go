package trace

// Hierarchy filters a parsed record list down to invoke records, preserving
// order. The result is the call forest consumed by the hierarchical layout;
// level and parent fields from the parser are authoritative and are not
// restructured here. An empty result signals "no hierarchical data" and
// callers fall back to flat layout.
func Hierarchy(records []InvocationRecord) []InvocationRecord {
	var forest []InvocationRecord
	for _, rec := range records {
		if rec.Kind == KindInvoke {
			forest = append(forest, rec)
		}
	}
	return forest
}

// LevelBuckets groups a call forest by nesting depth. Bucket L holds the
// records with Level == L in their original order. Levels are contiguous
// from zero to the deepest level present.
func LevelBuckets(forest []InvocationRecord) [][]InvocationRecord {
	maxLevel := -1
	for _, rec := range forest {
		if rec.Level > maxLevel {
			maxLevel = rec.Level
		}
	}
	if maxLevel < 0 {
		return nil
	}

	buckets := make([][]InvocationRecord, maxLevel+1)
	for _, rec := range forest {
		buckets[rec.Level] = append(buckets[rec.Level], rec)
	}
	return buckets
}
