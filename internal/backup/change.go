package backup

import "github.com/andresuchdata/mediasync/internal/domain"

// HasChanged reports whether current differs from the entries of previous.
// It trusts the provider's size and modification time; an object rewritten
// with the same size inside the same timestamp resolution goes unnoticed.
func HasChanged(current []domain.FileRecord, previous *domain.BackupSnapshot) bool {
	if previous == nil {
		return true
	}
	if len(current) != len(previous.Entries) {
		return true
	}

	byKey := make(map[string]domain.FileRecord, len(previous.Entries))
	for _, entry := range previous.Entries {
		byKey[entry.Key] = entry
	}

	for _, entry := range current {
		prev, ok := byKey[entry.Key]
		if !ok {
			return true
		}
		if prev.Size != entry.Size || prev.LastModified != entry.LastModified {
			return true
		}
	}
	return false
}
