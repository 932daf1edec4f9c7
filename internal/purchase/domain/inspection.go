package domain

import (
	"time"

	"github.com/dmehra2102/Property-Marketplace/pkg/blob"
)

// Issue photo fields. Each holds a list of {storagePath} or {url} objects.
const (
	FieldBeforePhotos = "beforePhotos"
	FieldAfterPhotos  = "afterPhotos"
)

type PhotoRef struct {
	StoragePath string
	URL         string
}

// Path returns the stored object key, deriving it from the URL when no
// explicit path was recorded.
func (r PhotoRef) Path() string {
	if r.StoragePath != "" {
		return r.StoragePath
	}
	return blob.ExtractStoragePath(r.URL)
}

// IssuePhotoRefs reads the before and after photo lists of an issue document.
// Entries that are not objects are skipped.
func IssuePhotoRefs(data map[string]any) []PhotoRef {
	var refs []PhotoRef
	for _, field := range []string{FieldBeforePhotos, FieldAfterPhotos} {
		list, _ := data[field].([]any)
		for _, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			path, _ := m["storagePath"].(string)
			url, _ := m["url"].(string)
			if path == "" && url == "" {
				continue
			}
			refs = append(refs, PhotoRef{StoragePath: path, URL: url})
		}
	}
	return refs
}

// NewInspectionState is the singleton written when a purchase is confirmed.
// Handover fields stay empty until the seller schedules the handover.
func NewInspectionState(updatedBy string, at time.Time) map[string]any {
	return map[string]any{
		"handoverDate": nil,
		"handoverNote": "",
		"updatedAt":    at.UTC().Format(time.RFC3339Nano),
		"updatedBy":    updatedBy,
	}
}
