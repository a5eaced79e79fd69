package model

import "time"

// Document is an uploaded book reduced to its title and full text.
// Content is immutable once stored and is shared read-only by every subscription referencing it.
type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"-"`
	StoragePath string    `json:"storage_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// DocumentInfo is the metadata view of a Document, without its text.
type DocumentInfo struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Length      int       `json:"length"`
	StoragePath string    `json:"storage_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
